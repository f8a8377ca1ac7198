// Package extractor implements C3, format-aware content decoding. Given a
// FileRecord produced by the walker, it reads and classifies the file's
// text content, or emits metadata only for binary categories.
package extractor

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

// Extracted is the result of extracting one file (spec.md §4.3).
type Extracted struct {
	Title  string
	Tags   []string
	Body   string
	Viewer types.ViewerHint
}

var h1Pattern = regexp.MustCompile(`^#\s+(.+)$`)

// Extractor extracts text content from heterogeneous file formats.
type Extractor struct {
	maxFileSize int64
}

// New creates an Extractor honoring cfg.Index.MaxFileSize as the read cap
// for text formats (spec.md §4.3 default 2 MiB).
func New(cfg *config.Config) *Extractor {
	max := cfg.Index.MaxFileSize
	if max <= 0 {
		max = 2 * 1024 * 1024
	}
	return &Extractor{maxFileSize: max}
}

// Extract decodes rec per the category-specific rules in spec.md §4.3.
// Read failures are reported but never fatal: the returned Extracted still
// carries a usable title so the record reaches the index (spec.md §4.2
// Failure: "the record still reaches the index").
func (e *Extractor) Extract(rec types.FileRecord) Extracted {
	nameWithoutExt := strings.TrimSuffix(filepath.Base(rec.RelativePath), filepath.Ext(rec.RelativePath))

	switch rec.Category {
	case types.CategoryDocument:
		return e.extractDocument(rec, nameWithoutExt)
	case types.CategoryCode:
		return e.extractTextLike(rec, nameWithoutExt, viewerForCode(rec.Extension))
	case types.CategoryImage:
		return Extracted{Title: nameWithoutExt, Viewer: types.ViewerImage}
	case types.CategoryPDF:
		return Extracted{Title: nameWithoutExt, Viewer: types.ViewerPDF}
	case types.CategoryArchive:
		return Extracted{Title: nameWithoutExt, Viewer: types.ViewerArchive}
	case types.CategoryAudio:
		return Extracted{Title: nameWithoutExt, Viewer: types.ViewerAudio}
	case types.CategoryVideo:
		return Extracted{Title: nameWithoutExt, Viewer: types.ViewerVideo}
	default:
		return e.extractOther(rec, nameWithoutExt)
	}
}

func viewerForCode(ext string) types.ViewerHint {
	switch ext {
	case "json", "xml", "yml", "yaml", "html", "css":
		return types.ViewerText
	default:
		return types.ViewerCode
	}
}

func (e *Extractor) extractDocument(rec types.FileRecord, fallbackTitle string) Extracted {
	content, truncated, err := e.readCapped(rec.AbsolutePath)
	if err != nil {
		debug.LogExtract("ExtractionFailed(document) for %s: %v", rec.AbsolutePath, err)
		return Extracted{Title: fallbackTitle, Viewer: types.ViewerMarkdown}
	}
	if truncated {
		debug.LogExtract("truncated %s at extraction cap", rec.AbsolutePath)
	}

	if rec.Extension != "md" {
		return Extracted{Title: fallbackTitle, Body: content, Viewer: types.ViewerText}
	}

	body, tags := stripFrontmatter(content)
	title := firstH1(body)
	if title == "" {
		title = fallbackTitle
	}
	return Extracted{Title: title, Tags: tags, Body: body, Viewer: types.ViewerMarkdown}
}

func (e *Extractor) extractTextLike(rec types.FileRecord, title string, viewer types.ViewerHint) Extracted {
	content, truncated, err := e.readCapped(rec.AbsolutePath)
	if err != nil {
		debug.LogExtract("ExtractionFailed(code) for %s: %v", rec.AbsolutePath, err)
		return Extracted{Title: title, Viewer: viewer}
	}
	if truncated {
		debug.LogExtract("truncated %s at extraction cap", rec.AbsolutePath)
	}
	return Extracted{Title: title, Body: content, Viewer: viewer}
}

func (e *Extractor) extractOther(rec types.FileRecord, title string) Extracted {
	content, truncated, err := e.readCapped(rec.AbsolutePath)
	if err != nil || !utf8.ValidString(content) {
		return Extracted{Title: title, Viewer: types.ViewerBinary}
	}
	if truncated {
		debug.LogExtract("truncated %s at extraction cap", rec.AbsolutePath)
	}
	return Extracted{Title: title, Body: content, Viewer: types.ViewerText}
}

// readCapped reads up to e.maxFileSize bytes of path, reporting whether the
// file was longer than the cap.
func (e *Extractor) readCapped(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	buf := make([]byte, e.maxFileSize+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false, err
	}

	truncated := int64(n) > e.maxFileSize
	if truncated {
		n = int(e.maxFileSize)
	}
	return string(buf[:n]), truncated, nil
}

// firstH1 returns the trimmed text of the first non-blank line matching
// "^#\s+(.+)$", or "" if none.
func firstH1(body string) string {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m := h1Pattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	return ""
}

// stripFrontmatter parses a leading "---" delimited frontmatter block of
// simple "key: value" pairs (spec.md §4.3), returning the body after the
// block and the tags list (the "tags:" value split on commas).
func stripFrontmatter(content string) (string, []string) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return content, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return content, nil
	}

	var tags []string
	for _, line := range lines[1:end] {
		key, value, ok := splitFrontmatterLine(line)
		if !ok {
			continue
		}
		if key == "tags" {
			for _, t := range strings.Split(value, ",") {
				t = strings.TrimSpace(t)
				if t != "" {
					tags = append(tags, t)
				}
			}
		}
	}

	body := strings.Join(lines[end+1:], "\n")
	return strings.TrimPrefix(body, "\n"), tags
}

func splitFrontmatterLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
