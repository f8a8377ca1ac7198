package spaces

import (
	"os"
	"path/filepath"
)

// templateFolders/templateSample mirror spec.md §6's `/spaces/:id/templates`
// contract: a structured bundle of folders plus a sample document, seeded
// into a freshly-created, empty space root.
var templateFolders = []string{
	"Getting Started",
	"Reference",
	"Archive",
}

const templateSample = `# Welcome

This space was seeded with a starter template. Replace this file, or
delete it and start from scratch.
`

// seedTemplate materializes the template bundle into root. Called only
// when root had no visible entries at creation time (spec.md §4.1: "if it
// has any visible entry, seeding is skipped (no merge)").
func seedTemplate(root string) error {
	templatesDir := filepath.Join(root, ".templates")
	if err := os.MkdirAll(templatesDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(templatesDir, "sample.md"), []byte(templateSample), 0644); err != nil {
		return err
	}

	for _, folder := range templateFolders {
		if err := os.MkdirAll(filepath.Join(root, folder), 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(root, "Getting Started", "welcome.md"), []byte(templateSample), 0644)
}

// EnsureTemplatesDir backs GET /spaces/:id/templates (spec.md §6): creates
// the folder and a sample.md if missing, idempotently.
func EnsureTemplatesDir(spaceRoot string) (string, error) {
	dir := filepath.Join(spaceRoot, ".templates")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	samplePath := filepath.Join(dir, "sample.md")
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		if err := os.WriteFile(samplePath, []byte(templateSample), 0644); err != nil {
			return "", err
		}
	}
	return dir, nil
}
