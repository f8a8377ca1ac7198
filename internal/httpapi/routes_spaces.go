package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/spaces"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

func spacesCreateParams(owner types.UserID, name, description string, visibility types.Visibility, root string) spaces.CreateParams {
	return spaces.CreateParams{
		OwnerID:     owner,
		Name:        name,
		Description: description,
		Visibility:  visibility,
		Root:        root,
	}
}

// folderNode is one entry of the GET /spaces/:id/folders tree (spec.md
// §6: "hierarchical tree of folders and documents under the space").
type folderNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	IsDir    bool          `json:"isDir"`
	Children []*folderNode `json:"children,omitempty"`
}

func (h *Handler) handleSpaceFolders(w http.ResponseWriter, r *http.Request, spaceID types.SpaceID) {
	sp, err := h.svc.Spaces.Get(spaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sp.VisibleTo(userID(r)) {
		writeError(w, errs.PermissionDenied("handleSpaceFolders", sp.Name))
		return
	}

	root := &folderNode{Name: sp.Name, Path: "", IsDir: true}
	if err := buildFolderTree(sp.Root, root); err != nil {
		writeError(w, errs.Internal("handleSpaceFolders", err))
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func buildFolderTree(absDir string, node *folderNode) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if len(name) > 0 && name[0] == '.' && name != ".templates" {
			continue
		}
		child := &folderNode{
			Name:  name,
			Path:  filepath.Join(node.Path, name),
			IsDir: e.IsDir(),
		}
		if e.IsDir() {
			if err := buildFolderTree(filepath.Join(absDir, name), child); err != nil {
				continue
			}
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

func (h *Handler) handleSpaceTemplates(w http.ResponseWriter, r *http.Request, spaceID types.SpaceID) {
	sp, err := h.svc.Spaces.Get(spaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sp.VisibleTo(userID(r)) {
		writeError(w, errs.PermissionDenied("handleSpaceTemplates", sp.Name))
		return
	}

	dir, err := spaces.EnsureTemplatesDir(sp.Root)
	if err != nil {
		writeError(w, errs.Internal("handleSpaceTemplates", err))
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		writeError(w, errs.Internal("handleSpaceTemplates", err))
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}
