// Package library is the filesystem side of photo triage: finding images,
// deriving identity names from reference directories, and placing sorted
// files into the output tree.
package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/photo-triage/internal/constants"
)

// IsImage reports whether path has an image extension. Case is ignored.
func IsImage(path string) bool {
	return slices.Contains(constants.ImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// WalkImages returns every image file below root in lexical order.
func WalkImages(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsImage(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// RefDir is one identity's reference directory.
type RefDir struct {
	Name string
	Path string
}

// ReferenceDirs lists the immediate subdirectories of root sorted by
// directory name. Each becomes an identity named by IdentityName.
// Subdirectories whose name normalizes to nothing are skipped.
func ReferenceDirs(root string) ([]RefDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read reference root: %w", err)
	}

	var dirs []RefDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := IdentityName(e.Name())
		if name == "" {
			continue
		}
		dirs = append(dirs, RefDir{Name: name, Path: filepath.Join(root, e.Name())})
	}
	return dirs, nil
}
