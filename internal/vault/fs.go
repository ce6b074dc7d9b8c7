package vault

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// SupportedFiles returns every .md file under root in lexical walk order.
// Hidden directories such as .obsidian and .git are skipped.
func SupportedFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".md" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

// fileIndex answers "is there a note called X" without walking the vault
// once per link.
type fileIndex struct {
	root   string
	byRel  map[string]string
	byBase map[string]string
}

func newFileIndex(root string, files []string) *fileIndex {
	idx := &fileIndex{
		root:   root,
		byRel:  make(map[string]string, len(files)),
		byBase: make(map[string]string, len(files)),
	}
	for _, f := range files {
		rel := relPath(root, f)
		idx.byRel[rel] = f
		base := filepath.Base(f)
		if _, seen := idx.byBase[base]; !seen {
			idx.byBase[base] = f
		}
	}
	return idx
}

// find resolves name, either a vault relative path or a bare file name.
func (idx *fileIndex) find(name string) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if f, ok := idx.byRel[name]; ok {
		return f, true
	}
	if strings.Contains(name, "/") {
		for rel, f := range idx.byRel {
			if strings.HasSuffix(rel, "/"+name) {
				return f, true
			}
		}
		return "", false
	}
	f, ok := idx.byBase[name]
	return f, ok
}

// FindFile looks for a note named name anywhere under root.
func FindFile(root, name string) (string, error) {
	files, err := SupportedFiles(root)
	if err != nil {
		return "", err
	}
	if f, ok := newFileIndex(root, files).find(name); ok {
		return f, nil
	}
	return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
}

// DeepLink builds the obsidian:// URL that opens file in the vault at root.
func DeepLink(root, file string) string {
	vault := filepath.Base(filepath.Clean(root))
	if vault == "." || vault == string(filepath.Separator) {
		return ""
	}
	return "obsidian://open?vault=" + encodeComponent(vault) + "&file=" + encodeComponent(relPath(root, file))
}

// encodeComponent percent-encodes everything except unreserved characters,
// spaces included.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
