package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// Document is one source file of the corpus.
type Document struct {
	Source string
	Text   string
}

var textExtensions = []string{".txt", ".md", ".markdown"}

// LoadDocuments reads every text file under the given paths. Directories are
// walked recursively; files are returned in lexical order so repeated runs
// produce the same chunk sequence.
func LoadDocuments(paths ...string) ([]Document, error) {
	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if path == root || slices.Contains(textExtensions, strings.ToLower(filepath.Ext(path))) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.Sort(files)
	files = slices.Compact(files)

	docs := make([]Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s is not valid UTF-8 text", path)
		}
		docs = append(docs, Document{Source: path, Text: string(data)})
	}

	return docs, nil
}
