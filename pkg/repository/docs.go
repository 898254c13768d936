package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/utils/logging"
)

// DocStore loads documents from a directory of plain-text files. The file
// name becomes the document ID, which retrieval later surfaces as the
// citation source.
type DocStore struct {
	dir string
}

// NewDocStore creates a document store over the given directory
func NewDocStore(dir string) *DocStore {
	return &DocStore{dir: dir}
}

// Load reads every *.txt file in the directory, sorted by file name for
// deterministic chunk ordering. Files that are empty after trimming are
// skipped.
func (s *DocStore) Load(ctx context.Context) ([]model.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read docs directory", goerr.V("dir", s.dir))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]model.Document, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read document", goerr.V("file", name))
		}

		content := strings.TrimSpace(string(raw))
		if content == "" {
			logging.From(ctx).Warn("skipping empty document", "file", name)
			continue
		}

		docs = append(docs, model.Document{ID: name, Content: content})
	}

	if len(docs) == 0 {
		return nil, goerr.New("no documents found", goerr.V("dir", s.dir))
	}

	return docs, nil
}
