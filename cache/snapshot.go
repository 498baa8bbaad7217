// Package cache persists crawled documents as a versioned JSON snapshot so a
// later run can skip crawling.
//
// Snapshot schema (version 1):
//
//	{
//	  "version": 1,
//	  "created_at": "2026-01-02T15:04:05Z",
//	  "documents": [
//	    {"source_url": "https://...", "text": "...", "metadata": {"title": "..."}}
//	  ]
//	}
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"cloudwalk-rag/models"
)

// SchemaVersion is the snapshot format written by Save.
const SchemaVersion = 1

// DefaultMinLength is the trimmed length a document must exceed to be kept.
const DefaultMinLength = 100

var (
	// ErrNotFound is returned by Load when no snapshot exists at the path.
	ErrNotFound = errors.New("document snapshot not found")
	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

type snapshot struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Documents []models.Document `json:"documents"`
}

// Load reads the snapshot at path. It returns ErrNotFound if the file does not
// exist. Documents are returned unfiltered.
func Load(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	return snap.Documents, nil
}

// Exists reports whether a snapshot file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes the full, unfiltered document list to path. The file is written
// to a temporary sibling first and renamed into place.
func Save(path string, docs []models.Document) error {
	if docs == nil {
		docs = []models.Document{}
	}
	data, err := json.MarshalIndent(snapshot{
		Version:   SchemaVersion,
		CreatedAt: time.Now().UTC(),
		Documents: docs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Filter drops documents whose trimmed text has minLength characters or fewer.
// It applies equally to cached and freshly crawled documents.
func Filter(docs []models.Document, minLength int) []models.Document {
	kept := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if utf8.RuneCountInString(strings.TrimSpace(d.Text)) > minLength {
			kept = append(kept, d)
		}
	}
	return kept
}
