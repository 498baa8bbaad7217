package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloudwalk-rag/models"

	"github.com/philippgille/chromem-go"
)

// DefaultCollection is the collection holding website chunks.
const DefaultCollection = "cloudwalk_docs"

// indexExtensions are the file suffixes that mark a populated index directory.
var indexExtensions = []string{".gob", ".gob.gz", ".bin", ".parquet", ".sqlite3"}

// Reserved metadata keys written next to the document metadata.
const (
	metaSource  = "source_url"
	metaIndex   = "chunk_index"
	metaOverlap = "chunk_overlap"
)

var (
	// ErrEmptyQuery is returned for an empty query vector.
	ErrEmptyQuery = errors.New("query vector is empty")
	// ErrMissingVector is returned when a chunk is written without an embedding.
	ErrMissingVector = errors.New("chunk has no embedding vector")
	// ErrNotPrecomputed is returned if the index is ever asked to embed text itself.
	ErrNotPrecomputed = errors.New("embeddings must be computed before indexing")
)

// Store is a persisted vector index over chunks.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

// NewStore opens or creates the index at dbPath.
func NewStore(dbPath, collection string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db %s: %w", dbPath, err)
	}
	if collection == "" {
		collection = DefaultCollection
	}

	s := &Store{db: db, name: collection}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) open() error {
	// chromem always ranks by cosine similarity; the entry only records it.
	metadata := map[string]string{
		"hnsw:space": "cosine",
	}
	c, err := s.db.GetOrCreateCollection(s.name, metadata, precomputedOnly)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", s.name, err)
	}
	s.collection = c
	return nil
}

func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, ErrNotPrecomputed
}

// Exists reports whether dbPath is a directory holding index files. It only
// probes for known file extensions and does not validate their contents.
func Exists(dbPath string) bool {
	info, err := os.Stat(dbPath)
	if err != nil || !info.IsDir() {
		return false
	}

	found := false
	_ = filepath.WalkDir(dbPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range indexExtensions {
			if strings.HasSuffix(d.Name(), ext) {
				found = true
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Upsert writes chunks with their vectors. A chunk whose ID already exists is replaced.
func (s *Store) Upsert(ctx context.Context, chunks []models.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingVector, c.ID)
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Metadata:  chunkMetadata(c),
			Embedding: c.Vector,
			Content:   c.Text,
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

// Search returns up to topK chunks nearest to queryVector, best first.
// Results below minSimilarity are dropped; zero keeps everything.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int, minSimilarity float32) ([]models.SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, ErrEmptyQuery
	}

	n := min(topK, s.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if minSimilarity > 0 && r.Similarity < minSimilarity {
			continue
		}
		out = append(out, models.SearchResult{
			Chunk:      chunkFromResult(r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Reset drops every stored chunk.
func (s *Store) Reset() error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.name, err)
	}
	return s.open()
}

// Close is a no-op; the persistent DB writes through on every add.
func (s *Store) Close() error {
	return nil
}

func chunkMetadata(c models.Chunk) map[string]string {
	meta := make(map[string]string, len(c.Meta)+3)
	for k, v := range c.Meta {
		meta[k] = v
	}
	meta[metaSource] = c.SourceURL
	meta[metaIndex] = strconv.Itoa(c.Index)
	meta[metaOverlap] = strconv.Itoa(c.Overlap)
	return meta
}

func chunkFromResult(id, content string, metadata map[string]string) models.Chunk {
	c := models.Chunk{ID: id, Text: content}
	if len(metadata) == 0 {
		return c
	}

	c.Meta = make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch k {
		case metaSource:
			c.SourceURL = v
		case metaIndex:
			c.Index, _ = strconv.Atoi(v)
		case metaOverlap:
			c.Overlap, _ = strconv.Atoi(v)
		default:
			c.Meta[k] = v
		}
	}
	return c
}
