package ingest

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageLoad  Stage = "load"
	StageCrawl Stage = "crawl"
	StageChunk Stage = "chunk"
	StageEmbed Stage = "embed"
	StageIndex Stage = "index"
)

var (
	// ErrNoDocuments means neither the snapshot nor a crawl produced usable documents.
	ErrNoDocuments = errors.New("no documents loaded; check seed URLs or network access")
	// ErrNoChunks means the documents produced no chunks.
	ErrNoChunks = errors.New("no chunks created from documents")
)

// IngestError is a fatal pipeline failure. The run must be repeated after the
// cause is fixed.
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &IngestError{Stage: stage, Err: err}
}
