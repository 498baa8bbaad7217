package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"cloudwalk-rag/config"
	"cloudwalk-rag/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credential", fmt.Errorf("%w: set GOOGLE_API_KEY", config.ErrMissingCredential), "GOOGLE_API_KEY"},
		{"no documents", &ingest.IngestError{Stage: ingest.StageCrawl, Err: ingest.ErrNoDocuments}, "SEED_URLS"},
		{"embed", &ingest.IngestError{Stage: ingest.StageEmbed, Err: errors.New("quota")}, "quota of the embedding provider"},
		{"load", &ingest.IngestError{Stage: ingest.StageLoad, Err: errors.New("bad json")}, "regenerate the document snapshot"},
		{"index", &ingest.IngestError{Stage: ingest.StageIndex, Err: errors.New("disk")}, "--rebuild"},
		{"other", errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describeError(tt.err), tt.want)
		})
	}
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"crawl", "ingest", "ask", "chat"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	ic, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.NotNil(t, ic.Flags().Lookup("rebuild"))
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ask"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	assert.Error(t, root.Execute())
}

func TestCrawlCmd_MissingEnvFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"crawl", "--env-file", filepath.Join(t.TempDir(), "nope.env")})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env file")
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)

	printStats(cmd, ingest.Stats{Reused: true, Indexed: 12})
	assert.Contains(t, out.String(), "Loaded existing index (12 chunks)")

	out.Reset()
	printStats(cmd, ingest.Stats{Indexed: 30, Documents: 5, FromCache: true})
	assert.Contains(t, out.String(), "Indexed 30 chunks from 5 documents (snapshot)")
}
