package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/retailflow/internal/normalize"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Source opens the canonical delimited text to transfer.
// Each Open yields an independent reader from the start.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

type fileSource struct {
	path string
}

// FileSource reads a canonical CSV file previously materialized on disk.
func FileSource(path string) Source {
	return fileSource{path: path}
}

func (s fileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return f, nil
}

func (s fileSource) Name() string { return s.path }

type datasetSource struct {
	ds *core.Dataset
}

// DatasetSource renders ds as canonical CSV on the fly.
func DatasetSource(ds *core.Dataset) Source {
	return datasetSource{ds: ds}
}

// Open streams through a pipe so the dataset is never buffered as text.
// Closing the reader early stops the writer.
func (s datasetSource) Open() (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(normalize.WriteCSV(pw, s.ds))
	}()
	return pr, nil
}

func (s datasetSource) Name() string {
	return fmt.Sprintf("dataset(%d records)", s.ds.Len())
}
