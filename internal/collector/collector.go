// Package collector defines the contract between the ingestion pipeline and
// the source-specific collectors that feed it.
package collector

import (
	"context"
	"fmt"
)

// RawDocument is the shape every collector produces. The pipeline makes no
// assumption about how it was obtained.
type RawDocument struct {
	Source  string
	Title   string
	URL     string
	Content string
	Extra   map[string]string
}

// Collector is the fixed capability contract a source implements. It is
// resolved at compile time; a failing collector returns an error and the run
// continues with the other sources.
//
// An empty slice with a nil error is a final "nothing found" result. A non-nil
// error means transport or protocol failure and the caller may retry on a
// later run.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]RawDocument, error)
}

// StatusError reports a non-success HTTP response from an upstream host. It
// lets callers tell a protocol failure apart from an empty result.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
