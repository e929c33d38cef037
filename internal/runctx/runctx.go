package runctx

import (
	"context"

	"github.com/google/uuid"
)

type key int

const runKey key = 0

// NewRunID mints the identifier that tags every log line of one ingestion run.
func NewRunID() string {
	return uuid.New().String()
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey, id)
}

func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runKey).(string); ok {
		return id
	}
	return ""
}
