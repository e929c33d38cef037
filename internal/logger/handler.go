package logger

import (
	"context"
	"log/slog"

	"lexrag/internal/runctx"
)

// ContextHandler decorates every record with the run ID carried in the
// context, so all lines of one ingestion run can be grepped together.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := runctx.RunID(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
