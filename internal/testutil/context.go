package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
)

// Context returns a context carrying a debug-level logger that writes into
// the returned buffer. Packages below app expect the logger to be seeded.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}
