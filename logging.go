package sessiontap

import (
	"log/slog"

	"github.com/sessiontap/sessiontap-go/internal/logctx"
)

// NewLogHandler wraps h so that records logged with a task's context carry
// the owning session and task identity as grouped attributes. Install it on
// the logger passed via Config to correlate diagnostics with sink events.
func NewLogHandler(h slog.Handler) slog.Handler {
	return logctx.Handler{Handler: h}
}
