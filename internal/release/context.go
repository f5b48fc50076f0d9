package release

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/compozy/changeset/internal/releasestate"
	"github.com/compozy/changeset/internal/vcs"
)

// Context bundles the adapters the release saga's steps call into,
// mirroring the way the teacher's container (cmd/container.go) hands
// gitRepo/stateRepo/fsRepo down to its orchestrator.
type Context struct {
	FS         afero.Fs
	VCS        vcs.Adapter
	StateStore *releasestate.Store
	Logger     *zap.Logger
}

type loggerKey struct{}

// WithLogger attaches a logger to ctx the way SPEC_FULL §3.1 describes:
// built once at process start, threaded via context.Context rather than
// through every function signature.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger attached to ctx, or a no-op logger if none was attached.
func LoggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
