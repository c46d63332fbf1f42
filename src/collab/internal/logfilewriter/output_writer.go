package logfilewriter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knowtis/knowtis-collab/src/collab/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_fmtOutputKey = "output:%s"
	_defaultDir   = "knowtis-collab"
)

// Params define the dependencies for SetupOutputLogger.
type Params struct {
	Lifecycle      fx.Lifecycle
	ServerInfoFile serverinfofile.ServerInfoFile
	// Dir holds the output files. Defaults to a directory under the user's temp directory.
	Dir string
}

// SetupOutputLogger creates a logger that writes human readable output of one component to a temporary file.
// It captures every level, independently of the process log level.
// The file path is stored in the server info file, and the file is removed on shutdown.
func SetupOutputLogger(p Params, name string) (*zap.SugaredLogger, error) {
	dir := p.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), _defaultDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	logFile, err := os.CreateTemp(dir, name+"-*.log")
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}

	// Tooling can tail the file by getting its path from the server info file.
	if err := p.ServerInfoFile.UpdateField(fmt.Sprintf(_fmtOutputKey, name), logFile.Name()); err != nil {
		logFile.Close()
		os.Remove(logFile.Name())
		return nil, fmt.Errorf("recording output file: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.DebugLevel,
	)
	logger := zap.New(core).Sugar()

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Sync()
			logFile.Close()
			return os.Remove(logFile.Name())
		},
	})

	return logger, nil
}

// Tee returns a logger that writes to both base and output. Each keeps its own level.
func Tee(base, output *zap.SugaredLogger) *zap.SugaredLogger {
	return zap.New(zapcore.NewTee(base.Desugar().Core(), output.Desugar().Core())).Sugar()
}
