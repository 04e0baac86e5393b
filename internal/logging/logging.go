// Package logging builds the zap logger shared by every setup phase.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log output goes.
type Options struct {
	Verbose    bool      // debug level and timestamps on the console
	FilePath   string    // optional JSON log file, rotated
	MaxSizeMB  int       // max size in MB before rotation
	MaxBackups int       // max number of old log files to keep
	MaxAgeDays int       // max days to keep old log files
	Console    io.Writer // defaults to os.Stderr
}

var alert = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

// Highlight renders s as a bold red notice, the way failures and
// precondition stops are shown to the operator.
func Highlight(s string) string {
	return alert.Render(s)
}

// New returns a logger writing human readable lines to the console and,
// when FilePath is set, JSON lines to a rotated file. The returned func
// flushes and closes the file writer.
func New(opts Options) (*zap.Logger, func(), error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !opts.Verbose {
		consoleCfg.TimeKey = ""
		consoleCfg.CallerKey = ""
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	closeFn := func() {}
	if opts.FilePath != "" {
		if opts.MaxSizeMB == 0 {
			opts.MaxSizeMB = 10
		}
		if opts.MaxBackups == 0 {
			opts.MaxBackups = 3
		}
		if opts.MaxAgeDays == 0 {
			opts.MaxAgeDays = 7
		}
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "ts"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(fileWriter), zapcore.DebugLevel))
		closeFn = func() { _ = fileWriter.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}
