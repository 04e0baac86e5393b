package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bugdom/gamesetup/internal/config"
	"github.com/bugdom/gamesetup/internal/env"
	"github.com/bugdom/gamesetup/internal/logging"
	"github.com/bugdom/gamesetup/internal/platform"
	"github.com/bugdom/gamesetup/internal/setup"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workspace is what every command needs before doing work: the checked
// source root, its config and plan, a logger and the workspace lock.
type workspace struct {
	pipeline *setup.Pipeline
	log      *zap.Logger
	closeLog func()
	lock     *flock.Flock
}

// loadConfig layers the config file, .env and GAMESETUP_* variables over
// the defaults. An explicit path must exist; the default one may not.
func loadConfig(root, path string, lookup config.LookupFunc) (config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return config.Config{}, fmt.Errorf("config file: %w", err)
		}
	} else {
		path = filepath.Join(root, config.DefaultFile)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(filepath.Join(root, ".env"), lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	root, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root, configPath, os.LookupEnv)
	if err != nil {
		// Running from the wrong directory wins over a broken config.
		if werr := setup.CheckSourceRoot(root, config.DefaultConfig().Marker); werr != nil {
			return nil, werr
		}
		return nil, err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	if err := setup.CheckSourceRoot(root, cfg.Marker); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, closeLog, err := logging.New(logging.Options{Verbose: cfg.Verbose, FilePath: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	layout, err := env.NewLayout(root, cfg.ExternDir, cfg.CacheDir)
	if err != nil {
		closeLog()
		return nil, err
	}
	plan, err := platform.Resolve(runtime.GOOS, platform.Options{
		SDLVersion: cfg.SDLVersion,
		BaseURL:    cfg.BaseURL,
		CPUs:       platform.UsableCPUs(),
	})
	if err != nil {
		closeLog()
		return nil, err
	}
	log.Debug("resolved platform",
		zap.Stringer("os", plan.OS),
		zap.Int("projects", len(plan.Projects)),
		zap.Strings("extra_build_args", plan.ExtraBuildArgs))

	lock, err := layout.Lock()
	if err != nil {
		closeLog()
		return nil, err
	}

	return &workspace{
		pipeline: setup.New(cfg, layout, plan, setup.Options{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
			Log: log,
		}),
		log:      log,
		closeLog: closeLog,
		lock:     lock,
	}, nil
}

func (w *workspace) close() {
	if err := w.lock.Unlock(); err != nil {
		w.log.Debug("failed to release workspace lock", zap.Error(err))
	}
	w.closeLog()
}
