package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bugdom/gamesetup/internal/logging"
	"github.com/bugdom/gamesetup/internal/setup"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitWrongDirectory = 1
	exitFailure        = 2
)

var (
	configPath string
	sourceDir  string
	verbose    bool
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "gamesetup",
	Short: "Prepare the game's native build environment",
	Long: `gamesetup fetches SDL for the host platform, stages it into extern/,
generates the CMake build trees and offers to build the first one.
Run it from the root of the game source tree.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSetup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default <source>/gamesetup.yaml)")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s", ".", "Root of the game source tree")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report prints err for the operator and returns the exit status.
func report(w io.Writer, err error) int {
	if errors.Is(err, setup.ErrWrongDirectory) {
		fmt.Fprintln(w, logging.Highlight("STOP - Please run this from the root of the game source repo"))
		fmt.Fprintln(w, err)
		return exitWrongDirectory
	}
	fmt.Fprintln(w, logging.Highlight("gamesetup: "+err.Error()))
	return exitFailure
}
