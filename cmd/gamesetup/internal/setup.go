package internal

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSetup(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.close()

	outcome, err := ws.pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}
	ws.log.Debug("setup finished",
		zap.Strings("generated", outcome.Generated),
		zap.Bool("built", outcome.Built))
	return nil
}
