package internal

import (
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Fetch and stage SDL only",
	Long:  `Deps downloads the SDL package for this host (reusing the cache) and stages it into extern/.`,
	Args:  cobra.NoArgs,
	RunE:  runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.close()

	return ws.pipeline.FetchDeps(cmd.Context())
}
