package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/provider/sandbox"
)

func newGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <blueprint>",
		Short: "Render a blueprint's dependency graph as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadEnvironment()
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			bp, err := loadSourceBlueprint(args[0], store, sandbox.New())
			if err != nil {
				return err
			}

			dot, err := bp.Graph().ToDOT()
			if err != nil {
				return err
			}
			cmd.Print(dot)
			return nil
		},
	}
}
