package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/provider/sandbox"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <blueprint>",
		Short: "Verify a blueprint's attribute values and dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := loadEnvironment()
			if err != nil {
				return err
			}
			log := logger.NewComponentLogger("verify")

			store, err := openStore(cmd.Context(), cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			bp, err := loadSourceBlueprint(args[0], store, sandbox.New())
			if err != nil {
				return err
			}
			if err := bp.Verify(cmd.Context()); err != nil {
				return err
			}

			log.Infof("blueprint verified: %d resource(s)", bp.Len())
			return nil
		},
	}
}
