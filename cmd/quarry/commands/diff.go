package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/diff"
	"github.com/quarryhq/quarry/pkg/provider/sandbox"
)

func newDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <blueprint>",
		Short: "Show what applying a blueprint would change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, metrics, err := loadEnvironment()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			sbx := sandbox.New()
			source, err := loadSourceBlueprint(args[0], store, sbx)
			if err != nil {
				return err
			}
			if err := source.Verify(ctx); err != nil {
				return err
			}
			dest, err := loadDestBlueprint(ctx, store, sbx)
			if err != nil {
				return err
			}

			d := diff.NewDiffer(logger, metrics, cfg.MaxParallel)
			if err := d.Diff(ctx, source, dest); err != nil {
				return err
			}

			result, err := d.Result()
			if err != nil {
				return err
			}
			if result.Result() == diff.Same {
				cmd.Println("No changes. The applied state matches the blueprint.")
				return nil
			}
			return d.Render(os.Stdout)
		},
	}
}
