package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/diff"
	"github.com/quarryhq/quarry/pkg/provider/sandbox"
)

func newApplyCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <blueprint>",
		Short: "Apply a blueprint to the persisted state",
		Long: `Verifies the blueprint, diffs it against the persisted state, and applies
the difference in dependency-ordered phases. Partial application stands on
failure; re-running apply converges the remainder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, metrics, err := loadEnvironment()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			log := logger.NewComponentLogger("apply")

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
				log.Info("no changes to apply")
				return nil
			}

			if err := d.Render(os.Stdout); err != nil {
				return err
			}
			if dryRun {
				return nil
			}

			if err := d.Apply(ctx); err != nil {
				return err
			}
			log.Info("apply complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the diff without applying it")
	return cmd
}
