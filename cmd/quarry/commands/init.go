package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/stores"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new state store",
		Long:  "Creates the state store and applies its schema. Refuses to overwrite an existing store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := loadEnvironment()
			if err != nil {
				return err
			}
			log := logger.NewComponentLogger("init")

			store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.StorePath})
			if err != nil {
				return err
			}
			if err := store.Create(cmd.Context()); err != nil {
				return err
			}
			defer store.Close()

			log.Infof("created state store at %s", cfg.StorePath)
			return nil
		},
	}
}
