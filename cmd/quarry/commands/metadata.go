package commands

import (
	"github.com/spf13/cobra"
)

func newMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Read and write free-form metadata in the state store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a metadata value",
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

			value, err := store.GetMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a metadata value",
		Args:  cobra.ExactArgs(2),
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

			return store.SetMetadata(cmd.Context(), args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a metadata key",
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

			return store.DeleteMetadata(cmd.Context(), args[0])
		},
	})

	return cmd
}
