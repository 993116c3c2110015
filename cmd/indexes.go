package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/bootstrap"
)

func newIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the collection indexes",
		Long:  `Create the unique and lookup indexes of every registry collection. Safe to run repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			if err := app.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		}),
	}
}
