package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garage-labs/garage-api/internal/app/vehicles"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Release every vehicle currently in use",
		Long:  "Run the daily usage sweep once, outside its schedule, and print how many vehicles it released.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			app, err := openApplication(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer app.Close()

			released, err := vehicles.NewSweeper(app.vehicles, logger).RunDailySweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %d vehicle(s)\n", released)
			return nil
		},
	}
}
