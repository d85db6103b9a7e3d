package commands

import (
	"encoding/json"
	"fmt"

	"github.com/ncobase/pulse/health"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command
func NewCheckCommand(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every health probe once and print the results as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), *confPath, true)
			if err != nil {
				return err
			}
			defer cleanup()

			results := a.svc.CheckNow(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}

			if down := countDown(results); down > 0 {
				return fmt.Errorf("%d of %d services down", down, len(results))
			}
			return nil
		},
	}
}

func countDown(results []health.Result) int {
	n := 0
	for _, r := range results {
		if r.Status == health.StatusDown {
			n++
		}
	}
	return n
}
