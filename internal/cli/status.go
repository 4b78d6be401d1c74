package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server readiness, cameras and open alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			ready, readyErr := apiClient.Ready(ctx)
			cams, camErr := apiClient.Cameras().List(ctx)
			alerts, alertErr := apiClient.Alerts().List(ctx, nil)

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{}
				if readyErr == nil {
					summary["server"] = ready
				}
				if camErr == nil {
					summary["cameras"] = len(cams)
				}
				if alertErr == nil {
					summary["active_alerts"] = len(alerts)
				}
				return printOutput(summary)
			}

			fmt.Println("Watchpost")
			fmt.Println(strings.Repeat("=", 40))

			if readyErr != nil {
				fmt.Printf("  Server:        (error: %v)\n", readyErr)
			} else {
				fmt.Printf("  Server:        %s\n", formatStatus(ready["status"]))
				for name, state := range ready {
					if name != "status" {
						fmt.Printf("    %-12s %s\n", name+":", formatStatus(state))
					}
				}
			}

			if camErr != nil {
				fmt.Printf("  Cameras:       (error: %v)\n", camErr)
			} else {
				running := 0
				for _, c := range cams {
					if c.State == "running" {
						running++
					}
				}
				fmt.Printf("  Cameras:       %d running (%d total)\n", running, len(cams))
			}

			if alertErr != nil {
				fmt.Printf("  Alerts:        (error: %v)\n", alertErr)
			} else {
				urgent := 0
				for _, a := range alerts {
					if a.Severity == "high" || a.Severity == "critical" {
						urgent++
					}
				}
				fmt.Printf("  Alerts:        %d active", len(alerts))
				if urgent > 0 {
					fmt.Printf(" (%d high severity)", urgent)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
