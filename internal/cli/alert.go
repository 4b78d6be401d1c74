package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/watchpost/pkg/client"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage security alerts",
	}

	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertGetCmd())
	cmd.AddCommand(newAlertCreateCmd())
	cmd.AddCommand(newAlertTransitionCmd("acknowledge", "ack", "Acknowledge an alert"))
	cmd.AddCommand(newAlertTransitionCmd("resolve", "", "Resolve an alert"))
	cmd.AddCommand(newAlertStatsCmd())
	cmd.AddCommand(newAlertTestCmd())
	cmd.AddCommand(newAlertCleanupCmd())

	return cmd
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, arg)
	}
	return id, nil
}

func newAlertListCmd() *cobra.Command {
	var severity, alertType string
	var cameraID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.ActiveOptions{Severity: severity, Type: alertType, Limit: limit}
			if cameraID > 0 {
				opts.CameraID = &cameraID
			}

			alerts, err := apiClient.Alerts().List(context.Background(), opts)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alerts)
			}

			t := NewTable("ID", "TYPE", "SEVERITY", "STATUS", "CAMERA", "CREATED", "TITLE")
			for _, a := range alerts {
				camera := "-"
				if a.CameraID != nil {
					camera = strconv.FormatInt(*a.CameraID, 10)
				}
				t.AddRow(
					strconv.FormatInt(a.ID, 10),
					a.Type,
					formatSeverity(a.Severity),
					formatStatus(a.Status),
					camera,
					formatTime(&a.CreatedAt),
					truncate(a.Title, 50),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&alertType, "type", "", "filter by alert type")
	cmd.Flags().Int64Var(&cameraID, "camera", 0, "filter by camera ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum alerts to return")

	return cmd
}

func newAlertGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get alert details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "alert")
			if err != nil {
				return err
			}

			a, err := apiClient.Alerts().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get alert: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(a)
			}

			fmt.Printf("ID:           %d\n", a.ID)
			fmt.Printf("Type:         %s\n", a.Type)
			fmt.Printf("Severity:     %s\n", formatSeverity(a.Severity))
			fmt.Printf("Status:       %s\n", formatStatus(a.Status))
			fmt.Printf("Title:        %s\n", a.Title)
			fmt.Printf("Description:  %s\n", a.Description)
			if a.Location != nil {
				fmt.Printf("Location:     %s\n", *a.Location)
			}
			if a.ConfidenceScore != nil {
				fmt.Printf("Confidence:   %.2f\n", *a.ConfidenceScore)
			}
			if a.ImagePath != "" {
				fmt.Printf("Image:        %s\n", a.ImagePath)
			}
			fmt.Printf("Created:      %s\n", formatTime(&a.CreatedAt))
			fmt.Printf("Acknowledged: %s\n", formatTime(a.AcknowledgedAt))
			fmt.Printf("Resolved:     %s\n", formatTime(a.ResolvedAt))
			if a.ResponseTime != nil {
				fmt.Printf("Response:     %.0fs\n", *a.ResponseTime)
			}
			fmt.Printf("Delivered:    email=%t sms=%t webhook=%t push=%t\n", a.EmailSent, a.SMSSent, a.WebhookSent, a.PushSent)
			return nil
		},
	}
}

func newAlertCreateCmd() *cobra.Command {
	var in client.AlertInput
	var cameraID int64
	var location string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Raise an alert manually",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cameraID > 0 {
				in.CameraID = &cameraID
			}
			if location != "" {
				in.Location = &location
			}

			res, err := apiClient.Alerts().Create(context.Background(), in)
			if err != nil {
				return fmt.Errorf("failed to create alert: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(res)
			}
			if res.Suppressed {
				fmt.Printf("Alert suppressed: %s\n", res.Reason)
				return nil
			}
			fmt.Printf("Alert %d created (%s)\n", res.Alert.ID, formatSeverity(res.Alert.Severity))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Type, "type", "", "alert type, e.g. intrusion or fire (required)")
	cmd.Flags().StringVar(&in.Severity, "severity", "medium", "low, medium, high or critical")
	cmd.Flags().StringVar(&in.Title, "title", "", "alert title (required)")
	cmd.Flags().StringVar(&in.Description, "description", "", "alert description")
	cmd.Flags().Int64Var(&cameraID, "camera", 0, "camera ID")
	cmd.Flags().StringVar(&location, "location", "", "location label")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAlertTransitionCmd(action, alias, short string) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "alert")
			if err != nil {
				return err
			}

			alerts := apiClient.Alerts()
			transition := alerts.Acknowledge
			if action == "resolve" {
				transition = alerts.Resolve
			}
			a, err := transition(context.Background(), id, userID)
			if err != nil {
				return fmt.Errorf("failed to %s alert: %w", action, err)
			}

			if getOutputFormat() != "table" {
				return printOutput(a)
			}
			fmt.Printf("Alert %d is %s\n", a.ID, formatStatus(a.Status))
			return nil
		},
	}
	if alias != "" {
		cmd.Aliases = []string{alias}
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "operator user ID when the server runs without auth")

	return cmd
}

func newAlertStatsCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show alert statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var start time.Time
			if since > 0 {
				start = time.Now().Add(-since)
			}

			stats, err := apiClient.Alerts().Statistics(context.Background(), start, time.Time{})
			if err != nil {
				return fmt.Errorf("failed to get statistics: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(stats)
			}

			fmt.Printf("Window:        %s .. %s\n", formatTime(&stats.DateRange.Start), formatTime(&stats.DateRange.End))
			fmt.Printf("Total alerts:  %d\n", stats.TotalAlerts)
			fmt.Printf("Unresolved:    %d\n", stats.UnresolvedAlerts)
			fmt.Printf("Avg response:  %s\n", formatResponseTime(stats.AverageResponseTime))
			for _, group := range []struct {
				name   string
				counts map[string]int
			}{
				{"SEVERITY", stats.BySeverity},
				{"TYPE", stats.ByType},
				{"STATUS", stats.ByStatus},
				{"CAMERA", stats.ByCamera},
			} {
				if len(group.counts) == 0 {
					continue
				}
				fmt.Println()
				t := NewTable(group.name, "COUNT")
				t.AddCounts(group.counts)
				t.Render()
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "window length, e.g. 24h (default: server window)")
	return cmd
}

func newAlertTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "test [channel]",
		Short:     "Send a test notification (all, email, sms, webhook or push)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"all", "email", "sms", "webhook", "push"},
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := "all"
			if len(args) == 1 {
				channel = args[0]
			}

			results, err := apiClient.Alerts().TestNotification(context.Background(), channel)
			if err != nil {
				return fmt.Errorf("failed to send test notification: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(results)
			}

			t := NewTable("CHANNEL", "DELIVERED")
			keys := make([]string, 0, len(results))
			for k := range results {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				t.AddRow(k, strconv.FormatBool(results[k]))
			}
			t.Render()
			return nil
		},
	}
}

func newAlertCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete resolved alerts older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := apiClient.Alerts().Cleanup(context.Background(), days)
			if err != nil {
				return fmt.Errorf("failed to clean up alerts: %w", err)
			}
			fmt.Printf("Deleted %d resolved alerts\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default: server setting)")
	return cmd
}
