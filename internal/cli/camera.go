package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/watchpost/pkg/client"
)

func newCameraCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camera",
		Short: "Manage camera monitors",
	}

	cmd.AddCommand(newCameraListCmd())
	cmd.AddCommand(newCameraAddCmd())
	cmd.AddCommand(newCameraGetCmd())
	cmd.AddCommand(newCameraRemoveCmd())

	return cmd
}

func newCameraListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List camera monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cams, err := apiClient.Cameras().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list cameras: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(cams)
			}

			t := NewTable("ID", "NAME", "STATE", "FRAMES", "MOTION", "EMERGENCIES", "LAST FRAME")
			for _, c := range cams {
				t.AddRow(
					strconv.FormatInt(c.Camera.ID, 10),
					truncate(c.Camera.Name, 30),
					formatStatus(c.State),
					strconv.FormatUint(c.FramesProcessed, 10),
					strconv.FormatUint(c.MotionEvents, 10),
					strconv.FormatUint(c.EmergencyEvents, 10),
					formatTime(c.LastFrameAt),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newCameraAddCmd() *cobra.Command {
	var cfg client.CameraConfig
	var location string

	cmd := &cobra.Command{
		Use:   "add <id> <source>",
		Short: "Start monitoring a camera",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "camera")
			if err != nil {
				return err
			}
			cfg.ID = id
			cfg.Source = args[1]
			if cfg.Name == "" {
				cfg.Name = "camera-" + args[0]
			}
			if location != "" {
				cfg.Location = &location
			}

			st, err := apiClient.Cameras().Add(context.Background(), cfg)
			if err != nil {
				return fmt.Errorf("failed to add camera: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(st)
			}
			fmt.Printf("Camera %d (%s) is %s\n", st.Camera.ID, st.Camera.Name, st.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&location, "location", "", "location label")
	cmd.Flags().Float64Var(&cfg.FPS, "fps", 0, "frames per second to sample (default: server setting)")

	return cmd
}

func newCameraGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a camera monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "camera")
			if err != nil {
				return err
			}

			st, err := apiClient.Cameras().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get camera: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(st)
			}

			fmt.Printf("ID:          %d\n", st.Camera.ID)
			fmt.Printf("Name:        %s\n", st.Camera.Name)
			fmt.Printf("Source:      %s\n", st.Camera.Source)
			fmt.Printf("State:       %s\n", formatStatus(st.State))
			fmt.Printf("Started:     %s\n", formatTime(&st.StartedAt))
			fmt.Printf("Stopped:     %s\n", formatTime(st.StoppedAt))
			fmt.Printf("Frames:      %d (%d read errors)\n", st.FramesProcessed, st.ReadErrors)
			fmt.Printf("Motion:      %d\n", st.MotionEvents)
			fmt.Printf("Emergencies: %d\n", st.EmergencyEvents)
			fmt.Printf("Last frame:  %s\n", formatTime(st.LastFrameAt))
			if st.LastError != "" {
				fmt.Printf("Last error:  %s\n", st.LastError)
			}
			return nil
		},
	}
}

func newCameraRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Stop monitoring a camera",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "camera")
			if err != nil {
				return err
			}
			if err := apiClient.Cameras().Remove(context.Background(), id); err != nil {
				return fmt.Errorf("failed to remove camera: %w", err)
			}
			fmt.Printf("Camera %d stopped\n", id)
			return nil
		},
	}
}
