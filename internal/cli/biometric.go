package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/watchpost/pkg/client"
)

func newBiometricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "biometric",
		Aliases: []string{"bio"},
		Short:   "Enroll and verify biometric identities",
	}

	cmd.AddCommand(newBiometricRegisterCmd())
	cmd.AddCommand(newBiometricAuthCmd())
	cmd.AddCommand(newBiometricLivenessCmd())

	return cmd
}

// readSample loads a sample from an image file or a comma separated encoding
func readSample(file, encoding string) (client.Sample, error) {
	var s client.Sample
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return s, fmt.Errorf("failed to read %s: %w", file, err)
		}
		s.Data = data
	}
	if encoding != "" {
		for _, part := range strings.Split(encoding, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return s, fmt.Errorf("invalid encoding value %q", part)
			}
			s.Encoding = append(s.Encoding, v)
		}
	}
	if s.Data == nil && s.Encoding == nil {
		return s, fmt.Errorf("either --file or --encoding is required")
	}
	return s, nil
}

func newBiometricRegisterCmd() *cobra.Command {
	var file, encoding string

	cmd := &cobra.Command{
		Use:       "register <modality> <user-id>",
		Short:     "Enroll a face, fingerprint or iris template",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"face", "fingerprint", "iris"},
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[1], "user")
			if err != nil {
				return err
			}
			sample, err := readSample(file, encoding)
			if err != nil {
				return err
			}

			res, err := apiClient.Biometrics().Register(context.Background(), args[0], userID, sample)
			if err != nil {
				return fmt.Errorf("failed to register template: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(res)
			}
			fmt.Printf("Enrolled %s template for user %d (quality %.2f)\n", res.Modality, res.UserID, res.Quality)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "image file")
	cmd.Flags().StringVar(&encoding, "encoding", "", "comma separated feature vector")
	return cmd
}

func newBiometricAuthCmd() *cobra.Command {
	var face, fingerprint, iris, faceEncoding string
	var userID int64

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with one or more modalities",
		Long: `Authenticate with one or more modalities. A single modality is matched
on its own; several are fused into one decision. --user switches from
identification to verification of that user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req client.MultiModal
			if userID > 0 {
				req.UserID = &userID
			}
			provided := map[string]*client.Sample{}
			if face != "" || faceEncoding != "" {
				s, err := readSample(face, faceEncoding)
				if err != nil {
					return err
				}
				req.Face = &s
				provided["face"] = &s
			}
			for name, file := range map[string]string{"fingerprint": fingerprint, "iris": iris} {
				if file == "" {
					continue
				}
				s, err := readSample(file, "")
				if err != nil {
					return err
				}
				provided[name] = &s
			}
			req.Fingerprint = provided["fingerprint"]
			req.Iris = provided["iris"]
			if len(provided) == 0 {
				return fmt.Errorf("provide at least one of --face, --face-encoding, --fingerprint or --iris")
			}

			ctx := context.Background()
			if len(provided) == 1 {
				for modality, s := range provided {
					res, err := apiClient.Biometrics().Authenticate(ctx, modality, *s, req.UserID)
					if err != nil {
						return fmt.Errorf("authentication failed: %w", err)
					}
					if getOutputFormat() != "table" {
						return printOutput(res)
					}
					printModalityResults([]client.ModalityResult{*res})
				}
				return nil
			}

			res, err := apiClient.Biometrics().AuthenticateMultiModal(ctx, req)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if getOutputFormat() != "table" {
				return printOutput(res)
			}
			if res.Success && res.UserID != nil {
				fmt.Printf("Authenticated user %d (confidence %.2f, %d/%d modalities)\n",
					*res.UserID, res.Confidence, res.SuccessfulModalities, res.TotalModalities)
			} else {
				fmt.Printf("Not authenticated: %s\n", res.Failure)
			}
			printModalityResults(res.Results)
			return nil
		},
	}

	cmd.Flags().StringVar(&face, "face", "", "face image file")
	cmd.Flags().StringVar(&faceEncoding, "face-encoding", "", "comma separated face encoding")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "fingerprint image file")
	cmd.Flags().StringVar(&iris, "iris", "", "iris image file")
	cmd.Flags().Int64Var(&userID, "user", 0, "verify against this user")
	return cmd
}

func printModalityResults(results []client.ModalityResult) {
	t := NewTable("MODALITY", "SUCCESS", "USER", "CONFIDENCE", "METHOD", "ERROR")
	for _, r := range results {
		t.AddRow(r.Modality, strconv.FormatBool(r.Success), formatUser(r.UserID),
			formatConfidence(r.Confidence), r.Method, r.Error)
	}
	t.Render()
}

func newBiometricLivenessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "liveness <image>",
		Short: "Check whether an image shows a live subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			res, err := apiClient.Biometrics().Liveness(context.Background(), data)
			if err != nil {
				return fmt.Errorf("liveness check failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(res)
			}
			fmt.Printf("Live:       %t\n", res.IsLive)
			fmt.Printf("Confidence: %.2f\n", res.Confidence)
			fmt.Printf("Quality:    %.2f\n", res.QualityScore)
			return nil
		},
	}
}
