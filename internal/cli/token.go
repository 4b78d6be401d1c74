package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/watchpost/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	cmd.AddCommand(newTokenMintCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var role, secret string
	var ttl time.Duration
	var save bool

	cmd := &cobra.Command{
		Use:   "mint <user-id>",
		Short: "Mint a signed operator token",
		Long: `Mint an HS256 token signed with the server's JWT secret. The secret is
read from --secret, WATCHPOST_JWT_SECRET or the jwt_secret config key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			if secret == "" {
				secret = viper.GetString("jwt_secret")
			}
			if role != auth.RoleOperator && role != auth.RoleAdmin {
				return fmt.Errorf("invalid role %q, expected %s or %s", role, auth.RoleOperator, auth.RoleAdmin)
			}

			token, err := auth.MintToken(userID, role, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			if save {
				viper.Set("token", token)
				if _, err := writeConfig(); err != nil {
					return err
				}
				fmt.Printf("Token for user %d (%s) saved, expires in %s\n", userID, role, ttl)
				return nil
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "operator or admin")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in the CLI config")
	return cmd
}
