package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himalthapa1/EduConnect/internal/auth"
)

type tokenOptions struct {
	UserID uint
	TTL    int
}

// newTokenCommand 为本地调试签发 access token。
func newTokenCommand() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.UserID == 0 {
				return errors.New("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ttl := opts.TTL
			if ttl <= 0 {
				ttl = cfg.AccessTokenTTLMinutes
			}
			token, err := auth.GenerateAccessToken(opts.UserID, cfg.JWTSecret, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&opts.UserID, "user", 0, "user id to sign the token for")
	cmd.Flags().IntVar(&opts.TTL, "ttl", 0, "token lifetime in minutes (default ACCESS_TOKEN_TTL_MINUTES)")
	return cmd
}
