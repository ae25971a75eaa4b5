package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/freeeve/civ-balance/api/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <operator>",
		Short: "Mint an operator token for the simulation server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			secret, _ := cmd.Flags().GetString("secret")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: pass --secret or set JWT_SECRET")
			}

			token, err := auth.NewJWTManager(secret).GenerateOperatorToken(args[0], ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, map[string]string{"operator": args[0], "token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("secret", "", "HMAC signing secret (defaults to JWT_SECRET)")
	cmd.Flags().Duration("ttl", auth.DefaultTokenExpiry, "Token lifetime")
	return cmd
}
