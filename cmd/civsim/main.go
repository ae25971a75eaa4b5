package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/civ-balance/api/pkg/balance"
)

var version = "0.1.0-dev"

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "civsim",
		Short: "Civilization balance simulator",
		Long: `civsim plays large numbers of simulated ladder matches between players
picking asymmetric civilizations, and reports how Elo matchmaking pulls
observed civ win rates back toward a fair baseline.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("profile", balance.ProfileRanked, "Civilization catalog profile")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newCivsCmd(),
		newTokenCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				writeJSON(cmd, map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "civsim version %s\n", version)
			}
		},
	}
}
