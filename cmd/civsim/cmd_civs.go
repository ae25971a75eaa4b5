package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

func newCivsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "civs",
		Short: "List civilizations with their strengths and expected win rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			profile, _ := cmd.Flags().GetString("profile")
			spread, _ := cmd.Flags().GetFloat64("spread")
			listProfiles, _ := cmd.Flags().GetBool("profiles")

			if listProfiles {
				catalog, err := balance.LoadCatalog()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, catalog.Names())
				}
				for _, name := range catalog.Names() {
					p, _ := catalog.Profile(name)
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %3d civs  %s\n", name, len(p.Civilizations), p.Description)
				}
				return nil
			}

			reg, err := balance.LoadRegistry(profile, spread)
			if err != nil {
				return err
			}
			list := model.CivilizationsFrom(reg)
			if jsonOut {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Profile %s, spread %.2f, average strength %.3f\n\n", list.Profile, list.Spread, list.AverageStrength)
			fmt.Fprintf(out, "  %-18s %8s %8s %8s\n", "CIV", "BASE", "STRENGTH", "EXPECTED")
			for _, c := range list.Civilizations {
				fmt.Fprintf(out, "  %-18s %8.3f %8.3f %8.4f\n", c.Name, c.BaseStrength, c.Strength, c.ExpectedRandomWinRate)
			}
			return nil
		},
	}
	cmd.Flags().Float64("spread", 0, "Strength spread (0 = profile default)")
	cmd.Flags().Bool("profiles", false, "List catalog profiles instead of civilizations")
	return cmd
}
