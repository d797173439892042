package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <YYYY-MM-DD> <breakfast|lunch|dinner> <recipe-id>",
	Short: "Plan a recipe for a meal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := application.Session().Assign(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Planned %s for %s %s\n", a.RecipeID, a.Date, a.Slot)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Clip a recipe page into the local catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		rec, err := application.ImportRecipe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %s (%d ingredients)\n", rec.Name, rec.ID, len(rec.Ingredients))
		return nil
	},
}
