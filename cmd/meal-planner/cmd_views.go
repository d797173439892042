package main

import (
	"time"

	"github.com/spf13/cobra"

	"meal-planner/internal/planner"
)

var weekCmd = &cobra.Command{
	Use:   "week [YYYY-MM-DD]",
	Short: "Show the week containing a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dayArg(args)
		if err != nil {
			return err
		}
		refresh(cmd, day)
		return renderDays(cmd.OutOrStdout(), application.Session().Week(day))
	},
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM-DD]",
	Short: "Show the month containing a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dayArg(args)
		if err != nil {
			return err
		}
		refresh(cmd, day)
		return renderDays(cmd.OutOrStdout(), application.Session().Month(day))
	},
}

var shoppingCmd = &cobra.Command{
	Use:   "shopping",
	Short: "Show the shopping list for every planned meal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := application.Session()
		refresh(cmd, session.Today())
		return renderShopping(cmd.OutOrStdout(), session.ShoppingList())
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [tag...]",
	Short: "Suggest recipes carrying every tag and no disliked token",
	RunE: func(cmd *cobra.Command, args []string) error {
		session := application.Session()
		refresh(cmd, session.Today())
		return renderRecipes(cmd.OutOrStdout(), session.Suggestions(args))
	},
}

func dayArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return application.Session().Today(), nil
	}
	return planner.ParseDate(args[0])
}
