package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"meal-planner/internal/preferences"
)

type tokenOp func(ctx context.Context, token string) (preferences.Preferences, error)

var dislikeCmd = tokenCommand("dislike", "Manage disliked tokens",
	func(p preferences.Preferences) []string { return p.Dislikes },
	func() tokenOp { return application.Session().AddDislike },
	func() tokenOp { return application.Session().RemoveDislike },
)

var pantryCmd = tokenCommand("pantry", "Manage pantry staples",
	func(p preferences.Preferences) []string { return p.Pantry },
	func() tokenOp { return application.Session().AddPantry },
	func() tokenOp { return application.Session().RemovePantry },
)

// tokenCommand builds the add, remove and list subcommands of a token list.
// The operations are resolved at run time, after the app exists.
func tokenCommand(name, short string, list func(preferences.Preferences) []string, add, remove func() tokenOp) *cobra.Command {
	parent := &cobra.Command{Use: name, Short: short}

	run := func(op func() tokenOp) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			p, err := op()(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return renderTokens(cmd.OutOrStdout(), list(p))
		}
	}

	parent.AddCommand(&cobra.Command{
		Use:   "add <token>",
		Short: "Add a token",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run(add),
	})
	parent.AddCommand(&cobra.Command{
		Use:   "remove <token>",
		Short: "Remove a token",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run(remove),
	})
	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderTokens(cmd.OutOrStdout(), list(application.Session().Preferences()))
		},
	})
	return parent
}
