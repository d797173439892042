package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"meal-planner/internal/calendar"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
)

func cellLabel(s calendar.SlotCell) string {
	switch {
	case s.Recipe == nil:
		return "-"
	case s.Blocked:
		return s.Recipe.Name + " !"
	default:
		return s.Recipe.Name
	}
}

// renderDays writes one row per day with a column per slot. Days outside
// the month are dimmed with brackets.
func renderDays(w io.Writer, cells []calendar.Cell) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\t\tBREAKFAST\tLUNCH\tDINNER")
	for _, c := range cells {
		date := c.Date
		if !c.InMonth {
			date = "[" + date + "]"
		}
		mark := ""
		if c.IsToday {
			mark = "*"
		}
		labels := make([]string, 0, len(c.Slots))
		for _, s := range c.Slots {
			labels = append(labels, cellLabel(s))
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", c.Weekday, date, mark, strings.Join(labels, "\t"))
	}
	return tw.Flush()
}

func renderShopping(w io.Writer, items []shopping.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Nothing planned.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range shopping.GroupBySection(items) {
		section := string(g.Section)
		if g.Section == recipe.SectionUnspecified {
			section = "Other"
		}
		fmt.Fprintf(tw, "%s\n", section)
		for _, it := range g.Items {
			fmt.Fprintf(tw, "  %s\t%s\n", it.Label, it.Quantity)
		}
	}
	return tw.Flush()
}

func renderRecipes(w io.Writer, recipes []recipe.Recipe) error {
	if len(recipes) == 0 {
		_, err := fmt.Fprintln(w, "No recipes match.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTAGS")
	for _, r := range recipes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, strings.Join(r.Tags, ", "))
	}
	return tw.Flush()
}

func renderTokens(w io.Writer, tokens []string) error {
	if len(tokens) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	for _, t := range tokens {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}
