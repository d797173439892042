package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"meal-planner/internal/app"
	"meal-planner/internal/calendar"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func slotTitle(slot string) string {
	if slot == "" {
		return slot
	}
	return strings.ToUpper(slot[:1]) + slot[1:]
}

// formatWeek renders a week grid, one block per day.
func formatWeek(cells []calendar.Cell) string {
	var sb strings.Builder
	if len(cells) > 0 {
		sb.WriteString(fmt.Sprintf("📅 *Week of %s*\n", cells[0].Date))
	}
	for _, c := range cells {
		sb.WriteString(fmt.Sprintf("\n*%s %02d*", c.Weekday, c.Day))
		if c.IsToday {
			sb.WriteString(" (today)")
		}
		sb.WriteString("\n")
		for _, s := range c.Slots {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", slotTitle(s.Slot), slotLabel(s)))
		}
	}
	return sb.String()
}

func slotLabel(s calendar.SlotCell) string {
	switch {
	case s.Recipe == nil:
		return "-"
	case s.Blocked:
		return esc(s.Recipe.Name) + " ⚠️"
	default:
		return esc(s.Recipe.Name)
	}
}

// formatShoppingList renders items grouped by store section.
func formatShoppingList(items []shopping.Item) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	if len(items) == 0 {
		sb.WriteString("\n_Nothing planned yet_\n")
		return sb.String()
	}
	for _, g := range shopping.GroupBySection(items) {
		section := string(g.Section)
		if g.Section == recipe.SectionUnspecified {
			section = "Other"
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n", esc(section)))
		for _, it := range g.Items {
			if it.Quantity == "" {
				sb.WriteString(fmt.Sprintf("• %s\n", esc(it.Label)))
				continue
			}
			sb.WriteString(fmt.Sprintf("• %s: %s\n", esc(it.Label), esc(it.Quantity)))
		}
	}
	return sb.String()
}

// formatSuggestions lists recipes with the id needed by /assign.
func formatSuggestions(recipes []recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("💡 *Suggestions*\n\n")
	if len(recipes) == 0 {
		sb.WriteString("_No recipes match_\n")
		return sb.String()
	}
	for _, r := range recipes {
		sb.WriteString(fmt.Sprintf("• %s `%s`", esc(r.Name), r.ID))
		if len(r.Tags) > 0 {
			sb.WriteString(fmt.Sprintf(" _%s_", esc(strings.Join(r.Tags, ", "))))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatImported(r *recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("✅ *Recipe Saved!*\n\n")
	sb.WriteString(fmt.Sprintf("*Title:* %s\n", esc(r.Name)))
	sb.WriteString(fmt.Sprintf("*Id:* `%s`\n", r.ID))
	sb.WriteString(fmt.Sprintf("*Serves:* %d\n", r.Serves))
	sb.WriteString(fmt.Sprintf("*Ingredients:* %d\n", len(r.Ingredients)))
	return sb.String()
}

func formatTokens(title string, tokens []string) string {
	if len(tokens) == 0 {
		return fmt.Sprintf("*%s:* _none_", title)
	}
	return fmt.Sprintf("*%s:* %s", title, esc(strings.Join(tokens, ", ")))
}

func formatStats(usage []metrics.DailySummary, health metrics.SysHealth, status app.Status) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent API Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s* %s: %d calls, %d failed, %.0fms avg\n",
			d.Date, esc(d.Operation), d.Calls, d.Failures, d.AvgLatencyMS))
	}

	sb.WriteString("\n📦 *Data*\n")
	sb.WriteString(fmt.Sprintf("• Recipes: %d\n", status.Recipes))
	sb.WriteString(fmt.Sprintf("• Planned slots: %d\n", status.Plans))
	if !status.LoadedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("• Loaded: %s\n", status.LoadedAt.Format("2006-01-02 15:04")))
	}
	if status.Stale {
		sb.WriteString(fmt.Sprintf("• ⚠️ Last refresh failed: %s\n", esc(status.LastError)))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func formatError(action string, err error) string {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr)
}

const helpText = `🧑‍🍳 *Meal Planner*

/week (YYYY-MM-DD) - the week plan
/shopping - shopping list for everything planned
/suggest (tags) - recipe ideas
/assign <date> <slot> <recipe-id> - plan a meal
/dislike <token> - hide recipes mentioning token
/undislike <token>
/pantry (token) - list or add a pantry staple
/unpantry <token>
/refresh - reload recipes and plans
/stats - usage and health

Send a recipe link to save it.`
