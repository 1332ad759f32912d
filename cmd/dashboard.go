package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func renderDashboard(w io.Writer, name string, sum services.Summary) {
	fmt.Fprintf(w, "Hey %s! %s\n", name, text.Faint.Sprint("productivity 100% mint-certified"))
	if sum.Placeholder {
		fmt.Fprintln(w, text.FgYellow.Sprint("Showing sample data, your data could not be loaded."))
	}

	// go-pretty wraps titles to the table width, so the date gets its own line.
	fmt.Fprintf(w, "\n📅 Today's schedule · %s\n", sum.Date)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Task", "Done"})
	for _, item := range sum.Schedule {
		done := ""
		if item.Completed {
			done = "✅"
		}
		t.AppendRow(table.Row{item.Time, item.Task, done})
	}
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.SetStyle(table.StyleRounded)
	s.AppendRows([]table.Row{
		{"Pomodoro sessions", sum.PomodoroSessions},
		{"To do", sum.Lanes.ToDo},
		{"In progress", sum.Lanes.InProgress},
		{"Completed", sum.Lanes.Completed},
		{"Progress", progressBar(sum.Progress)},
		{"Journal", journalLine(sum)},
	})
	s.Render()

	fmt.Fprintf(w, "🌿 %s\n", sum.MintQuote)
}

func progressBar(percent int) string {
	filled := percent / 10
	return fmt.Sprintf("%s%s %d%%", strings.Repeat("█", filled), strings.Repeat("░", 10-filled), percent)
}

func journalLine(sum services.Summary) string {
	if !sum.JournalSubmitted || sum.Journal == nil {
		return "not written yet"
	}
	return fmt.Sprintf("%s feeling %s", services.MoodEmoji(sum.Journal.Mood), sum.Journal.Mood)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show today at a glance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			sum, err := services.NewDashboard(store).Summary(cmd.Context(), s)
			if err != nil {
				return err
			}
			renderDashboard(os.Stdout, displayName(s), sum)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
