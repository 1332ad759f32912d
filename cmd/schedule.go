package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scheduleDate string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show a day's schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			date := scheduleDate
			if date == "" {
				date = database.Today()
			}
			items, err := services.NewScheduleService(store).ForDate(cmd.Context(), s, date)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.SetTitle("Schedule for %s", date)
			t.AppendHeader(table.Row{"ID", "Time", "Task", "Done"})
			for _, item := range items {
				done := ""
				if item.Completed {
					done = "✅"
				}
				t.AppendRow(table.Row{item.ID, item.Time, item.Task, done})
			}
			t.Render()
			return nil
		})
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add [HH:MM] [task]",
	Short: "Book a time slot",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			id, err := services.NewScheduleService(store).Add(cmd.Context(), s, services.NewScheduleItem{
				Time: args[0],
				Task: strings.Join(args[1:], " "),
				Date: scheduleDate,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✅ Scheduled %s.\n", id)
			return nil
		})
	},
}

var scheduleDoneCmd = &cobra.Command{
	Use:   "done [ID]",
	Short: "Mark a schedule item completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			if err := services.NewScheduleService(store).Complete(cmd.Context(), s, args[0]); err != nil {
				return err
			}
			fmt.Println("✅ Done.")
			return nil
		})
	},
}

func init() {
	scheduleCmd.PersistentFlags().StringVar(&scheduleDate, "date", "", "Date (YYYY-MM-DD), default today")
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleDoneCmd)
	rootCmd.AddCommand(scheduleCmd)
}
