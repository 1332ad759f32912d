package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	journalMood      string
	journalFeeling   string
	journalGratitude string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List journal entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			entries, placeholder, err := services.NewJournalService(store).List(cmd.Context(), s)
			if err != nil {
				return err
			}
			if placeholder {
				fmt.Println("Showing sample entries, your journal could not be loaded.")
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Date", "Mood", "Feeling", "Grateful for", "Affirmation"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Date, services.MoodEmoji(e.Mood) + " " + e.Mood, e.Feeling, e.Gratitude, e.Affirmation})
			}
			t.Render()
			return nil
		})
	},
}

var journalWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write today's entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			affirmation := services.NewAffirmation()
			fmt.Printf("✨ %s\n", affirmation)

			mood := prompt("Mood ("+strings.Join(services.Moods, ", ")+")", journalMood)
			if i := slices.IndexFunc(services.Moods, func(m string) bool { return strings.EqualFold(m, mood) }); i >= 0 {
				mood = services.Moods[i]
			}
			_, err := services.NewJournalService(store).CreateEntry(cmd.Context(), s, services.NewJournalEntry{
				Mood:        mood,
				Feeling:     prompt("How are you feeling", journalFeeling),
				Gratitude:   prompt("What are you grateful for", journalGratitude),
				Affirmation: affirmation,
			})
			if err != nil {
				return err
			}
			fmt.Println("✅ Journal saved.")
			return nil
		})
	},
}

func init() {
	journalWriteCmd.Flags().StringVar(&journalMood, "mood", "", "Great, Good, Okay, Down or Stressed")
	journalWriteCmd.Flags().StringVar(&journalFeeling, "feeling", "", "How you feel")
	journalWriteCmd.Flags().StringVar(&journalGratitude, "gratitude", "", "What you are grateful for")
	journalCmd.AddCommand(journalWriteCmd)
	rootCmd.AddCommand(journalCmd)
}
