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

var (
	taskPriority    string
	taskStart       string
	taskDue         string
	taskDescription string
)

var laneTitles = map[database.Lane]string{
	database.LaneToDo:       "To Do",
	database.LaneInProgress: "In Progress",
	database.LaneCompleted:  "Completed",
}

func priorityMark(p database.Priority) string {
	switch p {
	case database.PriorityHigh:
		return text.FgRed.Sprint("high 🌶️🌶️")
	case database.PriorityMedium:
		return text.FgYellow.Sprint("medium 🌶️")
	}
	return text.FgGreen.Sprint(string(p))
}

// renderBoard prints one table per lane.
func renderBoard(w io.Writer, b *services.Board) {
	for _, lane := range database.Lanes {
		tasks := b.Lane(lane)

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("%s (%d)", laneTitles[lane], len(tasks))
		t.AppendHeader(table.Row{
			text.FgGreen.Sprint("ID"),
			text.FgGreen.Sprint(text.Bold.Sprint("Title")),
			text.FgGreen.Sprint("Priority"),
			text.FgGreen.Sprint("Start"),
			text.FgGreen.Sprint("Due"),
		})
		for _, task := range tasks {
			t.AppendRow(table.Row{task.ID, task.Title, priorityMark(task.Priority), task.StartDate, task.DueDate})
		}
		t.Render()
	}
}

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"kanban"},
	Short:   "Show the kanban board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			b, err := services.LoadBoard(cmd.Context(), store, s)
			if err != nil {
				return err
			}
			renderBoard(os.Stdout, b)
			return nil
		})
	},
}

var boardAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task to To Do",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			id, err := services.NewBoardController(store, s).CreateTask(cmd.Context(), services.NewTask{
				Title:       strings.Join(args, " "),
				Description: taskDescription,
				Priority:    database.Priority(strings.ToLower(taskPriority)),
				StartDate:   taskStart,
				DueDate:     taskDue,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✅ Task %s has been created.\n", id)
			return nil
		})
	},
}

var boardMoveCmd = &cobra.Command{
	Use:   "move [task ID] [lane or task ID]",
	Short: "Drop a task on a lane, or on another task's lane",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			board := services.NewBoardController(store, s)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			if _, _, ok := board.Board().Find(args[0]); !ok {
				return services.ErrTaskNotFound
			}
			if err := board.BeginDrag(args[0]); err != nil {
				return err
			}
			moved, err := board.EndDrag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if moved {
				fmt.Println("✅ Task moved.")
			} else {
				fmt.Println("Nothing to move.")
			}
			return nil
		})
	},
}

var boardRemoveCmd = &cobra.Command{
	Use:   "remove [task ID]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			if err := services.NewBoardController(store, s).DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("🗑️ Task %s has been deleted.\n", args[0])
			return nil
		})
	},
}

func init() {
	boardAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "high, medium or low")
	boardAddCmd.Flags().StringVar(&taskStart, "start", "", "Start date (YYYY-MM-DD), default today")
	boardAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")
	boardAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Description")
	boardCmd.AddCommand(boardAddCmd, boardMoveCmd, boardRemoveCmd)
	rootCmd.AddCommand(boardCmd)
}
