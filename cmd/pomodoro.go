package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	pomodoroFocus int
	pomodoroTask  string
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	clockStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 4).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("42"))
	breakStyle  = clockStyle.BorderForeground(lipgloss.Color("75"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

type tickResultMsg struct {
	state services.TimerState
	err   error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// pomodoroModel drives a services.Timer once a second.
type pomodoroModel struct {
	ctx    context.Context
	timer  *services.Timer
	state  services.TimerState
	bar    progress.Model
	notice string
	err    error
}

func newPomodoroModel(ctx context.Context, timer *services.Timer) pomodoroModel {
	return pomodoroModel{
		ctx:   ctx,
		timer: timer,
		state: timer.State(),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m pomodoroModel) Init() tea.Cmd {
	return tick()
}

func (m pomodoroModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		// The store may be slow; the next tick is scheduled once this one lands.
		timer, ctx := m.timer, m.ctx
		return m, func() tea.Msg {
			st, err := timer.Tick(ctx)
			return tickResultMsg{state: st, err: err}
		}
	case tickResultMsg:
		prev := m.state.Phase
		m.state = msg.state
		if msg.err != nil {
			m.err = msg.err
		}
		switch {
		case prev == services.PhaseFocus && m.state.Phase == services.PhaseBreak:
			m.notice = fmt.Sprintf("Focus done! Take %d minutes.", services.BreakMinutes(m.state.FocusMinutes))
		case prev == services.PhaseBreak && m.state.Phase == services.PhaseIdle:
			m.notice = "Break over. Ready for another round?"
		}
		return m, tick()
	}
	return m, nil
}

func (m pomodoroModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "s", " ":
		m.timer.Start()
		m.notice = ""
	case "p":
		m.timer.Pause()
	case "r":
		m.timer.Reset()
		m.notice = ""
	case "+", "=":
		m.err = m.timer.Configure(m.state.FocusMinutes + 5)
	case "-", "_":
		m.err = m.timer.Configure(m.state.FocusMinutes - 5)
	}
	m.state = m.timer.State()
	return m, nil
}

func (m pomodoroModel) View() string {
	var b strings.Builder

	label := "Ready"
	style := clockStyle
	switch m.state.Phase {
	case services.PhaseFocus:
		label = "Focus"
	case services.PhaseBreak:
		label = "Break"
		style = breakStyle
	}
	if m.state.Paused {
		label += " (paused)"
	}

	b.WriteString(titleStyle.Render("🌿 Spearmint pomodoro · "+label) + "\n\n")
	b.WriteString(style.Render(m.state.Clock()) + "\n\n")

	elapsed := 0.0
	if total := m.state.Total(); total > 0 && m.state.Phase != services.PhaseIdle {
		elapsed = float64(total-m.state.Remaining()) / float64(total)
	}
	b.WriteString(m.bar.ViewAs(elapsed) + "\n\n")

	info := fmt.Sprintf("Focus %d min · break %d min", m.state.FocusMinutes, services.BreakMinutes(m.state.FocusMinutes))
	if m.state.LinkedTask != "" {
		info += " · linked " + m.state.LinkedTask
	}
	b.WriteString(helpStyle.Render(info) + "\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("s start · p pause · r reset · +/- focus length · q quit") + "\n")
	return b.String()
}

var pomodoroCmd = &cobra.Command{
	Use:   "pomodoro",
	Short: "Run a focus timer in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(cfg services.Config, s services.Session, store database.Store) error {
			focus := cfg.FocusMinutes
			if cmd.Flags().Changed("focus") {
				focus = pomodoroFocus
			}
			timer := services.NewTimer(s, cfg.FocusMinutes,
				services.WithCompleter(services.NewScheduleService(store)),
				services.WithCounter(services.NewPomodoroCounter(store)),
			)
			if err := timer.Configure(focus); err != nil {
				return err
			}
			timer.LinkTask(pomodoroTask)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			_, err := tea.NewProgram(newPomodoroModel(ctx, timer), tea.WithAltScreen()).Run()
			return err
		})
	},
}

func init() {
	pomodoroCmd.Flags().IntVarP(&pomodoroFocus, "focus", "f", services.MinFocusMinutes, "Focus length in minutes")
	pomodoroCmd.Flags().StringVarP(&pomodoroTask, "task", "t", "", "Schedule item ID to complete after the break")
	rootCmd.AddCommand(pomodoroCmd)
}
