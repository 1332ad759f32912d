package services

import (
	"context"
	"log"
	"math"
	"math/rand"

	"github.com/CrowderSoup/spearmint/database"
)

var mintQuotes = []string{
	"Take a deep breath.",
	"You are doing great.",
	"Pause. Sip water. Reset.",
}

// MintQuote returns a short encouragement.
func MintQuote() string {
	return mintQuotes[rand.Intn(len(mintQuotes))]
}

// Summary is everything the dashboard shows for one day.
type Summary struct {
	Date             string                  `json:"date"`
	Schedule         []database.ScheduleItem `json:"schedule"`
	PomodoroSessions int                     `json:"pomodoroSessions"`
	Lanes            LaneCounts              `json:"lanes"`
	Progress         int                     `json:"progress"`
	JournalSubmitted bool                    `json:"journalSubmitted"`
	Journal          *database.JournalEntry  `json:"journal,omitempty"`
	MintQuote        string                  `json:"mintQuote"`
	Placeholder      bool                    `json:"placeholder"`
}

// Progress is the share of completed tasks as a whole percentage.
func Progress(c LaneCounts) int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Completed) / float64(total) * 100))
}

// placeholderSummary is shown instead of an error when any read fails.
func placeholderSummary(date string) Summary {
	lanes := LaneCounts{ToDo: 3, InProgress: 2, Completed: 5}
	return Summary{
		Date: date,
		Schedule: []database.ScheduleItem{
			{ID: "demo-1", Time: "09:00", Task: "Plan the day", Date: date, Completed: true},
			{ID: "demo-2", Time: "11:00", Task: "Deep work block", Date: date},
			{ID: "demo-3", Time: "15:30", Task: "Review and stretch", Date: date},
		},
		PomodoroSessions: 2,
		Lanes:            lanes,
		Progress:         Progress(lanes),
		MintQuote:        MintQuote(),
		Placeholder:      true,
	}
}

// Dashboard composes the schedule, pomodoro, kanban and journal reads.
type Dashboard struct {
	store    database.Store
	schedule *ScheduleService
	journal  *JournalService
	counter  *PomodoroCounter
	today    func() string
}

func NewDashboard(store database.Store) *Dashboard {
	return &Dashboard{
		store:    store,
		schedule: NewScheduleService(store),
		journal:  NewJournalService(store),
		counter:  NewPomodoroCounter(store),
		today:    database.Today,
	}
}

func (d *Dashboard) setToday(today func() string) {
	d.today = today
	d.schedule.today = today
	d.journal.today = today
}

// Summary reads today's data. It never fails once a session is present: a
// failed read degrades to the placeholder summary.
func (d *Dashboard) Summary(ctx context.Context, session Session) (Summary, error) {
	if !session.Resolved() {
		return Summary{}, ErrNoSession
	}
	date := d.today()

	items, err := d.schedule.ForDate(ctx, session, date)
	if err != nil {
		log.Printf("Dashboard falling back to placeholder data: %v", err)
		return placeholderSummary(date), nil
	}
	sessions, err := d.counter.Count(ctx, session, date)
	if err != nil {
		log.Printf("Dashboard falling back to placeholder data: %v", err)
		return placeholderSummary(date), nil
	}
	board, err := LoadBoard(ctx, d.store, session)
	if err != nil {
		log.Printf("Dashboard falling back to placeholder data: %v", err)
		return placeholderSummary(date), nil
	}
	entry, err := d.journal.Today(ctx, session)
	if err != nil {
		log.Printf("Dashboard falling back to placeholder data: %v", err)
		return placeholderSummary(date), nil
	}

	lanes := board.Counts()
	return Summary{
		Date:             date,
		Schedule:         items,
		PomodoroSessions: sessions,
		Lanes:            lanes,
		Progress:         Progress(lanes),
		JournalSubmitted: entry != nil,
		Journal:          entry,
		MintQuote:        MintQuote(),
	}, nil
}
