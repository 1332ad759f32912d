package services

import (
	"context"
	"testing"

	"github.com/CrowderSoup/spearmint/database"
)

func TestDashboardSummary(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	today := fixedToday("2025-07-28")

	schedule := NewScheduleService(store)
	schedule.today = today
	if _, err := schedule.Add(ctx, alice, NewScheduleItem{Time: "09:00", Task: "Plan"}); err != nil {
		t.Fatal(err)
	}
	if _, err := schedule.Add(ctx, alice, NewScheduleItem{Time: "10:00", Task: "Yesterday", Date: "2025-07-27"}); err != nil {
		t.Fatal(err)
	}
	seedTask(t, store, "alice", "a", database.LaneToDo, database.PriorityLow, "2025-07-01")
	seedTask(t, store, "alice", "b", database.LaneCompleted, database.PriorityLow, "2025-07-01")
	seedTask(t, store, "alice", "c", database.LaneCompleted, database.PriorityLow, "2025-07-01")
	seedTask(t, store, "bob", "d", database.LaneToDo, database.PriorityLow, "2025-07-01")
	if _, err := NewPomodoroCounter(store).Increment(ctx, alice, "2025-07-28"); err != nil {
		t.Fatal(err)
	}

	d := NewDashboard(store)
	d.setToday(today)

	sum, err := d.Summary(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Placeholder {
		t.Fatal("got placeholder summary")
	}
	if len(sum.Schedule) != 1 || sum.Schedule[0].Task != "Plan" {
		t.Errorf("schedule = %+v", sum.Schedule)
	}
	if sum.PomodoroSessions != 1 {
		t.Errorf("sessions = %d", sum.PomodoroSessions)
	}
	if sum.Lanes != (LaneCounts{ToDo: 1, Completed: 2}) || sum.Progress != 67 {
		t.Errorf("lanes = %+v, progress = %d", sum.Lanes, sum.Progress)
	}
	if sum.JournalSubmitted || sum.Journal != nil {
		t.Error("journal reported before it was written")
	}
	if sum.MintQuote == "" {
		t.Error("missing mint quote")
	}

	journal := NewJournalService(store)
	journal.today = today
	if _, err := journal.CreateEntry(ctx, alice, goodEntry()); err != nil {
		t.Fatal(err)
	}
	sum, err = d.Summary(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.JournalSubmitted || sum.Journal == nil || sum.Journal.Mood != "Good" {
		t.Errorf("journal = %v, %+v", sum.JournalSubmitted, sum.Journal)
	}
}

func TestDashboardFallsBackToPlaceholder(t *testing.T) {
	store := newSpyStore()
	store.setFailRead(true)
	d := NewDashboard(store)
	d.setToday(fixedToday("2025-07-28"))

	sum, err := d.Summary(context.Background(), alice)
	if err != nil {
		t.Fatalf("err = %v, want placeholder data", err)
	}
	if !sum.Placeholder || len(sum.Schedule) == 0 || sum.Date != "2025-07-28" {
		t.Errorf("summary = %+v", sum)
	}
}

func TestProgress(t *testing.T) {
	if got := Progress(LaneCounts{}); got != 0 {
		t.Errorf("empty progress = %d", got)
	}
	if got := Progress(LaneCounts{ToDo: 1, InProgress: 1, Completed: 1}); got != 33 {
		t.Errorf("progress = %d, want 33", got)
	}
}
