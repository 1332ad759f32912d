package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CrowderSoup/spearmint/database"
)

func tickN(t *testing.T, timer *Timer, n int) TimerState {
	t.Helper()
	var st TimerState
	for i := 0; i < n; i++ {
		var err error
		st, err = timer.Tick(context.Background())
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	return st
}

func TestBreakMinutes(t *testing.T) {
	cases := map[int]int{25: 5, 26: 6, 30: 6, 31: 7, 50: 10}
	for focus, want := range cases {
		if got := BreakMinutes(focus); got != want {
			t.Errorf("BreakMinutes(%d) = %d, want %d", focus, got, want)
		}
	}
}

func TestTimerFullCycleWithDefaults(t *testing.T) {
	store := newSpyStore()
	timer := NewTimer(alice, MinFocusMinutes, WithCompleter(NewScheduleService(store)))
	timer.Start()

	st := tickN(t, timer, 1)
	if st.Clock() != "24:59" {
		t.Fatalf("after one tick clock = %s, want 24:59", st.Clock())
	}

	st = tickN(t, timer, 25*60-2)
	if st.Phase != PhaseFocus || st.Clock() != "00:01" {
		t.Fatalf("state = %+v, want focus 00:01", st)
	}
	st = tickN(t, timer, 1)
	if st.Phase != PhaseBreak || st.Clock() != "05:00" {
		t.Fatalf("state = %+v, want break 05:00", st)
	}

	st = tickN(t, timer, 5*60)
	if st.Phase != PhaseIdle || st.Clock() != "25:00" {
		t.Fatalf("state = %+v, want idle 25:00", st)
	}
	if _, writes := store.counts(); writes != 0 {
		t.Errorf("writes = %d, want 0 with no linked task", writes)
	}
}

func TestTimerConfigureBelowFloor(t *testing.T) {
	timer := NewTimer(alice, 30)
	err := timer.Configure(10)
	if !errors.Is(err, ErrFocusTooShort) {
		t.Fatalf("err = %v, want %v", err, ErrFocusTooShort)
	}
	if err.Error() != "Focus time must be at least 25 minutes" {
		t.Errorf("message = %q", err.Error())
	}
	if st := timer.State(); st.FocusMinutes != 30 || st.Clock() != "30:00" {
		t.Errorf("state changed: %+v", st)
	}
}

func TestTimerConfigureIgnoredWhileActive(t *testing.T) {
	timer := NewTimer(alice, MinFocusMinutes)
	timer.Start()
	tickN(t, timer, 3)

	if err := timer.Configure(40); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("err = %v, want %v", err, ErrSessionActive)
	}
	if st := timer.State(); st.FocusMinutes != 25 || st.Clock() != "24:57" {
		t.Errorf("state = %+v", st)
	}

	timer.Reset()
	if err := timer.Configure(40); err != nil {
		t.Fatal(err)
	}
	if st := timer.State(); st.Phase != PhaseIdle || st.Clock() != "40:00" {
		t.Errorf("state = %+v", st)
	}
}

func TestTimerPauseHoldsRemainingTime(t *testing.T) {
	timer := NewTimer(alice, MinFocusMinutes)
	timer.Start()
	tickN(t, timer, 10)
	timer.Pause()
	st := tickN(t, timer, 30)
	if !st.Paused || st.Clock() != "24:50" {
		t.Fatalf("paused state = %+v", st)
	}
	timer.Start()
	st = tickN(t, timer, 1)
	if st.Paused || st.Phase != PhaseFocus || st.Clock() != "24:49" {
		t.Fatalf("resumed state = %+v", st)
	}
}

func TestTimerResetRestoresFocusLength(t *testing.T) {
	timer := NewTimer(alice, MinFocusMinutes)
	timer.Start()
	tickN(t, timer, 25*60+7)
	if timer.State().Phase != PhaseBreak {
		t.Fatal("expected break")
	}
	timer.Reset()
	if st := timer.State(); st.Phase != PhaseIdle || st.Clock() != "25:00" || st.Paused {
		t.Errorf("state = %+v", st)
	}
}

func TestTimerIdleTickDoesNothing(t *testing.T) {
	timer := NewTimer(alice, MinFocusMinutes)
	if st := tickN(t, timer, 5); st.Phase != PhaseIdle || st.Clock() != "25:00" {
		t.Errorf("state = %+v", st)
	}
}

func TestTimerCompletesLinkedItemAfterBreak(t *testing.T) {
	store := database.NewMemoryStore()
	schedule := NewScheduleService(store)
	id, err := schedule.Add(context.Background(), alice, NewScheduleItem{Time: "09:00", Task: "Deep work"})
	if err != nil {
		t.Fatal(err)
	}

	timer := NewTimer(alice, MinFocusMinutes, WithCompleter(schedule))
	timer.LinkTask(id)
	timer.Start()

	completed := func() bool {
		var item database.ScheduleItem
		if err := store.Get(context.Background(), database.SchedulesCollection, id, &item); err != nil {
			t.Fatal(err)
		}
		return item.Completed
	}

	tickN(t, timer, 25*60)
	if completed() {
		t.Fatal("item completed when focus ended, want after break")
	}
	st := tickN(t, timer, 5*60)
	if !completed() {
		t.Fatal("item not completed after break")
	}
	if st.LinkedTask != "" {
		t.Errorf("link kept after break: %q", st.LinkedTask)
	}
}

func TestTimerRecordsFinishedFocusSessions(t *testing.T) {
	store := database.NewMemoryStore()
	counter := NewPomodoroCounter(store)
	timer := NewTimer(alice, MinFocusMinutes, WithCounter(counter))
	timer.today = fixedToday("2025-07-28")

	for round := 0; round < 2; round++ {
		timer.Start()
		tickN(t, timer, 30*60)
	}
	n, err := counter.Count(context.Background(), alice, "2025-07-28")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestTimerSurfacesCompletionFailure(t *testing.T) {
	store := newSpyStore()
	timer := NewTimer(alice, MinFocusMinutes, WithCompleter(NewScheduleService(store)))
	timer.LinkTask("missing")
	timer.Start()
	tickN(t, timer, 25*60+5*60-1)

	st, err := timer.Tick(context.Background())
	if !errors.Is(err, ErrScheduleEntry) {
		t.Fatalf("err = %v, want %v", err, ErrScheduleEntry)
	}
	if st.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", st.Phase)
	}
}

func TestPomodoroCounterPerDay(t *testing.T) {
	counter := NewPomodoroCounter(database.NewMemoryStore())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := counter.Increment(ctx, alice, "2025-07-28")
		if err != nil {
			t.Fatal(err)
		}
		if n != i {
			t.Errorf("increment %d returned %d", i, n)
		}
	}
	if n, _ := counter.Count(ctx, alice, "2025-07-29"); n != 0 {
		t.Errorf("other day count = %d", n)
	}
	if n, _ := counter.Count(ctx, Session{Username: "bob"}, "2025-07-28"); n != 0 {
		t.Errorf("other owner count = %d", n)
	}
	if _, err := counter.Increment(ctx, Session{}, "2025-07-28"); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v", err)
	}
}

// slowReads delays every Find so read-then-write races have room to happen.
type slowReads struct {
	database.Store
}

func (s slowReads) Find(ctx context.Context, collection string, q database.Query, out any) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Find(ctx, collection, q, out)
}

func TestPomodoroCounterConcurrentIncrements(t *testing.T) {
	counter := NewPomodoroCounter(slowReads{database.NewMemoryStore()})
	ctx := context.Background()
	if _, err := counter.Increment(ctx, alice, "2025-07-28"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := counter.Increment(ctx, alice, "2025-07-28"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if n, err := counter.Count(ctx, alice, "2025-07-28"); err != nil || n != 11 {
		t.Errorf("count = %d, %v, want 11", n, err)
	}
}
