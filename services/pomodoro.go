package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/CrowderSoup/spearmint/database"
)

// MinFocusMinutes is the shortest focus session the timer accepts.
const MinFocusMinutes = 25

var (
	ErrFocusTooShort = fmt.Errorf("Focus time must be at least %d minutes", MinFocusMinutes)
	ErrSessionActive = errors.New("finish or reset the current session before changing its length")
)

// TimerPhase is the pomodoro state.
type TimerPhase string

const (
	PhaseIdle  TimerPhase = "idle"
	PhaseFocus TimerPhase = "focus"
	PhaseBreak TimerPhase = "break"
)

// TaskCompleter marks a linked schedule item done when a break ends.
type TaskCompleter interface {
	Complete(ctx context.Context, session Session, id string) error
}

// SessionCounter records a finished focus session.
type SessionCounter interface {
	Increment(ctx context.Context, session Session, date string) (int, error)
}

// TimerState is a copy of the timer for display.
type TimerState struct {
	Phase        TimerPhase `json:"phase"`
	Paused       bool       `json:"paused"`
	Minutes      int        `json:"minutes"`
	Seconds      int        `json:"seconds"`
	FocusMinutes int        `json:"focusMinutes"`
	LinkedTask   string     `json:"linkedTask,omitempty"`
}

// Clock renders the remaining time as MM:SS.
func (s TimerState) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.Minutes, s.Seconds)
}

// Total returns the length of the current phase in seconds.
func (s TimerState) Total() int {
	if s.Phase == PhaseBreak {
		return BreakMinutes(s.FocusMinutes) * 60
	}
	return s.FocusMinutes * 60
}

// Remaining returns the seconds left in the current phase.
func (s TimerState) Remaining() int {
	return s.Minutes*60 + s.Seconds
}

// BreakMinutes is a fifth of the focus length, rounded up.
func BreakMinutes(focus int) int {
	return (focus + 4) / 5
}

// Timer is a tick-driven pomodoro. Its driver calls Tick once a second.
type Timer struct {
	mu sync.Mutex

	session   Session
	completer TaskCompleter
	counter   SessionCounter
	today     func() string

	phase        TimerPhase
	paused       bool
	focusMinutes int
	minutes      int
	seconds      int
	linkedTask   string
}

// TimerOption configures a Timer.
type TimerOption func(*Timer)

// WithCompleter completes linked schedule items at the end of a break.
func WithCompleter(c TaskCompleter) TimerOption {
	return func(t *Timer) { t.completer = c }
}

// WithCounter records every finished focus session.
func WithCounter(c SessionCounter) TimerOption {
	return func(t *Timer) { t.counter = c }
}

// NewTimer returns an idle timer. A focus length below the floor falls back to it.
func NewTimer(session Session, focusMinutes int, opts ...TimerOption) *Timer {
	if focusMinutes < MinFocusMinutes {
		focusMinutes = MinFocusMinutes
	}
	t := &Timer{
		session:      session,
		today:        database.Today,
		phase:        PhaseIdle,
		focusMinutes: focusMinutes,
		minutes:      focusMinutes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a copy of the timer.
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() TimerState {
	return TimerState{
		Phase:        t.phase,
		Paused:       t.paused,
		Minutes:      t.minutes,
		Seconds:      t.seconds,
		FocusMinutes: t.focusMinutes,
		LinkedTask:   t.linkedTask,
	}
}

// Configure sets the focus length. It only applies while idle.
func (t *Timer) Configure(minutes int) error {
	if minutes < MinFocusMinutes {
		return ErrFocusTooShort
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseIdle {
		return ErrSessionActive
	}
	t.focusMinutes = minutes
	t.minutes, t.seconds = minutes, 0
	return nil
}

// LinkTask ties a schedule item to the current or next session. An empty id unlinks.
func (t *Timer) LinkTask(id string) {
	t.mu.Lock()
	t.linkedTask = id
	t.mu.Unlock()
}

// Start begins a focus session from idle, or resumes a paused one.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseIdle {
		t.phase = PhaseFocus
		t.minutes, t.seconds = t.focusMinutes, 0
	}
	t.paused = false
}

// Pause holds the countdown until the next Start.
func (t *Timer) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Reset discards the running session and restores the configured focus length.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = PhaseIdle
	t.paused = false
	t.minutes, t.seconds = t.focusMinutes, 0
}

// Tick advances the countdown by one second. Reaching zero in focus starts
// the break and records the session; reaching zero in a break returns to
// idle and completes the linked schedule item. Store failures are logged and
// returned, and never hold the timer back.
func (t *Timer) Tick(ctx context.Context) (TimerState, error) {
	t.mu.Lock()
	if t.phase == PhaseIdle || t.paused {
		st := t.stateLocked()
		t.mu.Unlock()
		return st, nil
	}

	switch {
	case t.seconds > 0:
		t.seconds--
	case t.minutes > 0:
		t.minutes--
		t.seconds = 59
	}
	if t.minutes > 0 || t.seconds > 0 {
		st := t.stateLocked()
		t.mu.Unlock()
		return st, nil
	}

	var finished TimerPhase
	var linked string
	if t.phase == PhaseFocus {
		finished = PhaseFocus
		t.phase = PhaseBreak
		t.minutes, t.seconds = BreakMinutes(t.focusMinutes), 0
	} else {
		finished = PhaseBreak
		linked = t.linkedTask
		t.phase = PhaseIdle
		t.linkedTask = ""
		t.minutes, t.seconds = t.focusMinutes, 0
	}
	st := t.stateLocked()
	t.mu.Unlock()

	return st, t.finish(ctx, finished, linked)
}

func (t *Timer) finish(ctx context.Context, phase TimerPhase, linked string) error {
	switch phase {
	case PhaseFocus:
		if t.counter == nil || !t.session.Resolved() {
			return nil
		}
		if _, err := t.counter.Increment(ctx, t.session, t.today()); err != nil {
			log.Printf("Error recording pomodoro session: %v", err)
			return err
		}
	case PhaseBreak:
		if linked == "" || t.completer == nil {
			return nil
		}
		if err := t.completer.Complete(ctx, t.session, linked); err != nil {
			log.Printf("Error completing linked task %s: %v", linked, err)
			return err
		}
		log.Printf("Completed linked task %s after break", linked)
	}
	return nil
}
