package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/CrowderSoup/spearmint/database"
)

// PomodoroCounter keeps a per-day count of finished focus sessions.
type PomodoroCounter struct {
	store database.Store
}

func NewPomodoroCounter(store database.Store) *PomodoroCounter {
	return &PomodoroCounter{store: store}
}

func tallyQuery(session Session, date string) database.Query {
	return database.Where("ownerId", session.OwnerID()).And("date", date)
}

// Count returns the number of sessions finished on date.
func (c *PomodoroCounter) Count(ctx context.Context, session Session, date string) (int, error) {
	if !session.Resolved() {
		return 0, ErrNoSession
	}
	tally, ok, err := c.find(ctx, session, date)
	if err != nil || !ok {
		return 0, err
	}
	return tally.Count, nil
}

// Increment adds one to the day's count and returns the new value.
func (c *PomodoroCounter) Increment(ctx context.Context, session Session, date string) (int, error) {
	if !session.Resolved() {
		return 0, ErrNoSession
	}

	// Two tries: a concurrent first insert for the same day turns into an update.
	for attempt := 0; attempt < 2; attempt++ {
		tally, ok, err := c.find(ctx, session, date)
		if err != nil {
			return 0, err
		}
		if ok {
			fields := database.Fields{"count": database.Increment(1)}
			if err := c.store.Update(ctx, database.PomodoroSessionsCollection, tally.ID, fields); err != nil {
				return 0, fmt.Errorf("failed to update pomodoro count: %w", err)
			}
			return c.Count(ctx, session, date)
		}

		first := database.PomodoroTally{OwnerID: session.OwnerID(), Date: date, Count: 1}
		_, err = c.store.InsertUnique(ctx, database.PomodoroSessionsCollection, first, tallyQuery(session, date))
		if errors.Is(err, database.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to record pomodoro count: %w", err)
		}
		return 1, nil
	}
	return 0, fmt.Errorf("failed to record pomodoro count: %w", database.ErrConflict)
}

func (c *PomodoroCounter) find(ctx context.Context, session Session, date string) (database.PomodoroTally, bool, error) {
	var tallies []database.PomodoroTally
	if err := c.store.Find(ctx, database.PomodoroSessionsCollection, tallyQuery(session, date).Take(1), &tallies); err != nil {
		return database.PomodoroTally{}, false, fmt.Errorf("failed to load pomodoro count: %w", err)
	}
	if len(tallies) == 0 {
		return database.PomodoroTally{}, false, nil
	}
	return tallies[0], true, nil
}
