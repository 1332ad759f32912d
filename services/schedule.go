package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/CrowderSoup/spearmint/database"
)

var (
	ErrBadTime       = errors.New("Time must look like HH:MM")
	ErrEmptyLabel    = errors.New("Schedule entry needs a task")
	ErrSlotTaken     = errors.New("You already have something scheduled at that time.")
	ErrScheduleEntry = errors.New("Schedule entry not found")
)

// NewScheduleItem is the body of POST /api/schedules.
type NewScheduleItem struct {
	Time string `json:"time"`
	Task string `json:"task"`
	Date string `json:"date"`
}

// ScheduleService manages the daily schedule.
type ScheduleService struct {
	store database.Store
	today func() string
}

func NewScheduleService(store database.Store) *ScheduleService {
	return &ScheduleService{store: store, today: database.Today}
}

// Add books a time slot. Only one item may occupy a given (date, time) per owner.
func (s *ScheduleService) Add(ctx context.Context, session Session, in NewScheduleItem) (string, error) {
	if !session.Resolved() {
		return "", ErrNoSession
	}
	label := strings.TrimSpace(in.Task)
	if label == "" {
		return "", ErrEmptyLabel
	}
	clock, err := parseClock(in.Time)
	if err != nil {
		return "", ErrBadTime
	}
	date := in.Date
	if date == "" {
		date = s.today()
	}
	if !validDate(date) {
		return "", ErrBadDate
	}

	item := database.ScheduleItem{
		OwnerID: session.OwnerID(),
		Time:    clock,
		Task:    label,
		Date:    date,
	}
	slot := database.Where("ownerId", item.OwnerID).And("date", date).And("time", clock)
	id, err := s.store.InsertUnique(ctx, database.SchedulesCollection, item, slot)
	if errors.Is(err, database.ErrConflict) {
		return "", ErrSlotTaken
	}
	if err != nil {
		log.Printf("Error adding schedule item: %v", err)
		return "", fmt.Errorf("failed to add schedule item: %w", err)
	}
	return id, nil
}

// Today lists today's schedule in time order.
func (s *ScheduleService) Today(ctx context.Context, session Session) ([]database.ScheduleItem, error) {
	return s.ForDate(ctx, session, s.today())
}

// ForDate lists one day's schedule in time order.
func (s *ScheduleService) ForDate(ctx context.Context, session Session, date string) ([]database.ScheduleItem, error) {
	if !session.Resolved() {
		return nil, ErrNoSession
	}
	items := []database.ScheduleItem{}
	q := database.Where("ownerId", session.OwnerID()).And("date", date).Order("time", false)
	if err := s.store.Find(ctx, database.SchedulesCollection, q, &items); err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	return items, nil
}

// Complete marks a schedule item done. The pomodoro timer calls this when a
// linked item's break ends.
func (s *ScheduleService) Complete(ctx context.Context, session Session, id string) error {
	if _, err := s.owned(ctx, session, id); err != nil {
		return err
	}
	fields := database.Fields{"completed": true, "completedAt": database.ServerTimestamp}
	if err := s.store.Update(ctx, database.SchedulesCollection, id, fields); err != nil {
		log.Printf("Error completing schedule item %s: %v", id, err)
		return fmt.Errorf("failed to complete schedule item: %w", err)
	}
	return nil
}

// Delete removes a schedule item.
func (s *ScheduleService) Delete(ctx context.Context, session Session, id string) error {
	if _, err := s.owned(ctx, session, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, database.SchedulesCollection, id); err != nil {
		log.Printf("Error deleting schedule item %s: %v", id, err)
		return fmt.Errorf("failed to delete schedule item: %w", err)
	}
	return nil
}

func (s *ScheduleService) owned(ctx context.Context, session Session, id string) (database.ScheduleItem, error) {
	if !session.Resolved() {
		return database.ScheduleItem{}, ErrNoSession
	}
	var item database.ScheduleItem
	err := s.store.Get(ctx, database.SchedulesCollection, id, &item)
	if errors.Is(err, database.ErrNotFound) || (err == nil && item.OwnerID != session.OwnerID()) {
		return database.ScheduleItem{}, ErrScheduleEntry
	}
	if err != nil {
		return database.ScheduleItem{}, fmt.Errorf("failed to load schedule item: %w", err)
	}
	return item, nil
}

// parseClock normalises "9:05" and "09:05" to "09:05".
func parseClock(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(database.DateLayout, s)
}
