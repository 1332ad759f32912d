package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
)

var (
	ErrIncompleteEntry  = errors.New("Please fill in all fields before submitting.")
	ErrUnknownMood      = errors.New("Please pick one of the listed moods.")
	ErrAlreadySubmitted = errors.New("You've already submitted your journal today.")
)

// Moods lists the selectable moods in display order.
var Moods = []string{"Great", "Good", "Okay", "Down", "Stressed"}

var moodEmoji = map[string]string{
	"Great":    "😊",
	"Good":     "🙂",
	"Okay":     "😐",
	"Down":     "😔",
	"Stressed": "😰",
}

// MoodEmoji returns the face shown next to a mood.
func MoodEmoji(mood string) string {
	if e, ok := moodEmoji[mood]; ok {
		return e
	}
	return "😊"
}

var affirmations = []string{
	"You are capable of amazing things! ✨",
	"Every small step counts toward your goals 🌱",
	"Progress, not perfection.",
	"You deserve the kindness you give others 💚",
	"Rest is part of the work.",
	"Today is a fresh start.",
	"You have handled hard days before, and you will again.",
}

// NewAffirmation picks an affirmation. Callers pick once per form shown.
func NewAffirmation() string {
	return affirmations[rand.Intn(len(affirmations))]
}

// demoEntries stand in for the list when the store cannot be read.
var demoEntries = []database.JournalEntry{
	{
		ID:          "1",
		Date:        "2025-07-28",
		Mood:        "Great",
		Feeling:     "productive and energized",
		Gratitude:   "my morning coffee and a productive work session",
		Affirmation: "You are capable of amazing things! ✨",
	},
	{
		ID:          "2",
		Date:        "2025-07-27",
		Mood:        "Good",
		Feeling:     "calm and focused",
		Gratitude:   "spending time with family",
		Affirmation: "Every small step counts toward your goals 🌱",
	},
}

// NewJournalEntry is the body of POST /api/journal. Affirmation is the one the
// form displayed; a fresh one is picked when it is empty.
type NewJournalEntry struct {
	Mood        string `json:"mood"`
	Feeling     string `json:"feeling"`
	Gratitude   string `json:"gratitude"`
	Affirmation string `json:"affirmation"`
}

// JournalService stores one mood entry per owner per day. Entries are never edited.
type JournalService struct {
	store database.Store
	today func() string
}

func NewJournalService(store database.Store) *JournalService {
	return &JournalService{store: store, today: database.Today}
}

// CreateEntry records today's entry.
func (s *JournalService) CreateEntry(ctx context.Context, session Session, in NewJournalEntry) (string, error) {
	if !session.Resolved() {
		return "", ErrNoSession
	}
	mood := strings.TrimSpace(in.Mood)
	feeling := strings.TrimSpace(in.Feeling)
	gratitude := strings.TrimSpace(in.Gratitude)
	if mood == "" || feeling == "" || gratitude == "" {
		return "", ErrIncompleteEntry
	}
	if _, ok := moodEmoji[mood]; !ok {
		return "", ErrUnknownMood
	}
	affirmation := in.Affirmation
	if affirmation == "" {
		affirmation = NewAffirmation()
	}

	date := s.today()
	entry := database.JournalEntry{
		OwnerID:     session.OwnerID(),
		Date:        date,
		Mood:        mood,
		Feeling:     feeling,
		Gratitude:   gratitude,
		Affirmation: affirmation,
	}
	day := database.Where("ownerId", entry.OwnerID).And("date", date)
	id, err := s.store.InsertUnique(ctx, database.JournalCollection, entry, day, "timestamp")
	if errors.Is(err, database.ErrConflict) {
		return "", ErrAlreadySubmitted
	}
	if err != nil {
		log.Printf("Error saving journal entry: %v", err)
		return "", fmt.Errorf("failed to save journal entry: %w", err)
	}
	return id, nil
}

// Today returns today's entry, or nil when there is none.
func (s *JournalService) Today(ctx context.Context, session Session) (*database.JournalEntry, error) {
	if !session.Resolved() {
		return nil, ErrNoSession
	}
	var entries []database.JournalEntry
	q := database.Where("ownerId", session.OwnerID()).And("date", s.today()).Take(1)
	if err := s.store.Find(ctx, database.JournalCollection, q, &entries); err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// List returns every entry, newest date first. When the store cannot be read
// it falls back to demo entries and reports that it did.
func (s *JournalService) List(ctx context.Context, session Session) ([]database.JournalEntry, bool, error) {
	if !session.Resolved() {
		return nil, false, ErrNoSession
	}
	entries := []database.JournalEntry{}
	q := database.Where("ownerId", session.OwnerID()).Order("date", true)
	if err := s.store.Find(ctx, database.JournalCollection, q, &entries); err != nil {
		log.Printf("Error fetching journal entries: %v", err)
		demo := make([]database.JournalEntry, len(demoEntries))
		copy(demo, demoEntries)
		return demo, true, nil
	}
	return entries, false, nil
}
