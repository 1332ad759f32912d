package services

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/CrowderSoup/spearmint/database"
)

func goodEntry() NewJournalEntry {
	return NewJournalEntry{Mood: "Good", Feeling: "calm and focused", Gratitude: "spending time with family"}
}

func TestCreateEntryRejectsSecondEntrySameDay(t *testing.T) {
	store := database.NewMemoryStore()
	journal := NewJournalService(store)
	journal.today = fixedToday("2025-07-28")
	ctx := context.Background()

	if _, err := journal.CreateEntry(ctx, alice, goodEntry()); err != nil {
		t.Fatal(err)
	}
	_, err := journal.CreateEntry(ctx, alice, goodEntry())
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want %v", err, ErrAlreadySubmitted)
	}

	var entries []database.JournalEntry
	if err := store.Find(ctx, database.JournalCollection, database.Where("ownerId", "alice"), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}

	// Another owner, and the next day, are unaffected.
	if _, err := journal.CreateEntry(ctx, Session{Username: "bob"}, goodEntry()); err != nil {
		t.Errorf("bob: %v", err)
	}
	journal.today = fixedToday("2025-07-29")
	if _, err := journal.CreateEntry(ctx, alice, goodEntry()); err != nil {
		t.Errorf("next day: %v", err)
	}
}

func TestCreateEntryValidatesBeforeStoreCalls(t *testing.T) {
	store := newSpyStore()
	journal := NewJournalService(store)

	cases := []NewJournalEntry{
		{Mood: "Good", Feeling: "fine", Gratitude: ""},
		{Mood: "Good", Feeling: "  ", Gratitude: "tea"},
		{Mood: "", Feeling: "fine", Gratitude: "tea"},
	}
	for _, in := range cases {
		if _, err := journal.CreateEntry(context.Background(), alice, in); !errors.Is(err, ErrIncompleteEntry) {
			t.Errorf("CreateEntry(%+v) err = %v", in, err)
		}
	}
	if _, err := journal.CreateEntry(context.Background(), alice, NewJournalEntry{Mood: "Ecstatic", Feeling: "x", Gratitude: "y"}); !errors.Is(err, ErrUnknownMood) {
		t.Errorf("unknown mood err = %v", err)
	}
	if reads, writes := store.counts(); reads != 0 || writes != 0 {
		t.Errorf("store calls = %d reads, %d writes; want none", reads, writes)
	}
}

func TestCreateEntryStoresAffirmationAndTimestamp(t *testing.T) {
	store := database.NewMemoryStore()
	journal := NewJournalService(store)
	journal.today = fixedToday("2025-07-28")

	in := goodEntry()
	in.Affirmation = "Rest is part of the work."
	if _, err := journal.CreateEntry(context.Background(), alice, in); err != nil {
		t.Fatal(err)
	}
	entry, err := journal.Today(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Affirmation != in.Affirmation || entry.Timestamp == nil || entry.Date != "2025-07-28" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestCreateEntryPicksAffirmationWhenMissing(t *testing.T) {
	store := database.NewMemoryStore()
	journal := NewJournalService(store)
	if _, err := journal.CreateEntry(context.Background(), alice, goodEntry()); err != nil {
		t.Fatal(err)
	}
	entry, err := journal.Today(context.Background(), alice)
	if err != nil || entry == nil {
		t.Fatalf("Today = %v, %v", entry, err)
	}
	if !slices.Contains(affirmations, entry.Affirmation) {
		t.Errorf("affirmation %q not from the list", entry.Affirmation)
	}
}

func TestJournalListNewestFirst(t *testing.T) {
	store := database.NewMemoryStore()
	journal := NewJournalService(store)
	for _, day := range []string{"2025-07-26", "2025-07-28", "2025-07-27"} {
		journal.today = fixedToday(day)
		if _, err := journal.CreateEntry(context.Background(), alice, goodEntry()); err != nil {
			t.Fatal(err)
		}
	}
	entries, placeholder, err := journal.List(context.Background(), alice)
	if err != nil || placeholder {
		t.Fatalf("List = %v, %v", placeholder, err)
	}
	var dates []string
	for _, e := range entries {
		dates = append(dates, e.Date)
	}
	if !slices.Equal(dates, []string{"2025-07-28", "2025-07-27", "2025-07-26"}) {
		t.Errorf("dates = %v", dates)
	}
}

func TestJournalListFallsBackToDemoEntries(t *testing.T) {
	store := newSpyStore()
	store.setFailRead(true)
	entries, placeholder, err := NewJournalService(store).List(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}
	if !placeholder || len(entries) != len(demoEntries) {
		t.Errorf("placeholder = %v, entries = %d", placeholder, len(entries))
	}
}

func TestJournalTodayEmpty(t *testing.T) {
	entry, err := NewJournalService(database.NewMemoryStore()).Today(context.Background(), alice)
	if err != nil || entry != nil {
		t.Errorf("Today = %v, %v; want nil, nil", entry, err)
	}
}
