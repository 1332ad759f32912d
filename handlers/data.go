package handlers

import (
	"log"
	"net/http"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/gorilla/mux"
)

// DataHandler serves the schedule, journal, pomodoro, quick task and dashboard routes.
type DataHandler struct {
	schedule  *services.ScheduleService
	journal   *services.JournalService
	counter   *services.PomodoroCounter
	tasks     *services.QuickTaskService
	dashboard *services.Dashboard
	hub       *services.Hub
}

func NewDataHandler(store database.Store, hub *services.Hub) *DataHandler {
	return &DataHandler{
		schedule:  services.NewScheduleService(store),
		journal:   services.NewJournalService(store),
		counter:   services.NewPomodoroCounter(store),
		tasks:     services.NewQuickTaskService(store),
		dashboard: services.NewDashboard(store),
		hub:       hub,
	}
}

// refreshDashboards tells the owner's open tabs that dashboard data changed.
func (h *DataHandler) refreshDashboards(s services.Session) {
	msg, _ := services.NewMessage(services.MessageDashboard, nil)
	h.hub.Notify(s.OwnerID(), msg)
}

// GetSchedule lists a day's schedule; ?date= defaults to today.
func (h *DataHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var (
		items []database.ScheduleItem
		err   error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		items, err = h.schedule.ForDate(r.Context(), s, date)
	} else {
		items, err = h.schedule.Today(r.Context(), s)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AddSchedule books a time slot.
func (h *DataHandler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req services.NewScheduleItem
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.schedule.Add(r.Context(), s, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.refreshDashboards(s)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// CompleteSchedule marks a schedule item done.
func (h *DataHandler) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	if err := h.schedule.Complete(r.Context(), s, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.refreshDashboards(s)
	writeMessage(w, http.StatusOK, "Schedule item completed")
}

// DeleteSchedule removes a schedule item.
func (h *DataHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	if err := h.schedule.Delete(r.Context(), s, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.refreshDashboards(s)
	writeMessage(w, http.StatusOK, "Schedule item deleted")
}

type journalList struct {
	Entries     []database.JournalEntry `json:"entries"`
	Placeholder bool                    `json:"placeholder"`
}

// ListJournal returns every entry, newest first.
func (h *DataHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	entries, placeholder, err := h.journal.List(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journalList{Entries: entries, Placeholder: placeholder})
}

// TodayJournal returns today's entry or 404.
func (h *DataHandler) TodayJournal(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	entry, err := h.journal.Today(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeMessage(w, http.StatusNotFound, "No journal entry today")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type journalPrompt struct {
	Moods       []string `json:"moods"`
	Affirmation string   `json:"affirmation"`
}

// JournalPrompt returns what the entry form shows: the moods and today's affirmation.
func (h *DataHandler) JournalPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, journalPrompt{Moods: services.Moods, Affirmation: services.NewAffirmation()})
}

// CreateJournal records today's entry.
func (h *DataHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req services.NewJournalEntry
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.journal.CreateEntry(r.Context(), s, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.refreshDashboards(s)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Dashboard returns today's summary. Read failures come back as placeholder data.
func (h *DataHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	summary, err := h.dashboard.Summary(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type pomodoroCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PomodoroSessions returns the session count for ?date=, default today.
func (h *DataHandler) PomodoroSessions(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = database.Today()
	}
	n, err := h.counter.Count(r.Context(), s, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pomodoroCount{Date: date, Count: n})
}

// RecordPomodoro adds a finished focus session to today's count.
func (h *DataHandler) RecordPomodoro(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	date := database.Today()
	n, err := h.counter.Increment(r.Context(), s, date)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Pomodoro session recorded for %s: %d today", s.Username, n)
	h.refreshDashboards(s)
	writeJSON(w, http.StatusOK, pomodoroCount{Date: date, Count: n})
}

// ListTasks returns the quick task list.
func (h *DataHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// AddTask appends to the quick task list.
func (h *DataHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.tasks.Add(r.Context(), s, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
