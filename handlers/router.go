package handlers

import (
	"net/http"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/gorilla/mux"
)

// NewRouter wires every route. checkOrigin guards websocket upgrades; nil allows any origin.
func NewRouter(store database.Store, hub *services.Hub, checkOrigin func(*http.Request) bool) *mux.Router {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	authService := services.NewAuthService(store)
	authHandler := NewAuthHandler(authService)
	kanbanHandler := NewKanbanHandler(store, hub, checkOrigin)
	dataHandler := NewDataHandler(store, hub)
	sessions := NewSessionMiddleware(authService)

	r := mux.NewRouter()
	r.Use(RequestLogger)

	r.HandleFunc("/", Home).Methods("GET")
	r.HandleFunc("/health", Health).Methods("GET")

	// Auth routes
	r.HandleFunc("/users", authHandler.Ping).Methods("GET")
	r.HandleFunc("/users/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/users/login", authHandler.Login).Methods("POST")

	// Session-gated routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(sessions.Require)

	api.HandleFunc("/kanban", kanbanHandler.GetBoard).Methods("GET")
	api.HandleFunc("/kanban/ws", kanbanHandler.HandleWebSocket)
	api.HandleFunc("/kanban/tasks", kanbanHandler.CreateTask).Methods("POST")
	api.HandleFunc("/kanban/tasks/{id}", kanbanHandler.EditTask).Methods("PATCH")
	api.HandleFunc("/kanban/tasks/{id}", kanbanHandler.DeleteTask).Methods("DELETE")
	api.HandleFunc("/kanban/tasks/{id}/move", kanbanHandler.MoveTask).Methods("POST")

	api.HandleFunc("/schedules", dataHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/schedules", dataHandler.AddSchedule).Methods("POST")
	api.HandleFunc("/schedules/{id}/complete", dataHandler.CompleteSchedule).Methods("POST")
	api.HandleFunc("/schedules/{id}", dataHandler.DeleteSchedule).Methods("DELETE")

	api.HandleFunc("/journal", dataHandler.ListJournal).Methods("GET")
	api.HandleFunc("/journal", dataHandler.CreateJournal).Methods("POST")
	api.HandleFunc("/journal/today", dataHandler.TodayJournal).Methods("GET")
	api.HandleFunc("/journal/prompt", dataHandler.JournalPrompt).Methods("GET")

	api.HandleFunc("/dashboard", dataHandler.Dashboard).Methods("GET")

	api.HandleFunc("/pomodoro/sessions", dataHandler.PomodoroSessions).Methods("GET")
	api.HandleFunc("/pomodoro/sessions", dataHandler.RecordPomodoro).Methods("POST")

	api.HandleFunc("/tasks", dataHandler.ListTasks).Methods("GET")
	api.HandleFunc("/tasks", dataHandler.AddTask).Methods("POST")

	return r
}
