package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/CrowderSoup/spearmint/services"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

var (
	badRequest = []error{
		services.ErrEmptyTitle,
		services.ErrBadPriority,
		services.ErrBadDate,
		services.ErrBadTime,
		services.ErrEmptyLabel,
		services.ErrIncompleteEntry,
		services.ErrUnknownMood,
		services.ErrBadGesture,
		services.ErrFocusTooShort,
	}
	conflicts = []error{
		services.ErrSlotTaken,
		services.ErrAlreadySubmitted,
	}
	notFound = []error{
		services.ErrTaskNotFound,
		services.ErrScheduleEntry,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps a service error to a status and a {"message"} body. Store
// failures are hidden behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNoSession):
		writeMessage(w, http.StatusUnauthorized, "Please log in")
	case isAny(err, badRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case isAny(err, conflicts):
		writeMessage(w, http.StatusConflict, err.Error())
	case isAny(err, notFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("Server error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// session pulls the request session, answering 401 when there is none.
func session(w http.ResponseWriter, r *http.Request) (services.Session, bool) {
	s, ok := SessionFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Please log in")
	}
	return s, ok
}
