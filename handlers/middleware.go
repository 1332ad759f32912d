package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/CrowderSoup/spearmint/services"
	"github.com/gorilla/websocket"
)

type contextKey string

const sessionContextKey contextKey = "session"

// UserHeader carries the logged-in username on every session-gated request.
// Websocket upgrades may use the user query parameter instead.
const UserHeader = "X-Spearmint-User"

// SessionMiddleware resolves the request's user into a services.Session.
type SessionMiddleware struct {
	authService *services.AuthService
}

func NewSessionMiddleware(authService *services.AuthService) *SessionMiddleware {
	return &SessionMiddleware{
		authService: authService,
	}
}

func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(UserHeader)
		if username == "" && websocket.IsWebSocketUpgrade(r) {
			username = r.URL.Query().Get("user")
		}
		if username == "" {
			writeMessage(w, http.StatusUnauthorized, "Please log in")
			return
		}

		profile, err := m.authService.FindByUsername(r.Context(), username)
		if errors.Is(err, services.ErrUserNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Please log in")
			return
		}
		if err != nil {
			log.Printf("Error resolving session for %s: %v", username, err)
			writeMessage(w, http.StatusInternalServerError, "Server error")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, services.NewSession(profile))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFrom returns the session stored by SessionMiddleware.
func SessionFrom(ctx context.Context) (services.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(services.Session)
	return s, ok && s.Resolved()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Hijack lets websocket upgrades pass through the logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("request method=%s path=%s status=%d bytes=%d duration=%s remote=%s",
			r.Method,
			r.URL.Path,
			status,
			rec.bytes,
			time.Since(start).Round(time.Microsecond),
			r.RemoteAddr,
		)
	})
}
