package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Inbound websocket message types for the board.
const (
	MessageDragBegin  = "drag-begin"
	MessageDragOver   = "drag-over"
	MessageDragEnd    = "drag-end"
	MessageDragCancel = "drag-cancel"
)

// KanbanHandler serves the board over REST and websockets.
type KanbanHandler struct {
	store    database.Store
	hub      *services.Hub
	upgrader websocket.Upgrader
}

func NewKanbanHandler(store database.Store, hub *services.Hub, checkOrigin func(*http.Request) bool) *KanbanHandler {
	return &KanbanHandler{
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
}

// GetBoard returns the grouped lanes.
func (h *KanbanHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	board, err := services.LoadBoard(r.Context(), h.store, s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// CreateTask adds a to-do task.
func (h *KanbanHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req services.NewTask
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := services.NewBoardController(h.store, s).CreateTask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// EditTask changes a task's details.
func (h *KanbanHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req services.TaskEdit
	if !decodeJSON(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := services.NewBoardController(h.store, s).EditTask(r.Context(), id, req); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task updated")
}

// DeleteTask removes a task.
func (h *KanbanHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := services.NewBoardController(h.store, s).DeleteTask(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted")
}

type dropRequest struct {
	TaskID string `json:"taskId"`
	Zone   string `json:"zone"`
}

// MoveTask performs a whole drag in one request: the task is dropped on zone.
func (h *KanbanHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dropRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]

	board := services.NewBoardController(h.store, s)
	if err := board.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if _, _, found := board.Board().Find(id); !found {
		writeError(w, services.ErrTaskNotFound)
		return
	}
	if err := board.BeginDrag(id); err != nil {
		writeError(w, err)
		return
	}
	moved, err := board.EndDrag(r.Context(), id, req.Zone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}

type statusPayload struct {
	Status services.ConnectionStatus `json:"status"`
	Error  string                    `json:"error,omitempty"`
}

// HandleWebSocket streams the live board to one tab and takes drag gestures back.
func (h *KanbanHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	// The request context ends with this handler; the socket outlives it.
	ctx, cancel := context.WithCancel(context.Background())
	client := services.NewClient(h.hub, conn, s.OwnerID())
	board := services.NewBoardController(h.store, s)

	board.OnChange(func(b *services.Board) {
		if msg, err := services.NewMessage(services.MessageBoard, b); err == nil {
			h.hub.SendTo(client, msg)
		}
	})
	board.OnStatus(func(status services.ConnectionStatus, err error) {
		payload := statusPayload{Status: status}
		if err != nil {
			payload.Error = err.Error()
		}
		if msg, err := services.NewMessage(services.MessageStatus, payload); err == nil {
			h.hub.SendTo(client, msg)
		}
	})
	client.OnMessage = func(c *services.Client, msg services.WebSocketMessage) {
		h.handleDrag(ctx, board, c, msg)
	}
	client.OnClose = func() {
		board.Close()
		cancel()
	}

	h.hub.Register(client)
	log.Printf("WebSocket client registered: %s (%s)", client.ID, client.Owner)

	go client.WritePump()
	go client.ReadPump()

	if err := board.Subscribe(ctx); err != nil {
		log.Printf("Error subscribing board for %s: %v", s.Username, err)
	}
}

func (h *KanbanHandler) handleDrag(ctx context.Context, board *services.BoardController, c *services.Client, msg services.WebSocketMessage) {
	var req dropRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(c, "Invalid message format")
			return
		}
	}

	var err error
	switch msg.Type {
	case MessageDragBegin:
		err = board.BeginDrag(req.TaskID)
	case MessageDragOver:
		err = board.DragOver(req.TaskID, req.Zone)
	case MessageDragCancel:
		err = board.CancelDrag(req.TaskID)
	case MessageDragEnd:
		_, err = board.EndDrag(ctx, req.TaskID, req.Zone)
	default:
		log.Printf("Ignoring unknown message type %q from %s", msg.Type, c.ID)
		return
	}
	if err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *KanbanHandler) sendError(c *services.Client, message string) {
	if msg, err := services.NewMessage(services.MessageError, map[string]string{"message": message}); err == nil {
		h.hub.SendTo(c, msg)
	}
}
