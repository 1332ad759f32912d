package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/CrowderSoup/spearmint/database"
)

var (
	ErrEmptyTitle   = errors.New("Task title is required")
	ErrBadPriority  = errors.New("Priority must be high, medium or low")
	ErrBadDate      = errors.New("Dates must look like YYYY-MM-DD")
	ErrTaskNotFound = errors.New("Task not found")
)

// ConnectionStatus describes the live board subscription.
type ConnectionStatus string

const (
	StatusConnecting ConnectionStatus = "connecting"
	StatusConnected  ConnectionStatus = "connected"
	StatusError      ConnectionStatus = "error"
)

// Board is an immutable grouping of one owner's tasks into lanes. A new Board
// is built for every store snapshot; existing boards are never modified.
type Board struct {
	ToDo       []database.Task `json:"to-do"`
	InProgress []database.Task `json:"in-progress"`
	Completed  []database.Task `json:"completed"`
}

// LaneCounts summarises how many tasks sit in each lane.
type LaneCounts struct {
	ToDo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Total is the number of tasks across all lanes.
func (c LaneCounts) Total() int {
	return c.ToDo + c.InProgress + c.Completed
}

// GroupTasks builds a Board from tasks in store order (newest first). Each
// lane is sorted by priority, then start date; ties keep store order.
func GroupTasks(tasks []database.Task) *Board {
	b := &Board{
		ToDo:       []database.Task{},
		InProgress: []database.Task{},
		Completed:  []database.Task{},
	}
	for _, task := range tasks {
		switch task.Status {
		case database.LaneInProgress:
			b.InProgress = append(b.InProgress, task)
		case database.LaneCompleted:
			b.Completed = append(b.Completed, task)
		case database.LaneToDo:
			b.ToDo = append(b.ToDo, task)
		default:
			log.Printf("Task %s has unknown status %q, showing it in %s", task.ID, task.Status, database.LaneToDo)
			b.ToDo = append(b.ToDo, task)
		}
	}
	for _, lane := range [][]database.Task{b.ToDo, b.InProgress, b.Completed} {
		sortLane(lane)
	}
	return b
}

func sortLane(tasks []database.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return tasks[i].StartDate < tasks[j].StartDate
	})
}

// Lane returns the tasks in lane l.
func (b *Board) Lane(l database.Lane) []database.Task {
	switch l {
	case database.LaneToDo:
		return b.ToDo
	case database.LaneInProgress:
		return b.InProgress
	case database.LaneCompleted:
		return b.Completed
	}
	return nil
}

// Find locates a task and the lane it is shown in.
func (b *Board) Find(taskID string) (database.Task, database.Lane, bool) {
	for _, lane := range database.Lanes {
		for _, task := range b.Lane(lane) {
			if task.ID == taskID {
				return task, lane, true
			}
		}
	}
	return database.Task{}, "", false
}

// Counts returns the number of tasks per lane.
func (b *Board) Counts() LaneCounts {
	return LaneCounts{ToDo: len(b.ToDo), InProgress: len(b.InProgress), Completed: len(b.Completed)}
}

// resolveTarget maps a drop zone to a lane: a lane name directly, or the
// lane of the task dropped onto.
func (b *Board) resolveTarget(zone string) (database.Lane, bool) {
	if lane := database.Lane(zone); lane.Valid() {
		return lane, true
	}
	if _, lane, ok := b.Find(zone); ok {
		return lane, true
	}
	return "", false
}

// ownerQuery is the live query behind the board.
func ownerQuery(s Session) database.Query {
	return database.Where("ownerId", s.OwnerID()).Order("createdAt", true)
}

// LoadBoard reads the owner's tasks once and groups them.
func LoadBoard(ctx context.Context, store database.Store, session Session) (*Board, error) {
	if !session.Resolved() {
		return nil, ErrNoSession
	}
	var tasks []database.Task
	if err := store.Find(ctx, database.KanbanTasksCollection, ownerQuery(session), &tasks); err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return GroupTasks(tasks), nil
}

// NewTask holds the fields of the task creation form.
type NewTask struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    database.Priority `json:"priority"`
	StartDate   string            `json:"startDate"`
	DueDate     string            `json:"dueDate"`
}

// TaskEdit changes a task's details. Nil fields are left alone; status is
// only ever changed by a drag.
type TaskEdit struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Priority    *database.Priority `json:"priority"`
	DueDate     *string            `json:"dueDate"`
}

// BoardController keeps one view's lanes in step with the store and turns
// drag gestures into status updates.
type BoardController struct {
	store   database.Store
	session Session

	mu      sync.Mutex
	board   *Board
	status  ConnectionStatus
	gesture Gesture

	onChange func(*Board)
	onStatus func(ConnectionStatus, error)

	stop      func()
	closeOnce sync.Once
	today     func() string
}

// NewBoardController creates a controller for session. Call Subscribe to go live.
func NewBoardController(store database.Store, session Session) *BoardController {
	return &BoardController{
		store:   store,
		session: session,
		board:   GroupTasks(nil),
		status:  StatusConnecting,
		gesture: newGesture(),
		today:   database.Today,
	}
}

// OnChange registers a callback for every new board. Set before Subscribe.
func (c *BoardController) OnChange(fn func(*Board)) {
	c.onChange = fn
}

// OnStatus registers a callback for connection status changes. Set before Subscribe.
func (c *BoardController) OnStatus(fn func(ConnectionStatus, error)) {
	c.onStatus = fn
}

// Subscribe opens the live query. Every snapshot replaces the board as a whole.
func (c *BoardController) Subscribe(ctx context.Context) error {
	if !c.session.Resolved() {
		return ErrNoSession
	}
	c.setStatus(StatusConnecting, nil)
	stop := database.Watch(ctx, c.store, database.KanbanTasksCollection, ownerQuery(c.session),
		c.applySnapshot, c.fail)

	c.mu.Lock()
	c.stop = stop
	c.mu.Unlock()
	return nil
}

// Refresh loads the board once without subscribing.
func (c *BoardController) Refresh(ctx context.Context) error {
	b, err := LoadBoard(ctx, c.store, c.session)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.board = b
	c.mu.Unlock()
	return nil
}

// Close releases the live query. Only the first call has an effect.
func (c *BoardController) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		stop := c.stop
		c.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// Board returns the latest board.
func (c *BoardController) Board() *Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// Status returns the subscription status.
func (c *BoardController) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Gesture returns the current drag state.
func (c *BoardController) Gesture() Gesture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture
}

func (c *BoardController) applySnapshot(tasks []database.Task) {
	b := GroupTasks(tasks)
	c.mu.Lock()
	c.board = b
	c.mu.Unlock()

	c.setStatus(StatusConnected, nil)
	if c.onChange != nil {
		c.onChange(b)
	}
}

func (c *BoardController) fail(err error) {
	log.Printf("Board subscription for %s failed: %v", c.session.Username, err)
	c.setStatus(StatusError, err)
}

func (c *BoardController) setStatus(status ConnectionStatus, err error) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()
	if (changed || err != nil) && c.onStatus != nil {
		c.onStatus(status, err)
	}
}

// CreateTask inserts a to-do task. The board picks it up from the next snapshot.
func (c *BoardController) CreateTask(ctx context.Context, in NewTask) (string, error) {
	if !c.session.Resolved() {
		log.Printf("Refusing to create task without a user session")
		return "", ErrNoSession
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	priority := in.Priority
	if priority == "" {
		priority = database.PriorityMedium
	}
	if !priority.Valid() {
		return "", ErrBadPriority
	}
	startDate := in.StartDate
	if startDate == "" {
		startDate = c.today()
	}
	if !validDate(startDate) || (in.DueDate != "" && !validDate(in.DueDate)) {
		return "", ErrBadDate
	}

	task := database.Task{
		OwnerID:     c.session.OwnerID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		StartDate:   startDate,
		DueDate:     in.DueDate,
		Status:      database.LaneToDo,
	}
	id, err := c.store.Insert(ctx, database.KanbanTasksCollection, task, "createdAt")
	if err != nil {
		log.Printf("Error adding task: %v", err)
		return "", fmt.Errorf("failed to add task: %w", err)
	}
	return id, nil
}

// EditTask updates a task's details and stamps updatedAt.
func (c *BoardController) EditTask(ctx context.Context, taskID string, edit TaskEdit) error {
	if _, err := c.ownedTask(ctx, taskID); err != nil {
		return err
	}

	fields := database.Fields{"updatedAt": database.ServerTimestamp}
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return ErrEmptyTitle
		}
		fields["title"] = title
	}
	if edit.Description != nil {
		fields["description"] = strings.TrimSpace(*edit.Description)
	}
	if edit.Priority != nil {
		if !edit.Priority.Valid() {
			return ErrBadPriority
		}
		fields["priority"] = *edit.Priority
	}
	if edit.DueDate != nil {
		if *edit.DueDate != "" && !validDate(*edit.DueDate) {
			return ErrBadDate
		}
		fields["dueDate"] = *edit.DueDate
	}

	if err := c.store.Update(ctx, database.KanbanTasksCollection, taskID, fields); err != nil {
		log.Printf("Error updating task %s: %v", taskID, err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// DeleteTask removes one of the owner's tasks.
func (c *BoardController) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := c.ownedTask(ctx, taskID); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, database.KanbanTasksCollection, taskID); err != nil {
		log.Printf("Error deleting task %s: %v", taskID, err)
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (c *BoardController) ownedTask(ctx context.Context, taskID string) (database.Task, error) {
	if !c.session.Resolved() {
		return database.Task{}, ErrNoSession
	}
	var task database.Task
	err := c.store.Get(ctx, database.KanbanTasksCollection, taskID, &task)
	if errors.Is(err, database.ErrNotFound) || (err == nil && task.OwnerID != c.session.OwnerID()) {
		return database.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return database.Task{}, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

// BeginDrag starts a gesture for taskID.
func (c *BoardController) BeginDrag(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture.apply(eventBegin, taskID, "")
}

// DragOver records the zone currently under the dragged task.
func (c *BoardController) DragOver(taskID, zone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture.apply(eventOver, taskID, zone)
}

// CancelDrag abandons a gesture without resolving it.
func (c *BoardController) CancelDrag(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gesture.TaskID != taskID {
		return fmt.Errorf("%w: cancel for %s while dragging %s", ErrBadGesture, taskID, c.gesture.TaskID)
	}
	return c.gesture.apply(eventCancel, taskID, "")
}

// EndDrag drops taskID on zone, which is either a lane or another task. When
// the resolved lane differs from the task's lane a status-only update is
// issued; the board itself is left to the next snapshot. It reports whether
// a mutation was issued. A failed update is logged and returned, and the
// next snapshot shows the task where it was.
func (c *BoardController) EndDrag(ctx context.Context, taskID, zone string) (bool, error) {
	c.mu.Lock()
	if err := c.gesture.apply(eventEnd, taskID, zone); err != nil {
		c.mu.Unlock()
		return false, err
	}
	board := c.board
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		_ = c.gesture.apply(eventFinish, "", "")
		c.mu.Unlock()
	}()

	target, ok := board.resolveTarget(zone)
	if !ok {
		return false, nil
	}
	// Compare with the stored status: a task with an unknown status is shown
	// in to-do, and dropping it there repairs it.
	task, _, ok := board.Find(taskID)
	if !ok || target == task.Status {
		return false, nil
	}
	current := task.Status

	if err := c.store.Update(ctx, database.KanbanTasksCollection, task.ID, database.Fields{"status": target}); err != nil {
		log.Printf("Error moving task %s to %s: %v", task.ID, target, err)
		return false, fmt.Errorf("failed to update task status: %w", err)
	}
	log.Printf("Task %s moved from %s to %s", task.ID, current, target)
	return true, nil
}

func validDate(s string) bool {
	_, err := parseDate(s)
	return err == nil
}
