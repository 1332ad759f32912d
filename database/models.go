package database

import "time"

// Collection names shared by every backend.
const (
	TasksCollection            = "tasks"
	SchedulesCollection        = "schedules"
	KanbanTasksCollection      = "kanbanTasks"
	JournalCollection          = "userJournal"
	UsersCollection            = "users"
	PomodoroSessionsCollection = "pomodoroSessions"
)

// DateLayout is the calendar date format used for every date field.
const DateLayout = "2006-01-02"

// Lane is one of the three kanban status buckets.
type Lane string

const (
	LaneToDo       Lane = "to-do"
	LaneInProgress Lane = "in-progress"
	LaneCompleted  Lane = "completed"
)

// Lanes lists the kanban lanes in board order.
var Lanes = []Lane{LaneToDo, LaneInProgress, LaneCompleted}

// Valid reports whether l names a kanban lane.
func (l Lane) Valid() bool {
	switch l {
	case LaneToDo, LaneInProgress, LaneCompleted:
		return true
	}
	return false
}

// Priority orders tasks within a lane.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns 0 for high, 1 for medium and 2 for low. Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// Task is a kanban card stored in kanbanTasks.
type Task struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	OwnerID     string     `json:"ownerId" bson:"ownerId"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Priority    Priority   `json:"priority" bson:"priority"`
	StartDate   string     `json:"startDate" bson:"startDate"`
	DueDate     string     `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Status      Lane       `json:"status" bson:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// ScheduleItem is a time slot on a user's daily schedule.
type ScheduleItem struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	OwnerID     string     `json:"ownerId" bson:"ownerId"`
	Time        string     `json:"time" bson:"time"`
	Task        string     `json:"task" bson:"task"`
	Date        string     `json:"date" bson:"date"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// JournalEntry is a daily mood reflection.
type JournalEntry struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	OwnerID     string     `json:"ownerId" bson:"ownerId"`
	Date        string     `json:"date" bson:"date"`
	Mood        string     `json:"mood" bson:"mood"`
	Feeling     string     `json:"feeling" bson:"feeling"`
	Gratitude   string     `json:"gratitude" bson:"gratitude"`
	Affirmation string     `json:"affirmation" bson:"affirmation"`
	Timestamp   *time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// UserProfile is a registered account. Passwords are stored as given.
type UserProfile struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Email    string `json:"email" bson:"email"`
	Username string `json:"username" bson:"username"`
	Password string `json:"password,omitempty" bson:"password"`
	Fullname string `json:"fullname" bson:"fullname"`
}

// QuickTask is an entry in the plain tasks list.
type QuickTask struct {
	ID        string     `json:"id" bson:"_id,omitempty"`
	OwnerID   string     `json:"ownerId" bson:"ownerId"`
	Title     string     `json:"title" bson:"title"`
	Completed bool       `json:"completed" bson:"completed"`
	CreatedAt *time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// PomodoroTally counts finished focus sessions for one owner on one date.
type PomodoroTally struct {
	ID      string `json:"id" bson:"_id,omitempty"`
	OwnerID string `json:"ownerId" bson:"ownerId"`
	Date    string `json:"date" bson:"date"`
	Count   int    `json:"count" bson:"count"`
}
