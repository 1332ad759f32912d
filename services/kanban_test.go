package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/CrowderSoup/spearmint/database"
)

func TestGroupTasksPartitionsEveryTask(t *testing.T) {
	tasks := []database.Task{
		{ID: "a", Status: database.LaneToDo, Priority: database.PriorityLow},
		{ID: "b", Status: database.LaneInProgress, Priority: database.PriorityHigh},
		{ID: "c", Status: database.LaneCompleted, Priority: database.PriorityMedium},
		{ID: "d", Status: "archived", Priority: database.PriorityMedium},
		{ID: "e", Status: database.LaneToDo, Priority: database.PriorityHigh},
	}
	b := GroupTasks(tasks)

	seen := map[string]int{}
	for _, lane := range database.Lanes {
		for _, task := range b.Lane(lane) {
			seen[task.ID]++
		}
	}
	if len(seen) != len(tasks) {
		t.Fatalf("board holds %d tasks, want %d", len(seen), len(tasks))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s appears %d times", id, n)
		}
	}
	if _, lane, _ := b.Find("d"); lane != database.LaneToDo {
		t.Errorf("unknown status landed in %q, want %q", lane, database.LaneToDo)
	}
	if got := b.Counts(); got != (LaneCounts{ToDo: 3, InProgress: 1, Completed: 1}) {
		t.Errorf("counts = %+v", got)
	}
}

func TestGroupTasksOrdersByPriorityThenStartDate(t *testing.T) {
	tasks := []database.Task{
		{ID: "low", Status: database.LaneToDo, Priority: database.PriorityLow, StartDate: "2025-01-01"},
		{ID: "med-late", Status: database.LaneToDo, Priority: database.PriorityMedium, StartDate: "2025-03-01"},
		{ID: "high", Status: database.LaneToDo, Priority: database.PriorityHigh, StartDate: "2025-05-01"},
		{ID: "med-early", Status: database.LaneToDo, Priority: database.PriorityMedium, StartDate: "2025-02-01"},
	}
	b := GroupTasks(tasks)

	want := []string{"high", "med-early", "med-late", "low"}
	for i, task := range b.ToDo {
		if task.ID != want[i] {
			t.Fatalf("position %d = %s, want %s (order %v)", i, task.ID, want[i], ids(b.ToDo))
		}
	}
	if tasks[0].ID != "low" {
		t.Error("GroupTasks reordered its input")
	}
}

func TestGroupTasksEmptyLanesAreNotNil(t *testing.T) {
	b := GroupTasks(nil)
	if b.ToDo == nil || b.InProgress == nil || b.Completed == nil {
		t.Fatal("empty lanes should be empty slices")
	}
}

func ids(tasks []database.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func loadedController(t *testing.T, store database.Store) *BoardController {
	t.Helper()
	c := NewBoardController(store, alice)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return c
}

func TestEndDragOntoOwnLaneIssuesNoMutation(t *testing.T) {
	store := newSpyStore()
	id := seedTask(t, store.Store, "alice", "Write report", database.LaneToDo, database.PriorityHigh, "2025-01-01")
	other := seedTask(t, store.Store, "alice", "Email Bob", database.LaneToDo, database.PriorityLow, "2025-01-01")
	c := loadedController(t, store)

	for _, zone := range []string{string(database.LaneToDo), other, "nowhere"} {
		if err := c.BeginDrag(id); err != nil {
			t.Fatalf("BeginDrag: %v", err)
		}
		moved, err := c.EndDrag(context.Background(), id, zone)
		if err != nil {
			t.Fatalf("EndDrag(%s): %v", zone, err)
		}
		if moved {
			t.Errorf("EndDrag(%s) reported a move", zone)
		}
	}
	if _, writes := store.counts(); writes != 0 {
		t.Errorf("writes = %d, want 0", writes)
	}
	if g := c.Gesture(); g.Phase != GestureIdle {
		t.Errorf("gesture phase = %s, want idle", g.Phase)
	}
}

func TestEndDragRepairsUnknownStatus(t *testing.T) {
	store := newSpyStore()
	id := seedTask(t, store.Store, "alice", "Legacy task", database.Lane("todo"), database.PriorityMedium, "2025-01-01")
	c := loadedController(t, store)

	if _, lane, ok := c.Board().Find(id); !ok || lane != database.LaneToDo {
		t.Fatalf("legacy task shown in %q, want to-do", lane)
	}
	if err := c.BeginDrag(id); err != nil {
		t.Fatal(err)
	}
	moved, err := c.EndDrag(context.Background(), id, string(database.LaneToDo))
	if err != nil || !moved {
		t.Fatalf("EndDrag = %v, %v; want true, nil", moved, err)
	}

	var got database.Task
	if err := store.Store.Get(context.Background(), database.KanbanTasksCollection, id, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != database.LaneToDo {
		t.Errorf("status = %q, want to-do", got.Status)
	}
}

func TestEndDragToCompletedUpdatesOnlyStatus(t *testing.T) {
	store := newSpyStore()
	id := seedTask(t, store.Store, "alice", "Write report", database.LaneToDo, database.PriorityHigh, "2025-01-01")
	c := loadedController(t, store)

	var before database.Task
	if err := store.Store.Get(context.Background(), database.KanbanTasksCollection, id, &before); err != nil {
		t.Fatal(err)
	}

	if err := c.BeginDrag(id); err != nil {
		t.Fatal(err)
	}
	if err := c.DragOver(id, string(database.LaneInProgress)); err != nil {
		t.Fatal(err)
	}
	moved, err := c.EndDrag(context.Background(), id, string(database.LaneCompleted))
	if err != nil || !moved {
		t.Fatalf("EndDrag = %v, %v; want true, nil", moved, err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
	fields := store.updates[0]
	if len(fields) != 1 || fields["status"] != database.LaneCompleted {
		t.Errorf("update fields = %v, want only status=completed", fields)
	}

	var after database.Task
	if err := store.Store.Get(context.Background(), database.KanbanTasksCollection, id, &after); err != nil {
		t.Fatal(err)
	}
	before.Status = database.LaneCompleted
	if after.Title != before.Title || after.Priority != before.Priority || after.StartDate != before.StartDate ||
		after.Status != database.LaneCompleted || !after.CreatedAt.Equal(*before.CreatedAt) || after.UpdatedAt != nil {
		t.Errorf("task after move = %+v, want %+v", after, before)
	}
}

func TestEndDragOntoTaskInOtherLaneMovesToThatLane(t *testing.T) {
	store := newSpyStore()
	id := seedTask(t, store.Store, "alice", "Write report", database.LaneToDo, database.PriorityHigh, "2025-01-01")
	target := seedTask(t, store.Store, "alice", "Review", database.LaneInProgress, database.PriorityHigh, "2025-01-01")
	c := loadedController(t, store)

	if err := c.BeginDrag(id); err != nil {
		t.Fatal(err)
	}
	moved, err := c.EndDrag(context.Background(), id, target)
	if err != nil || !moved {
		t.Fatalf("EndDrag = %v, %v", moved, err)
	}
	if got := store.updates[0]["status"]; got != database.LaneInProgress {
		t.Errorf("status = %v, want %s", got, database.LaneInProgress)
	}
}

func TestEndDragFailureIsReturnedAndGestureFinishes(t *testing.T) {
	store := newSpyStore()
	id := seedTask(t, store.Store, "alice", "Write report", database.LaneToDo, database.PriorityHigh, "2025-01-01")
	c := loadedController(t, store)
	store.setFailMut(true)

	if err := c.BeginDrag(id); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EndDrag(context.Background(), id, string(database.LaneCompleted)); !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want %v", err, errStoreDown)
	}
	if g := c.Gesture(); g.Phase != GestureIdle || g.TaskID != "" {
		t.Errorf("gesture = %+v, want idle", g)
	}
	if _, lane, _ := c.Board().Find(id); lane != database.LaneToDo {
		t.Errorf("board shows %s, want task left in to-do", lane)
	}
}

func TestGestureRejectsInvalidTransitions(t *testing.T) {
	c := NewBoardController(database.NewMemoryStore(), alice)

	if err := c.DragOver("x", "to-do"); !errors.Is(err, ErrBadGesture) {
		t.Errorf("over while idle: err = %v", err)
	}
	if _, err := c.EndDrag(context.Background(), "x", "to-do"); !errors.Is(err, ErrBadGesture) {
		t.Errorf("end while idle: err = %v", err)
	}
	if err := c.BeginDrag(""); !errors.Is(err, ErrBadGesture) {
		t.Errorf("begin without task: err = %v", err)
	}
	if err := c.BeginDrag("x"); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginDrag("y"); !errors.Is(err, ErrBadGesture) {
		t.Errorf("second begin: err = %v", err)
	}
	if err := c.DragOver("y", "to-do"); !errors.Is(err, ErrBadGesture) {
		t.Errorf("over for another task: err = %v", err)
	}
	if g := c.Gesture(); g.Phase != GestureDragging || g.TaskID != "x" {
		t.Errorf("gesture = %+v, want dragging x", g)
	}
	if err := c.CancelDrag("x"); err != nil {
		t.Fatal(err)
	}
	if g := c.Gesture(); g.Phase != GestureIdle {
		t.Errorf("after cancel gesture = %+v", g)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	store := database.NewMemoryStore()
	c := NewBoardController(store, alice)
	c.today = fixedToday("2025-07-28")

	id, err := c.CreateTask(context.Background(), NewTask{Title: "  Plan sprint  "})
	if err != nil {
		t.Fatal(err)
	}
	var task database.Task
	if err := store.Get(context.Background(), database.KanbanTasksCollection, id, &task); err != nil {
		t.Fatal(err)
	}
	if task.Title != "Plan sprint" || task.Priority != database.PriorityMedium ||
		task.StartDate != "2025-07-28" || task.Status != database.LaneToDo || task.OwnerID != "alice" || task.CreatedAt == nil {
		t.Errorf("task = %+v", task)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	store := newSpyStore()
	c := NewBoardController(store, alice)

	cases := []struct {
		in   NewTask
		want error
	}{
		{NewTask{Title: "   "}, ErrEmptyTitle},
		{NewTask{Title: "x", Priority: "urgent"}, ErrBadPriority},
		{NewTask{Title: "x", StartDate: "28/07/2025"}, ErrBadDate},
		{NewTask{Title: "x", DueDate: "soon"}, ErrBadDate},
	}
	for _, tc := range cases {
		if _, err := c.CreateTask(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("CreateTask(%+v) err = %v, want %v", tc.in, err, tc.want)
		}
	}
	if _, writes := store.counts(); writes != 0 {
		t.Errorf("writes = %d, want 0", writes)
	}
}

func TestCreateTaskWithoutSession(t *testing.T) {
	store := newSpyStore()
	c := NewBoardController(store, Session{})
	if _, err := c.CreateTask(context.Background(), NewTask{Title: "x"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want %v", err, ErrNoSession)
	}
	if _, writes := store.counts(); writes != 0 {
		t.Errorf("writes = %d, want 0", writes)
	}
}

func TestEditTaskKeepsStatusAndStampsUpdatedAt(t *testing.T) {
	store := database.NewMemoryStore()
	id := seedTask(t, store, "alice", "Draft", database.LaneInProgress, database.PriorityLow, "2025-01-01")
	c := NewBoardController(store, alice)

	title := "Final draft"
	high := database.PriorityHigh
	if err := c.EditTask(context.Background(), id, TaskEdit{Title: &title, Priority: &high}); err != nil {
		t.Fatal(err)
	}
	var task database.Task
	if err := store.Get(context.Background(), database.KanbanTasksCollection, id, &task); err != nil {
		t.Fatal(err)
	}
	if task.Title != title || task.Priority != high || task.Status != database.LaneInProgress || task.UpdatedAt == nil {
		t.Errorf("task = %+v", task)
	}
}

func TestEditAndDeleteRejectOtherOwners(t *testing.T) {
	store := database.NewMemoryStore()
	id := seedTask(t, store, "bob", "Bob's task", database.LaneToDo, database.PriorityLow, "2025-01-01")
	c := NewBoardController(store, alice)

	title := "mine now"
	if err := c.EditTask(context.Background(), id, TaskEdit{Title: &title}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("EditTask err = %v", err)
	}
	if err := c.DeleteTask(context.Background(), id); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask err = %v", err)
	}
	if err := c.DeleteTask(context.Background(), "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask(missing) err = %v", err)
	}
}

func TestSubscribeDeliversFreshBoards(t *testing.T) {
	store := database.NewMemoryStore()
	seedTask(t, store, "alice", "First", database.LaneToDo, database.PriorityLow, "2025-01-01")
	seedTask(t, store, "bob", "Not mine", database.LaneToDo, database.PriorityLow, "2025-01-01")

	c := NewBoardController(store, alice)
	var mu sync.Mutex
	changes := 0
	c.OnChange(func(*Board) {
		mu.Lock()
		changes++
		mu.Unlock()
	})
	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	waitFor(t, "initial board", func() bool { return c.Board().Counts().Total() == 1 })
	if c.Status() != StatusConnected {
		t.Errorf("status = %s, want connected", c.Status())
	}
	first := c.Board()

	id, err := c.CreateTask(context.Background(), NewTask{Title: "Second"})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "board with new task", func() bool {
		_, _, ok := c.Board().Find(id)
		return ok
	})
	if first.Counts().Total() != 1 {
		t.Error("an earlier board was modified in place")
	}
	mu.Lock()
	if changes < 2 {
		t.Errorf("OnChange called %d times, want at least 2", changes)
	}
	mu.Unlock()

	c.Close()
	c.Close()
}

func TestSubscribeReportsErrorStatus(t *testing.T) {
	store := newSpyStore()
	store.setFailRead(true)
	c := NewBoardController(store, alice)

	var mu sync.Mutex
	var gotErr error
	c.OnStatus(func(status ConnectionStatus, err error) {
		mu.Lock()
		if err != nil {
			gotErr = err
		}
		mu.Unlock()
	})
	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	waitFor(t, "error status", func() bool { return c.Status() == StatusError })
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(gotErr, errStoreDown) {
		t.Errorf("status error = %v", gotErr)
	}
}

func TestSubscribeWithoutSession(t *testing.T) {
	c := NewBoardController(database.NewMemoryStore(), Session{})
	if err := c.Subscribe(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v", err)
	}
	c.Close()
}
