package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
)

// QuickTaskService is the plain checklist kept in the tasks collection.
type QuickTaskService struct {
	store database.Store
}

func NewQuickTaskService(store database.Store) *QuickTaskService {
	return &QuickTaskService{store: store}
}

// Add appends a task to the owner's list.
func (s *QuickTaskService) Add(ctx context.Context, session Session, title string) (string, error) {
	if !session.Resolved() {
		return "", ErrNoSession
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	task := database.QuickTask{OwnerID: session.OwnerID(), Title: title}
	id, err := s.store.Insert(ctx, database.TasksCollection, task, "createdAt")
	if err != nil {
		log.Printf("Error adding quick task: %v", err)
		return "", fmt.Errorf("failed to add task: %w", err)
	}
	return id, nil
}

// List returns the owner's tasks, newest first.
func (s *QuickTaskService) List(ctx context.Context, session Session) ([]database.QuickTask, error) {
	if !session.Resolved() {
		return nil, ErrNoSession
	}
	tasks := []database.QuickTask{}
	q := database.Where("ownerId", session.OwnerID()).Order("createdAt", true)
	if err := s.store.Find(ctx, database.TasksCollection, q, &tasks); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return tasks, nil
}
