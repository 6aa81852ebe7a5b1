package app

import (
	"context"

	"github.com/hylla/dragboard/internal/domain"
)

// Repository persists board tasks and their activity ledger.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	// SaveTasks writes every task in one transaction, appending any new history entries.
	SaveTasks(context.Context, []domain.Task) error
	DeleteTask(context.Context, string) error
	ListChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
}
