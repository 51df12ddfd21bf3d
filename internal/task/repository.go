package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/database"
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrNotPublisher = errors.New("only the publisher may change a task")
	ErrAlreadyDone  = errors.New("task already completed")
	ErrNotAssignee  = errors.New("only the assignee may complete a task")
)

// Repository handles task persistence.
type Repository struct {
	db bun.IDB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, t *Task) (*Task, error) {
	dbTask := &database.Task{
		PublisherEmail: t.PublisherEmail,
		AssigneeEmail:  t.AssigneeEmail,
		Title:          t.Title,
		Description:    t.Description,
		RewardScore:    t.RewardScore,
		Status:         database.TaskStatusOpen,
	}

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// ListForCouple returns tasks either published by or assigned to the user.
func (r *Repository) ListForCouple(ctx context.Context, email string) ([]*Task, error) {
	var dbTasks []*database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("publisher_email = ? OR assignee_email = ?", email, email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(dbTasks))
	for _, t := range dbTasks {
		tasks = append(tasks, mapDBTaskToModel(t))
	}
	return tasks, nil
}

// GetByID retrieves a single task.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Update edits an open task. Publisher only.
func (r *Repository) Update(ctx context.Context, publisherEmail string, t *Task) (*Task, error) {
	dbTask := new(database.Task)
	result, err := r.db.NewUpdate().
		Model(dbTask).
		Set("title = ?", t.Title).
		Set("description = ?", t.Description).
		Set("reward_score = ?", t.RewardScore).
		Set("assignee_email = ?", t.AssigneeEmail).
		Set("updated_at = now()").
		Where("id = ?", t.ID).
		Where("publisher_email = ?", publisherEmail).
		Where("status = ?", database.TaskStatusOpen).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		return nil, r.explainNoRows(ctx, t.ID, publisherEmail)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Delete removes a task. Publisher only.
func (r *Repository) Delete(ctx context.Context, publisherEmail string, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Where("publisher_email = ?", publisherEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		err := r.explainNoRows(ctx, id, publisherEmail)
		if errors.Is(err, ErrAlreadyDone) {
			// Done tasks are still the publisher's to delete; zero rows
			// here can only mean missing or someone else's
			return ErrNotPublisher
		}
		return err
	}

	return nil
}

// MarkDone flips an open task to done. The status guard makes completion
// single-shot: a second attempt matches zero rows and the reward is never
// credited twice.
func (r *Repository) MarkDone(ctx context.Context, assigneeEmail string, id uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	result, err := r.db.NewUpdate().
		Model(dbTask).
		Set("status = ?", database.TaskStatusDone).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("assignee_email = ?", assigneeEmail).
		Where("status = ?", database.TaskStatusOpen).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		return nil, r.explainMarkDone(ctx, id, assigneeEmail)
	}

	return mapDBTaskToModel(dbTask), nil
}

// explainNoRows works out why a publisher-scoped conditional update
// matched nothing.
func (r *Repository) explainNoRows(ctx context.Context, id uuid.UUID, publisherEmail string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.PublisherEmail != publisherEmail {
		return ErrNotPublisher
	}
	return ErrAlreadyDone
}

func (r *Repository) explainMarkDone(ctx context.Context, id uuid.UUID, assigneeEmail string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.AssigneeEmail != assigneeEmail {
		return ErrNotAssignee
	}
	return ErrAlreadyDone
}
