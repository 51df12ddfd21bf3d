package task

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/user"
)

// Service wraps the task flows that touch the score ledger.
type Service struct {
	db     *bun.DB
	tasks  *Repository
	users  *user.Repository
	logger *logging.Logger
}

func NewService(db *bun.DB, tasks *Repository, users *user.Repository, logger *logging.Logger) *Service {
	return &Service{db: db, tasks: tasks, users: users, logger: logger}
}

// CompletionResult reports the finished task and the assignee's balance
// after the reward landed.
type CompletionResult struct {
	Task     *Task `json:"task"`
	NewScore int64 `json:"new_score"`
}

// Complete marks a task done and credits the reward to the assignee.
// Status flip and credit share one transaction; a storage failure after
// the flip rolls the flip back rather than leaving a completed task with
// no reward paid.
func (s *Service) Complete(ctx context.Context, assigneeEmail string, taskID uuid.UUID) (*CompletionResult, error) {
	var result CompletionResult

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		done, err := s.tasks.WithTx(tx).MarkDone(ctx, assigneeEmail, taskID)
		if err != nil {
			return err
		}

		newScore, err := s.users.WithTx(tx).Credit(ctx, assigneeEmail, done.RewardScore)
		if err != nil {
			return err
		}

		result.Task = done
		result.NewScore = newScore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task completed",
		"task_id", result.Task.ID,
		"assignee", assigneeEmail,
		"reward", result.Task.RewardScore,
	)

	return &result, nil
}
