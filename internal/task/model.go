package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/paired-app/paired/internal/database"
)

type Task struct {
	ID             uuid.UUID `json:"id"`
	PublisherEmail string    `json:"publisher_email"`
	AssigneeEmail  string    `json:"assignee_email"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RewardScore    int64     `json:"reward_score"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:             dbt.ID,
		PublisherEmail: dbt.PublisherEmail,
		AssigneeEmail:  dbt.AssigneeEmail,
		Title:          dbt.Title,
		Description:    dbt.Description,
		RewardScore:    dbt.RewardScore,
		Status:         dbt.Status,
		CreatedAt:      dbt.CreatedAt,
		UpdatedAt:      dbt.UpdatedAt,
	}
}
