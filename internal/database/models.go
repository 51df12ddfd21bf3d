package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a registered account. Score never goes below zero; the ledger
// enforces that with conditional updates, not application checks.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name,notnull,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	Score        int64      `bun:"score,notnull,default:0"`
	PartnerEmail *string    `bun:"partner_email"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Gift is a listing published by one half of a couple. Remaining stock
// never goes below zero.
type Gift struct {
	bun.BaseModel `bun:"table:gifts,alias:g"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	PublisherEmail string    `bun:"publisher_email,notnull"`
	Name           string    `bun:"name,notnull"`
	Description    string    `bun:"description"`
	ImageURL       string    `bun:"image_url"`
	RequiredScore  int64     `bun:"required_score,notnull"`
	Remaining      int64     `bun:"remaining,notnull"`
	Visible        bool      `bun:"visible,notnull,default:true"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Exchange is the receipt row attributing a gift to its buyer.
type Exchange struct {
	bun.BaseModel `bun:"table:exchanges,alias:e"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	GiftID     uuid.UUID `bun:"gift_id,notnull,type:uuid"`
	GiftName   string    `bun:"gift_name,notnull"`
	BuyerEmail string    `bun:"buyer_email,notnull"`
	Cost       int64     `bun:"cost,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Task statuses.
const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

// Task rewards its assignee with points when completed.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	PublisherEmail string    `bun:"publisher_email,notnull"`
	AssigneeEmail  string    `bun:"assignee_email,notnull"`
	Title          string    `bun:"title,notnull"`
	Description    string    `bun:"description"`
	RewardScore    int64     `bun:"reward_score,notnull"`
	Status         string    `bun:"status,notnull,default:'open'"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Whisper is a private message between the two linked accounts.
type Whisper struct {
	bun.BaseModel `bun:"table:whispers,alias:w"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	FromEmail string     `bun:"from_email,notnull"`
	ToEmail   string     `bun:"to_email,notnull"`
	Content   string     `bun:"content,notnull"`
	ReadAt    *time.Time `bun:"read_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// Favorite target kinds.
const (
	FavoriteTargetTask    = "task"
	FavoriteTargetGift    = "gift"
	FavoriteTargetWhisper = "whisper"
)

// Favorite is a user-scoped bookmark. (user, target kind, target id) is
// unique; a second add of the same target is a conflict.
type Favorite struct {
	bun.BaseModel `bun:"table:favorites,alias:f"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserEmail  string    `bun:"user_email,notnull"`
	TargetKind string    `bun:"target_kind,notnull"`
	TargetID   uuid.UUID `bun:"target_id,notnull,type:uuid"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
