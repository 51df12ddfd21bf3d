package whisper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/database"
)

var (
	ErrNotFound  = errors.New("whisper not found")
	ErrNotYours  = errors.New("whisper belongs to someone else")
	ErrNoPartner = errors.New("no partner linked")
)

type Whisper struct {
	ID        uuid.UUID  `json:"id"`
	FromEmail string     `json:"from_email"`
	ToEmail   string     `json:"to_email"`
	Content   string     `json:"content"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository handles whisper persistence.
type Repository struct {
	db bun.IDB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Send stores a new whisper to the sender's partner.
func (r *Repository) Send(ctx context.Context, fromEmail, toEmail, content string) (*Whisper, error) {
	dbWhisper := &database.Whisper{
		FromEmail: fromEmail,
		ToEmail:   toEmail,
		Content:   content,
	}

	_, err := r.db.NewInsert().
		Model(dbWhisper).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to send whisper: %w", err)
	}

	return mapDBWhisperToModel(dbWhisper), nil
}

// ListConversation returns both directions of the couple's exchange,
// newest first.
func (r *Repository) ListConversation(ctx context.Context, email, partnerEmail string) ([]*Whisper, error) {
	var dbWhispers []*database.Whisper
	err := r.db.NewSelect().
		Model(&dbWhispers).
		Where("(from_email = ? AND to_email = ?) OR (from_email = ? AND to_email = ?)",
			email, partnerEmail, partnerEmail, email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list whispers: %w", err)
	}

	whispers := make([]*Whisper, 0, len(dbWhispers))
	for _, w := range dbWhispers {
		whispers = append(whispers, mapDBWhisperToModel(w))
	}
	return whispers, nil
}

// MarkRead stamps a whisper addressed to the reader. Already-read
// whispers keep their original timestamp.
func (r *Repository) MarkRead(ctx context.Context, readerEmail string, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.Whisper)(nil)).
		Set("read_at = now()").
		Where("id = ?", id).
		Where("to_email = ?", readerEmail).
		Where("read_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark whisper read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.explainNoRows(ctx, id, readerEmail)
	}

	return nil
}

// Delete removes a whisper the caller sent.
func (r *Repository) Delete(ctx context.Context, senderEmail string, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Whisper)(nil)).
		Where("id = ?", id).
		Where("from_email = ?", senderEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete whisper: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.db.NewSelect().
			Model((*database.Whisper)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check whisper existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotYours
	}

	return nil
}

func (r *Repository) explainNoRows(ctx context.Context, id uuid.UUID, readerEmail string) error {
	dbWhisper := new(database.Whisper)
	err := r.db.NewSelect().
		Model(dbWhisper).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return ErrNotFound
	}
	if dbWhisper.ToEmail != readerEmail {
		return ErrNotYours
	}
	// Already read; marking twice is harmless
	return nil
}

func mapDBWhisperToModel(dbw *database.Whisper) *Whisper {
	return &Whisper{
		ID:        dbw.ID,
		FromEmail: dbw.FromEmail,
		ToEmail:   dbw.ToEmail,
		Content:   dbw.Content,
		ReadAt:    dbw.ReadAt,
		CreatedAt: dbw.CreatedAt,
	}
}
