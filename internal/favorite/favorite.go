package favorite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/database"
)

var (
	ErrNotFound    = errors.New("favorite not found")
	ErrDuplicate   = errors.New("already favorited")
	ErrUnknownKind = errors.New("unknown favorite target kind")
)

type Favorite struct {
	ID         uuid.UUID `json:"id"`
	UserEmail  string    `json:"user_email"`
	TargetKind string    `json:"target_kind"`
	TargetID   uuid.UUID `json:"target_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidKind reports whether a target kind is one of the known values.
func ValidKind(kind string) bool {
	switch kind {
	case database.FavoriteTargetTask, database.FavoriteTargetGift, database.FavoriteTargetWhisper:
		return true
	}
	return false
}

// Repository handles favorite persistence.
type Repository struct {
	db bun.IDB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Add bookmarks a target. A second add of the same target surfaces the
// unique-index violation as ErrDuplicate.
func (r *Repository) Add(ctx context.Context, userEmail, kind string, targetID uuid.UUID) (*Favorite, error) {
	if !ValidKind(kind) {
		return nil, ErrUnknownKind
	}

	dbFavorite := &database.Favorite{
		UserEmail:  userEmail,
		TargetKind: kind,
		TargetID:   targetID,
	}

	_, err := r.db.NewInsert().
		Model(dbFavorite).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	return mapDBFavoriteToModel(dbFavorite), nil
}

// Remove drops a bookmark.
func (r *Repository) Remove(ctx context.Context, userEmail, kind string, targetID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Favorite)(nil)).
		Where("user_email = ?", userEmail).
		Where("target_kind = ?", kind).
		Where("target_id = ?", targetID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns the user's bookmarks, optionally filtered by kind.
func (r *Repository) List(ctx context.Context, userEmail, kind string) ([]*Favorite, error) {
	var dbFavorites []*database.Favorite
	q := r.db.NewSelect().
		Model(&dbFavorites).
		Where("user_email = ?", userEmail).
		Order("created_at DESC")

	if kind != "" {
		if !ValidKind(kind) {
			return nil, ErrUnknownKind
		}
		q = q.Where("target_kind = ?", kind)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	favorites := make([]*Favorite, 0, len(dbFavorites))
	for _, f := range dbFavorites {
		favorites = append(favorites, mapDBFavoriteToModel(f))
	}
	return favorites, nil
}

func mapDBFavoriteToModel(dbf *database.Favorite) *Favorite {
	return &Favorite{
		ID:         dbf.ID,
		UserEmail:  dbf.UserEmail,
		TargetKind: dbf.TargetKind,
		TargetID:   dbf.TargetID,
		CreatedAt:  dbf.CreatedAt,
	}
}
