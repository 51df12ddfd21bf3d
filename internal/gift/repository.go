package gift

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
	ErrNotFound     = errors.New("gift not found")
	ErrOutOfStock   = errors.New("gift is out of stock")
	ErrSelfExchange = errors.New("cannot exchange your own gift")
	ErrNotPublisher = errors.New("only the publisher may change a gift")
)

// Repository handles gift and exchange-receipt persistence.
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

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, g *Gift) (*Gift, error) {
	dbGift := &database.Gift{
		PublisherEmail: g.PublisherEmail,
		Name:           g.Name,
		Description:    g.Description,
		ImageURL:       g.ImageURL,
		RequiredScore:  g.RequiredScore,
		Remaining:      g.Remaining,
		Visible:        true,
	}

	_, err := r.db.NewInsert().
		Model(dbGift).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gift: %w", err)
	}

	return mapDBGiftToModel(dbGift), nil
}

// List returns all listings visible to the viewer: every visible gift
// plus the viewer's own hidden ones.
func (r *Repository) List(ctx context.Context, viewerEmail string) ([]*Gift, error) {
	var dbGifts []*database.Gift
	err := r.db.NewSelect().
		Model(&dbGifts).
		Where("visible = TRUE OR publisher_email = ?", viewerEmail).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}

	gifts := make([]*Gift, 0, len(dbGifts))
	for _, g := range dbGifts {
		gifts = append(gifts, mapDBGiftToModel(g))
	}
	return gifts, nil
}

// GetByID retrieves a single gift.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Gift, error) {
	dbGift := new(database.Gift)
	err := r.db.NewSelect().
		Model(dbGift).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}

	return mapDBGiftToModel(dbGift), nil
}

// GetForUpdate retrieves a gift holding its row lock until the enclosing
// transaction ends. Serializes concurrent exchanges of the same gift.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Gift, error) {
	dbGift := new(database.Gift)
	err := r.db.NewSelect().
		Model(dbGift).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock gift: %w", err)
	}

	return mapDBGiftToModel(dbGift), nil
}

// Update edits a listing. Only the publisher's rows match, so a non-owner
// edit comes back as zero rows.
func (r *Repository) Update(ctx context.Context, publisherEmail string, g *Gift) (*Gift, error) {
	dbGift := new(database.Gift)
	result, err := r.db.NewUpdate().
		Model(dbGift).
		Set("name = ?", g.Name).
		Set("description = ?", g.Description).
		Set("image_url = ?", g.ImageURL).
		Set("required_score = ?", g.RequiredScore).
		Set("remaining = ?", g.Remaining).
		Set("updated_at = now()").
		Where("id = ?", g.ID).
		Where("publisher_email = ?", publisherEmail).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update gift: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		return nil, r.notFoundOrNotPublisher(ctx, g.ID)
	}

	return mapDBGiftToModel(dbGift), nil
}

// SetVisibility shows or hides a listing.
func (r *Repository) SetVisibility(ctx context.Context, publisherEmail string, id uuid.UUID, visible bool) error {
	result, err := r.db.NewUpdate().
		Model((*database.Gift)(nil)).
		Set("visible = ?", visible).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("publisher_email = ?", publisherEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set gift visibility: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		return r.notFoundOrNotPublisher(ctx, id)
	}

	return nil
}

// Delete removes a listing.
func (r *Repository) Delete(ctx context.Context, publisherEmail string, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Gift)(nil)).
		Where("id = ?", id).
		Where("publisher_email = ?", publisherEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete gift: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if affected == 0 {
		return r.notFoundOrNotPublisher(ctx, id)
	}

	return nil
}

// DecrementStock takes one unit off the shelf. The remaining > 0 guard is
// part of the statement itself; a raced-away last unit shows up as zero
// affected rows, never as a negative count.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.Gift)(nil)).
		Set("remaining = remaining - 1").
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("remaining > 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOutOfStock
	}

	return nil
}

// InsertExchange records the receipt row.
func (r *Repository) InsertExchange(ctx context.Context, rec *Exchange) (*Exchange, error) {
	dbExchange := &database.Exchange{
		GiftID:     rec.GiftID,
		GiftName:   rec.GiftName,
		BuyerEmail: rec.BuyerEmail,
		Cost:       rec.Cost,
	}

	_, err := r.db.NewInsert().
		Model(dbExchange).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record exchange: %w", err)
	}

	return mapDBExchangeToModel(dbExchange), nil
}

// ListExchanges returns a buyer's receipts, newest first.
func (r *Repository) ListExchanges(ctx context.Context, buyerEmail string) ([]*Exchange, error) {
	var dbExchanges []*database.Exchange
	err := r.db.NewSelect().
		Model(&dbExchanges).
		Where("buyer_email = ?", buyerEmail).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	records := make([]*Exchange, 0, len(dbExchanges))
	for _, e := range dbExchanges {
		records = append(records, mapDBExchangeToModel(e))
	}
	return records, nil
}

// notFoundOrNotPublisher distinguishes a missing gift from someone else's.
func (r *Repository) notFoundOrNotPublisher(ctx context.Context, id uuid.UUID) error {
	exists, err := r.db.NewSelect().
		Model((*database.Gift)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check gift existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotPublisher
}
