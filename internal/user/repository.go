package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/database"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateName     = errors.New("display name already exists")
	ErrInsufficientScore = errors.New("insufficient score")
	ErrNegativeAmount    = errors.New("amount must not be negative")
)

// Repository handles user data persistence, including the score ledger.
type Repository struct {
	db bun.IDB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction. Ledger
// operations inside an exchange go through this.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user with a zero score.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	dbUser := &database.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			if strings.Contains(err.Error(), "name") {
				return nil, ErrDuplicateName
			}
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// UpdateProfile changes the display name and optionally the partner link.
// A nil partnerEmail keeps the current link; an empty string clears it.
func (r *Repository) UpdateProfile(ctx context.Context, email, name string, partnerEmail *string) (*User, error) {
	dbUser := new(database.User)
	q := r.db.NewUpdate().
		Model(dbUser).
		Set("name = ?", name).
		Set("updated_at = now()").
		Where("email = ?", email).
		Returning("*")

	if partnerEmail != nil {
		if *partnerEmail == "" {
			q = q.Set("partner_email = NULL")
		} else {
			q = q.Set("partner_email = ?", *partnerEmail)
		}
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return mapDBUserToModel(dbUser), nil
}

// Credit adds points to an account and returns the new balance.
// Negative amounts are an explicit validation error, not a silent no-op.
func (r *Repository) Credit(ctx context.Context, email string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	dbUser := new(database.User)
	result, err := r.db.NewUpdate().
		Model(dbUser).
		Set("score = score + ?", amount).
		Set("updated_at = now()").
		Where("email = ?", email).
		Returning("score").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to credit score: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}

	return dbUser.Score, nil
}

// Debit removes points from an account, but only when the balance covers
// the amount. Check and decrement are a single conditional UPDATE; two
// concurrent debits can never jointly overdraw, whichever wins the row
// lock leaves a balance the loser is re-checked against.
func (r *Repository) Debit(ctx context.Context, email string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	dbUser := new(database.User)
	result, err := r.db.NewUpdate().
		Model(dbUser).
		Set("score = score - ?", amount).
		Set("updated_at = now()").
		Where("email = ?", email).
		Where("score >= ?", amount).
		Returning("score").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to debit score: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Zero rows means either an unknown account or not enough points;
		// tell the two apart so callers don't report the wrong thing.
		exists, err := r.db.NewSelect().
			Model((*database.User)(nil)).
			Where("email = ?", email).
			Exists(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to check user existence: %w", err)
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientScore
	}

	return dbUser.Score, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		Email:        dbu.Email,
		Name:         dbu.Name,
		PasswordHash: dbu.PasswordHash,
		Score:        dbu.Score,
		PartnerEmail: dbu.PartnerEmail,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}
