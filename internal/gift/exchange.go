package gift

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/user"
)

// ExchangeOps are the storage operations an exchange performs. All calls
// made to one ExchangeOps happen inside the same transaction.
type ExchangeOps interface {
	GiftForUpdate(ctx context.Context, id uuid.UUID) (*Gift, error)
	DebitScore(ctx context.Context, email string, amount int64) error
	DecrementStock(ctx context.Context, id uuid.UUID) error
	InsertExchange(ctx context.Context, rec *Exchange) (*Exchange, error)
}

// ExchangeStore runs a function inside one atomic transaction. An error
// from fn rolls back every operation it performed.
type ExchangeStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, ops ExchangeOps) error) error
}

// Notifier is the best-effort outbound ping sent after a completed
// exchange. Failures are logged and never affect the transaction.
type Notifier interface {
	Event(ctx context.Context, text string) error
}

// ExchangeService orchestrates the points-for-gift exchange. Every attempt
// either changes exactly two rows and writes a receipt, or changes
// nothing; partial application is impossible because all three writes
// share one transaction. Exchanges are never retried automatically - each
// run spends score and stock, so failure goes back to the user.
type ExchangeService struct {
	store    ExchangeStore
	notifier Notifier
	logger   *logging.Logger
}

func NewExchangeService(store ExchangeStore, notifier Notifier, logger *logging.Logger) *ExchangeService {
	return &ExchangeService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Exchange spends the buyer's points on one unit of a gift.
//
// Preconditions run in a fixed order inside the transaction: the gift
// must exist and be listed, have stock, not be the buyer's own, and the
// buyer's balance must cover the price. The stock decrement and the score
// debit are both conditional statements on top of the row lock, so even a
// concurrent attempt that slipped past the preconditions cannot oversell
// or overdraw.
func (s *ExchangeService) Exchange(ctx context.Context, buyerEmail string, giftID uuid.UUID) (*Exchange, error) {
	var receipt *Exchange

	err := s.store.RunInTx(ctx, func(ctx context.Context, ops ExchangeOps) error {
		g, err := ops.GiftForUpdate(ctx, giftID)
		if err != nil {
			return err
		}
		if !g.Visible {
			// Hidden listings don't exist as far as buyers are concerned
			return ErrNotFound
		}
		if g.Remaining <= 0 {
			return ErrOutOfStock
		}
		if strings.EqualFold(g.PublisherEmail, buyerEmail) {
			return ErrSelfExchange
		}

		if err := ops.DebitScore(ctx, buyerEmail, g.RequiredScore); err != nil {
			return err
		}

		if err := ops.DecrementStock(ctx, g.ID); err != nil {
			return err
		}

		receipt, err = ops.InsertExchange(ctx, &Exchange{
			GiftID:     g.ID,
			GiftName:   g.Name,
			BuyerEmail: buyerEmail,
			Cost:       g.RequiredScore,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		// Fire and forget; the exchange already committed
		rec := *receipt
		go func() {
			if err := s.notifier.Event(context.Background(),
				fmt.Sprintf("%s exchanged %s for %d points", rec.BuyerEmail, rec.GiftName, rec.Cost)); err != nil {
				s.logger.Warn("exchange notification failed", "error", err.Error())
			}
		}()
	}

	return receipt, nil
}

// BunExchangeStore is the production ExchangeStore on top of bun.
type BunExchangeStore struct {
	db    *bun.DB
	gifts *Repository
	users *user.Repository
}

func NewBunExchangeStore(db *bun.DB, gifts *Repository, users *user.Repository) *BunExchangeStore {
	return &BunExchangeStore{db: db, gifts: gifts, users: users}
}

func (s *BunExchangeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, ops ExchangeOps) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunExchangeOps{
			gifts: s.gifts.WithTx(tx),
			users: s.users.WithTx(tx),
		})
	})
}

type bunExchangeOps struct {
	gifts *Repository
	users *user.Repository
}

func (o *bunExchangeOps) GiftForUpdate(ctx context.Context, id uuid.UUID) (*Gift, error) {
	return o.gifts.GetForUpdate(ctx, id)
}

func (o *bunExchangeOps) DebitScore(ctx context.Context, email string, amount int64) error {
	_, err := o.users.Debit(ctx, email, amount)
	return err
}

func (o *bunExchangeOps) DecrementStock(ctx context.Context, id uuid.UUID) error {
	return o.gifts.DecrementStock(ctx, id)
}

func (o *bunExchangeOps) InsertExchange(ctx context.Context, rec *Exchange) (*Exchange, error) {
	return o.gifts.InsertExchange(ctx, rec)
}
