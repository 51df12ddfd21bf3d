package gift

import (
	"time"

	"github.com/google/uuid"

	"github.com/paired-app/paired/internal/database"
)

type Gift struct {
	ID             uuid.UUID `json:"id"`
	PublisherEmail string    `json:"publisher_email"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	RequiredScore  int64     `json:"required_score"`
	Remaining      int64     `json:"remaining"`
	Visible        bool      `json:"visible"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Exchange is the receipt attributing a gift to its buyer.
type Exchange struct {
	ID         uuid.UUID `json:"id"`
	GiftID     uuid.UUID `json:"gift_id"`
	GiftName   string    `json:"gift_name"`
	BuyerEmail string    `json:"buyer_email"`
	Cost       int64     `json:"cost"`
	CreatedAt  time.Time `json:"created_at"`
}

func mapDBGiftToModel(dbg *database.Gift) *Gift {
	return &Gift{
		ID:             dbg.ID,
		PublisherEmail: dbg.PublisherEmail,
		Name:           dbg.Name,
		Description:    dbg.Description,
		ImageURL:       dbg.ImageURL,
		RequiredScore:  dbg.RequiredScore,
		Remaining:      dbg.Remaining,
		Visible:        dbg.Visible,
		CreatedAt:      dbg.CreatedAt,
		UpdatedAt:      dbg.UpdatedAt,
	}
}

func mapDBExchangeToModel(dbe *database.Exchange) *Exchange {
	return &Exchange{
		ID:         dbe.ID,
		GiftID:     dbe.GiftID,
		GiftName:   dbe.GiftName,
		BuyerEmail: dbe.BuyerEmail,
		Cost:       dbe.Cost,
		CreatedAt:  dbe.CreatedAt,
	}
}
