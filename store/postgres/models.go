package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

// ==================== Collection models ====================

type collectionModel struct {
	grove.BaseModel `grove:"table:sub_collections"`

	ID              string          `grove:"id,pk"`
	Name            string          `grove:"name"`
	URI             string          `grove:"uri"`
	Description     string          `grove:"description"`
	Currency        string          `grove:"currency"`
	Merchant        string          `grove:"merchant"`
	SalePrice       int64           `grove:"sale_price"`
	DefaultCapacity int64           `grove:"default_capacity"`
	StartTime       time.Time       `grove:"start_time"`
	Treasury        int64           `grove:"treasury"`
	Tiers           json.RawMessage `grove:"tiers,type:jsonb"`
	Entries         json.RawMessage `grove:"entries,type:jsonb"`
	Version         int64           `grove:"version"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toCollectionModel(c *collection.State) (*collectionModel, error) {
	tiers, err := json.Marshal(c.Tiers.All())
	if err != nil {
		return nil, fmt.Errorf("encode tiers: %w", err)
	}
	entries, err := json.Marshal(c.Ledger.Entries())
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}

	return &collectionModel{
		ID:              c.ID.String(),
		Name:            c.Name,
		URI:             c.URI,
		Description:     c.Description,
		Currency:        c.Currency,
		Merchant:        c.Merchant.Hex(),
		SalePrice:       c.SalePrice.Amount,
		DefaultCapacity: c.DefaultCapacity,
		StartTime:       c.StartTime,
		Treasury:        c.Treasury.Amount,
		Tiers:           tiers,
		Entries:         entries,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}, nil
}

func fromCollectionModel(m *collectionModel) (*collection.State, error) {
	collectionID, err := id.ParseCollectionID(m.ID)
	if err != nil {
		return nil, err
	}
	merchant, err := types.ParseAddress(m.Merchant)
	if err != nil {
		return nil, fmt.Errorf("decode merchant: %w", err)
	}

	var tiers []collection.Tier
	if len(m.Tiers) > 0 {
		if err := json.Unmarshal(m.Tiers, &tiers); err != nil {
			return nil, fmt.Errorf("decode tiers: %w", err)
		}
	}
	var entries []collection.Entry
	if len(m.Entries) > 0 {
		if err := json.Unmarshal(m.Entries, &entries); err != nil {
			return nil, fmt.Errorf("decode entries: %w", err)
		}
	}

	return &collection.State{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              collectionID,
		Name:            m.Name,
		URI:             m.URI,
		Description:     m.Description,
		Currency:        m.Currency,
		Merchant:        merchant,
		SalePrice:       types.NewMoney(m.SalePrice, m.Currency),
		DefaultCapacity: m.DefaultCapacity,
		StartTime:       m.StartTime.UTC(),
		Treasury:        types.NewMoney(m.Treasury, m.Currency),
		Tiers:           collection.RestoreTiers(tiers),
		Ledger:          collection.RestoreLedger(entries),
		Version:         m.Version,
	}, nil
}
