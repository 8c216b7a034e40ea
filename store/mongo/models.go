package mongo

import (
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

	ID              string       `grove:"id,pk"            bson:"_id"`
	Name            string       `grove:"name"             bson:"name"`
	URI             string       `grove:"uri"              bson:"uri"`
	Description     string       `grove:"description"      bson:"description"`
	Currency        string       `grove:"currency"         bson:"currency"`
	Merchant        string       `grove:"merchant"         bson:"merchant"`
	SalePrice       int64        `grove:"sale_price"       bson:"sale_price"`
	DefaultCapacity int64        `grove:"default_capacity" bson:"default_capacity"`
	StartTime       time.Time    `grove:"start_time"       bson:"start_time"`
	Treasury        int64        `grove:"treasury"         bson:"treasury"`
	Tiers           []tierModel  `grove:"tiers"            bson:"tiers"`
	Entries         []entryModel `grove:"entries"          bson:"entries"`
	Version         int64        `grove:"version"          bson:"version"`
	CreatedAt       time.Time    `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time    `grove:"updated_at"       bson:"updated_at"`
}

type tierModel struct {
	Index    int   `bson:"index"`
	Price    int64 `bson:"price"`
	PeriodNS int64 `bson:"period_ns"`
	Capacity int64 `bson:"capacity"`
	Active   int64 `bson:"active"`
	Enabled  bool  `bson:"enabled"`
}

type entryModel struct {
	Tier      int       `bson:"tier"`
	Holder    string    `bson:"holder"`
	Deadline  time.Time `bson:"deadline"`
	Operator  string    `bson:"operator,omitempty"`
	StartedAt time.Time `bson:"started_at"`
	Renewals  int       `bson:"renewals"`
}

func toCollectionModel(c *collection.State) *collectionModel {
	tiers := c.Tiers.All()
	tierModels := make([]tierModel, len(tiers))
	for i, t := range tiers {
		tierModels[i] = tierModel{
			Index:    t.Index,
			Price:    t.Price.Amount,
			PeriodNS: int64(t.Period),
			Capacity: t.Capacity,
			Active:   t.Active,
			Enabled:  t.Enabled,
		}
	}

	entries := c.Ledger.Entries()
	entryModels := make([]entryModel, len(entries))
	for i, e := range entries {
		em := entryModel{
			Tier:      e.Tier,
			Holder:    e.Holder.Hex(),
			Deadline:  e.Deadline,
			StartedAt: e.StartedAt,
			Renewals:  e.Renewals,
		}
		if e.HasOperator() {
			em.Operator = e.Operator.Hex()
		}
		entryModels[i] = em
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
		Tiers:           tierModels,
		Entries:         entryModels,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
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

	tiers := make([]collection.Tier, len(m.Tiers))
	for i, t := range m.Tiers {
		tiers[i] = collection.Tier{
			Index:    t.Index,
			Price:    types.NewMoney(t.Price, m.Currency),
			Period:   time.Duration(t.PeriodNS),
			Capacity: t.Capacity,
			Active:   t.Active,
			Enabled:  t.Enabled,
		}
	}

	entries := make([]collection.Entry, len(m.Entries))
	for i, e := range m.Entries {
		holder, err := types.ParseAddress(e.Holder)
		if err != nil {
			return nil, fmt.Errorf("decode holder: %w", err)
		}
		var operator types.Address
		if e.Operator != "" {
			if operator, err = types.ParseAddress(e.Operator); err != nil {
				return nil, fmt.Errorf("decode operator: %w", err)
			}
		}
		entries[i] = collection.Entry{
			Tier:      e.Tier,
			Holder:    holder,
			Deadline:  e.Deadline.UTC(),
			Operator:  operator,
			StartedAt: e.StartedAt.UTC(),
			Renewals:  e.Renewals,
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
