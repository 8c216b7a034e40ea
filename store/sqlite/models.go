package sqlite

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

	ID              string `grove:"id,pk"`
	Name            string `grove:"name"`
	URI             string `grove:"uri"`
	Description     string `grove:"description"`
	Currency        string `grove:"currency"`
	Merchant        string `grove:"merchant"`
	SalePrice       int64  `grove:"sale_price"`
	DefaultCapacity int64  `grove:"default_capacity"`
	StartSec        int64  `grove:"start_sec"`
	StartNsec       int64  `grove:"start_nsec"`
	Treasury        int64  `grove:"treasury"`
	Tiers           string `grove:"tiers"`
	Entries         string `grove:"entries"`
	Version         int64  `grove:"version"`
	CreatedSec      int64  `grove:"created_sec"`
	CreatedNsec     int64  `grove:"created_nsec"`
	UpdatedSec      int64  `grove:"updated_sec"`
	UpdatedNsec     int64  `grove:"updated_nsec"`
}

// entryModel is the stored form of a ledger entry inside the entries column.
type entryModel struct {
	Tier         int           `json:"tier"`
	Holder       types.Address `json:"holder"`
	DeadlineSec  int64         `json:"deadline_sec"`
	DeadlineNsec int64         `json:"deadline_nsec,omitempty"`
	Operator     types.Address `json:"operator"`
	StartedSec   int64         `json:"started_sec"`
	StartedNsec  int64         `json:"started_nsec,omitempty"`
	Renewals     int           `json:"renewals"`
}

func toCollectionModel(c *collection.State) (*collectionModel, error) {
	tiers, err := json.Marshal(c.Tiers.All())
	if err != nil {
		return nil, fmt.Errorf("encode tiers: %w", err)
	}

	src := c.Ledger.Entries()
	entries := make([]entryModel, len(src))
	for i, e := range src {
		entries[i] = entryModel{
			Tier:     e.Tier,
			Holder:   e.Holder,
			Operator: e.Operator,
			Renewals: e.Renewals,
		}
		entries[i].DeadlineSec, entries[i].DeadlineNsec = splitTime(e.Deadline)
		entries[i].StartedSec, entries[i].StartedNsec = splitTime(e.StartedAt)
	}
	rawEntries, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}

	m := &collectionModel{
		ID:              c.ID.String(),
		Name:            c.Name,
		URI:             c.URI,
		Description:     c.Description,
		Currency:        c.Currency,
		Merchant:        c.Merchant.Hex(),
		SalePrice:       c.SalePrice.Amount,
		DefaultCapacity: c.DefaultCapacity,
		Treasury:        c.Treasury.Amount,
		Tiers:           string(tiers),
		Entries:         string(rawEntries),
		Version:         c.Version,
	}
	m.StartSec, m.StartNsec = splitTime(c.StartTime)
	m.CreatedSec, m.CreatedNsec = splitTime(c.CreatedAt)
	m.UpdatedSec, m.UpdatedNsec = splitTime(c.UpdatedAt)
	return m, nil
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
	if m.Tiers != "" {
		if err := json.Unmarshal([]byte(m.Tiers), &tiers); err != nil {
			return nil, fmt.Errorf("decode tiers: %w", err)
		}
	}

	var stored []entryModel
	if m.Entries != "" {
		if err := json.Unmarshal([]byte(m.Entries), &stored); err != nil {
			return nil, fmt.Errorf("decode entries: %w", err)
		}
	}
	entries := make([]collection.Entry, len(stored))
	for i, e := range stored {
		entries[i] = collection.Entry{
			Tier:      e.Tier,
			Holder:    e.Holder,
			Deadline:  joinTime(e.DeadlineSec, e.DeadlineNsec),
			Operator:  e.Operator,
			StartedAt: joinTime(e.StartedSec, e.StartedNsec),
			Renewals:  e.Renewals,
		}
	}

	return &collection.State{
		ID:              collectionID,
		Name:            m.Name,
		URI:             m.URI,
		Description:     m.Description,
		Currency:        m.Currency,
		Merchant:        merchant,
		SalePrice:       types.NewMoney(m.SalePrice, m.Currency),
		DefaultCapacity: m.DefaultCapacity,
		StartTime:       joinTime(m.StartSec, m.StartNsec),
		Treasury:        types.NewMoney(m.Treasury, m.Currency),
		Tiers:           collection.RestoreTiers(tiers),
		Ledger:          collection.RestoreLedger(entries),
		Version:         m.Version,
		Entity: types.Entity{
			CreatedAt: joinTime(m.CreatedSec, m.CreatedNsec),
			UpdatedAt: joinTime(m.UpdatedSec, m.UpdatedNsec),
		},
	}, nil
}

// splitTime stores t as Unix seconds plus nanoseconds. A single UnixNano
// value only spans 1678 to 2262, which long subscription periods exceed.
// The zero time maps to (0, 0) so unset timestamps stay unset.
func splitTime(t time.Time) (sec, nsec int64) {
	if t.IsZero() {
		return 0, 0
	}
	return t.Unix(), int64(t.Nanosecond())
}

func joinTime(sec, nsec int64) time.Time {
	if sec == 0 && nsec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, nsec).UTC()
}
