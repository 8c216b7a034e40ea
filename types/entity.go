package types

import "time"

// Entity carries creation and modification timestamps. Embed it in
// persisted domain types.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with the current time.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates an Entity stamped with t (normalized to UTC).
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{CreatedAt: t, UpdatedAt: t}
}

// Touch updates UpdatedAt to the current time.
func (e *Entity) Touch() {
	e.TouchAt(time.Now())
}

// TouchAt updates UpdatedAt to t (normalized to UTC).
func (e *Entity) TouchAt(t time.Time) {
	e.UpdatedAt = t.UTC()
}
