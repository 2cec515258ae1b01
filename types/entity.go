package types

import "time"

// Entity carries creation and modification times. Times come from the
// ledger clock, never from the wall clock directly, so replay reproduces
// them exactly.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity created at t.
func NewEntity(t time.Time) Entity {
	t = t.UTC()
	return Entity{CreatedAt: t, UpdatedAt: t}
}

// Touch sets UpdatedAt to t, initializing CreatedAt on first use.
func (e *Entity) Touch(t time.Time) {
	t = t.UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
}

// IsNew reports whether the entity has never been touched.
func (e Entity) IsNew() bool { return e.CreatedAt.IsZero() }
