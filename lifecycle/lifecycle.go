// Package lifecycle is the campaign phase machine.
//
//	Fundraising ──pause──▶ Paused ──resume──▶ Fundraising
//	Fundraising ──finalize (at or after funding end)──▶ Finalized
//
// Allows is the single place that decides which operations a phase
// permits.
package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/issuance/journal"
)

// KindPhase is the change kind for the campaign phase.
const KindPhase journal.Kind = "phase"

// Errors returned by the machine.
var (
	ErrSaleNotActive     = errors.New("lifecycle: sale not active")
	ErrPaused            = errors.New("lifecycle: campaign paused")
	ErrTooEarly          = errors.New("lifecycle: funding has not ended")
	ErrInvalidTransition = errors.New("lifecycle: invalid phase transition")
)

// Phase is the campaign state. The numeric codes are stable and
// persisted.
type Phase uint8

// Phases.
const (
	Fundraising Phase = 0
	Finalized   Phase = 1
	Paused      Phase = 2
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Fundraising:
		return "fundraising"
	case Finalized:
		return "finalized"
	case Paused:
		return "paused"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// Op classifies an operation for the legality check.
type Op int

// Operation classes.
const (
	OpBuy Op = iota
	OpTransfer
	OpMoveToFund
	OpDeliver
	OpReleaseLocked
	OpReturnFromFund
	OpKYC
	OpRateUpdate
	OpGovernance
)

// Allows reports whether op may run in phase p.
func Allows(p Phase, op Op) error {
	switch op {
	case OpBuy:
		if p != Fundraising {
			return fmt.Errorf("%w: campaign is %s", ErrSaleNotActive, p)
		}
	case OpTransfer, OpMoveToFund, OpDeliver:
		if p == Paused {
			return ErrPaused
		}
	}
	return nil
}

// Transition names a phase change.
type Transition string

// Transitions.
const (
	Pause    Transition = "pause"
	Resume   Transition = "resume"
	Finalize Transition = "finalize"
)

// Next returns the phase reached by applying tr to p at time now.
// Finalize requires now to be at or after fundingEnd.
func Next(p Phase, tr Transition, now, fundingEnd time.Time) (Phase, error) {
	switch {
	case tr == Pause && p == Fundraising:
		return Paused, nil
	case tr == Resume && p == Paused:
		return Fundraising, nil
	case tr == Finalize && p == Fundraising:
		if now.Before(fundingEnd) {
			return p, fmt.Errorf("%w: ends %s", ErrTooEarly, fundingEnd.Format(time.RFC3339))
		}
		return Finalized, nil
	default:
		return p, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, tr, p)
	}
}

var _ journal.State = (*Machine)(nil)

// Machine holds the current phase.
type Machine struct {
	phase      Phase
	fundingEnd time.Time
}

// NewMachine returns a machine in Fundraising.
func NewMachine(fundingEnd time.Time) *Machine {
	return &Machine{phase: Fundraising, fundingEnd: fundingEnd}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Allows checks op against the current phase.
func (m *Machine) Allows(op Op) error { return Allows(m.phase, op) }

// Do moves the machine through tr at the transaction time.
func (m *Machine) Do(tx *journal.Txn, tr Transition) (Phase, error) {
	next, err := Next(m.phase, tr, tx.Time(), m.fundingEnd)
	if err != nil {
		return m.phase, err
	}
	prev := m.phase
	m.phase = next
	if err := tx.Write(KindPhase, "", next, func() { m.phase = prev }); err != nil {
		return prev, err
	}
	tx.Emit(journal.Record{
		Kind: journal.RecordPhaseChanged,
		Attrs: map[string]string{
			journal.AttrFrom: prev.String(),
			journal.AttrTo:   next.String(),
		},
	})
	return next, nil
}

// Kinds implements journal.State.
func (m *Machine) Kinds() []journal.Kind { return []journal.Kind{KindPhase} }

// Apply implements journal.State.
func (m *Machine) Apply(c journal.Change) error {
	if c.Kind != KindPhase {
		return fmt.Errorf("lifecycle: unknown change kind %q", c.Kind)
	}
	var p Phase
	if err := json.Unmarshal(c.Value, &p); err != nil {
		return fmt.Errorf("lifecycle: decode phase: %w", err)
	}
	if p > Paused {
		return fmt.Errorf("lifecycle: unknown phase code %d", p)
	}
	m.phase = p
	return nil
}

// Dump implements journal.State.
func (m *Machine) Dump() ([]journal.Change, error) {
	c, err := journal.Marshal(KindPhase, "", m.phase)
	if err != nil {
		return nil, err
	}
	return []journal.Change{c}, nil
}
