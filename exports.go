package issuance

import (
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Cents is re-exported from types package.
type Cents = types.Cents

// Phase is re-exported from lifecycle package.
type Phase = lifecycle.Phase

// Re-export Amount constructors
var (
	NewAmount   = types.NewAmount
	Whole       = types.Whole
	ParseAmount = types.ParseAmount
	ParseCents  = types.ParseCents
	Sum         = types.Sum
)

// Campaign phases.
const (
	Fundraising = lifecycle.Fundraising
	Finalized   = lifecycle.Finalized
	Paused      = lifecycle.Paused
)
