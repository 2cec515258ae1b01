// Package account is the ledger core: per-account free and locked
// balances, the total supply, and the mint, burn, transfer and release
// primitives. Authorization is the caller's job; the book only enforces
// arithmetic and the conservation invariant
//
//	supply == Σ (free + locked)
package account

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/types"
)

// Errors returned by the book.
var (
	ErrInsufficientBalance = errors.New("account: insufficient balance")
	ErrOverflow            = errors.New("account: balance overflow")
	ErrZeroAddress         = errors.New("account: zero address")
	ErrConservation        = errors.New("account: supply does not match balances")
)

// Account is one holder's position. A never-used address reads as the
// zero Account with only Address set.
type Account struct {
	Address common.Address `json:"address"`
	Free    types.Amount   `json:"free"`
	Locked  types.Amount   `json:"locked"`

	// Purchased is the part of the balance bought through the sale that
	// a refusal would reverse.
	Purchased types.Amount `json:"purchased"`
	// Paid is the native currency this account has paid in.
	Paid types.Amount `json:"paid"`

	KYC kyc.Status `json:"kyc"`

	types.Entity
}

// Balance returns free plus locked units. Both are bounded by the supply,
// so the sum cannot overflow.
func (a Account) Balance() types.Amount {
	total, _ := a.Free.Add(a.Locked) //nolint:errcheck // bounded by supply
	return total
}

// IsZero reports whether the account holds nothing and was never verified.
func (a Account) IsZero() bool {
	return a.Free.IsZero() && a.Locked.IsZero() && a.Purchased.IsZero() &&
		a.Paid.IsZero() && a.KYC == kyc.Unverified
}
