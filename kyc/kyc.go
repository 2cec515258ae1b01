// Package kyc implements identity-verification status and the transfer
// authorization rule built on it.
//
//	Unverified ──approve──▶ Approved
//	     │                     │
//	     └──────refuse─────────┴──▶ Refused (terminal)
//
// Only the sender of a transfer is checked. Unverified accounts may
// receive purchases, deliveries and transfers but cannot move balance on.
package kyc

import (
	"errors"
	"fmt"

	"github.com/xraph/issuance/types"
)

// Status is an account's verification status.
type Status uint8

// Statuses.
const (
	Unverified Status = iota
	Approved
	Refused
)

// Errors returned by the policy functions.
var (
	ErrSenderNotVerified = errors.New("kyc: sender not verified")
	ErrInvalidTransition = errors.New("kyc: invalid status transition")
	ErrRefused           = errors.New("kyc: account refused")
)

var statusNames = [...]string{
	Unverified: "unverified",
	Approved:   "approved",
	Refused:    "refused",
}

// String returns the lower-case status name.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus parses a status name.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return Unverified, fmt.Errorf("kyc: unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(data []byte) error {
	parsed, err := ParseStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Transition validates moving from one status to another. Approving an
// already approved account is allowed and changes nothing.
func Transition(from, to Status) error {
	switch {
	case from == Refused:
		return fmt.Errorf("%w: account already refused", ErrInvalidTransition)
	case to == Approved, to == Refused:
		return nil
	default:
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
}

// CanSend reports whether an account with status s may originate a
// transfer.
func CanSend(s Status) error {
	if s != Approved {
		return fmt.Errorf("%w: status %s", ErrSenderNotVerified, s)
	}
	return nil
}

// CanBuy reports whether an account with status s may purchase.
func CanBuy(s Status) error {
	if s == Refused {
		return ErrRefused
	}
	return nil
}

// RefusalBurn returns how much of a refused account's free balance is
// reversed: the units still attributable to purchase, bounded by what is
// actually free. Units already moved on or into custody cannot be burned.
func RefusalBurn(purchased, free types.Amount) types.Amount {
	return types.Min(purchased, free)
}
