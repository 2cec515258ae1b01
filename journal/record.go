package journal

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/types"
)

// RecordKind names an observable event.
type RecordKind string

// Record kinds.
const (
	RecordTransfer         RecordKind = "transfer"
	RecordPurchase         RecordKind = "purchase"
	RecordDelivery         RecordKind = "delivery"
	RecordDeliveryCanceled RecordKind = "delivery.canceled"
	RecordKYCApproved      RecordKind = "kyc.approved"
	RecordKYCRefused       RecordKind = "kyc.refused"
	RecordCustodyMoved     RecordKind = "custody.moved"
	RecordCustodyReturned  RecordKind = "custody.returned"
	RecordLockedReleased   RecordKind = "locked.released"
	RecordRateUpdated      RecordKind = "rate.updated"
	RecordRequestPending   RecordKind = "request.pending"
	RecordRequestExecuted  RecordKind = "request.executed"
	RecordPhaseChanged     RecordKind = "phase.changed"
	RecordSaleToggled      RecordKind = "sale.toggled"
	RecordWithdrawal       RecordKind = "withdrawal"
	RecordMembership       RecordKind = "membership"
)

// Record is an event emitted by a committed operation.
//
// Account is the subject of the event. Counterparty is the other side:
// the transfer recipient, the vendor, the officer or the fund. Mints use
// the zero address as sender and burns use it as recipient.
type Record struct {
	Kind         RecordKind        `json:"kind"`
	Account      common.Address    `json:"account"`
	Counterparty common.Address    `json:"counterparty"`
	Amount       types.Amount      `json:"amount"`
	Locked       types.Amount      `json:"locked"`
	Native       types.Amount      `json:"native"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// Attr returns the named attribute or "".
func (r Record) Attr(name string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[name]
}

// Common attribute names.
const (
	AttrReference = "reference"
	AttrOperation = "operation"
	AttrRequestID = "request_id"
	AttrTier      = "tier"
	AttrRate      = "rate_cents"
	AttrFrom      = "from"
	AttrTo        = "to"
	AttrRole      = "role"
	AttrMember    = "member"
	AttrEnabled   = "enabled"
	AttrFeedID    = "feed_request_id"
)
