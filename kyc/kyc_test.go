package kyc_test

import (
	"errors"
	"testing"

	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/types"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to kyc.Status
		wantErr  bool
	}{
		{kyc.Unverified, kyc.Approved, false},
		{kyc.Approved, kyc.Approved, false},
		{kyc.Unverified, kyc.Refused, false},
		{kyc.Approved, kyc.Refused, false},
		{kyc.Refused, kyc.Approved, true},
		{kyc.Refused, kyc.Refused, true},
		{kyc.Approved, kyc.Unverified, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			err := kyc.Transition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, kyc.ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestCanSend(t *testing.T) {
	for _, s := range []kyc.Status{kyc.Unverified, kyc.Refused} {
		if err := kyc.CanSend(s); !errors.Is(err, kyc.ErrSenderNotVerified) {
			t.Errorf("%s: expected ErrSenderNotVerified, got %v", s, err)
		}
	}
	if err := kyc.CanSend(kyc.Approved); err != nil {
		t.Errorf("approved: unexpected %v", err)
	}
}

func TestCanBuy(t *testing.T) {
	if err := kyc.CanBuy(kyc.Unverified); err != nil {
		t.Errorf("unverified: unexpected %v", err)
	}
	if err := kyc.CanBuy(kyc.Refused); !errors.Is(err, kyc.ErrRefused) {
		t.Errorf("refused: expected ErrRefused, got %v", err)
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range []kyc.Status{kyc.Unverified, kyc.Approved, kyc.Refused} {
		data, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back kyc.Status
		if err := back.UnmarshalText(data); err != nil {
			t.Fatal(err)
		}
		if back != s {
			t.Errorf("round trip: got %s, want %s", back, s)
		}
	}
	var s kyc.Status
	if err := s.UnmarshalText([]byte("pending")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestRefusalBurn(t *testing.T) {
	// 50 bought, 30 still free after moving some on.
	if got := kyc.RefusalBurn(types.NewAmount(50), types.NewAmount(30)); !got.Equal(types.NewAmount(30)) {
		t.Errorf("got %s, want 30", got)
	}
	if got := kyc.RefusalBurn(types.NewAmount(50), types.NewAmount(80)); !got.Equal(types.NewAmount(50)) {
		t.Errorf("got %s, want 50", got)
	}
}
