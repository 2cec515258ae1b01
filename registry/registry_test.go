package registry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/registry"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestAddRemove(t *testing.T) {
	r := registry.New()
	tx := journal.Begin(time.Now())

	added, err := r.Add(tx, registry.Vendor, alice)
	if err != nil || !added {
		t.Fatalf("add: %v %v", added, err)
	}
	if !r.Has(registry.Vendor, alice) {
		t.Fatal("alice should be a vendor")
	}
	if r.Has(registry.KYCOfficer, alice) || r.Has(registry.Fund, alice) {
		t.Error("roles must be independent")
	}

	added, _ = r.Add(tx, registry.Vendor, alice)
	if added {
		t.Error("second add should report false")
	}

	removed, err := r.Remove(tx, registry.Vendor, alice)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	removed, _ = r.Remove(tx, registry.Vendor, alice)
	if removed {
		t.Error("second remove should report false")
	}
	if len(tx.Changes()) != 2 || len(tx.Records()) != 2 {
		t.Errorf("expected 2 changes and records, got %d and %d", len(tx.Changes()), len(tx.Records()))
	}
}

func TestUnknownRole(t *testing.T) {
	r := registry.New()
	tx := journal.Begin(time.Now())
	if _, err := r.Add(tx, registry.Role("admin"), alice); !errors.Is(err, registry.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
	if err := r.Seed(registry.Role(""), alice); !errors.Is(err, registry.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRollback(t *testing.T) {
	r := registry.New()
	if err := r.Seed(registry.Fund, bob); err != nil {
		t.Fatal(err)
	}

	tx := journal.Begin(time.Now())
	_, _ = r.Add(tx, registry.Fund, alice)
	_, _ = r.Remove(tx, registry.Fund, bob)
	tx.Rollback()

	if r.Has(registry.Fund, alice) || !r.Has(registry.Fund, bob) {
		t.Errorf("rollback did not restore memberships: %v", r.Members(registry.Fund))
	}
}

func TestReplayAndDump(t *testing.T) {
	r := registry.New()
	tx := journal.Begin(time.Now())
	_, _ = r.Add(tx, registry.KYCOfficer, alice)
	_, _ = r.Add(tx, registry.KYCOfficer, bob)
	_, _ = r.Remove(tx, registry.KYCOfficer, alice)
	tx.Commit()

	replayed := registry.New()
	for _, c := range tx.Changes() {
		if err := replayed.Apply(c); err != nil {
			t.Fatal(err)
		}
	}
	got := replayed.Members(registry.KYCOfficer)
	if len(got) != 1 || got[0] != bob {
		t.Errorf("unexpected members %v", got)
	}

	dump, err := r.Dump()
	if err != nil {
		t.Fatal(err)
	}
	fromDump := registry.New()
	for _, c := range dump {
		if err := fromDump.Apply(c); err != nil {
			t.Fatal(err)
		}
	}
	if !fromDump.Has(registry.KYCOfficer, bob) || fromDump.Has(registry.KYCOfficer, alice) {
		t.Error("dump does not rebuild state")
	}
}

func TestApplyRejectsMalformedKey(t *testing.T) {
	r := registry.New()
	err := r.Apply(journal.Change{Kind: registry.KindMember, Key: "vendor:nothex", Value: []byte("true")})
	if err == nil {
		t.Error("expected error")
	}
}
