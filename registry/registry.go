// Package registry holds the three membership sets consulted by the
// ledger: vendors, KYC officers and custody funds. Membership is a flat
// capability check. Changes are journaled and, at the engine level,
// always go through the dual-control gate.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/journal"
)

// KindMember is the change kind for memberships, keyed "<role>/<address>".
const KindMember journal.Kind = "member"

// ErrUnknownRole is returned for a role outside Vendor, KYCOfficer and Fund.
var ErrUnknownRole = errors.New("registry: unknown role")

// Role selects one of the sets.
type Role string

// Roles.
const (
	Vendor     Role = "vendor"
	KYCOfficer Role = "kyc"
	Fund       Role = "fund"
)

// Roles lists every role in a stable order.
func Roles() []Role { return []Role{Vendor, KYCOfficer, Fund} }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return slices.Contains(Roles(), r) }

var _ journal.State = (*Registry)(nil)

// Registry is the set of memberships for every role.
type Registry struct {
	sets map[Role]map[common.Address]struct{}
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{sets: make(map[Role]map[common.Address]struct{}, 3)}
	for _, role := range Roles() {
		r.sets[role] = make(map[common.Address]struct{})
	}
	return r
}

// Seed adds members without journaling. It is used for construction
// parameters, which are rebuilt from configuration rather than replayed.
func (r *Registry) Seed(role Role, members ...common.Address) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	for _, m := range members {
		r.sets[role][m] = struct{}{}
	}
	return nil
}

// Has reports whether addr is a member of role.
func (r *Registry) Has(role Role, addr common.Address) bool {
	_, ok := r.sets[role][addr]
	return ok
}

// Members returns the members of role ordered by address.
func (r *Registry) Members(role Role) []common.Address {
	out := make([]common.Address, 0, len(r.sets[role]))
	for m := range r.sets[role] {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b common.Address) int { return bytes.Compare(a[:], b[:]) })
	return out
}

// Add makes addr a member of role. Adding an existing member changes
// nothing and reports false.
func (r *Registry) Add(tx *journal.Txn, role Role, addr common.Address) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if r.Has(role, addr) {
		return false, nil
	}
	r.sets[role][addr] = struct{}{}
	if err := tx.Write(KindMember, key(role, addr), true, func() { delete(r.sets[role], addr) }); err != nil {
		return false, err
	}
	r.emit(tx, role, addr, true)
	return true, nil
}

// Remove drops addr from role. Removing a non-member reports false.
func (r *Registry) Remove(tx *journal.Txn, role Role, addr common.Address) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if !r.Has(role, addr) {
		return false, nil
	}
	delete(r.sets[role], addr)
	tx.Delete(KindMember, key(role, addr), func() { r.sets[role][addr] = struct{}{} })
	r.emit(tx, role, addr, false)
	return true, nil
}

func (r *Registry) emit(tx *journal.Txn, role Role, addr common.Address, member bool) {
	tx.Emit(journal.Record{
		Kind:    journal.RecordMembership,
		Account: addr,
		Attrs: map[string]string{
			journal.AttrRole:   string(role),
			journal.AttrMember: fmt.Sprint(member),
		},
	})
}

func key(role Role, addr common.Address) string {
	return string(role) + "/" + addr.Hex()
}

func parseKey(k string) (Role, common.Address, error) {
	role, hex, ok := strings.Cut(k, "/")
	if !ok || !Role(role).Valid() || !common.IsHexAddress(hex) {
		return "", common.Address{}, fmt.Errorf("registry: malformed key %q", k)
	}
	return Role(role), common.HexToAddress(hex), nil
}

// Kinds implements journal.State.
func (r *Registry) Kinds() []journal.Kind { return []journal.Kind{KindMember} }

// Apply implements journal.State.
func (r *Registry) Apply(c journal.Change) error {
	if c.Kind != KindMember {
		return fmt.Errorf("registry: unknown change kind %q", c.Kind)
	}
	role, addr, err := parseKey(c.Key)
	if err != nil {
		return err
	}
	if c.IsDelete() {
		delete(r.sets[role], addr)
		return nil
	}
	var member bool
	if err := json.Unmarshal(c.Value, &member); err != nil {
		return fmt.Errorf("registry: decode %s: %w", c.Key, err)
	}
	if member {
		r.sets[role][addr] = struct{}{}
	} else {
		delete(r.sets[role], addr)
	}
	return nil
}

// Dump implements journal.State.
func (r *Registry) Dump() ([]journal.Change, error) {
	var out []journal.Change
	for _, role := range Roles() {
		for _, m := range r.Members(role) {
			c, err := journal.Marshal(KindMember, key(role, m), true)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}
