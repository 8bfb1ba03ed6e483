// Package scope maps an acting user onto the set of stores they may read or write.
//
// Resolve is pure: callers load a fresh Hierarchy for every request and must
// intersect every store-bound query with the returned set.
package scope

import (
	"errors"
	"sort"
)

// ErrAccessDenied is returned when a store lies outside the caller's scope.
var ErrAccessDenied = errors.New("access denied")

// Role 조직 권한
type Role string

const (
	RoleHeadquarters Role = "headquarters"
	RoleBranch       Role = "branch"
	RoleStore        Role = "store"
)

// Principal is the acting user as stored server-side.
type Principal struct {
	UserID   uint
	Role     Role
	BranchID *uint
	StoreID  *uint
}

// StoreNode is one store of the org tree. BranchID 0 means the affiliation is unknown.
type StoreNode struct {
	ID       uint
	BranchID uint
}

// Hierarchy is a per-request snapshot of branches and stores.
type Hierarchy struct {
	BranchIDs []uint
	Stores    []StoreNode
}

func (h Hierarchy) hasBranch(id uint) bool {
	for _, b := range h.BranchIDs {
		if b == id {
			return true
		}
	}
	return false
}

// Resolve returns the stores p is authorized for. Unknown roles and unverifiable
// bindings resolve to the empty set.
func Resolve(p Principal, h Hierarchy) StoreSet {
	set := StoreSet{}

	switch p.Role {
	case RoleHeadquarters:
		for _, s := range h.Stores {
			set[s.ID] = struct{}{}
		}

	case RoleBranch:
		if p.BranchID == nil || *p.BranchID == 0 || !h.hasBranch(*p.BranchID) {
			return set
		}
		for _, s := range h.Stores {
			if s.BranchID != 0 && s.BranchID == *p.BranchID {
				set[s.ID] = struct{}{}
			}
		}

	case RoleStore:
		if p.StoreID == nil || *p.StoreID == 0 {
			return set
		}
		// only the store binding counts; the account's branch may lag a reassignment
		for _, s := range h.Stores {
			if s.ID == *p.StoreID {
				set[s.ID] = struct{}{}
			}
		}
	}

	return set
}

// StoreSet is a set of authorized store IDs.
type StoreSet map[uint]struct{}

// NewStoreSet builds a set from ids.
func NewStoreSet(ids ...uint) StoreSet {
	set := make(StoreSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s StoreSet) Contains(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s StoreSet) IsEmpty() bool {
	return len(s) == 0
}

// IDs returns the members in ascending order.
func (s StoreSet) IDs() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Authorize returns ErrAccessDenied unless id is a member.
func (s StoreSet) Authorize(id uint) error {
	if !s.Contains(id) {
		return ErrAccessDenied
	}
	return nil
}

// Intersect keeps only the candidates that are members, preserving their order.
func (s StoreSet) Intersect(candidates []uint) []uint {
	out := make([]uint, 0, len(candidates))
	for _, id := range candidates {
		if s.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}
