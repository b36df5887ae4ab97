package analysis

import (
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/715d/methodfacts/pkg/classfile"
)

// Store maps method identities to their facts for the duration of one run.
// Entries are created on first touch and updated in place; only Clear
// removes them. Per-identity access is safe for concurrent use, but a
// MethodFacts value returned by GetOrCreate must not be mutated from more
// than one goroutine.
type Store struct {
	facts *xsync.Map[MethodID, *MethodFacts]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{facts: xsync.NewMap[MethodID, *MethodFacts]()}
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.facts.Clear()
}

// GetOrCreate returns the facts for id, inserting an empty record if absent.
func (s *Store) GetOrCreate(id MethodID) *MethodFacts {
	if f, ok := s.facts.Load(id); ok {
		return f
	}
	f, _ := s.facts.LoadOrStore(id, &MethodFacts{})
	return f
}

// Get returns a copy of the facts for id. A method the run never touched
// reads as the zero record: unknown immutability, no mutation, no exposure.
func (s *Store) Get(id MethodID) MethodFacts {
	if f, ok := s.facts.Load(id); ok {
		return *f
	}
	return MethodFacts{}
}

// Lookup returns the stored record for id without creating one.
func (s *Store) Lookup(id MethodID) (*MethodFacts, bool) {
	return s.facts.Load(id)
}

// RecordCallSite notes that id is called from a method with the given access.
func (s *Store) RecordCallSite(id MethodID, callerAccess classfile.AccessFlags) {
	s.GetOrCreate(id).Expose(ExposureFor(callerAccess))
}

// SetImmutability stores a Pass 2 result. Only Immutable and
// PossiblyImmutable are kept; other values leave the record untouched.
func (s *Store) SetImmutability(id MethodID, value Immutability) {
	if !value.Positive() {
		return
	}
	s.GetOrCreate(id).Immutability = value
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return s.facts.Size()
}

// Entry is one row of a store snapshot.
type Entry struct {
	ID    MethodID
	Facts MethodFacts
}

// Snapshot returns a copy of every entry ordered by identity.
func (s *Store) Snapshot() []Entry {
	entries := make([]Entry, 0, s.facts.Size())
	s.facts.Range(func(id MethodID, f *MethodFacts) bool {
		entries = append(entries, Entry{ID: id, Facts: *f})
		return true
	})
	slices.SortFunc(entries, func(a, b Entry) int { return a.ID.Compare(b.ID) })
	return entries
}
