package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/pkg/classfile"
)

var (
	idA = MethodID{"p/K", "a", "()V"}
	idB = MethodID{"p/K", "b", "()V"}
	idC = MethodID{"p/J", "c", "(I)Ljava/util/List;"}
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()
	f := s.GetOrCreate(idA)
	f.NumBytes = 12
	require.Same(t, f, s.GetOrCreate(idA))
	require.Equal(t, 12, s.Get(idA).NumBytes)
	require.Equal(t, 1, s.Len())
}

func TestStoreGetMissIsSentinel(t *testing.T) {
	s := NewStore()
	got := s.Get(idB)
	assert.Equal(t, MethodFacts{}, got)
	assert.Equal(t, Unknown, got.Immutability)
	assert.False(t, got.ModifiesState)
	assert.Equal(t, Exposure(0), got.Exposure)

	_, ok := s.Lookup(idB)
	assert.False(t, ok)
	assert.Zero(t, s.Len(), "Get must not insert")
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.GetOrCreate(idA).MarkModifiesState()
	s.GetOrCreate(idB)
	s.Clear()
	require.Zero(t, s.Len())
	require.False(t, s.Get(idA).ModifiesState)
}

func TestRecordCallSite(t *testing.T) {
	tests := []struct {
		name   string
		access classfile.AccessFlags
		want   Exposure
	}{
		{"public", classfile.AccPublic | classfile.AccStatic, ExposedPublic},
		{"protected", classfile.AccProtected, ExposedProtected},
		{"private", classfile.AccPrivate | classfile.AccFinal, ExposedPrivate},
		{"package", classfile.AccStatic, ExposedPackage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.RecordCallSite(idC, tt.access)
			require.Equal(t, tt.want, s.Get(idC).Exposure)
		})
	}

	s := NewStore()
	s.RecordCallSite(idC, classfile.AccPublic)
	s.RecordCallSite(idC, classfile.AccPrivate)
	s.RecordCallSite(idC, classfile.AccPrivate)
	require.Equal(t, ExposedPublic|ExposedPrivate, s.Get(idC).Exposure)
}

func TestSetImmutabilityKeepsPositiveResults(t *testing.T) {
	s := NewStore()
	s.SetImmutability(idA, Mutable)
	s.SetImmutability(idB, Unknown)
	require.Zero(t, s.Len())

	s.SetImmutability(idC, PossiblyImmutable)
	require.Equal(t, PossiblyImmutable, s.Get(idC).Immutability)
	s.SetImmutability(idC, Mutable)
	require.Equal(t, PossiblyImmutable, s.Get(idC).Immutability)
}

func TestModifiesStateIsMonotonic(t *testing.T) {
	var f MethodFacts
	require.True(t, f.MarkModifiesState())
	require.False(t, f.MarkModifiesState())
	require.True(t, f.ModifiesState)
}

func TestSetNumCallsSaturates(t *testing.T) {
	var f MethodFacts
	for _, tt := range []struct {
		n    int
		want uint8
	}{{0, 0}, {7, 7}, {255, 255}, {256, 255}, {100000, 255}, {-1, 0}} {
		f.SetNumCalls(tt.n)
		require.Equal(t, tt.want, f.NumCalls, "n=%d", tt.n)
	}
}

func TestSnapshotIsSorted(t *testing.T) {
	s := NewStore()
	s.GetOrCreate(idB).NumBytes = 2
	s.GetOrCreate(idC).Derived = true
	s.GetOrCreate(idA).NumBytes = 1

	want := []Entry{
		{ID: idC, Facts: MethodFacts{Derived: true}},
		{ID: idA, Facts: MethodFacts{NumBytes: 1}},
		{ID: idB, Facts: MethodFacts{NumBytes: 2}},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestMethodIDString(t *testing.T) {
	require.Equal(t, "p/J.c(I)Ljava/util/List;", idC.String())
}
