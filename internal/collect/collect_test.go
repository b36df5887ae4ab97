package collect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/pkg/classfile"
)

func load(t *testing.T, feed string) ([]*classfile.Class, *classfile.Repository) {
	t.Helper()
	classes, err := classfile.DecodeFeed(strings.NewReader(feed), "test.yaml")
	require.NoError(t, err)
	stubs, err := classfile.CoreStubs()
	require.NoError(t, err)
	return classes, classfile.NewRepository(classes, stubs)
}

// analyse runs Pass 1 and the closure for every class, then Pass 2, and
// returns the store and the number of closure passes per class.
func analyse(t *testing.T, feed string) (*analysis.Store, map[string]int) {
	t.Helper()
	classes, repo := load(t, feed)
	store := analysis.NewStore()
	passes := make(map[string]int)

	p1 := NewCollector(store, repo)
	for _, cls := range classes {
		passes[cls.Name] = Close(store, p1.VisitClass(cls))
	}
	p2 := NewImmutabilityCollector(store, repo)
	for _, cls := range classes {
		p2.VisitClass(cls)
	}
	return store, passes
}

func id(owner, name, desc string) analysis.MethodID {
	return analysis.MethodID{Owner: owner, Name: name, Descriptor: desc}
}
