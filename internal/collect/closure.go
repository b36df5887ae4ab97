package collect

import (
	"slices"

	"github.com/715d/methodfacts/internal/analysis"
)

// EdgeClass is the outcome of looking at one self-call edge.
type EdgeClass int

const (
	// ResolvedClean means the callee is known and does not modify state
	// yet; the edge has to be looked at again if that changes.
	ResolvedClean EdgeClass = iota
	// ResolvedMutates means the callee is known to modify state.
	ResolvedMutates
	// AssumeMutates means the callee cannot be resolved, has no code the
	// analysis could read, or the call dispatches into a supertype. The
	// callee is assumed to modify state.
	AssumeMutates
)

func (c EdgeClass) String() string {
	switch c {
	case ResolvedClean:
		return "resolved-clean"
	case ResolvedMutates:
		return "resolved-mutates"
	case AssumeMutates:
		return "assume-mutates"
	}
	return "unknown"
}

// ClassifyEdge decides what an edge says about its caller.
func ClassifyEdge(store *analysis.Store, e SelfCallEdge) EdgeClass {
	if e.Super {
		return AssumeMutates
	}
	f, ok := store.Lookup(e.Callee)
	if !ok || !f.Analysed || !f.HasBody {
		return AssumeMutates
	}
	if f.ModifiesState {
		return ResolvedMutates
	}
	return ResolvedClean
}

// Close marks callers that reach a state-modifying method through self
// calls. Each pass drops edges whose caller is already marked, marks the
// caller of every edge that resolves to a mutating or unknown callee and
// keeps the rest for the next pass. It stops after a pass that changes
// nothing and returns the number of passes, which is at most the number
// of distinct callers plus one.
func Close(store *analysis.Store, edges []SelfCallEdge) int {
	pending := slices.Clone(edges)
	passes := 0
	for {
		passes++
		changed := false
		kept := pending[:0]
		for _, e := range pending {
			caller := store.GetOrCreate(e.Caller)
			if caller.ModifiesState {
				continue
			}
			switch ClassifyEdge(store, e) {
			case ResolvedMutates, AssumeMutates:
				changed = caller.MarkModifiesState() || changed
			default:
				kept = append(kept, e)
			}
		}
		pending = kept
		if !changed {
			return passes
		}
	}
}
