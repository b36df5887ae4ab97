package methodfacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/internal/collect"
	"github.com/715d/methodfacts/pkg/classfile"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	// Libraries are consulted for hierarchy questions but not analysed.
	Libraries []*classfile.Class

	// NoCoreStubs leaves the embedded core library stubs out of the
	// class repository.
	NoCoreStubs bool
}

// Analyzer owns the fact store for a run and drives both collection passes.
type Analyzer struct {
	store     *analysis.Store
	nameCache *analysis.NameCache
	positions map[analysis.MethodID]position
	opts      AnalyzerOptions
}

type position struct {
	file string
	line int
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	return &Analyzer{
		store:     analysis.NewStore(),
		nameCache: analysis.NewNameCache(),
		positions: make(map[analysis.MethodID]position),
		opts:      opts,
	}
}

// Store returns the fact store filled by the last Analyze call.
func (a *Analyzer) Store() *analysis.Store {
	return a.store
}

// Analyze clears the store and runs Pass 1 with its closure over every
// class, then Pass 2 over every class. Facts of one run never leak into
// the next.
func (a *Analyzer) Analyze(ctx context.Context, classes []*classfile.Class) (Stats, error) {
	var stats Stats
	if len(classes) == 0 {
		return stats, errors.New("no classes provided")
	}
	start := time.Now()
	a.store.Clear()
	clear(a.positions)

	lists := [][]*classfile.Class{classes, a.opts.Libraries}
	if !a.opts.NoCoreStubs {
		stubs, err := classfile.CoreStubs()
		if err != nil {
			return stats, fmt.Errorf("loading core stubs: %w", err)
		}
		lists = append(lists, stubs)
	}
	repo := classfile.NewRepository(lists...)
	slog.Info("class repository ready", "classes", repo.Len())

	pass1 := collect.NewCollector(a.store, repo)
	for _, cls := range classes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		passes := collect.Close(a.store, pass1.VisitClass(cls))
		stats.ClosurePasses += passes
		stats.MaxPasses = max(stats.MaxPasses, passes)
		stats.Classes++
		for _, m := range cls.Methods {
			stats.Methods++
			if m.DecodeErr != nil {
				stats.Undecodable++
			}
			a.positions[analysis.IDOf(cls.Name, m)] = position{file: cls.Source, line: m.Lines.LineAt(0)}
		}
	}
	slog.Info("pass 1 completed", "classes", stats.Classes, "closure_passes", stats.ClosurePasses)

	// Pass 2 starts only after every class has been through Pass 1.
	pass2 := collect.NewImmutabilityCollector(a.store, repo)
	for _, cls := range classes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		pass2.VisitClass(cls)
	}

	stats.Facts = a.store.Len()
	stats.Duration = time.Since(start)
	slog.Info("pass 2 completed", "facts", stats.Facts, "dur", stats.Duration)
	return stats, nil
}

// Rows lists the analysed methods in identity order. Unless all is set,
// only methods with interesting facts are listed.
func (a *Analyzer) Rows(all bool) []MethodRow {
	var rows []MethodRow
	for _, e := range a.store.Snapshot() {
		f := e.Facts
		if !f.Analysed || (!all && !f.Interesting()) {
			continue
		}
		pos := a.positions[e.ID]
		rows = append(rows, MethodRow{
			Name:          a.nameCache.ComputeMethodName(e.ID),
			ID:            e.ID.String(),
			File:          pos.file,
			Line:          max(pos.line, 0),
			NumBytes:      f.NumBytes,
			NumCalls:      f.NumCalls,
			Exposure:      f.Exposure,
			ModifiesState: f.ModifiesState,
			Immutability:  f.Immutability,
			Derived:       f.Derived,
			Shape:         shapeOf(&f),
		})
	}
	return rows
}

func shapeOf(f *analysis.MethodFacts) string {
	switch {
	case f.IsEquals:
		return "equals"
	case f.IsHashCode:
		return "hashCode"
	case f.IsToString:
		return "toString"
	}
	return ""
}
