// Package harness runs the analyzer over fixture archives and checks the
// recorded facts against their expectations.
package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/pkg/methodfacts"
)

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// ConfigurationResult represents the result of running a single configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration Configuration

	// Stats are the analyzer's run statistics.
	Stats methodfacts.Stats

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures for this configuration.
	Details []string
}

// TestResult represents the result of running a fixture.
type TestResult struct {
	TestCase             *TestCase
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool
	Skipped bool
	Message string
}

// Run executes a fixture with all its configurations.
func (h *TestHarness) Run(t *testing.T, fx *Fixture) *TestResult {
	t.Helper()
	tc := fx.Case
	if tc.Skip {
		return &TestResult{TestCase: tc, Skipped: true, Message: tc.Reason}
	}

	var results []ConfigurationResult
	allSuccess := true
	for _, cfg := range tc.Configurations {
		cr := h.runConfiguration(t, fx, cfg)
		results = append(results, *cr)
		if !cr.Success {
			allSuccess = false
		}
	}

	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n  ")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

func (h *TestHarness) runConfiguration(t *testing.T, fx *Fixture, cfg Configuration) *ConfigurationResult {
	t.Helper()
	opts := methodfacts.AnalyzerOptions{NoCoreStubs: cfg.NoCoreStubs}
	if !cfg.WithoutLibraries {
		opts.Libraries = fx.Libraries
	}

	analyzer := methodfacts.NewAnalyzer(opts)
	stats, err := analyzer.Analyze(t.Context(), fx.Classes)
	if err != nil {
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				return &ConfigurationResult{
					Configuration: cfg,
					Success:       true,
					Message:       fmt.Sprintf("Got expected error: %v", err),
				}
			}
		}
		require.NoError(t, err)
	}
	return validateConfiguration(cfg, stats, analyzer.Store())
}

// validateConfiguration compares the store contents with the configuration's
// expectations.
func validateConfiguration(cfg Configuration, stats methodfacts.Stats, store *analysis.Store) *ConfigurationResult {
	cr := &ConfigurationResult{Configuration: cfg, Stats: stats, Success: true}
	fail := func(format string, args ...any) {
		cr.Success = false
		cr.Details = append(cr.Details, fmt.Sprintf(format, args...))
	}

	listed := make(map[analysis.MethodID]bool, len(cfg.Methods))
	for i, exp := range cfg.Methods {
		id, err := ParseMethodID(exp.Method)
		if err != nil {
			fail("expected method at index %d: %v", i, err)
			continue
		}
		listed[id] = true
		f, ok := store.Lookup(id)
		if !ok || !f.Analysed {
			fail("%s: not analysed", exp.Method)
			continue
		}
		if diff := cmp.Diff(exp, observe(exp, f)); diff != "" {
			fail("%s: facts mismatch (-want +got):\n%s", exp.Method, diff)
		}
	}

	if cfg.Exhaustive {
		var unexpected []string
		for _, e := range store.Snapshot() {
			if e.Facts.Analysed && e.Facts.Interesting() && !listed[e.ID] {
				unexpected = append(unexpected, e.ID.String())
			}
		}
		sort.Strings(unexpected)
		for _, u := range unexpected {
			fail("unexpected notable facts: %s", u)
		}
	}

	if cfg.MaxClosurePasses != nil && stats.MaxPasses > *cfg.MaxClosurePasses {
		fail("closure took %d passes, want at most %d", stats.MaxPasses, *cfg.MaxClosurePasses)
	}

	if cr.Success {
		cr.Message = fmt.Sprintf("All %d expected methods matched", len(cfg.Methods))
	} else {
		cr.Message = fmt.Sprintf("Test failed: %d problems", len(cr.Details))
	}
	return cr
}

// observe projects f onto the fields set in exp so the two can be diffed.
func observe(exp ExpectedMethod, f *analysis.MethodFacts) ExpectedMethod {
	got := ExpectedMethod{Method: exp.Method}
	if exp.NumBytes != nil {
		got.NumBytes = &f.NumBytes
	}
	if exp.NumCalls != nil {
		n := int(f.NumCalls)
		got.NumCalls = &n
	}
	if exp.Exposure != nil {
		got.Exposure = &f.Exposure
	}
	if exp.ModifiesState != nil {
		got.ModifiesState = &f.ModifiesState
	}
	if exp.Immutability != nil {
		got.Immutability = &f.Immutability
	}
	if exp.Derived != nil {
		got.Derived = &f.Derived
	}
	return got
}

// ParseMethodID parses an identity written as owner.name(descriptor).
func ParseMethodID(s string) (analysis.MethodID, error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return analysis.MethodID{}, fmt.Errorf("%q: missing descriptor", s)
	}
	dot := strings.LastIndexByte(s[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return analysis.MethodID{}, fmt.Errorf("%q: want owner.name(descriptor)", s)
	}
	return analysis.MethodID{Owner: s[:dot], Name: s[dot+1 : paren], Descriptor: s[paren:]}, nil
}
