package harness

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/pkg/methodfacts"
)

// TestAll runs every fixture under testdata.
func TestAll(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "get current file path")

	testdataDir := filepath.Join(filepath.Dir(filename), "..", "..", "testdata")
	fixtures := discoverFixtures(t, testdataDir)
	require.NotEmpty(t, fixtures, "no fixtures found")

	if testing.Verbose() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	for _, fx := range fixtures {
		t.Run(fx.Case.Name, func(t *testing.T) {
			t.Parallel()

			result := NewHarness(testdataDir).Run(t, fx)
			if result.Skipped {
				t.Skipf("Test skipped: %s", result.Message)
				return
			}
			if !result.Success {
				t.Errorf("Test failed: %s", result.Message)
			}
		})
	}
}

func discoverFixtures(t *testing.T, root string) []*Fixture {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(root, "*.txtar"))
	require.NoError(t, err)

	fixtures := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		fixtures = append(fixtures, LoadFixture(t, p, root))
	}
	return fixtures
}

func TestParseMethodID(t *testing.T) {
	tests := []struct {
		in      string
		want    analysis.MethodID
		wantErr bool
	}{
		{in: "p/K.c()V", want: analysis.MethodID{Owner: "p/K", Name: "c", Descriptor: "()V"}},
		{in: "p/Outer$1.<init>(Lp/Outer;)V", want: analysis.MethodID{Owner: "p/Outer$1", Name: "<init>", Descriptor: "(Lp/Outer;)V"}},
		{in: "p/K.c", wantErr: true},
		{in: ".c()V", wantErr: true},
		{in: "p/K.()V", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethodID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValidateConfiguration(t *testing.T) {
	store := analysis.NewStore()
	a := store.GetOrCreate(analysis.MethodID{Owner: "p/K", Name: "a", Descriptor: "()V"})
	a.Analysed = true
	a.MarkModifiesState()
	b := store.GetOrCreate(analysis.MethodID{Owner: "p/K", Name: "b", Descriptor: "()V"})
	b.Analysed = true
	b.MarkModifiesState()
	store.GetOrCreate(analysis.MethodID{Owner: "p/K", Name: "ghost", Descriptor: "()V"})

	yes, no := true, false
	one := 1

	cr := validateConfiguration(Configuration{
		Methods: []ExpectedMethod{{Method: "p/K.a()V", ModifiesState: &yes}},
	}, methodfacts.Stats{}, store)
	assert.True(t, cr.Success, cr.Details)

	cr = validateConfiguration(Configuration{
		Methods: []ExpectedMethod{
			{Method: "p/K.a()V", ModifiesState: &no},
			{Method: "p/K.ghost()V"},
			{Method: "bogus"},
		},
		Exhaustive:       true,
		MaxClosurePasses: &one,
	}, methodfacts.Stats{MaxPasses: 2}, store)
	require.False(t, cr.Success)
	require.Len(t, cr.Details, 5)
	assert.Contains(t, cr.Details[0], "facts mismatch")
	assert.Contains(t, cr.Details[1], "not analysed")
	assert.Contains(t, cr.Details[2], "missing descriptor")
	assert.Equal(t, "unexpected notable facts: p/K.b()V", cr.Details[3])
	assert.Contains(t, cr.Details[4], "closure took 2 passes")
}
