package harness

import "github.com/715d/methodfacts/internal/analysis"

// TestCase is one fixture archive.
type TestCase struct {
	// Name is the archive path relative to the testdata root.
	Name string `yaml:"-"`

	// Configurations are run independently against the same feeds.
	Configurations []Configuration `yaml:"configurations"`

	// Skip disables the fixture.
	Skip   bool   `yaml:"skip,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// Configuration is a single analyzer setup to test.
type Configuration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// NoCoreStubs leaves the embedded core library stubs out.
	NoCoreStubs bool `yaml:"no_jdk"`

	// WithoutLibraries ignores the archive's lib/ feeds.
	WithoutLibraries bool `yaml:"without_libraries"`

	// Exhaustive requires every analysed method with notable facts to be
	// listed in Methods.
	Exhaustive bool `yaml:"exhaustive"`

	// Methods lists the expected facts per method.
	Methods []ExpectedMethod `yaml:"methods"`

	// MaxClosurePasses bounds the closure passes of any single class.
	MaxClosurePasses *int `yaml:"max_closure_passes,omitempty"`

	// ExpectedErrors lists error substrings that make a failed run pass.
	ExpectedErrors []string `yaml:"expected_errors"`
}

// ExpectedMethod holds the facts expected for one method. Unset fields are
// not checked.
type ExpectedMethod struct {
	// Method is the identity as owner.name(descriptor).
	Method string `yaml:"method"`

	NumBytes      *int                   `yaml:"bytes,omitempty"`
	NumCalls      *int                   `yaml:"calls,omitempty"`
	Exposure      *analysis.Exposure     `yaml:"exposure,omitempty"`
	ModifiesState *bool                  `yaml:"modifies_state,omitempty"`
	Immutability  *analysis.Immutability `yaml:"immutability,omitempty"`
	Derived       *bool                  `yaml:"derived,omitempty"`
}
