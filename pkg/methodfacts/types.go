// Package methodfacts runs the method fact collectors over a set of class
// feeds and reports the facts they record.
package methodfacts

import (
	"time"

	"github.com/715d/methodfacts/internal/analysis"
)

// MethodRow is one reported method.
type MethodRow struct {
	Name          string                `json:"name"`
	ID            string                `json:"id"`
	File          string                `json:"file,omitempty"`
	Line          int                   `json:"line,omitempty"`
	NumBytes      int                   `json:"bytes"`
	NumCalls      uint8                 `json:"calls"`
	Exposure      analysis.Exposure     `json:"exposure"`
	ModifiesState bool                  `json:"modifies_state"`
	Immutability  analysis.Immutability `json:"immutability,omitempty"`
	Derived       bool                  `json:"derived,omitempty"`
	Shape         string                `json:"shape,omitempty"`
}

// Stats summarises one run.
type Stats struct {
	Classes       int           `json:"classes"`
	Methods       int           `json:"methods"`
	Undecodable   int           `json:"undecodable"`
	Facts         int           `json:"facts"`
	ClosurePasses int           `json:"closure_passes"`
	MaxPasses     int           `json:"max_closure_passes"`
	Duration      time.Duration `json:"analysis_duration"`
}
