package analysis

import (
	"fmt"
	"strings"

	"github.com/715d/methodfacts/pkg/classfile"
)

// Exposure records the access levels of the code that calls a method, or
// that may call it from outside the analysed program.
type Exposure uint8

const (
	ExposedPublic Exposure = 1 << iota
	ExposedProtected
	ExposedPackage
	ExposedPrivate
)

var exposureNames = []struct {
	bit  Exposure
	name string
}{
	{ExposedPublic, "public"},
	{ExposedProtected, "protected"},
	{ExposedPackage, "package"},
	{ExposedPrivate, "private"},
}

// ExposureFor maps a caller's access flags to the exposure bit its call
// sites contribute.
func ExposureFor(access classfile.AccessFlags) Exposure {
	switch {
	case access.IsPublic():
		return ExposedPublic
	case access.IsProtected():
		return ExposedProtected
	case access.IsPrivate():
		return ExposedPrivate
	}
	return ExposedPackage
}

// Has reports whether every bit of x is set in e.
func (e Exposure) Has(x Exposure) bool { return e&x == x }

func (e Exposure) String() string {
	if e == 0 {
		return "-"
	}
	var parts []string
	for _, n := range exposureNames {
		if e.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (e Exposure) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Exposure) UnmarshalText(text []byte) error {
	*e = 0
	s := string(text)
	if s == "-" || s == "" {
		return nil
	}
	for part := range strings.SplitSeq(s, ",") {
		found := false
		for _, n := range exposureNames {
			if n.name == strings.TrimSpace(part) {
				*e |= n.bit
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown exposure %q", part)
		}
	}
	return nil
}
