package analysis

import "fmt"

// Immutability describes whether the containers a method returns can be
// modified by the caller. Values form a join semilattice over two bits:
// one for "an immutable value reaches a return" and one for "a mutable
// value reaches a return".
type Immutability uint8

const (
	Unknown           Immutability = 0
	Immutable         Immutability = 1
	Mutable           Immutability = 2
	PossiblyImmutable Immutability = Immutable | Mutable
)

// Merge joins two observations. Unknown is the identity and
// PossiblyImmutable absorbs everything; Immutable and Mutable join to
// PossiblyImmutable. The result does not depend on argument order.
func (a Immutability) Merge(b Immutability) Immutability {
	return (a | b) & PossiblyImmutable
}

// Positive reports whether the value is worth recording: some path
// returns an immutable container.
func (a Immutability) Positive() bool {
	return a == Immutable || a == PossiblyImmutable
}

func (a Immutability) String() string {
	switch a {
	case Unknown:
		return "unknown"
	case Immutable:
		return "immutable"
	case Mutable:
		return "mutable"
	case PossiblyImmutable:
		return "possibly-immutable"
	}
	return fmt.Sprintf("Immutability(%d)", uint8(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Immutability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Immutability) UnmarshalText(text []byte) error {
	for _, v := range []Immutability{Unknown, Immutable, Mutable, PossiblyImmutable} {
		if v.String() == string(text) {
			*a = v
			return nil
		}
	}
	return fmt.Errorf("unknown immutability %q", text)
}
