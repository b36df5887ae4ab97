package analysis

import "github.com/715d/methodfacts/pkg/classfile"

// MaxCalls is the value at which NumCalls saturates.
const MaxCalls = 255

// MethodFacts holds everything the collectors learn about one method.
type MethodFacts struct {
	// NumBytes is the length of the method's code in bytes.
	NumBytes int

	// NumCalls counts invoke instructions in the body, saturating at MaxCalls.
	NumCalls uint8

	// Access is the method's own access flags.
	Access classfile.AccessFlags

	// Exposure accumulates the access levels of callers, plus ExposedPublic
	// for methods that may be invoked from outside the program.
	Exposure Exposure

	// ModifiesState is set when the method writes a field, directly or
	// through a call on its own receiver. Once set it stays set for the run.
	ModifiesState bool

	// Immutability is the Pass 2 result for container-returning methods.
	Immutability Immutability

	IsEquals   bool
	IsHashCode bool
	IsToString bool

	// Derived marks methods that implement or override a signature
	// declared by a supertype.
	Derived bool

	// Analysed is set once Pass 1 has visited the method's declaration.
	// Records created only by call sites leave it unset.
	Analysed bool

	// HasBody is set when Pass 1 read the method's code. Abstract, native
	// and undecodable methods leave it unset.
	HasBody bool
}

// SetNumCalls records n, saturating at MaxCalls.
func (f *MethodFacts) SetNumCalls(n int) {
	f.NumCalls = uint8(min(max(n, 0), MaxCalls))
}

// MarkModifiesState sets ModifiesState. It reports whether the flag changed.
func (f *MethodFacts) MarkModifiesState() bool {
	if f.ModifiesState {
		return false
	}
	f.ModifiesState = true
	return true
}

// Expose adds x to the method's exposure.
func (f *MethodFacts) Expose(x Exposure) {
	f.Exposure |= x
}

// Interesting reports whether the facts say anything beyond size and
// call count.
func (f *MethodFacts) Interesting() bool {
	return f.ModifiesState || f.Derived || f.Immutability.Positive() ||
		f.IsEquals || f.IsHashCode || f.IsToString
}

// IsEqualsShape reports whether name and desc override Object.equals.
func IsEqualsShape(name, desc string) bool {
	return name == "equals" && desc == "(Ljava/lang/Object;)Z"
}

func IsHashCodeShape(name, desc string) bool {
	return name == "hashCode" && desc == "()I"
}

func IsToStringShape(name, desc string) bool {
	return name == "toString" && desc == "()Ljava/lang/String;"
}
