// Package analysis provides the per-method fact model and the fact store
// shared by the collectors and downstream checks.
package analysis

import (
	"cmp"
	"strings"

	"github.com/715d/methodfacts/pkg/classfile"
)

// MethodID identifies a method across the whole program: the internal name
// of its declaring class, its simple name and its descriptor.
type MethodID struct {
	Owner      string
	Name       string
	Descriptor string
}

// IDOf returns the identity of m declared in class owner.
func IDOf(owner string, m *classfile.Method) MethodID {
	return MethodID{Owner: owner, Name: m.Name, Descriptor: m.Descriptor}
}

// RefID returns the identity a member reference points at.
func RefID(ref *classfile.MemberRef) MethodID {
	return MethodID{Owner: ref.Owner, Name: ref.Name, Descriptor: ref.Descriptor}
}

// String renders the id as Owner.name(desc).
func (id MethodID) String() string {
	var b strings.Builder
	b.Grow(len(id.Owner) + len(id.Name) + len(id.Descriptor) + 1)
	b.WriteString(id.Owner)
	b.WriteByte('.')
	b.WriteString(id.Name)
	b.WriteString(id.Descriptor)
	return b.String()
}

// Compare orders ids by owner, name and descriptor.
func (id MethodID) Compare(other MethodID) int {
	return cmp.Or(
		cmp.Compare(id.Owner, other.Owner),
		cmp.Compare(id.Name, other.Name),
		cmp.Compare(id.Descriptor, other.Descriptor),
	)
}
