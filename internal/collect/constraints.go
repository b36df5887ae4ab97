// Package collect runs the two fact-collection passes over decoded classes:
// Pass 1 records size, calls, mutation, exposure and derived status and
// closes "modifies state" over self calls; Pass 2 infers whether
// container-returning methods hand out immutable values.
package collect

import (
	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/pkg/classfile"
)

// ConstrainingSignatures returns the instance method signatures cls
// inherits from its interfaces and its superclasses below
// java/lang/Object. complete is false when part of the hierarchy could
// not be resolved; the returned list then holds what was found.
func ConstrainingSignatures(repo *classfile.Repository, cls *classfile.Class) (sigs []analysis.MethodID, complete bool) {
	supers, err := repo.Superclasses(cls.Name)
	ifaces, ierr := repo.Interfaces(cls.Name)
	complete = err == nil && ierr == nil

	add := func(c *classfile.Class) {
		for _, m := range c.Methods {
			if m.Access.IsPrivate() || m.Access.IsStatic() || m.IsConstructor() || m.IsStaticInitializer() {
				continue
			}
			sigs = append(sigs, analysis.IDOf(c.Name, m))
		}
	}
	for _, c := range supers {
		if c.Name == "java/lang/Object" {
			continue
		}
		add(c)
	}
	for _, c := range ifaces {
		add(c)
	}
	return sigs, complete
}

// Overridable reports whether m can implement or override an inherited
// signature.
func Overridable(m *classfile.Method) bool {
	return !m.Access.IsPrivate() && !m.Access.IsStatic() && !m.IsConstructor() && !m.IsStaticInitializer()
}

// MatchesConstraint reports whether m implements or overrides sig. Names
// must be equal. Descriptors match when equal, or when every parameter and
// the return type match: equal types, a java/lang/Object constraint
// against any reference, or a subtype of the constraint. A subtype check
// that cannot be answered counts as a match.
func MatchesConstraint(repo *classfile.Repository, m *classfile.Method, sig analysis.MethodID) bool {
	if m.Name != sig.Name {
		return false
	}
	if m.Descriptor == sig.Descriptor {
		return true
	}
	have, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return false
	}
	want, err := classfile.ParseMethodDescriptor(sig.Descriptor)
	if err != nil || len(have.Params) != len(want.Params) {
		return false
	}
	for i := range have.Params {
		if !typeMatches(repo, have.Params[i], want.Params[i]) {
			return false
		}
	}
	return typeMatches(repo, have.Return, want.Return)
}

func typeMatches(repo *classfile.Repository, have, want string) bool {
	if have == want {
		return true
	}
	if want == classfile.ObjectType && classfile.IsReference(have) {
		return true
	}
	sub, ok1 := classfile.ClassName(have)
	sup, ok2 := classfile.ClassName(want)
	if !ok1 || !ok2 {
		return false
	}
	is, err := repo.IsSubtype(sub, sup)
	return is || err != nil
}
