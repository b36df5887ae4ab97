// Package classfile models decoded classes: access flags, opcodes,
// instructions, descriptors and the class hierarchy they form.
package classfile

import (
	"fmt"
	"strings"
)

// AccessFlags is the access_flags bit set of a class or method.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

var accessWords = []struct {
	word string
	flag AccessFlags
}{
	{"public", AccPublic},
	{"private", AccPrivate},
	{"protected", AccProtected},
	{"static", AccStatic},
	{"final", AccFinal},
	{"synchronized", AccSynchronized},
	{"bridge", AccBridge},
	{"varargs", AccVarargs},
	{"native", AccNative},
	{"interface", AccInterface},
	{"abstract", AccAbstract},
	{"strict", AccStrict},
	{"synthetic", AccSynthetic},
	{"annotation", AccAnnotation},
	{"enum", AccEnum},
}

// ParseAccess parses a space separated list of access words such as
// "public static final".
func ParseAccess(s string) (AccessFlags, error) {
	var flags AccessFlags
	for word := range strings.FieldsSeq(s) {
		found := false
		for _, aw := range accessWords {
			if aw.word == word {
				flags |= aw.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown access word %q", word)
		}
	}
	return flags, nil
}

func (a AccessFlags) Has(f AccessFlags) bool { return a&f != 0 }

func (a AccessFlags) IsPublic() bool    { return a.Has(AccPublic) }
func (a AccessFlags) IsPrivate() bool   { return a.Has(AccPrivate) }
func (a AccessFlags) IsProtected() bool { return a.Has(AccProtected) }
func (a AccessFlags) IsStatic() bool    { return a.Has(AccStatic) }
func (a AccessFlags) IsAbstract() bool  { return a.Has(AccAbstract) }
func (a AccessFlags) IsSynthetic() bool { return a.Has(AccSynthetic) }

// IsPackage reports whether none of public, protected and private is set.
func (a AccessFlags) IsPackage() bool {
	return !a.Has(AccPublic | AccProtected | AccPrivate)
}

func (a AccessFlags) String() string {
	var words []string
	for _, aw := range accessWords {
		if a.Has(aw.flag) {
			words = append(words, aw.word)
		}
	}
	if len(words) == 0 {
		return "package"
	}
	return strings.Join(words, " ")
}
