// Package runtime recognises methods the managed runtime invokes on its
// own, through reflection, serialization or as program entry points, so
// they count as callable from outside the analysed code.
package runtime

import (
	"strings"

	"github.com/715d/methodfacts/pkg/classfile"
)

// EntryKind classifies a runtime-invoked method shape.
type EntryKind int

const (
	EntryNone EntryKind = iota
	EntryConstructor
	EntryToString
	EntryHashCode
	EntryClone
	EntryMain
	EntryStaticInit
	EntrySerialization
)

var entryNames = [...]string{
	EntryNone:          "none",
	EntryConstructor:   "no-arg constructor",
	EntryToString:      "toString",
	EntryHashCode:      "hashCode",
	EntryClone:         "clone",
	EntryMain:          "main",
	EntryStaticInit:    "static initializer",
	EntrySerialization: "serialization hook",
}

func (k EntryKind) String() string {
	if k < 0 || int(k) >= len(entryNames) {
		return "unknown"
	}
	return entryNames[k]
}

// EntryInfo describes the runtime entry shape a method matches.
type EntryInfo struct {
	Kind  EntryKind
	Shape string // name and descriptor of the matched shape
}

// exactShapes maps name+descriptor to the entry kind of fixed shapes.
var exactShapes = map[string]EntryKind{
	"<init>()V":                                  EntryConstructor,
	"toString()Ljava/lang/String;":               EntryToString,
	"hashCode()I":                                EntryHashCode,
	"<clinit>()V":                                EntryStaticInit,
	"main([Ljava/lang/String;)V":                 EntryMain,
	"readObject(Ljava/io/ObjectInputStream;)V":   EntrySerialization,
	"writeObject(Ljava/io/ObjectOutputStream;)V": EntrySerialization,
	"readResolve()Ljava/lang/Object;":            EntrySerialization,
	"writeReplace()Ljava/lang/Object;":           EntrySerialization,
	"readObjectNoData()V":                        EntrySerialization,
}

// Entrypoint reports whether the runtime may invoke a method with the
// given name, descriptor and access without a visible call site.
func Entrypoint(name, desc string, access classfile.AccessFlags) EntryInfo {
	if name == "clone" && strings.HasPrefix(desc, "()") {
		ret := desc[2:]
		if strings.HasPrefix(ret, "L") || strings.HasPrefix(ret, "[") {
			return EntryInfo{Kind: EntryClone, Shape: name + desc}
		}
		return EntryInfo{}
	}
	kind, ok := exactShapes[name+desc]
	if !ok {
		return EntryInfo{}
	}
	if kind == EntryMain && !access.IsStatic() {
		return EntryInfo{}
	}
	return EntryInfo{Kind: kind, Shape: name + desc}
}
