package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/pkg/classfile"
)

func TestEntrypoint(t *testing.T) {
	tests := []struct {
		name   string
		method string
		desc   string
		access classfile.AccessFlags
		want   EntryKind
	}{
		{"no-arg constructor", "<init>", "()V", classfile.AccPrivate, EntryConstructor},
		{"constructor with args", "<init>", "(I)V", classfile.AccPublic, EntryNone},
		{"toString", "toString", "()Ljava/lang/String;", classfile.AccPublic, EntryToString},
		{"toString overload", "toString", "(I)Ljava/lang/String;", classfile.AccPublic, EntryNone},
		{"hashCode", "hashCode", "()I", classfile.AccPublic, EntryHashCode},
		{"clone returning class", "clone", "()Lcom/example/Widget;", classfile.AccPublic, EntryClone},
		{"clone returning array", "clone", "()[I", classfile.AccPublic, EntryClone},
		{"clone returning int", "clone", "()I", classfile.AccPublic, EntryNone},
		{"clone with args", "clone", "(I)Ljava/lang/Object;", classfile.AccPublic, EntryNone},
		{"static main", "main", "([Ljava/lang/String;)V", classfile.AccPublic | classfile.AccStatic, EntryMain},
		{"instance main", "main", "([Ljava/lang/String;)V", classfile.AccPublic, EntryNone},
		{"static initializer", "<clinit>", "()V", classfile.AccStatic, EntryStaticInit},
		{"readObject", "readObject", "(Ljava/io/ObjectInputStream;)V", classfile.AccPrivate, EntrySerialization},
		{"readResolve", "readResolve", "()Ljava/lang/Object;", classfile.AccProtected, EntrySerialization},
		{"ordinary method", "run", "()V", classfile.AccPublic, EntryNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Entrypoint(tt.method, tt.desc, tt.access)
			require.Equal(t, tt.want, info.Kind)
			if tt.want != EntryNone {
				require.Equal(t, tt.method+tt.desc, info.Shape)
			}
		})
	}
}

func TestEntryKindString(t *testing.T) {
	require.Equal(t, "serialization hook", EntrySerialization.String())
	require.Equal(t, "unknown", EntryKind(99).String())
}
