package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTypeName(t *testing.T) {
	nameCache := NewNameCache()

	tests := []struct {
		desc string
		want string
	}{
		{"I", "int"},
		{"Z", "boolean"},
		{"V", "void"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"[I", "int[]"},
		{"[[Ljava/util/List;", "java.util.List[][]"},
		{"Q", "Q"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require.Equal(t, tt.want, nameCache.ComputeTypeName(tt.desc))
		})
	}
}

func TestComputeMethodName(t *testing.T) {
	nameCache := NewNameCache()

	tests := []struct {
		name string
		id   MethodID
		want string
	}{
		{
			name: "instance method",
			id:   MethodID{"com/example/Widget", "items", "(I[Ljava/lang/String;)Ljava/util/List;"},
			want: "java.util.List com.example.Widget.items(int, java.lang.String[])",
		},
		{
			name: "constructor",
			id:   MethodID{"com/example/Widget", "<init>", "(J)V"},
			want: "com.example.Widget.<init>(long)",
		},
		{
			name: "nested class",
			id:   MethodID{"com/example/Outer$1", "run", "()V"},
			want: "void com.example.Outer$1.run()",
		},
		{
			name: "bad descriptor",
			id:   MethodID{"com/example/Widget", "run", "oops"},
			want: "com.example.Widget.runoops",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, nameCache.ComputeMethodName(tt.id))
		})
	}
}

func TestComputeMethodNameCaching(t *testing.T) {
	nameCache := NewNameCache()
	id := MethodID{"a/B", "c", "()I"}

	for range 10 {
		require.Equal(t, "int a.B.c()", nameCache.ComputeMethodName(id))
	}
	require.Equal(t, 1, nameCache.methodCache.Size())
	require.Equal(t, 1, nameCache.typeCache.Size())
}
