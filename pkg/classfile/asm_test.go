package classfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		check func(*testing.T, Instruction)
	}{
		{
			name: "implicit local",
			line: "0: aload_0",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, Aload0, ins.Op)
				require.Equal(t, 0, ins.Offset)
				require.Equal(t, 0, ins.Local)
				require.Equal(t, 1, ins.Length)
			},
		},
		{
			name: "explicit local",
			line: "7: astore 4",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, Astore, ins.Op)
				require.Equal(t, 4, ins.Local)
				require.Equal(t, 2, ins.Length)
			},
		},
		{
			name: "method reference",
			line: "3: invokestatic java/util/Collections.unmodifiableList(Ljava/util/List;)Ljava/util/List;",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, Invokestatic, ins.Op)
				require.Equal(t, &MemberRef{
					Owner:      "java/util/Collections",
					Name:       "unmodifiableList",
					Descriptor: "(Ljava/util/List;)Ljava/util/List;",
				}, ins.Ref)
			},
		},
		{
			name: "array clone reference",
			line: "invokevirtual [I.clone()Ljava/lang/Object;",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, -1, ins.Offset)
				require.Equal(t, "[I", ins.Ref.Owner)
				require.Equal(t, "clone", ins.Ref.Name)
			},
		},
		{
			name: "field reference",
			line: "10: putfield com/example/K.count:I",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, Putfield, ins.Op)
				require.Equal(t, "count", ins.Ref.Name)
				require.Equal(t, "I", ins.Ref.Descriptor)
			},
		},
		{
			name: "string constant with colon",
			line: `ldc "a: b"`,
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, ConstString, ins.ConstKind)
				require.Equal(t, "a: b", ins.Const)
			},
		},
		{
			name: "long constant",
			line: "2: ldc2_w 42L",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, ConstLong, ins.ConstKind)
			},
		},
		{
			name: "switch targets",
			line: "5: tableswitch 40 20 30",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, []int{40, 20, 30}, ins.Targets)
			},
		},
		{
			name: "newarray",
			line: "newarray int",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, "[I", ins.Class)
			},
		},
		{
			name: "wide iinc",
			line: "8: wide iinc 300 1",
			check: func(t *testing.T, ins Instruction) {
				require.Equal(t, Iinc, ins.Op)
				require.Equal(t, 300, ins.Local)
				require.Equal(t, 6, ins.Length)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := ParseInstruction(tt.line)
			require.NoError(t, err)
			tt.check(t, ins)
		})
	}
}

func TestParseInstructionErrors(t *testing.T) {
	for _, line := range []string{
		"0: frobnicate",
		"0: invokevirtual java/util/List.size",
		"0: getfield count",
		"0: goto",
		"0: ldc 5L",
		"0: aload_0 5",
		"0: multianewarray [I 2",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseInstruction(line)
			require.ErrorIs(t, err, ErrBadInstruction)
		})
	}
}

func TestAssemble(t *testing.T) {
	code, err := Assemble([]string{
		"aload_0",
		"getfield com/example/K.items:Ljava/util/List;",
		"ifnull 9",
		"aconst_null",
		"areturn",
		"9: aconst_null",
		"areturn",
	})
	require.NoError(t, err)
	require.Len(t, code, 7)

	var offsets []int
	for _, ins := range code {
		offsets = append(offsets, ins.Offset)
	}
	require.Equal(t, []int{0, 1, 4, 7, 8, 9, 10}, offsets)
	require.Equal(t, 1, code[4].Length, "length is taken from the next offset")
	require.Equal(t, 11, code[len(code)-1].Next())
}

func TestAssembleRejectsBadTargets(t *testing.T) {
	_, err := Assemble([]string{"0: goto 7", "3: return"})
	require.ErrorIs(t, err, ErrBadInstruction)

	_, err = Assemble([]string{"4: nop", "2: return"})
	require.ErrorIs(t, err, ErrBadInstruction)
}

func TestInstructionStringRoundTrip(t *testing.T) {
	lines := []string{
		"0: aload_0",
		"1: invokevirtual com/example/K.size()I",
		"4: istore 2",
		"6: iinc 2 1",
		"9: getstatic com/example/K.INSTANCE:Lcom/example/K;",
		"12: ifeq 16",
		"15: nop",
		"16: return",
	}
	code, err := Assemble(lines)
	require.NoError(t, err)
	var got []string
	for i := range code {
		got = append(got, code[i].String())
	}
	require.Equal(t, strings.Join(lines, "\n"), strings.Join(got, "\n"))
}
