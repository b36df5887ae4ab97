package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// MemberRef is a symbolic reference to a field or method.
type MemberRef struct {
	Owner      string // internal name of the declaring class
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	if strings.HasPrefix(r.Descriptor, "(") {
		return r.Owner + "." + r.Name + r.Descriptor
	}
	return r.Owner + "." + r.Name + ":" + r.Descriptor
}

// ConstKind classifies the operand of an ldc family instruction.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstInt
	ConstFloat
	ConstLong
	ConstDouble
	ConstString
	ConstClass
)

// Descriptor returns the field descriptor of the value the constant pushes.
func (k ConstKind) Descriptor() string {
	switch k {
	case ConstInt:
		return "I"
	case ConstFloat:
		return "F"
	case ConstLong:
		return "J"
	case ConstDouble:
		return "D"
	case ConstString:
		return "Ljava/lang/String;"
	case ConstClass:
		return "Ljava/lang/Class;"
	}
	return ""
}

// Instruction is one decoded instruction of a method body.
type Instruction struct {
	Offset int    // byte offset within the code array
	Length int    // encoded length in bytes
	Op     Opcode // opcode

	Local int // local variable index for loads, stores, iinc and ret
	Int   int // immediate for bipush, sipush, iinc and dimensions of multianewarray

	ConstKind ConstKind // kind of the ldc operand
	Const     string    // textual ldc operand

	Ref     *MemberRef // field or method reference
	Class   string     // class operand of new, anewarray, checkcast, instanceof, multianewarray, newarray element type
	Targets []int      // branch targets; for switches the default target comes first
}

// Next returns the offset of the instruction that follows in the code array.
func (ins *Instruction) Next() int { return ins.Offset + ins.Length }

func (ins *Instruction) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(ins.Offset))
	b.WriteString(": ")
	b.WriteString(ins.Op.String())
	switch {
	case ins.Ref != nil:
		b.WriteString(" " + ins.Ref.String())
	case ins.Class != "":
		b.WriteString(" " + ins.Class)
		if ins.Op == Multianewarray {
			b.WriteString(" " + strconv.Itoa(ins.Int))
		}
	case len(ins.Targets) > 0:
		for _, t := range ins.Targets {
			b.WriteString(" " + strconv.Itoa(t))
		}
	case ins.ConstKind != ConstNone:
		b.WriteString(" " + ins.Const)
	case ins.Op == Iinc:
		fmt.Fprintf(&b, " %d %d", ins.Local, ins.Int)
	case ins.Op == Bipush || ins.Op == Sipush:
		b.WriteString(" " + strconv.Itoa(ins.Int))
	case hasLocalOperand(ins.Op):
		b.WriteString(" " + strconv.Itoa(ins.Local))
	}
	return b.String()
}

func hasLocalOperand(op Opcode) bool {
	return (op >= Iload && op <= Aload) || (op >= Istore && op <= Astore) || op == Ret
}

// LineEntry maps a code offset to a source line.
type LineEntry struct {
	Offset int
	Line   int
}

// LineTable is a method's line number table, sorted by offset.
type LineTable []LineEntry

// LineAt returns the source line of the instruction at offset, or -1.
func (lt LineTable) LineAt(offset int) int {
	line := -1
	for _, e := range lt {
		if e.Offset > offset {
			break
		}
		line = e.Line
	}
	return line
}

// Handler is an exception table entry.
type Handler struct {
	Start, End int    // covered range [Start, End)
	Target     int    // handler offset
	Catch      string // internal name of the caught type, empty for finally
}
