package classfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadInstruction is returned for assembler lines that cannot be decoded.
var ErrBadInstruction = errors.New("bad instruction")

var newarrayTypes = map[string]string{
	"boolean": "[Z",
	"char":    "[C",
	"float":   "[F",
	"double":  "[D",
	"byte":    "[B",
	"short":   "[S",
	"int":     "[I",
	"long":    "[J",
}

// ParseInstruction decodes one assembler line of the form
//
//	[offset:] mnemonic [operands]
//
// When the offset is omitted it is reported as -1.
func ParseInstruction(line string) (Instruction, error) {
	ins := Instruction{Offset: -1}
	text := strings.TrimSpace(line)
	if i := strings.IndexByte(text, ':'); i > 0 {
		if off, err := strconv.Atoi(strings.TrimSpace(text[:i])); err == nil {
			if off < 0 {
				return ins, fmt.Errorf("%w: negative offset in %q", ErrBadInstruction, line)
			}
			ins.Offset = off
			text = strings.TrimSpace(text[i+1:])
		}
	}
	mnemonic, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	wide := false
	if mnemonic == "wide" {
		wide = true
		mnemonic, rest, _ = strings.Cut(rest, " ")
		rest = strings.TrimSpace(rest)
	}
	op, ok := LookupOpcode(mnemonic)
	if !ok {
		return ins, fmt.Errorf("%w: unknown mnemonic %q", ErrBadInstruction, mnemonic)
	}
	ins.Op = op
	if err := parseOperands(&ins, rest); err != nil {
		return ins, fmt.Errorf("%w: %q: %v", ErrBadInstruction, line, err)
	}
	ins.Length = encodedLength(&ins)
	if wide {
		if ins.Op == Iinc {
			ins.Length = 6
		} else {
			ins.Length = 4
		}
	}
	return ins, nil
}

func parseOperands(ins *Instruction, rest string) error {
	fields := strings.Fields(rest)
	argInt := func(i int) (int, error) {
		if i >= len(fields) {
			return 0, fmt.Errorf("missing operand %d", i+1)
		}
		return strconv.Atoi(fields[i])
	}
	op := ins.Op
	var err error
	switch {
	case op.IsInvoke() || (op >= Getstatic && op <= Putfield):
		if len(fields) == 0 {
			return fmt.Errorf("missing member reference")
		}
		ins.Ref, err = parseMemberRef(fields[0], op)
		return err

	case op.IsConditionalBranch() || op.IsUnconditionalJump() || op == Jsr || op == JsrW || op.IsSwitch():
		if len(fields) == 0 {
			return fmt.Errorf("missing branch target")
		}
		for i := range fields {
			t, err := argInt(i)
			if err != nil {
				return err
			}
			ins.Targets = append(ins.Targets, t)
		}
		if !op.IsSwitch() && len(ins.Targets) != 1 {
			return fmt.Errorf("want one branch target, got %d", len(ins.Targets))
		}
		return nil

	case op == Ldc || op == LdcW || op == Ldc2W:
		return parseConst(ins, rest)

	case op == New || op == Anewarray || op == Checkcast || op == Instanceof:
		if len(fields) != 1 {
			return fmt.Errorf("want one class operand")
		}
		ins.Class = fields[0]
		return nil

	case op == Newarray:
		if len(fields) != 1 {
			return fmt.Errorf("want one element type")
		}
		arr, ok := newarrayTypes[fields[0]]
		if !ok {
			return fmt.Errorf("unknown newarray type %q", fields[0])
		}
		ins.Class = arr
		return nil

	case op == Multianewarray:
		if len(fields) != 2 {
			return fmt.Errorf("want array type and dimensions")
		}
		ins.Class = fields[0]
		ins.Int, err = argInt(1)
		if err == nil && (ins.Int < 1 || !strings.HasPrefix(ins.Class, strings.Repeat("[", ins.Int))) {
			return fmt.Errorf("bad dimensions %d for %s", ins.Int, ins.Class)
		}
		return err

	case op == Iinc:
		if ins.Local, err = argInt(0); err != nil {
			return err
		}
		ins.Int, err = argInt(1)
		return err

	case op == Bipush || op == Sipush:
		ins.Int, err = argInt(0)
		return err

	case hasLocalOperand(op):
		ins.Local, err = argInt(0)
		return err
	}

	if local, ok := op.ImplicitLocal(); ok {
		ins.Local = local
	}
	if len(fields) > 0 {
		return fmt.Errorf("unexpected operands %q", rest)
	}
	return nil
}

func parseMemberRef(s string, op Opcode) (*MemberRef, error) {
	if op.IsInvoke() {
		paren := strings.IndexByte(s, '(')
		if paren < 0 {
			return nil, fmt.Errorf("method reference %q has no descriptor", s)
		}
		ref := &MemberRef{Descriptor: s[paren:]}
		head := s[:paren]
		if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
			ref.Owner, ref.Name = head[:dot], head[dot+1:]
		} else {
			ref.Name = head
		}
		if ref.Name == "" || (ref.Owner == "" && op != Invokedynamic) {
			return nil, fmt.Errorf("incomplete method reference %q", s)
		}
		if _, err := ParseMethodDescriptor(ref.Descriptor); err != nil {
			return nil, err
		}
		return ref, nil
	}
	head, desc, ok := strings.Cut(s, ":")
	dot := strings.LastIndexByte(head, '.')
	if !ok || dot <= 0 || dot == len(head)-1 {
		return nil, fmt.Errorf("field reference %q must look like Owner.name:Desc", s)
	}
	if !ValidFieldDescriptor(desc) {
		return nil, fmt.Errorf("field reference %q has a bad descriptor", s)
	}
	return &MemberRef{Owner: head[:dot], Name: head[dot+1:], Descriptor: desc}, nil
}

func parseConst(ins *Instruction, rest string) error {
	if rest == "" {
		return fmt.Errorf("missing constant")
	}
	wide := ins.Op == Ldc2W
	if strings.HasPrefix(rest, `"`) {
		s, err := strconv.Unquote(rest)
		if err != nil {
			return fmt.Errorf("bad string constant: %v", err)
		}
		ins.ConstKind, ins.Const = ConstString, s
		return nil
	}
	num := strings.TrimRight(rest, "LlDdFf")
	suffix := rest[len(num):]
	if _, err := strconv.ParseFloat(num, 64); err == nil {
		ins.Const = num
		switch {
		case suffix == "L" || suffix == "l":
			ins.ConstKind = ConstLong
		case suffix == "D" || suffix == "d" || (wide && strings.ContainsAny(num, ".eE")):
			ins.ConstKind = ConstDouble
		case suffix == "F" || suffix == "f" || strings.ContainsAny(num, ".eE"):
			ins.ConstKind = ConstFloat
		case wide:
			ins.ConstKind = ConstLong
		default:
			ins.ConstKind = ConstInt
		}
		if wide != (ins.ConstKind == ConstLong || ins.ConstKind == ConstDouble) {
			return fmt.Errorf("constant %q does not fit %s", rest, ins.Op)
		}
		return nil
	}
	if wide || strings.ContainsAny(rest, " \t") {
		return fmt.Errorf("bad constant %q", rest)
	}
	ins.ConstKind, ins.Const = ConstClass, rest
	return nil
}

// encodedLength approximates the byte length of the instruction's encoding.
// Switch padding is ignored.
func encodedLength(ins *Instruction) int {
	op := ins.Op
	switch {
	case op == Bipush || op == Ldc || op == Newarray || hasLocalOperand(op):
		return 2
	case op == Tableswitch || op == Lookupswitch:
		return 1 + 8 + 4*len(ins.Targets)
	case op == GotoW || op == JsrW || op == Invokeinterface || op == Invokedynamic:
		return 5
	case op == Multianewarray:
		return 4
	case op == Sipush || op == LdcW || op == Ldc2W || op == Iinc,
		op.IsConditionalBranch() || op == Goto || op == Jsr,
		op.IsInvoke() || (op >= Getstatic && op <= Putfield),
		op == New || op == Anewarray || op == Checkcast || op == Instanceof:
		return 3
	}
	return 1
}

// Assemble decodes a method body from assembler lines. Offsets omitted from
// a line are assigned from the previous instruction's encoded length. Lengths
// are recomputed from the following instruction's offset when both are given.
func Assemble(lines []string) ([]Instruction, error) {
	code := make([]Instruction, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ins, err := ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if n := len(code); n > 0 {
			prev := &code[n-1]
			if ins.Offset < 0 {
				ins.Offset = prev.Next()
			}
			if ins.Offset <= prev.Offset {
				return nil, fmt.Errorf("line %d: %w: offset %d does not follow %d", i+1, ErrBadInstruction, ins.Offset, prev.Offset)
			}
			prev.Length = ins.Offset - prev.Offset
		} else if ins.Offset < 0 {
			ins.Offset = 0
		}
		code = append(code, ins)
	}
	if err := checkTargets(code); err != nil {
		return nil, err
	}
	return code, nil
}

func checkTargets(code []Instruction) error {
	offsets := make(map[int]struct{}, len(code))
	for _, ins := range code {
		offsets[ins.Offset] = struct{}{}
	}
	for _, ins := range code {
		for _, t := range ins.Targets {
			if _, ok := offsets[t]; !ok {
				return fmt.Errorf("%w: %s jumps to %d, which is not an instruction", ErrBadInstruction, ins.Op, t)
			}
		}
	}
	return nil
}
