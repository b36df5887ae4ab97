package stack

import (
	"github.com/715d/methodfacts/pkg/classfile"
)

// Flow describes how control leaves an instruction.
type Flow uint8

const (
	FlowNext   Flow = iota // falls through to the next instruction
	FlowBranch             // may jump to its target or fall through
	FlowJump               // always jumps to its target
	FlowSwitch             // jumps to one of its targets
	FlowReturn             // leaves the method
	FlowThrow              // raises an exception
	FlowRet                // returns from a subroutine
)

// Transfers reports whether control never falls through to the next
// instruction.
func (f Flow) Transfers() bool {
	return f != FlowNext && f != FlowBranch
}

// effect is the stack behaviour of one opcode. pop counts items, not
// slots. push lists the pushed values bottom to top as type characters:
// I J F D for primitives, A for references and R for return addresses.
// Opcodes whose effect depends on operands are marked computed and handled
// by the simulator.
type effect struct {
	pop      int
	push     string
	flow     Flow
	computed bool
	known    bool
}

func fx(pop int, push string) effect {
	return effect{pop: pop, push: push, known: true}
}

func flowFx(pop int, flow Flow) effect {
	return effect{pop: pop, flow: flow, known: true}
}

func computed(flow Flow) effect {
	return effect{flow: flow, computed: true, known: true}
}

var effects = buildEffects()

func buildEffects() [classfile.NumOpcodes]effect {
	var t [classfile.NumOpcodes]effect
	const types = "IJFDA"

	t[classfile.Nop] = fx(0, "")
	t[classfile.AconstNull] = fx(0, "A")
	for op := classfile.IconstM1; op <= classfile.Iconst5; op++ {
		t[op] = fx(0, "I")
	}
	t[classfile.Lconst0], t[classfile.Lconst1] = fx(0, "J"), fx(0, "J")
	for op := classfile.Fconst0; op <= classfile.Fconst2; op++ {
		t[op] = fx(0, "F")
	}
	t[classfile.Dconst0], t[classfile.Dconst1] = fx(0, "D"), fx(0, "D")
	t[classfile.Bipush], t[classfile.Sipush] = fx(0, "I"), fx(0, "I")
	t[classfile.Ldc], t[classfile.LdcW], t[classfile.Ldc2W] = computed(FlowNext), computed(FlowNext), computed(FlowNext)

	for i := range 5 {
		t[classfile.Iload+classfile.Opcode(i)] = fx(0, types[i:i+1])
		t[classfile.Istore+classfile.Opcode(i)] = fx(1, "")
		for j := range 4 {
			t[classfile.Iload0+classfile.Opcode(4*i+j)] = fx(0, types[i:i+1])
			t[classfile.Istore0+classfile.Opcode(4*i+j)] = fx(1, "")
		}
	}

	// xaload: arrayref, index -> value
	for op, push := range map[classfile.Opcode]string{
		classfile.Iaload: "I", classfile.Laload: "J", classfile.Faload: "F", classfile.Daload: "D",
		classfile.Baload: "I", classfile.Caload: "I", classfile.Saload: "I",
	} {
		t[op] = fx(2, push)
	}
	t[classfile.Aaload] = computed(FlowNext)
	for op := classfile.Iastore; op <= classfile.Sastore; op++ {
		t[op] = fx(3, "")
	}

	t[classfile.Pop] = computed(FlowNext)
	t[classfile.Pop2] = computed(FlowNext)
	for op := classfile.Dup; op <= classfile.Swap; op++ {
		t[op] = computed(FlowNext)
	}

	// Binary arithmetic and logic, in IJFD groups of four.
	for op := classfile.Iadd; op <= classfile.Drem; op++ {
		i := int(op-classfile.Iadd) % 4
		t[op] = fx(2, types[i:i+1])
	}
	for op := classfile.Ineg; op <= classfile.Dneg; op++ {
		i := int(op - classfile.Ineg)
		t[op] = fx(1, types[i:i+1])
	}
	// Shifts and bitwise ops alternate int and long.
	for op := classfile.Ishl; op <= classfile.Lxor; op++ {
		i := int(op-classfile.Ishl) % 2
		t[op] = fx(2, types[i:i+1])
	}
	t[classfile.Iinc] = fx(0, "")

	for op, push := range map[classfile.Opcode]string{
		classfile.I2l: "J", classfile.I2f: "F", classfile.I2d: "D",
		classfile.L2i: "I", classfile.L2f: "F", classfile.L2d: "D",
		classfile.F2i: "I", classfile.F2l: "J", classfile.F2d: "D",
		classfile.D2i: "I", classfile.D2l: "J", classfile.D2f: "F",
		classfile.I2b: "I", classfile.I2c: "I", classfile.I2s: "I",
	} {
		t[op] = fx(1, push)
	}
	for op := classfile.Lcmp; op <= classfile.Dcmpg; op++ {
		t[op] = fx(2, "I")
	}

	for op := classfile.Ifeq; op <= classfile.Ifle; op++ {
		t[op] = flowFx(1, FlowBranch)
	}
	for op := classfile.IfIcmpeq; op <= classfile.IfAcmpne; op++ {
		t[op] = flowFx(2, FlowBranch)
	}
	t[classfile.Ifnull], t[classfile.Ifnonnull] = flowFx(1, FlowBranch), flowFx(1, FlowBranch)
	t[classfile.Goto], t[classfile.GotoW] = flowFx(0, FlowJump), flowFx(0, FlowJump)
	t[classfile.Jsr], t[classfile.JsrW] = computed(FlowNext), computed(FlowNext)
	t[classfile.Ret] = flowFx(0, FlowRet)
	t[classfile.Tableswitch], t[classfile.Lookupswitch] = flowFx(1, FlowSwitch), flowFx(1, FlowSwitch)
	for op := classfile.Ireturn; op <= classfile.Areturn; op++ {
		t[op] = flowFx(1, FlowReturn)
	}
	t[classfile.Return] = flowFx(0, FlowReturn)

	for op := classfile.Getstatic; op <= classfile.Putfield; op++ {
		t[op] = computed(FlowNext)
	}
	for op := classfile.Invokevirtual; op <= classfile.Invokedynamic; op++ {
		t[op] = computed(FlowNext)
	}

	t[classfile.New] = computed(FlowNext)
	t[classfile.Newarray] = computed(FlowNext)
	t[classfile.Anewarray] = computed(FlowNext)
	t[classfile.Arraylength] = fx(1, "I")
	t[classfile.Athrow] = flowFx(1, FlowThrow)
	t[classfile.Checkcast] = computed(FlowNext)
	t[classfile.Instanceof] = fx(1, "I")
	t[classfile.Monitorenter], t[classfile.Monitorexit] = fx(1, ""), fx(1, "")
	t[classfile.Wide] = fx(0, "")
	t[classfile.Multianewarray] = computed(FlowNext)
	return t
}

// FlowOf returns the control flow of op.
func FlowOf(op classfile.Opcode) Flow {
	if !op.Valid() {
		return FlowNext
	}
	return effects[op].flow
}

func typeWidth(c byte) int {
	if c == 'J' || c == 'D' {
		return 2
	}
	return 1
}

// primitive type descriptors for pushed type characters; references are
// left empty unless an operand names the type.
func pushSignature(c byte) string {
	switch c {
	case 'I', 'J', 'F', 'D':
		return string(c)
	}
	return ""
}
