// Package stack simulates the operand stack of a method one instruction at a
// time, carrying caller-defined tags on stack items and merging them where
// control flow joins.
package stack

import (
	"errors"
	"fmt"
	"slices"

	"github.com/715d/methodfacts/pkg/classfile"
)

var (
	// ErrUnderflow is returned when an instruction pops more values than
	// the stack holds.
	ErrUnderflow = errors.New("operand stack underflow")

	// ErrMismatch is returned when two control-flow paths reach the same
	// instruction with stacks of different shape.
	ErrMismatch = errors.New("operand stack mismatch")
)

// Item is one value on the simulated stack.
type Item[T comparable] struct {
	// Width is the number of slots the value occupies: 2 for long and
	// double, 1 otherwise.
	Width int

	// Signature is the field descriptor of the value when known.
	Signature string

	// Register is the local variable the value was loaded from, or -1.
	Register int

	// Const is the textual constant for values pushed by ldc, or "".
	Const string

	// Origin is the offset of the instruction that pushed the value, or -1
	// when paths with different origins merged.
	Origin int

	tag    T
	tagged bool
}

// Tag returns the item's tag, if any.
func (it Item[T]) Tag() (T, bool) { return it.tag, it.tagged }

// Simulator tracks the operand stack of one method. Depth 0 is the top.
// A Simulator is not safe for concurrent use.
type Simulator[T comparable] struct {
	items   []Item[T] // bottom first
	entries map[int][]Item[T]

	// reachable is false after an unconditional transfer until an
	// instruction with a recorded entry is reached.
	reachable bool

	// adopted is the offset whose entry became the current state right
	// after a transfer, so that arriving there does not merge it twice.
	adopted int
}

// New returns an empty simulator.
func New[T comparable]() *Simulator[T] {
	return &Simulator[T]{
		items:     make([]Item[T], 0, 16),
		entries:   make(map[int][]Item[T]),
		reachable: true,
		adopted:   -1,
	}
}

// Reset prepares the simulator for m. Exception handler entry points are
// seeded with a single item holding the caught exception.
func (s *Simulator[T]) Reset(m *classfile.Method) {
	s.items = s.items[:0]
	clear(s.entries)
	s.reachable = true
	s.adopted = -1
	if m == nil {
		return
	}
	for _, h := range m.Handlers {
		catch := h.Catch
		if catch == "" {
			catch = "java/lang/Throwable"
		}
		entry := []Item[T]{{
			Width:     1,
			Signature: classfile.ClassDescriptor(catch),
			Register:  -1,
			Origin:    h.Target,
		}}
		if prev, ok := s.entries[h.Target]; ok {
			entry, _ = merge(prev, entry)
		}
		s.entries[h.Target] = entry
	}
}

// Depth returns the number of items on the stack.
func (s *Simulator[T]) Depth() int { return len(s.items) }

// Reachable reports whether the current state follows from a recorded
// path. It is false right after an unconditional transfer into code no
// branch has targeted yet.
func (s *Simulator[T]) Reachable() bool { return s.reachable }

func (s *Simulator[T]) index(depth int) int {
	if depth < 0 || depth >= len(s.items) {
		panic(fmt.Sprintf("stack: depth %d out of range [0,%d)", depth, len(s.items)))
	}
	return len(s.items) - 1 - depth
}

// Peek returns the item at depth. It panics if depth >= Depth().
func (s *Simulator[T]) Peek(depth int) Item[T] {
	return s.items[s.index(depth)]
}

// Tag returns the tag of the item at depth. It panics if depth >= Depth().
func (s *Simulator[T]) Tag(depth int) (T, bool) {
	return s.items[s.index(depth)].Tag()
}

// SetTag tags the item at depth. It panics if depth >= Depth().
func (s *Simulator[T]) SetTag(depth int, tag T) {
	it := &s.items[s.index(depth)]
	it.tag, it.tagged = tag, true
}

// ClearTag removes the tag of the item at depth. It panics if
// depth >= Depth().
func (s *Simulator[T]) ClearTag(depth int) {
	it := &s.items[s.index(depth)]
	var zero T
	it.tag, it.tagged = zero, false
}

// Apply advances the stack over ins. Instructions must be applied in code
// order. A returned error means the stack can no longer be trusted for the
// rest of the method.
func (s *Simulator[T]) Apply(ins *classfile.Instruction) error {
	if !ins.Op.Valid() {
		return fmt.Errorf("%w: opcode %d at %d", classfile.ErrBadInstruction, ins.Op, ins.Offset)
	}
	if err := s.arrive(ins.Offset); err != nil {
		return fmt.Errorf("at %d: %w", ins.Offset, err)
	}
	if err := s.step(ins); err != nil {
		return fmt.Errorf("%s: %w", ins, err)
	}
	if FlowOf(ins.Op).Transfers() {
		s.transfer(ins.Next())
	}
	return nil
}

// arrive joins the incoming state with any entry recorded for offset.
func (s *Simulator[T]) arrive(offset int) error {
	adopted := s.adopted
	s.adopted = -1
	entry, ok := s.entries[offset]
	if !ok || offset == adopted {
		s.reachable = true
		return nil
	}
	if !s.reachable {
		s.items = append(s.items[:0], entry...)
		s.reachable = true
		return nil
	}
	merged, err := merge(s.items, entry)
	if err != nil {
		return err
	}
	s.items = merged
	return nil
}

// transfer replaces the state after an unconditional transfer with the
// entry recorded for next, if any.
func (s *Simulator[T]) transfer(next int) {
	s.items = s.items[:0]
	if entry, ok := s.entries[next]; ok {
		s.items = append(s.items, entry...)
		s.reachable = true
		s.adopted = next
		return
	}
	s.reachable = false
}

// record snapshots the current stack as an entry for target.
func (s *Simulator[T]) record(target int) error {
	snap := slices.Clone(s.items)
	if prev, ok := s.entries[target]; ok {
		merged, err := merge(prev, snap)
		if err != nil {
			return fmt.Errorf("branch to %d: %w", target, err)
		}
		snap = merged
	}
	s.entries[target] = snap
	return nil
}

// merge joins two stacks of equal shape. Each item keeps its tag only if
// both sides carry the same tag; other attributes that differ are reset.
func merge[T comparable](a, b []Item[T]) ([]Item[T], error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: depth %d vs %d", ErrMismatch, len(a), len(b))
	}
	out := make([]Item[T], len(a))
	for i := range a {
		x, y := a[i], b[i]
		if x.Width != y.Width {
			return nil, fmt.Errorf("%w: slot width %d vs %d at index %d", ErrMismatch, x.Width, y.Width, i)
		}
		if x.Signature != y.Signature {
			x.Signature = ""
		}
		if x.Register != y.Register {
			x.Register = -1
		}
		if x.Const != y.Const {
			x.Const = ""
		}
		if x.Origin != y.Origin {
			x.Origin = -1
		}
		if !x.tagged || !y.tagged || x.tag != y.tag {
			var zero T
			x.tag, x.tagged = zero, false
		}
		out[i] = x
	}
	return out, nil
}

func (s *Simulator[T]) push(it Item[T]) {
	s.items = append(s.items, it)
}

func (s *Simulator[T]) pushType(c byte, offset int) {
	s.push(Item[T]{
		Width:     typeWidth(c),
		Signature: pushSignature(c),
		Register:  -1,
		Origin:    offset,
	})
}

func (s *Simulator[T]) pop() (Item[T], error) {
	if len(s.items) == 0 {
		return Item[T]{}, ErrUnderflow
	}
	it := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return it, nil
}

func (s *Simulator[T]) popN(n int) error {
	if n > len(s.items) {
		return fmt.Errorf("%w: need %d, have %d", ErrUnderflow, n, len(s.items))
	}
	s.items = s.items[:len(s.items)-n]
	return nil
}

// popSlots removes values occupying exactly n slots.
func (s *Simulator[T]) popSlots(n int) ([]Item[T], error) {
	i, slots := len(s.items), 0
	for slots < n {
		if i == 0 {
			return nil, fmt.Errorf("%w: need %d slots", ErrUnderflow, n)
		}
		i--
		slots += s.items[i].Width
	}
	if slots != n {
		return nil, fmt.Errorf("%w: value straddles a %d slot boundary", ErrMismatch, n)
	}
	popped := slices.Clone(s.items[i:])
	s.items = s.items[:i]
	return popped, nil
}

func (s *Simulator[T]) step(ins *classfile.Instruction) error {
	e := effects[ins.Op]
	if !e.computed {
		if err := s.popN(e.pop); err != nil {
			return err
		}
		for i := range len(e.push) {
			s.pushType(e.push[i], ins.Offset)
		}
		if local, ok := ins.Op.ImplicitLocal(); ok && len(e.push) == 1 {
			s.items[len(s.items)-1].Register = local
		} else if ins.Op >= classfile.Iload && ins.Op <= classfile.Aload {
			s.items[len(s.items)-1].Register = ins.Local
		}
		return s.branch(ins, e.flow)
	}
	return s.stepComputed(ins)
}

// branch records entries for the targets of a branching instruction.
func (s *Simulator[T]) branch(ins *classfile.Instruction, flow Flow) error {
	switch flow {
	case FlowBranch, FlowJump, FlowSwitch:
		if len(ins.Targets) == 0 {
			return fmt.Errorf("%w: no branch target", classfile.ErrBadInstruction)
		}
		for _, t := range ins.Targets {
			if err := s.record(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulator[T]) stepComputed(ins *classfile.Instruction) error {
	switch op := ins.Op; {
	case op == classfile.Ldc || op == classfile.LdcW || op == classfile.Ldc2W:
		desc := ins.ConstKind.Descriptor()
		if desc == "" {
			return fmt.Errorf("%w: missing constant", classfile.ErrBadInstruction)
		}
		s.push(Item[T]{
			Width:     classfile.TypeWidth(desc),
			Signature: desc,
			Register:  -1,
			Const:     ins.Const,
			Origin:    ins.Offset,
		})

	case op == classfile.Aaload:
		if err := s.popN(1); err != nil {
			return err
		}
		arr, err := s.pop()
		if err != nil {
			return err
		}
		elem := ""
		if len(arr.Signature) > 1 && arr.Signature[0] == '[' {
			elem = arr.Signature[1:]
		}
		s.push(Item[T]{Width: 1, Signature: elem, Register: -1, Origin: ins.Offset})

	case op == classfile.Pop:
		it, err := s.pop()
		if err != nil {
			return err
		}
		if it.Width != 1 {
			return fmt.Errorf("%w: pop of a two-slot value", ErrMismatch)
		}

	case op == classfile.Pop2:
		_, err := s.popSlots(2)
		return err

	case op == classfile.Dup:
		return s.dupX(1, 0)
	case op == classfile.DupX1:
		return s.dupX(1, 1)
	case op == classfile.DupX2:
		return s.dupX(1, 2)
	case op == classfile.Dup2:
		return s.dupX(2, 0)
	case op == classfile.Dup2X1:
		return s.dupX(2, 1)
	case op == classfile.Dup2X2:
		return s.dupX(2, 2)

	case op == classfile.Swap:
		if len(s.items) < 2 {
			return ErrUnderflow
		}
		n := len(s.items)
		if s.items[n-1].Width != 1 || s.items[n-2].Width != 1 {
			return fmt.Errorf("%w: swap of a two-slot value", ErrMismatch)
		}
		s.items[n-1], s.items[n-2] = s.items[n-2], s.items[n-1]

	case op == classfile.Jsr || op == classfile.JsrW:
		if len(ins.Targets) == 0 {
			return fmt.Errorf("%w: no branch target", classfile.ErrBadInstruction)
		}
		s.pushType('R', ins.Offset)
		if err := s.record(ins.Targets[0]); err != nil {
			return err
		}
		_, err := s.pop()
		return err

	case op == classfile.Getstatic, op == classfile.Getfield,
		op == classfile.Putstatic, op == classfile.Putfield:
		return s.fieldAccess(ins)

	case op.IsInvoke():
		return s.invoke(ins)

	case op == classfile.New:
		s.push(Item[T]{Width: 1, Signature: classfile.ClassDescriptor(ins.Class), Register: -1, Origin: ins.Offset})

	case op == classfile.Newarray || op == classfile.Anewarray:
		if err := s.popN(1); err != nil {
			return err
		}
		sig := ins.Class
		if op == classfile.Anewarray {
			sig = "[" + classfile.ClassDescriptor(ins.Class)
		}
		s.push(Item[T]{Width: 1, Signature: sig, Register: -1, Origin: ins.Offset})

	case op == classfile.Multianewarray:
		if err := s.popN(ins.Int); err != nil {
			return err
		}
		s.push(Item[T]{Width: 1, Signature: ins.Class, Register: -1, Origin: ins.Offset})

	case op == classfile.Checkcast:
		if len(s.items) == 0 {
			return ErrUnderflow
		}
		s.items[len(s.items)-1].Signature = classfile.ClassDescriptor(ins.Class)

	default:
		return fmt.Errorf("%w: no stack effect for %s", classfile.ErrBadInstruction, op)
	}
	return nil
}

// dupX duplicates the values in the top copy slots and inserts the copy
// below the skip slots that follow them.
func (s *Simulator[T]) dupX(copySlots, skipSlots int) error {
	top, err := s.popSlots(copySlots)
	if err != nil {
		return err
	}
	var under []Item[T]
	if skipSlots > 0 {
		if under, err = s.popSlots(skipSlots); err != nil {
			return err
		}
	}
	s.items = append(s.items, top...)
	s.items = append(s.items, under...)
	s.items = append(s.items, top...)
	return nil
}

func (s *Simulator[T]) fieldAccess(ins *classfile.Instruction) error {
	if ins.Ref == nil || !classfile.ValidFieldDescriptor(ins.Ref.Descriptor) {
		return fmt.Errorf("%w: missing field reference", classfile.ErrBadInstruction)
	}
	desc := ins.Ref.Descriptor
	switch ins.Op {
	case classfile.Getstatic:
	case classfile.Getfield:
		if err := s.popN(1); err != nil {
			return err
		}
	case classfile.Putstatic:
		return s.popN(1)
	case classfile.Putfield:
		return s.popN(2)
	}
	s.push(Item[T]{Width: classfile.TypeWidth(desc), Signature: desc, Register: -1, Origin: ins.Offset})
	return nil
}

func (s *Simulator[T]) invoke(ins *classfile.Instruction) error {
	if ins.Ref == nil {
		return fmt.Errorf("%w: missing method reference", classfile.ErrBadInstruction)
	}
	mt, err := classfile.ParseMethodDescriptor(ins.Ref.Descriptor)
	if err != nil {
		return fmt.Errorf("%w: %w", classfile.ErrBadInstruction, err)
	}
	n := len(mt.Params)
	if ins.Op != classfile.Invokestatic && ins.Op != classfile.Invokedynamic {
		n++
	}
	if err := s.popN(n); err != nil {
		return err
	}
	if mt.Return != "V" {
		s.push(Item[T]{Width: classfile.TypeWidth(mt.Return), Signature: mt.Return, Register: -1, Origin: ins.Offset})
	}
	return nil
}

// ArgCount returns the number of stack items a call pops for its
// arguments, not counting the receiver.
func ArgCount(ref *classfile.MemberRef) (int, error) {
	mt, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return 0, err
	}
	return len(mt.Params), nil
}
