package collect

import (
	"fmt"
	"log/slog"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/internal/stack"
	"github.com/715d/methodfacts/pkg/classfile"
)

// ImmutabilityCollector runs Pass 2: for methods returning a List, Set or
// Map it infers whether callers receive an unmodifiable container.
type ImmutabilityCollector struct {
	store    *analysis.Store
	repo     *classfile.Repository
	sim      *stack.Simulator[analysis.Immutability]
	eligible map[string]bool
}

// NewImmutabilityCollector returns a Pass 2 collector. It reads facts
// recorded for already analysed callees from store and writes its results
// back there.
func NewImmutabilityCollector(store *analysis.Store, repo *classfile.Repository) *ImmutabilityCollector {
	return &ImmutabilityCollector{
		store:    store,
		repo:     repo,
		sim:      stack.New[analysis.Immutability](),
		eligible: make(map[string]bool),
	}
}

// VisitClass infers and stores immutability for the eligible methods of
// cls. Only Immutable and PossiblyImmutable results are stored.
func (c *ImmutabilityCollector) VisitClass(cls *classfile.Class) {
	for _, m := range cls.Methods {
		if m.DecodeErr != nil || len(m.Code) == 0 || !c.Eligible(m.Descriptor) {
			continue
		}
		id := analysis.IDOf(cls.Name, m)
		result, err := c.Infer(m)
		if err != nil {
			slog.Debug("abandoning immutability inference", "method", id, "error", err)
			continue
		}
		c.store.SetImmutability(id, result)
	}
}

// Eligible reports whether a method with the given descriptor returns a
// class type that is a List, Set or Map. Types whose hierarchy cannot be
// resolved are not eligible.
func (c *ImmutabilityCollector) Eligible(desc string) bool {
	mt, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return false
	}
	name, ok := classfile.ClassName(mt.Return)
	if !ok {
		return false
	}
	if v, ok := c.eligible[name]; ok {
		return v
	}
	v := false
	for _, target := range containerTypes {
		if is, err := c.repo.IsSubtype(name, target); is && err == nil {
			v = true
			break
		}
	}
	c.eligible[name] = v
	return v
}

// Infer walks m and joins the immutability of every returned value. A
// value nothing is known about counts as Mutable.
func (c *ImmutabilityCollector) Infer(m *classfile.Method) (result analysis.Immutability, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = analysis.Unknown, fmt.Errorf("stack simulation: %v", r)
		}
	}()

	var corrector stack.TernaryCorrector[analysis.Immutability]
	s := c.sim
	s.Reset(m)
	single := singleStoreLocals(m)
	locals := make(map[int]analysis.Immutability)
	for i := range m.Code {
		ins := &m.Code[i]
		if ins.Op == classfile.Areturn && s.Depth() > 0 {
			v, ok := s.Tag(0)
			if !ok {
				v = analysis.Mutable
			}
			result = result.Merge(v)
		}
		if isRefStore(ins.Op) && single[ins.Local] && s.Depth() > 0 {
			if v, ok := s.Tag(0); ok {
				locals[ins.Local] = v
			}
		}
		if err := s.ApplyCorrected(ins, &corrector); err != nil {
			return analysis.Unknown, err
		}
		if ins.Op.IsInvoke() && ins.Ref != nil && s.Depth() > 0 && returnsReference(ins.Ref) {
			c.tagCallResult(s, ins.Ref)
		}
		if isRefLoad(ins.Op) {
			if v, ok := locals[ins.Local]; ok {
				s.SetTag(0, v)
			}
		}
	}
	return result, nil
}

// singleStoreLocals returns the locals of m, other than the receiver and
// parameters, written by exactly one instruction that is not a branch or
// handler target. Every load of such a local sees the value of that store,
// and the stored value's tag is final before the store runs.
func singleStoreLocals(m *classfile.Method) map[int]bool {
	params := 0
	if mt, err := classfile.ParseMethodDescriptor(m.Descriptor); err == nil {
		params = mt.ArgSlots()
	}
	if !m.Access.IsStatic() {
		params++
	}
	joins := make(map[int]bool)
	for i := range m.Code {
		for _, t := range m.Code[i].Targets {
			joins[t] = true
		}
	}
	for _, h := range m.Handlers {
		joins[h.Target] = true
	}
	stores := make(map[int]int)
	for i := range m.Code {
		ins := &m.Code[i]
		width, ok := localWrite(ins.Op)
		if !ok {
			continue
		}
		n := 1
		if joins[ins.Offset] {
			n = 2
		}
		for slot := ins.Local; slot < ins.Local+width; slot++ {
			stores[slot] += n
		}
	}
	single := make(map[int]bool)
	for slot, n := range stores {
		if n == 1 && slot >= params {
			single[slot] = true
		}
	}
	return single
}

// localWrite reports whether op writes a local variable and how many
// slots it covers.
func localWrite(op classfile.Opcode) (int, bool) {
	switch {
	case op == classfile.Lstore || op == classfile.Dstore,
		op >= classfile.Lstore0 && op <= classfile.Lstore3,
		op >= classfile.Dstore0 && op <= classfile.Dstore3:
		return 2, true
	case op >= classfile.Istore && op <= classfile.Astore3, op == classfile.Iinc:
		return 1, true
	}
	return 0, false
}

func isRefStore(op classfile.Opcode) bool {
	return op == classfile.Astore || (op >= classfile.Astore0 && op <= classfile.Astore3)
}

func isRefLoad(op classfile.Opcode) bool {
	return op == classfile.Aload || (op >= classfile.Aload0 && op <= classfile.Aload3)
}

func (c *ImmutabilityCollector) tagCallResult(s *stack.Simulator[analysis.Immutability], ref *classfile.MemberRef) {
	if IsUnmodifiableProducer(ref) {
		s.SetTag(0, analysis.Immutable)
		return
	}
	if f := c.store.Get(analysis.RefID(ref)); f.Immutability.Positive() {
		s.SetTag(0, f.Immutability)
	}
}

func returnsReference(ref *classfile.MemberRef) bool {
	mt, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	return err == nil && classfile.IsReference(mt.Return)
}
