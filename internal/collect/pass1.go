package collect

import (
	"fmt"
	"log/slog"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/internal/stack"
	"github.com/715d/methodfacts/pkg/classfile"
	"github.com/715d/methodfacts/pkg/runtime"
)

// provenance tags stack values by where they came from.
type provenance uint8

// provSelf marks the receiver of an instance method.
const provSelf provenance = 1

// SelfCallEdge is a call made on the receiver of the calling method.
type SelfCallEdge struct {
	Caller analysis.MethodID
	Callee analysis.MethodID
	// Super is set for invokespecial calls into a supertype.
	Super bool
}

// Collector runs Pass 1 one class at a time.
type Collector struct {
	store *analysis.Store
	repo  *classfile.Repository
	sim   *stack.Simulator[provenance]
}

// NewCollector returns a Pass 1 collector writing into store and resolving
// hierarchy questions with repo.
func NewCollector(store *analysis.Store, repo *classfile.Repository) *Collector {
	return &Collector{
		store: store,
		repo:  repo,
		sim:   stack.New[provenance](),
	}
}

// VisitClass records facts for every method of cls and returns the self
// call edges found in their bodies. The edges are only meaningful until
// the class's closure has been computed.
func (c *Collector) VisitClass(cls *classfile.Class) []SelfCallEdge {
	sigs, complete := ConstrainingSignatures(c.repo, cls)
	if !complete {
		slog.Debug("incomplete hierarchy; treating overridable methods as derived", "class", cls.Name)
	}

	var edges []SelfCallEdge
	for _, m := range cls.Methods {
		edges = append(edges, c.visitMethod(cls, m, sigs, complete)...)
	}
	return edges
}

func (c *Collector) visitMethod(cls *classfile.Class, m *classfile.Method, sigs []analysis.MethodID, complete bool) []SelfCallEdge {
	id := analysis.IDOf(cls.Name, m)

	derived := false
	if Overridable(m) {
		derived = !complete
		for _, sig := range sigs {
			if derived {
				break
			}
			derived = MatchesConstraint(c.repo, m, sig)
		}
	}

	var (
		calls    int
		mutates  bool
		edges    []SelfCallEdge
		bodyRead = m.DecodeErr == nil && len(m.Code) > 0
	)
	if m.DecodeErr != nil {
		slog.Debug("skipping undecodable method", "method", id, "error", m.DecodeErr)
	}
	if bodyRead {
		for i := range m.Code {
			ins := &m.Code[i]
			switch {
			case ins.Op.IsInvoke():
				calls++
				if ins.Ref != nil {
					c.store.RecordCallSite(analysis.RefID(ins.Ref), m.Access)
				}
			case ins.Op.IsFieldWrite():
				mutates = true
			}
		}
		var err error
		if edges, err = c.selfCalls(cls, m, id); err != nil {
			slog.Debug("abandoning self-call scan; assuming the method modifies state", "method", id, "error", err)
			edges = nil
			mutates = true
		}
	}

	f := c.store.GetOrCreate(id)
	f.Analysed = true
	f.HasBody = bodyRead
	f.Access = m.Access
	f.NumBytes = m.CodeLength()
	f.SetNumCalls(calls)
	if mutates {
		f.MarkModifiesState()
	}
	f.IsEquals = analysis.IsEqualsShape(m.Name, m.Descriptor)
	f.IsHashCode = analysis.IsHashCodeShape(m.Name, m.Descriptor)
	f.IsToString = analysis.IsToStringShape(m.Name, m.Descriptor)
	f.Derived = derived
	if externallyCallable(cls, m) || derived {
		f.Expose(analysis.ExposedPublic)
	}
	return edges
}

// externallyCallable reports whether code outside the program, the
// runtime included, may call m.
func externallyCallable(cls *classfile.Class, m *classfile.Method) bool {
	if cls.IsNested() || m.Access.IsAbstract() || cls.IsInterface() || cls.Access.Has(classfile.AccAnnotation) {
		return true
	}
	if m.Access.IsPrivate() {
		return false
	}
	if len(m.Annotations) > 0 || len(cls.Annotations) > 0 {
		return true
	}
	return runtime.Entrypoint(m.Name, m.Descriptor, m.Access).Kind != runtime.EntryNone
}

// selfCalls simulates m and returns the calls it makes on its own
// receiver.
func (c *Collector) selfCalls(cls *classfile.Class, m *classfile.Method, id analysis.MethodID) (edges []SelfCallEdge, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stack simulation: %v", r)
		}
	}()

	trackSelf := !m.Access.IsStatic() && !storesLocal0(m.Code)
	s := c.sim
	s.Reset(m)
	for i := range m.Code {
		ins := &m.Code[i]
		if edge, ok := c.selfCallAt(s, cls, id, ins); ok {
			edges = append(edges, edge)
		}
		if err := s.Apply(ins); err != nil {
			return nil, err
		}
		if trackSelf && loadsLocal0(ins) {
			s.SetTag(0, provSelf)
		}
	}
	return edges, nil
}

func (c *Collector) selfCallAt(s *stack.Simulator[provenance], cls *classfile.Class, caller analysis.MethodID, ins *classfile.Instruction) (SelfCallEdge, bool) {
	switch ins.Op {
	case classfile.Invokevirtual, classfile.Invokespecial, classfile.Invokeinterface:
	default:
		return SelfCallEdge{}, false
	}
	if ins.Ref == nil {
		return SelfCallEdge{}, false
	}
	argc, err := stack.ArgCount(ins.Ref)
	if err != nil || argc >= s.Depth() {
		return SelfCallEdge{}, false
	}
	if tag, ok := s.Tag(argc); !ok || tag != provSelf {
		return SelfCallEdge{}, false
	}
	if ins.Op == classfile.Invokespecial && ins.Ref.Name == "<init>" && ins.Ref.Owner == "java/lang/Object" {
		return SelfCallEdge{}, false
	}
	return SelfCallEdge{
		Caller: caller,
		Callee: analysis.RefID(ins.Ref),
		Super:  ins.Op == classfile.Invokespecial && ins.Ref.Owner != cls.Name,
	}, true
}

func loadsLocal0(ins *classfile.Instruction) bool {
	return ins.Op == classfile.Aload0 || (ins.Op == classfile.Aload && ins.Local == 0)
}

func storesLocal0(code []classfile.Instruction) bool {
	for i := range code {
		op := code[i].Op
		if (op >= classfile.Istore && op <= classfile.Astore3) && code[i].Local == 0 {
			return true
		}
	}
	return false
}
