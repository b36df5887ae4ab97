package stack

import "github.com/715d/methodfacts/pkg/classfile"

// TernaryCorrector repairs tags lost at the join of a conditional
// expression such as c ? x : y.
//
// Entry states are snapshots taken when a branch is recorded, so a tag
// written to an older stack item on the first arm does not reach the
// second arm, and the join then drops it. The corrector saves every tag
// just before the goto that ends the first arm and restores them onto the
// second arm's state, leaving the expression's own result alone.
//
// The zero value is ready to use. A corrector belongs to one walk of one
// method.
type TernaryCorrector[T comparable] struct {
	armed      bool
	savedDepth int
	saved      []savedTag[T] // bottom first
}

type savedTag[T comparable] struct {
	tag T
	ok  bool
}

// Armed reports whether tags are saved and waiting to be restored.
func (c *TernaryCorrector[T]) Armed() bool { return c.armed }

// Disarm drops any saved tags.
func (c *TernaryCorrector[T]) Disarm() {
	c.armed = false
	c.savedDepth = 0
	c.saved = c.saved[:0]
}

func (c *TernaryCorrector[T]) save(s *Simulator[T]) {
	if c.armed || s.Depth() == 0 {
		return
	}
	c.saved = c.saved[:0]
	for _, it := range s.items {
		c.saved = append(c.saved, savedTag[T]{tag: it.tag, ok: it.tagged})
	}
	c.savedDepth = len(s.items)
	c.armed = true
}

func (c *TernaryCorrector[T]) restore(s *Simulator[T]) {
	if !c.armed {
		return
	}
	n := min(len(s.items), c.savedDepth-1)
	for i := range n {
		it := &s.items[i]
		if !it.tagged && c.saved[i].ok {
			it.tag, it.tagged = c.saved[i].tag, true
		}
	}
	c.Disarm()
}

// ApplyCorrected is Apply with tag correction around unconditional jumps.
// A nil corrector behaves like Apply.
func (s *Simulator[T]) ApplyCorrected(ins *classfile.Instruction, c *TernaryCorrector[T]) error {
	if c == nil {
		return s.Apply(ins)
	}
	jump := ins.Op.IsUnconditionalJump()
	if jump {
		c.save(s)
	}
	if err := s.Apply(ins); err != nil {
		c.Disarm()
		return err
	}
	if jump {
		c.restore(s)
	}
	return nil
}
