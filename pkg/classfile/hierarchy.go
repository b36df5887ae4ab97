package classfile

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrClassNotFound is returned when a referenced class is not in the repository.
var ErrClassNotFound = errors.New("class not found")

// Repository indexes classes by internal name for hierarchy questions.
type Repository struct {
	classes map[string]*Class
}

// NewRepository indexes the given class lists. When a name occurs more than
// once, the first definition wins.
func NewRepository(lists ...[]*Class) *Repository {
	r := &Repository{classes: make(map[string]*Class)}
	for _, list := range lists {
		for _, c := range list {
			if _, dup := r.classes[c.Name]; dup {
				slog.Debug("ignoring duplicate class definition", "class", c.Name, "source", c.Source)
				continue
			}
			r.classes[c.Name] = c
		}
	}
	return r
}

// Lookup returns the named class.
func (r *Repository) Lookup(name string) (*Class, error) {
	if c, ok := r.classes[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// Len returns the number of indexed classes.
func (r *Repository) Len() int { return len(r.classes) }

// Superclasses returns the superclass chain of name, nearest first, not
// including name itself. The chain ends at java/lang/Object. The classes
// resolved before a missing link are returned along with the error.
func (r *Repository) Superclasses(name string) ([]*Class, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	var chain []*Class
	seen := map[string]bool{name: true}
	for c.Super != "" {
		if seen[c.Super] {
			return chain, fmt.Errorf("class %s: circular superclass %s", name, c.Super)
		}
		seen[c.Super] = true
		if c, err = r.Lookup(c.Super); err != nil {
			return chain, err
		}
		chain = append(chain, c)
	}
	return chain, nil
}

// Interfaces returns every interface name implements directly or
// transitively, through its superclasses and superinterfaces, in
// breadth-first order. Missing types are reported with the first error;
// interfaces found elsewhere are still returned.
func (r *Repository) Interfaces(name string) ([]*Class, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	supers, firstErr := r.Superclasses(name)

	var (
		result []*Class
		queue  []string
		seen   = make(map[string]bool)
	)
	for _, sc := range append([]*Class{c}, supers...) {
		queue = append(queue, sc.Interfaces...)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		ic, err := r.Lookup(n)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result = append(result, ic)
		queue = append(queue, ic.Interfaces...)
	}
	return result, firstErr
}

// IsSubtype reports whether sub is sup or extends or implements it.
// A false result with a nil error is definite; with an error the
// hierarchy was incomplete.
func (r *Repository) IsSubtype(sub, sup string) (bool, error) {
	if sub == sup || sup == "java/lang/Object" {
		return true, nil
	}
	supers, err := r.Superclasses(sub)
	for _, c := range supers {
		if c.Name == sup {
			return true, nil
		}
	}
	ifaces, ierr := r.Interfaces(sub)
	for _, c := range ifaces {
		if c.Name == sup {
			return true, nil
		}
	}
	if err == nil {
		err = ierr
	}
	return false, err
}
