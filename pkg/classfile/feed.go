package classfile

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// A feed is a YAML stream of documents, each holding a list of classes:
//
//	classes:
//	  - name: com/example/Widget
//	    super: java/lang/Object
//	    interfaces: [java/lang/Runnable]
//	    access: public
//	    methods:
//	      - name: run
//	        desc: ()V
//	        access: public
//	        code:
//	          - "0: aload_0"
//	          - "1: invokevirtual com/example/Widget.tick()V"
//	          - "4: return"
//	        lines: {0: 12, 4: 13}

type feedDoc struct {
	Classes []feedClass `yaml:"classes"`
}

type feedClass struct {
	Name        string       `yaml:"name"`
	Super       *string      `yaml:"super"`
	Interfaces  []string     `yaml:"interfaces"`
	Access      string       `yaml:"access"`
	Annotations []string     `yaml:"annotations"`
	Methods     []feedMethod `yaml:"methods"`
}

type feedMethod struct {
	Name        string        `yaml:"name"`
	Desc        string        `yaml:"desc"`
	Access      string        `yaml:"access"`
	Annotations []string      `yaml:"annotations"`
	Code        []string      `yaml:"code"`
	Handlers    []feedHandler `yaml:"handlers"`
	Lines       map[int]int   `yaml:"lines"`
}

type feedHandler struct {
	Start  int    `yaml:"start"`
	End    int    `yaml:"end"`
	Target int    `yaml:"target"`
	Catch  string `yaml:"catch"`
}

// DecodeFeed decodes all classes in a YAML feed. A method whose code cannot
// be assembled is kept with DecodeErr set; structural errors in class or
// method headers fail the whole feed.
func DecodeFeed(r io.Reader, source string) ([]*Class, error) {
	dec := yaml.NewDecoder(r)
	var classes []*Class
	for {
		var doc feedDoc
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding %s: %w", source, err)
		}
		for i := range doc.Classes {
			cls, err := doc.Classes[i].build(source)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
			classes = append(classes, cls)
		}
	}
	return classes, nil
}

// InternalName converts a dotted binary name to its internal form.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

func (fc *feedClass) build(source string) (*Class, error) {
	if fc.Name == "" {
		return nil, fmt.Errorf("class without a name")
	}
	access, err := ParseAccess(fc.Access)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", fc.Name, err)
	}
	cls := &Class{
		Name:        InternalName(fc.Name),
		Access:      access,
		Annotations: fc.Annotations,
		Source:      source,
	}
	switch {
	case fc.Super != nil:
		cls.Super = InternalName(*fc.Super)
	case cls.Name != "java/lang/Object":
		cls.Super = "java/lang/Object"
	}
	for _, iface := range fc.Interfaces {
		cls.Interfaces = append(cls.Interfaces, InternalName(iface))
	}
	for i := range fc.Methods {
		m, err := fc.Methods[i].build()
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", cls.Name, err)
		}
		if cls.Method(m.Name, m.Descriptor) != nil {
			return nil, fmt.Errorf("class %s: duplicate method %s%s", cls.Name, m.Name, m.Descriptor)
		}
		cls.Methods = append(cls.Methods, m)
	}
	return cls, nil
}

func (fm *feedMethod) build() (*Method, error) {
	if fm.Name == "" {
		return nil, fmt.Errorf("method without a name")
	}
	if _, err := ParseMethodDescriptor(fm.Desc); err != nil {
		return nil, fmt.Errorf("method %s: %w", fm.Name, err)
	}
	access, err := ParseAccess(fm.Access)
	if err != nil {
		return nil, fmt.Errorf("method %s%s: %w", fm.Name, fm.Desc, err)
	}
	m := &Method{
		Name:        fm.Name,
		Descriptor:  fm.Desc,
		Access:      access,
		Annotations: fm.Annotations,
	}
	for _, h := range fm.Handlers {
		m.Handlers = append(m.Handlers, Handler{Start: h.Start, End: h.End, Target: h.Target, Catch: InternalName(h.Catch)})
	}
	for off, line := range fm.Lines {
		m.Lines = append(m.Lines, LineEntry{Offset: off, Line: line})
	}
	slices.SortFunc(m.Lines, func(a, b LineEntry) int { return a.Offset - b.Offset })

	if len(fm.Code) > 0 {
		m.Code, m.DecodeErr = Assemble(fm.Code)
		if m.DecodeErr == nil {
			m.DecodeErr = checkHandlers(m)
		}
		if m.DecodeErr != nil {
			m.Code = nil
		}
	}
	return m, nil
}

func checkHandlers(m *Method) error {
	for _, h := range m.Handlers {
		if !slices.ContainsFunc(m.Code, func(ins Instruction) bool { return ins.Offset == h.Target }) {
			return fmt.Errorf("%w: handler target %d is not an instruction", ErrBadInstruction, h.Target)
		}
	}
	return nil
}
