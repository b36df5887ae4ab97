package classfile

import "strings"

// Class is a decoded class or interface.
type Class struct {
	Name        string // internal name, e.g. "com/example/Widget"
	Super       string // empty only for java/lang/Object
	Interfaces  []string
	Access      AccessFlags
	Annotations []string // annotation type descriptors
	Methods     []*Method
	Source      string // feed file the class was decoded from
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool { return c.Access.Has(AccInterface) }

// IsNested reports whether the class is a nested, local or anonymous class.
func (c *Class) IsNested() bool { return strings.Contains(c.Name, "$") }

// Method returns the method with the given name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// Method is a decoded method. Code is empty for abstract and native methods.
type Method struct {
	Name        string
	Descriptor  string
	Access      AccessFlags
	Annotations []string
	Code        []Instruction
	Handlers    []Handler
	Lines       LineTable

	// DecodeErr is set when the body could not be decoded. Analyses skip
	// such methods.
	DecodeErr error
}

// CodeLength returns the byte length of the method body.
func (m *Method) CodeLength() int {
	if len(m.Code) == 0 {
		return 0
	}
	return m.Code[len(m.Code)-1].Next()
}

// IsConstructor reports whether m is an instance initializer.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// IsStaticInitializer reports whether m is a class initializer.
func (m *Method) IsStaticInitializer() bool { return m.Name == "<clinit>" }
