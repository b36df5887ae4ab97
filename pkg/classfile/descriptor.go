package classfile

import (
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// ObjectType is the descriptor of the root object type.
const ObjectType = "Ljava/lang/Object;"

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []string // field descriptors of the parameters
	Return string   // field descriptor of the result, "V" for void
}

// ArgSlots returns the number of operand stack slots the parameters occupy.
func (mt *MethodType) ArgSlots() int {
	n := 0
	for _, p := range mt.Params {
		n += TypeWidth(p)
	}
	return n
}

var methodTypes = xsync.NewMap[string, *MethodType]()

// ParseMethodDescriptor parses a descriptor such as "(ILjava/lang/String;)V".
// Results are cached; callers must not modify the returned value.
func ParseMethodDescriptor(desc string) (*MethodType, error) {
	if mt, ok := methodTypes.Load(desc); ok {
		return mt, nil
	}
	mt, err := parseMethodDescriptor(desc)
	if err != nil {
		return nil, err
	}
	methodTypes.Store(desc, mt)
	return mt, nil
}

func parseMethodDescriptor(desc string) (*MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	mt := &MethodType{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescriptorLen(desc[i:])
		if err != nil {
			return nil, fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		mt.Params = append(mt.Params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	ret := desc[i+1:]
	if ret != "V" {
		n, err := fieldDescriptorLen(ret)
		if err != nil || n != len(ret) {
			return nil, fmt.Errorf("method descriptor %q: bad return type", desc)
		}
	}
	mt.Return = ret
	return mt, nil
}

// fieldDescriptorLen returns the length of the field descriptor at the start of s.
func fieldDescriptorLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return i + end + 1, nil
	}
	return 0, fmt.Errorf("bad type character %q", s[i])
}

// ValidFieldDescriptor reports whether desc is exactly one field descriptor.
func ValidFieldDescriptor(desc string) bool {
	n, err := fieldDescriptorLen(desc)
	return err == nil && n == len(desc)
}

// TypeWidth returns the number of stack slots a value of the given field
// descriptor occupies: 2 for long and double, 0 for void, 1 otherwise.
func TypeWidth(desc string) int {
	switch desc {
	case "J", "D":
		return 2
	case "V", "":
		return 0
	}
	return 1
}

// IsReference reports whether desc names a class or array type.
func IsReference(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// ClassName returns the internal class name of a class type descriptor,
// e.g. "java/util/List" for "Ljava/util/List;". Arrays and primitives
// return false.
func ClassName(desc string) (string, bool) {
	if len(desc) < 3 || desc[0] != 'L' || desc[len(desc)-1] != ';' {
		return "", false
	}
	return desc[1 : len(desc)-1], true
}

// ClassDescriptor returns the field descriptor for an internal class name.
// Array names such as "[I" are already descriptors and are returned as is.
func ClassDescriptor(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "L" + name + ";"
}
