package analysis

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/715d/methodfacts/pkg/classfile"
)

// NameCache caches Java-style display names for methods and descriptors.
// Reports render the same callee names many times.
type NameCache struct {
	methodCache *xsync.Map[MethodID, string]
	typeCache   *xsync.Map[string, string]
}

func NewNameCache() *NameCache {
	return &NameCache{
		methodCache: xsync.NewMap[MethodID, string](),
		typeCache:   xsync.NewMap[string, string](),
	}
}

// ComputeMethodName renders id as it would appear in source, e.g.
// "java.util.List com.example.Widget.items(int, java.lang.String[])".
// Constructors and static initialisers omit the return type. An unparsable
// descriptor is rendered verbatim after the name.
func (c *NameCache) ComputeMethodName(id MethodID) string {
	if name, ok := c.methodCache.Load(id); ok {
		return name
	}
	name := c.computeMethodName(id)
	c.methodCache.Store(id, name)
	return name
}

// ComputeTypeName renders a field descriptor as a Java type name:
// "I" is "int", "[Ljava/lang/String;" is "java.lang.String[]".
func (c *NameCache) ComputeTypeName(desc string) string {
	if desc == "" {
		return ""
	}
	if name, ok := c.typeCache.Load(desc); ok {
		return name
	}
	name := computeTypeName(desc)
	c.typeCache.Store(desc, name)
	return name
}

func (c *NameCache) computeMethodName(id MethodID) string {
	owner := strings.ReplaceAll(id.Owner, "/", ".")

	var builder strings.Builder
	builder.Grow(len(owner) + len(id.Name) + len(id.Descriptor) + 16)

	mt, err := classfile.ParseMethodDescriptor(id.Descriptor)
	if err != nil {
		builder.WriteString(owner)
		builder.WriteByte('.')
		builder.WriteString(id.Name)
		builder.WriteString(id.Descriptor)
		return builder.String()
	}

	if id.Name != "<init>" && id.Name != "<clinit>" {
		builder.WriteString(c.ComputeTypeName(mt.Return))
		builder.WriteByte(' ')
	}
	builder.WriteString(owner)
	builder.WriteByte('.')
	builder.WriteString(id.Name)
	builder.WriteByte('(')
	for i, p := range mt.Params {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(c.ComputeTypeName(p))
	}
	builder.WriteByte(')')
	return builder.String()
}

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

func computeTypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]

	var base string
	if name, ok := classfile.ClassName(elem); ok {
		base = strings.ReplaceAll(name, "/", ".")
	} else if len(elem) == 1 && primitiveNames[elem[0]] != "" {
		base = primitiveNames[elem[0]]
	} else {
		return desc
	}
	return base + strings.Repeat("[]", dims)
}
