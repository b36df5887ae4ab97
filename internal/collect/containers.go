package collect

import (
	"strings"

	"github.com/715d/methodfacts/pkg/classfile"
)

// containerTypes are the interfaces whose implementations Pass 2 follows.
var containerTypes = []string{
	"java/util/List",
	"java/util/Set",
	"java/util/Map",
}

// factoryNames lists static factories that return unmodifiable containers,
// by owner.
var factoryNames = map[string]map[string]bool{
	"java/util/List":          {"of": true, "copyOf": true},
	"java/util/Set":           {"of": true, "copyOf": true},
	"java/util/Map":           {"of": true, "copyOf": true, "ofEntries": true},
	"java/util/stream/Stream": {"toList": true},
}

// collectionsPrefixes are the java/util/Collections methods returning
// unmodifiable views or constants.
var collectionsPrefixes = []string{"unmodifiable", "empty", "singleton"}

const guavaImmutable = "com/google/common/collect/Immutable"

// IsUnmodifiableProducer reports whether a call to ref is known to return
// a container that cannot be modified.
func IsUnmodifiableProducer(ref *classfile.MemberRef) bool {
	if ref == nil || !strings.HasPrefix(ref.Descriptor, "(") {
		return false
	}
	if ref.Owner == "java/util/Collections" {
		for _, p := range collectionsPrefixes {
			if strings.HasPrefix(ref.Name, p) {
				return true
			}
		}
		return false
	}
	if names, ok := factoryNames[ref.Owner]; ok {
		return names[ref.Name]
	}
	if strings.HasPrefix(ref.Owner, guavaImmutable) {
		switch ref.Name {
		case "of", "copyOf", "build", "sortedCopyOf", "copyOfSorted":
			return true
		}
	}
	return false
}
