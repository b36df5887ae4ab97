package classfile

import (
	"bytes"
	_ "embed"
	"sync"
)

//go:embed stubs.yaml
var stubsYAML []byte

var loadStubs = sync.OnceValues(func() ([]*Class, error) {
	return DecodeFeed(bytes.NewReader(stubsYAML), "stubs.yaml")
})

// CoreStubs returns signature-only classes for java.lang and java.util types
// that most programs extend or return. The result is shared; callers must not
// modify it.
func CoreStubs() ([]*Class, error) {
	return loadStubs()
}
