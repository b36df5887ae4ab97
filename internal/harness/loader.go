package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
	yaml "gopkg.in/yaml.v3"

	"github.com/715d/methodfacts/pkg/classfile"
	"github.com/715d/methodfacts/pkg/methodfacts"
)

// libraryDir is the archive directory holding hierarchy-only feeds.
const libraryDir = "lib/"

// Fixture is a parsed test archive.
type Fixture struct {
	Case      *TestCase
	Classes   []*classfile.Class
	Libraries []*classfile.Class
}

// LoadFixture parses the txtar archive at path. Members under lib/ are
// library feeds, expected.yaml holds the test case, and every other YAML
// member is a feed to analyse.
func LoadFixture(t *testing.T, path, root string) *Fixture {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(t, err)

	tc := &TestCase{}
	var feeds, libs txtar.Archive
	for _, f := range ar.Files {
		switch {
		case f.Name == methodfacts.ExpectationsFile:
			require.NoError(t, yaml.Unmarshal(f.Data, tc), "%s: %s", path, f.Name)
		case strings.HasPrefix(f.Name, libraryDir):
			libs.Files = append(libs.Files, f)
		default:
			feeds.Files = append(feeds.Files, f)
		}
	}
	require.NotEmpty(t, tc.Configurations, "%s: no %s member", path, methodfacts.ExpectationsFile)

	tc.Name = filepath.Base(path)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			tc.Name = rel
		}
	}
	return &Fixture{
		Case:      tc,
		Classes:   methodfacts.DecodeArchive(&feeds, path),
		Libraries: methodfacts.DecodeArchive(&libs, path),
	}
}
