package methodfacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/715d/methodfacts/pkg/classfile"
)

const widgetYAML = `
classes:
  - name: com/example/Widget
    methods:
      - {name: size, desc: ()I, code: ["0: iconst_0", "1: ireturn"]}
`

const gadgetArchive = `-- gadget.yaml --
classes:
  - name: com/example/Gadget
    methods:
      - {name: run, desc: ()V, code: ["0: return"]}
-- expected.yaml --
methods: {}
-- notes.txt --
not a feed
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func classNames(classes []*classfile.Class) []string {
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.Name)
	}
	return names
}

func TestLoadClasses(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a/widget.yaml":  widgetYAML,
		"b/gadget.txtar": gadgetArchive,
		"b/broken.yml":   "classes: [",
		"README.md":      "ignored",
		".hidden/x.yaml": widgetYAML,
	})

	classes, err := LoadClasses(context.Background(), LoaderOptions{Dir: dir, Paths: []string{"."}})
	require.NoError(t, err)
	require.Equal(t, []string{"com/example/Widget", "com/example/Gadget"}, classNames(classes))
	require.Equal(t, filepath.Join(dir, "b/gadget.txtar")+"#gadget.yaml", classes[1].Source)
}

func TestLoadClassesErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"notes.txt": "nothing here"})

	_, err := LoadClasses(context.Background(), LoaderOptions{Dir: dir})
	require.ErrorContains(t, err, "no class feeds found")

	_, err = LoadClasses(context.Background(), LoaderOptions{Dir: dir, Paths: []string{"missing.yaml"}})
	require.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	feeds := writeFiles(t, map[string]string{"w.yaml": widgetYAML})
	_, err = LoadClasses(ctx, LoaderOptions{Paths: []string{feeds}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeArchive(t *testing.T) {
	classes := DecodeArchive(txtar.Parse([]byte(gadgetArchive)), "inline")
	require.Equal(t, []string{"com/example/Gadget"}, classNames(classes))
	require.Equal(t, "inline#gadget.yaml", classes[0].Source)
}

func TestDeduplicateClasses(t *testing.T) {
	m := func(name string) *classfile.Method { return &classfile.Method{Name: name, Descriptor: "()V"} }
	small := &classfile.Class{Name: "p/A", Source: "small", Methods: []*classfile.Method{m("x")}}
	big := &classfile.Class{Name: "p/A", Source: "big", Methods: []*classfile.Method{m("x"), m("y")}}
	other := &classfile.Class{Name: "p/A", Source: "other", Methods: []*classfile.Method{m("y"), m("z"), m("w")}}
	b := &classfile.Class{Name: "p/B"}

	tests := []struct {
		name  string
		input []*classfile.Class
		want  []string
	}{
		{"first definition kept", []*classfile.Class{big, b, small}, []string{"big", ""}},
		{"superset replaces", []*classfile.Class{small, b, big}, []string{"big", ""}},
		{"disjoint methods keep first", []*classfile.Class{small, other}, []string{"small"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deduplicateClasses(tt.input)
			sources := make([]string, 0, len(got))
			for _, c := range got {
				sources = append(sources, c.Source)
			}
			require.Equal(t, tt.want, sources)
		})
	}
}
