package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/715d/methodfacts/internal/analysis"
	"github.com/715d/methodfacts/internal/stack"
	"github.com/715d/methodfacts/pkg/classfile"
)

const containersFeed = `
classes:
  - name: p/Repo
    methods:
      - name: early
        desc: ()Ljava/util/List;
        code:
          - "0: aload_0"
          - "1: invokevirtual p/Repo.view()Ljava/util/List;"
          - "4: areturn"
      - name: view
        desc: ()Ljava/util/List;
        code:
          - "0: aload_0"
          - "1: getfield p/Repo.items:Ljava/util/List;"
          - "4: invokestatic java/util/Collections.unmodifiableList(Ljava/util/List;)Ljava/util/List;"
          - "7: areturn"
      - name: wrap
        desc: ()Ljava/util/List;
        code:
          - "0: aload_0"
          - "1: invokevirtual p/Repo.view()Ljava/util/List;"
          - "4: areturn"
      - name: either
        desc: (Z)Ljava/util/List;
        code:
          - "0: iload_1"
          - "1: ifeq 8"
          - "4: invokestatic java/util/List.of()Ljava/util/List;"
          - "7: areturn"
          - "8: new java/util/ArrayList"
          - "11: dup"
          - "12: invokespecial java/util/ArrayList.<init>()V"
          - "15: areturn"
      - name: fresh
        desc: ()Ljava/util/ArrayList;
        code:
          - "0: new java/util/ArrayList"
          - "3: dup"
          - "4: invokespecial java/util/ArrayList.<init>()V"
          - "7: areturn"
      - name: choose
        desc: (Z)Ljava/util/Set;
        code:
          - "0: iload_1"
          - "1: ifeq 10"
          - "4: invokestatic java/util/Set.of()Ljava/util/Set;"
          - "7: goto 13"
          - "10: invokestatic java/util/Collections.emptySet()Ljava/util/Set;"
          - "13: areturn"
      - name: cast
        desc: (Ljava/util/Map;)Ljava/util/Map;
        code:
          - "0: aload_1"
          - "1: invokestatic java/util/Map.copyOf(Ljava/util/Map;)Ljava/util/Map;"
          - "4: checkcast java/util/Map"
          - "7: areturn"
      - name: untyped
        desc: ()Ljava/lang/Object;
        code:
          - "0: invokestatic java/util/List.of()Ljava/util/List;"
          - "3: areturn"
      - name: unresolved
        desc: ()Lp/Mystery;
        code:
          - "0: invokestatic p/Mystery.make()Lp/Mystery;"
          - "3: areturn"
      - name: viaLocal
        desc: ()Ljava/util/List;
        code:
          - "0: aload_0"
          - "1: getfield p/Repo.items:Ljava/util/List;"
          - "4: invokestatic java/util/Collections.unmodifiableList(Ljava/util/List;)Ljava/util/List;"
          - "7: astore_1"
          - "8: aload_1"
          - "9: areturn"
      - name: reassigned
        desc: (Z)Ljava/util/List;
        code:
          - "0: invokestatic java/util/List.of()Ljava/util/List;"
          - "3: astore_2"
          - "4: iload_1"
          - "5: ifeq 16"
          - "8: new java/util/ArrayList"
          - "11: dup"
          - "12: invokespecial java/util/ArrayList.<init>()V"
          - "15: astore_2"
          - "16: aload_2"
          - "17: areturn"
      - name: overwriteParam
        desc: (Ljava/util/List;)Ljava/util/List;
        code:
          - "0: aload_1"
          - "1: invokestatic java/util/Collections.unmodifiableList(Ljava/util/List;)Ljava/util/List;"
          - "4: astore_1"
          - "5: aload_1"
          - "6: areturn"
  - name: p/Client
    methods:
      - name: names
        desc: (Lp/Repo;)Ljava/util/List;
        code:
          - "0: aload_1"
          - "1: iconst_1"
          - "2: invokevirtual p/Repo.either(Z)Ljava/util/List;"
          - "5: areturn"
`

func TestImmutabilityInference(t *testing.T) {
	store, _ := analyse(t, containersFeed)

	tests := []struct {
		owner, name, desc string
		want              analysis.Immutability
	}{
		{"p/Repo", "view", "()Ljava/util/List;", analysis.Immutable},
		{"p/Repo", "wrap", "()Ljava/util/List;", analysis.Immutable},
		{"p/Repo", "early", "()Ljava/util/List;", analysis.Unknown},
		{"p/Repo", "either", "(Z)Ljava/util/List;", analysis.PossiblyImmutable},
		{"p/Repo", "fresh", "()Ljava/util/ArrayList;", analysis.Unknown},
		{"p/Repo", "choose", "(Z)Ljava/util/Set;", analysis.Immutable},
		{"p/Repo", "cast", "(Ljava/util/Map;)Ljava/util/Map;", analysis.Immutable},
		{"p/Repo", "untyped", "()Ljava/lang/Object;", analysis.Unknown},
		{"p/Repo", "unresolved", "()Lp/Mystery;", analysis.Unknown},
		{"p/Repo", "viaLocal", "()Ljava/util/List;", analysis.Immutable},
		{"p/Repo", "reassigned", "(Z)Ljava/util/List;", analysis.Unknown},
		{"p/Repo", "overwriteParam", "(Ljava/util/List;)Ljava/util/List;", analysis.Unknown},
		{"p/Client", "names", "(Lp/Repo;)Ljava/util/List;", analysis.PossiblyImmutable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, store.Get(id(tt.owner, tt.name, tt.desc)).Immutability)
		})
	}
}

func TestInferReportsMutable(t *testing.T) {
	classes, repo := load(t, containersFeed)
	c := NewImmutabilityCollector(analysis.NewStore(), repo)
	fresh := classes[0].Method("fresh", "()Ljava/util/ArrayList;")
	require.NotNil(t, fresh)

	got, err := c.Infer(fresh)
	require.NoError(t, err)
	require.Equal(t, analysis.Mutable, got)
}

func TestInferAbandonsBrokenStack(t *testing.T) {
	_, repo := load(t, containersFeed)
	c := NewImmutabilityCollector(analysis.NewStore(), repo)
	code, err := classfile.Assemble([]string{"0: pop", "1: aconst_null", "2: areturn"})
	require.NoError(t, err)

	got, err := c.Infer(&classfile.Method{Name: "m", Descriptor: "()Ljava/util/List;", Code: code})
	require.ErrorIs(t, err, stack.ErrUnderflow)
	require.Equal(t, analysis.Unknown, got)
}

func TestSingleStoreLocals(t *testing.T) {
	code, err := classfile.Assemble([]string{
		"0: aconst_null",
		"1: astore_2",
		"2: aconst_null",
		"3: astore_3",
		"4: aconst_null",
		"5: astore_3",
		"6: lconst_0",
		"7: lstore 4",
		"9: iinc 6 1",
		"12: aconst_null",
		"13: astore 7",
		"15: aload 7",
		"17: areturn",
	})
	require.NoError(t, err)
	m := &classfile.Method{
		Name:       "m",
		Descriptor: "(J)Ljava/util/List;",
		Access:     classfile.AccStatic,
		Code:       code,
		Handlers:   []classfile.Handler{{Start: 2, End: 6, Target: 13}},
	}
	require.Equal(t, map[int]bool{2: true, 4: true, 5: true, 6: true}, singleStoreLocals(m))
}

func TestEligible(t *testing.T) {
	_, repo := load(t, containersFeed)
	c := NewImmutabilityCollector(analysis.NewStore(), repo)

	for _, tt := range []struct {
		desc string
		want bool
	}{
		{"()Ljava/util/List;", true},
		{"()Ljava/util/NavigableMap;", true},
		{"()Ljava/util/LinkedHashSet;", true},
		{"()Lcom/google/common/collect/ImmutableList;", true},
		{"()Ljava/util/Collection;", false},
		{"()Ljava/lang/String;", false},
		{"()[Ljava/util/List;", false},
		{"()I", false},
		{"()Lp/Mystery;", false},
	} {
		assert.Equal(t, tt.want, c.Eligible(tt.desc), tt.desc)
	}
}

func TestIsUnmodifiableProducer(t *testing.T) {
	for _, tt := range []struct {
		ref  classfile.MemberRef
		want bool
	}{
		{classfile.MemberRef{Owner: "java/util/Collections", Name: "unmodifiableMap", Descriptor: "(Ljava/util/Map;)Ljava/util/Map;"}, true},
		{classfile.MemberRef{Owner: "java/util/Collections", Name: "singletonList", Descriptor: "(Ljava/lang/Object;)Ljava/util/List;"}, true},
		{classfile.MemberRef{Owner: "java/util/Collections", Name: "sort", Descriptor: "(Ljava/util/List;)V"}, false},
		{classfile.MemberRef{Owner: "java/util/Map", Name: "ofEntries", Descriptor: "([Ljava/util/Map$Entry;)Ljava/util/Map;"}, true},
		{classfile.MemberRef{Owner: "java/util/List", Name: "add", Descriptor: "(Ljava/lang/Object;)Z"}, false},
		{classfile.MemberRef{Owner: "java/util/stream/Stream", Name: "toList", Descriptor: "()Ljava/util/List;"}, true},
		{classfile.MemberRef{Owner: "com/google/common/collect/ImmutableList$Builder", Name: "build", Descriptor: "()Lcom/google/common/collect/ImmutableList;"}, true},
		{classfile.MemberRef{Owner: "com/google/common/collect/ImmutableSet", Name: "copyOf", Descriptor: "(Ljava/util/Collection;)Lcom/google/common/collect/ImmutableSet;"}, true},
		{classfile.MemberRef{Owner: "java/util/ArrayList", Name: "of", Descriptor: "()Ljava/util/List;"}, false},
	} {
		assert.Equal(t, tt.want, IsUnmodifiableProducer(&tt.ref), tt.ref.String())
	}
}
