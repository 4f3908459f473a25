package callforest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/colorfulnotion/zkapply/codec"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/stretchr/testify/require"
)

type leaf uint64

func (l leaf) Digest() common.Field { return common.FieldFromUint64(uint64(l)) }

func sample() []Node[leaf] {
	return []Node[leaf]{
		{Elem: 1, Calls: []Node[leaf]{{Elem: 2}, {Elem: 3, Calls: []Node[leaf]{{Elem: 4}}}}},
		{Elem: 5},
	}
}

func TestEmptyForestHashesToZero(t *testing.T) {
	var f Forest[leaf]
	require.True(t, f.IsEmpty())
	h, ok := f.Hash()
	require.True(t, ok)
	require.True(t, h.IsZero())
	require.True(t, Empty[leaf]().IsEmpty())
}

func TestAccumulateHashesIdempotent(t *testing.T) {
	f := NewBuilder[leaf]().Build(sample())
	require.False(t, f.Authenticated())
	AccumulateHashes(f)
	first := f.MustHash()
	AccumulateHashes(f)
	require.Equal(t, first, f.MustHash())
}

func TestConsMatchesAccumulate(t *testing.T) {
	built := NewBuilder[leaf]().Build(sample())
	AccumulateHashes(built)

	four, err := Cons[leaf](4, Empty[leaf](), Empty[leaf]())
	require.NoError(t, err)
	three, err := Cons[leaf](3, four, Empty[leaf]())
	require.NoError(t, err)
	calls, err := Cons[leaf](2, Empty[leaf](), three)
	require.NoError(t, err)
	five, err := Cons[leaf](5, Empty[leaf](), Empty[leaf]())
	require.NoError(t, err)
	consed, err := Cons[leaf](1, calls, five)
	require.NoError(t, err)

	require.Equal(t, built.MustHash(), consed.MustHash())

	_, err = Cons[leaf](9, NewBuilder[leaf]().Build(sample()), Empty[leaf]())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPopAndOrder(t *testing.T) {
	f := NewBuilder[leaf]().Build(sample())
	AccumulateHashes(f)
	require.Equal(t, []leaf{1, 2, 3, 4, 5}, f.ToList())
	require.Equal(t, 2, f.Len())
	require.Equal(t, 5, f.Count())

	tree, rest, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, leaf(1), tree.Elem)
	require.Equal(t, []leaf{2, 3, 4}, tree.Children.ToList())
	require.Equal(t, []leaf{5}, rest.ToList())

	// sub-forests carry their own stack hashes
	tail := FromList([]leaf{5})
	require.Equal(t, tail.MustHash(), rest.MustHash())
}

func TestHashSensitivity(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node[leaf]
	}{
		{"reordered", []Node[leaf]{{Elem: 5}, sample()[0]}},
		{"flattened", []Node[leaf]{{Elem: 1}, {Elem: 2}, {Elem: 3}, {Elem: 4}, {Elem: 5}}},
		{"changed leaf", []Node[leaf]{sample()[0], {Elem: 6}}},
	}
	base := NewBuilder[leaf]().Build(sample())
	AccumulateHashes(base)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewBuilder[leaf]().Build(tc.nodes)
			AccumulateHashes(f)
			require.NotEqual(t, base.MustHash(), f.MustHash())
		})
	}
}

func TestMapPreservesShape(t *testing.T) {
	f := NewBuilder[leaf]().Build(sample())
	AccumulateHashes(f)
	doubled := Map(f, func(l leaf) leaf { return l * 2 })
	require.Equal(t, []leaf{2, 4, 6, 8, 10}, doubled.ToList())
	require.True(t, doubled.Authenticated())
	require.Equal(t, Map(f, func(l leaf) leaf { return l }).MustHash(), f.MustHash())
}

type wireLeaf struct{ V uint64 }

func (w *wireLeaf) Digest() common.Field { return common.FieldFromUint64(w.V) }

func TestWireAndJSON(t *testing.T) {
	f := NewBuilder[*wireLeaf]().Build([]Node[*wireLeaf]{
		{Elem: &wireLeaf{V: 7}, Calls: []Node[*wireLeaf]{{Elem: &wireLeaf{V: 8}}}},
	})
	AccumulateHashes(f)

	b, err := codec.Marshal(f)
	require.NoError(t, err)
	var back Forest[*wireLeaf]
	require.NoError(t, back.UnmarshalWire(io.Reader(bytes.NewReader(b))))
	require.Equal(t, f.MustHash(), back.MustHash())

	js, err := f.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `[{"update":{"V":7},"calls":[{"update":{"V":8},"calls":[]}]}]`, string(js))
	var fromJSON Forest[*wireLeaf]
	require.NoError(t, fromJSON.UnmarshalJSON(js))
	require.Equal(t, f.MustHash(), fromJSON.MustHash())
}

func TestPrint(t *testing.T) {
	f := NewBuilder[leaf]().Build(sample())
	out := Print(f, func(l leaf) string { return common.FieldFromUint64(uint64(l)).String() })
	require.Contains(t, out, "└── 5")
	require.Contains(t, out, "4")
}

func TestWideForest(t *testing.T) {
	const width = 10_000
	elems := make([]leaf, width)
	for i := range elems {
		elems[i] = leaf(i)
	}
	f := FromList(elems)

	t.Run("map", func(t *testing.T) {
		same := Map(f, func(l leaf) leaf { return l })
		require.Equal(t, width, same.Len())
		require.Equal(t, f.MustHash(), same.MustHash())
	})
	t.Run("map stops at the first error", func(t *testing.T) {
		errStop := errors.New("stop")
		visited := 0
		_, err := TryMap(f, func(l leaf) (leaf, error) {
			visited++
			if l == width/2 {
				return 0, errStop
			}
			return l, nil
		})
		require.ErrorIs(t, err, errStop)
		require.Equal(t, width/2+1, visited)
	})
	t.Run("cons copies across arenas", func(t *testing.T) {
		g, err := Cons(leaf(width), f, FromList([]leaf{width + 1}))
		require.NoError(t, err)
		tree, rest, ok := g.Pop()
		require.True(t, ok)
		require.Equal(t, elems, tree.Children.ToList())
		require.Equal(t, f.MustHash(), tree.Children.MustHash())
		require.Equal(t, []leaf{width + 1}, rest.ToList())
	})
}

func TestUnmarshalJSONDepth(t *testing.T) {
	nested := func(depth int) []byte {
		open := strings.Repeat(`[{"update":{"V":1},"calls":`, depth)
		return []byte(open + "[]" + strings.Repeat("}]", depth))
	}
	tests := []struct {
		name  string
		depth int
		ok    bool
	}{
		{"at the limit", maxDepth, true},
		{"past the limit", maxDepth + 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var f Forest[*wireLeaf]
			err := f.UnmarshalJSON(nested(tc.depth))
			if tc.ok {
				require.NoError(t, err)
				require.Equal(t, tc.depth, f.Count())
				return
			}
			require.ErrorContains(t, err, "deeper than")
		})
	}
}
