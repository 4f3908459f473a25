package callforest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/colorfulnotion/zkapply/codec"
	"github.com/xlab/treeprint"
)

// MarshalWire encodes the forest as a length-prefixed list of
// (element, children) pairs. Hashes are not encoded.
func (f Forest[T]) MarshalWire() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.encode(codec.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f Forest[T]) encode(e *codec.Encoder) error {
	if err := e.Encode(uint32(f.Len())); err != nil {
		return err
	}
	for rest := f; ; {
		tree, next, ok := rest.Pop()
		if !ok {
			return nil
		}
		if err := e.Encode(tree.Elem); err != nil {
			return err
		}
		if err := tree.Children.encode(e); err != nil {
			return err
		}
		rest = next
	}
}

// UnmarshalWire decodes a forest and accumulates its hashes.
func (f *Forest[T]) UnmarshalWire(r io.Reader) error {
	d := codec.NewDecoder(r)
	nodes, err := decodeNodes[T](d, 0)
	if err != nil {
		return err
	}
	out := NewBuilder[T]().Build(nodes)
	AccumulateHashes(out)
	*f = out
	return nil
}

// maxDepth bounds nesting when decoding untrusted input.
const maxDepth = 64

func decodeNodes[T Digester](d *codec.Decoder, depth int) ([]Node[T], error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("call forest deeper than %d", maxDepth)
	}
	var n uint32
	if err := d.Decode(&n); err != nil {
		return nil, err
	}
	out := make([]Node[T], 0, min(n, 1024))
	for i := uint32(0); i < n; i++ {
		var elem T
		if err := d.Decode(&elem); err != nil {
			return nil, err
		}
		calls, err := decodeNodes[T](d, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, Node[T]{Elem: elem, Calls: calls})
	}
	return out, nil
}

type jsonNode[T Digester] struct {
	Update T             `json:"update"`
	Calls  []jsonNode[T] `json:"calls"`
}

func toJSONNodes[T Digester](nodes []Node[T]) []jsonNode[T] {
	out := make([]jsonNode[T], len(nodes))
	for i, n := range nodes {
		out[i] = jsonNode[T]{Update: n.Elem, Calls: toJSONNodes(n.Calls)}
	}
	return out
}

func fromJSONNodes[T Digester](nodes []jsonNode[T], depth int) ([]Node[T], error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("call forest deeper than %d", maxDepth)
	}
	out := make([]Node[T], len(nodes))
	for i, n := range nodes {
		calls, err := fromJSONNodes(n.Calls, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = Node[T]{Elem: n.Update, Calls: calls}
	}
	return out, nil
}

func (f Forest[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONNodes(f.Nodes()))
}

func (f *Forest[T]) UnmarshalJSON(data []byte) error {
	var nodes []jsonNode[T]
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	trees, err := fromJSONNodes(nodes, 0)
	if err != nil {
		return err
	}
	out := NewBuilder[T]().Build(trees)
	AccumulateHashes(out)
	*f = out
	return nil
}

// Print renders the forest as an indented tree, one line per element.
func Print[T Digester](f Forest[T], label func(T) string) string {
	tree := treeprint.New()
	addBranches(tree, f, label)
	return tree.String()
}

func addBranches[T Digester](parent treeprint.Tree, f Forest[T], label func(T) string) {
	for rest := f; ; {
		t, next, ok := rest.Pop()
		if !ok {
			return
		}
		if t.Children.IsEmpty() {
			parent.AddNode(label(t.Elem))
		} else {
			addBranches(parent.AddBranch(label(t.Elem)), t.Children, label)
		}
		rest = next
	}
}
