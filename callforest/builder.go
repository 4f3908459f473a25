package callforest

import "github.com/colorfulnotion/zkapply/common"

// Builder assembles a forest whose hashes are left pending, the way a forest
// arrives off the wire. AccumulateHashes fills them in.
type Builder[T Digester] struct {
	a *arena[T]
}

func NewBuilder[T Digester]() *Builder[T] {
	return &Builder[T]{a: &arena[T]{}}
}

func (b *Builder[T]) add(elem T, children, next int) int {
	b.a.nodes = append(b.a.nodes, node[T]{elem: elem, children: children, next: next})
	return len(b.a.nodes) - 1
}

// Node is the input shape for Build: an element with its ordered children.
type Node[T Digester] struct {
	Elem  T
	Calls []Node[T]
}

// Build returns an unauthenticated forest with the given trees in order.
func (b *Builder[T]) Build(trees []Node[T]) Forest[T] {
	return Forest[T]{a: b.a, head: b.list(trees)}
}

func (b *Builder[T]) list(trees []Node[T]) int {
	next := none
	for i := len(trees) - 1; i >= 0; i-- {
		children := b.list(trees[i].Calls)
		next = b.add(trees[i].Elem, children, next)
	}
	return next
}

// AccumulateHashes computes every digest, tree hash and stack hash in the
// forest bottom-up. Hashes already present are recomputed, so calling it
// twice yields the same result.
func AccumulateHashes[T Digester](f Forest[T]) {
	i := f.first()
	if i == none {
		return
	}
	nodes := f.a.nodes
	// post-order: children and next siblings are finished before a node
	type frame struct {
		i       int
		visited bool
	}
	stack := []frame{{i: i}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &nodes[top.i]
		if !top.visited {
			stack = append(stack, frame{i: top.i, visited: true})
			if n.next != none {
				stack = append(stack, frame{i: n.next})
			}
			if n.children != none {
				stack = append(stack, frame{i: n.children})
			}
			continue
		}
		var childHash, restHash common.Field
		if n.children != none {
			childHash = nodes[n.children].stackHash
		}
		if n.next != none {
			restHash = nodes[n.next].stackHash
		}
		n.digest = n.elem.Digest()
		n.treeHash = common.HashWithPrefix(nodePrefix, n.digest, childHash)
		n.stackHash = common.HashWithPrefix(consPrefix, n.treeHash, restHash)
		n.hashed = true
	}
}

// FromList builds an authenticated forest of leaf trees.
func FromList[T Digester](elems []T) Forest[T] {
	nodes := make([]Node[T], len(elems))
	for i, e := range elems {
		nodes[i] = Node[T]{Elem: e}
	}
	f := NewBuilder[T]().Build(nodes)
	AccumulateHashes(f)
	return f
}

// Nodes converts the forest back to its input shape.
func (f Forest[T]) Nodes() []Node[T] {
	var out []Node[T]
	for rest := f; ; {
		tree, next, ok := rest.Pop()
		if !ok {
			return out
		}
		out = append(out, Node[T]{Elem: tree.Elem, Calls: tree.Children.Nodes()})
		rest = next
	}
}
