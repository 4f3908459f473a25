package ledger

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/zkapply/common"
)

var (
	emptyMu     sync.Mutex
	emptyHashes []common.Field
)

func merklePrefix(height int) string { return fmt.Sprintf("ZkMerkleTree%03d", height) }

// emptySubtree is the root of a subtree of the given height with no accounts.
func emptySubtree(height int) common.Field {
	emptyMu.Lock()
	defer emptyMu.Unlock()
	if len(emptyHashes) == 0 {
		emptyHashes = append(emptyHashes, common.HashWithPrefix("ZkEmptyAccount"))
	}
	for len(emptyHashes) <= height {
		h := len(emptyHashes) - 1
		below := emptyHashes[h]
		emptyHashes = append(emptyHashes, common.HashWithPrefix(merklePrefix(h), below, below))
	}
	return emptyHashes[height]
}

// merkleRoot hashes the first n leaves of a tree of the given depth, level
// by level, padding with empty subtrees.
func merkleRoot(depth, n int, leaf func(int) common.Field) common.Field {
	if n == 0 {
		return emptySubtree(depth)
	}
	level := make([]common.Field, n)
	for i := range level {
		level[i] = leaf(i)
	}
	for h := 0; h < depth; h++ {
		next := make([]common.Field, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := emptySubtree(h)
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = common.HashWithPrefix(merklePrefix(h), left, right)
		}
		level = next
	}
	return level[0]
}
