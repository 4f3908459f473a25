package txerrors

import "strings"

// Collection is a positional failure table: one list per sub-transaction
// or account update, in application order.
type Collection [][]Failure

// IsEmpty reports whether no entry recorded a failure.
func (c Collection) IsEmpty() bool {
	for _, fs := range c {
		if len(fs) > 0 {
			return false
		}
	}
	return true
}

// Single is the collection for a transaction with one failed part.
func Single(f Failure) Collection {
	return Collection{{f}}
}

// First returns the earliest recorded failure.
func (c Collection) First() (Failure, bool) {
	for _, fs := range c {
		if len(fs) > 0 {
			return fs[0], true
		}
	}
	return Failure{}, false
}

func (c Collection) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, fs := range c {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('[')
		for j, f := range fs {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Name())
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}
