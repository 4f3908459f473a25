package common

// Lazy holds a value that is either pending or computed. A pending value is
// computed on the first call to Get and stored; the closure is then dropped.
type Lazy[T any] struct {
	compute  func() T
	value    T
	computed bool
}

// Deferred returns a pending Lazy.
func Deferred[T any](compute func() T) Lazy[T] {
	return Lazy[T]{compute: compute}
}

// Computed returns a Lazy already holding v.
func Computed[T any](v T) Lazy[T] {
	return Lazy[T]{value: v, computed: true}
}

func (l *Lazy[T]) IsComputed() bool {
	return l.computed
}

// Get computes and stores the value if it is still pending.
func (l *Lazy[T]) Get() T {
	if !l.computed {
		if l.compute == nil {
			panic("lazy: pending value without a computation")
		}
		l.value = l.compute()
		l.computed = true
		l.compute = nil
	}
	return l.value
}

// GetOrCompute is Get for a Lazy whose computation is supplied by the caller,
// such as a zero Lazy embedded in a decoded struct.
func (l *Lazy[T]) GetOrCompute(compute func() T) T {
	if !l.computed && l.compute == nil {
		l.compute = compute
	}
	return l.Get()
}
