package cmp

// SliceEq checks a and b hold the same values in the same order.
func SliceEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SliceContentEq checks a and b hold the same values, ignoring order.
// Duplicates count: {x, x, y} != {x, y, y}.
func SliceContentEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[T]int{}
	for _, v := range a {
		counts[v] += 1
	}
	for _, v := range b {
		counts[v] -= 1
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// MapEq checks a == b key by key.
func MapEq[K comparable, V comparable](a, b map[K]V) bool {
	return MapEqWith(a, b, func(x, y V) bool { return x == y })
}

// MapEqWith checks a == b key by key, comparing values with eq.
func MapEqWith[K comparable, V any](a, b map[K]V, eq func(V, V) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !eq(av, bv) {
			return false
		}
	}
	return true
}
