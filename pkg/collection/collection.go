// Package collection provides generic slice helpers.
//
//	keys := collection.Map(ids, ProductCacheKey)
//	byID := collection.KeyBy(products, func(p models.Product) uint { return p.ID })
package collection

// Number is what Sum can add.
type Number interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64 | ~float64
}

// Map transforms each element of s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns the elements of s for which fn returns true, in order.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// FilterMap applies fn to every element and keeps the results fn accepts.
func FilterMap[T, R any](s []T, fn func(T) (R, bool)) []R {
	out := make([]R, 0, len(s))
	for _, v := range s {
		if r, ok := fn(v); ok {
			out = append(out, r)
		}
	}
	return out
}

// KeyBy indexes s by fn. Later elements win on duplicate keys.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[fn(v)] = v
	}
	return out
}

// Sum adds fn over s.
func Sum[T any, N Number](s []T, fn func(T) N) N {
	var total N
	for _, v := range s {
		total += fn(v)
	}
	return total
}
