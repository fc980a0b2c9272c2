package sliceutil

func Map[T any, U any, F ~func(T) U](items []T, f F) []U {
	res := make([]U, len(items))
	for i, item := range items {
		res[i] = f(item)
	}
	return res
}

func GroupBy[T any, K comparable, F ~func(T) K](items []T, f F) map[K][]T {
	res := make(map[K][]T)
	for _, item := range items {
		k := f(item)
		res[k] = append(res[k], item)
	}
	return res
}
