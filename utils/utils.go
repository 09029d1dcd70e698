// Package utils holds small generic slice helpers.
package utils

// Unique keeps the first occurrence of every value, preserving order.
func Unique[T comparable](param []T) []T {
	set := make(map[T]struct{}, len(param))
	var result []T
	for _, v := range param {
		if _, exist := set[v]; exist {
			continue
		}
		result = append(result, v)
		set[v] = struct{}{}
	}
	return result
}

// Default returns v when judge accepts it, otherwise df.
func Default[T any](v T, judge func(v T) bool, df T) T {
	if judge(v) {
		return v
	}
	return df
}

func IfElse[T any](b bool, x T, y T) T {
	if b {
		return x
	}
	return y
}

// FilterSlice drops every element for which isFilter reports true.
func FilterSlice[T any](s []T, isFilter func(T) bool) []T {
	var ns []T
	for _, v := range s {
		if !isFilter(v) {
			ns = append(ns, v)
		}
	}
	return ns
}

func Map[T any, S any](data []S, f func(v S) T) []T {
	result := make([]T, 0, len(data))
	for _, datum := range data {
		result = append(result, f(datum))
	}
	return result
}
