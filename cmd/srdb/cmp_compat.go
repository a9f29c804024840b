package main

// cmpOr mirrors cmp.Or from the Go 1.22 standard library: it returns the
// first of its arguments that is not the zero value, or the zero value if
// all arguments are zero.
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
