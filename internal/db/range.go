package db

// Window resolves a start..stop range over n entries. ok is false when the range is empty.
func Window(n, start, stop int) (lo, hi int, ok bool) {
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
