// Package turn implements round-robin rotation over ordered id lists. A
// queue's head is the id whose turn it is. Rotation moves the tail to the
// head, so N advances over an N-element queue visit every id once.
package turn

// Advance returns a new queue with the last element moved to the front,
// and the new head. The input is never modified. An empty queue yields
// an empty queue and "".
func Advance(queue []string) ([]string, string) {
	n := len(queue)
	if n == 0 {
		return nil, ""
	}
	next := make([]string, 0, n)
	next = append(next, queue[n-1])
	next = append(next, queue[:n-1]...)
	return next, next[0]
}

// Head returns the first element or "" if the queue is empty.
func Head(queue []string) string {
	if len(queue) == 0 {
		return ""
	}
	return queue[0]
}

// Contains reports whether id is in the queue.
func Contains(queue []string, id string) bool {
	for _, v := range queue {
		if v == id {
			return true
		}
	}
	return false
}

// Remove returns a copy of queue without any occurrence of id, and whether
// anything was removed.
func Remove(queue []string, id string) ([]string, bool) {
	out := make([]string, 0, len(queue))
	removed := false
	for _, v := range queue {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

// Append returns a copy of queue with id at the tail, unless it is already
// present.
func Append(queue []string, id string) []string {
	out := make([]string, 0, len(queue)+1)
	out = append(out, queue...)
	if Contains(queue, id) {
		return out
	}
	return append(out, id)
}
