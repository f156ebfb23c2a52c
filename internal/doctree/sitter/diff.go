package sitter

// diffSpan returns the edited span between two versions of a source: the
// common prefix ends at start, and the remainders up to oldEnd and newEnd
// differ. The common suffix never overlaps the prefix.
func diffSpan(old, next []byte) (start, oldEnd, newEnd int) {
	limit := min(len(old), len(next))
	for start < limit && old[start] == next[start] {
		start++
	}
	suffix := 0
	for suffix < limit-start && old[len(old)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}
	return start, len(old) - suffix, len(next) - suffix
}
