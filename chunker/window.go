package chunker

// WordWindows splits words into windows of size words, each starting
// size-overlap words after the previous one. The last window may be shorter.
func WordWindows(words []string, size int, overlap int) [][]string {
	l := len(words)
	if l == 0 || size <= 0 {
		return [][]string{}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	pos := 0
	res := make([][]string, 0, l/step+1)

	for {
		end := min(pos+size, l)
		res = append(res, words[pos:end])
		if end >= l {
			break
		}

		pos += step
	}

	return res
}
