// Package chunker splits documents into overlapping word windows.
package chunker

import "strings"

const (
	DefaultSize    = 800
	DefaultOverlap = 120
)

// Window is a half-open word range [Start, End).
type Window struct {
	Start int
	End   int
}

// Windows returns the word ranges Split would produce for n words.
func Windows(n, size, overlap int) []Window {
	size, overlap = normalize(size, overlap)
	if n <= 0 {
		return nil
	}

	var out []Window
	start := 0
	for start < n {
		end := min(n, start+size)
		out = append(out, Window{Start: start, End: end})
		if end == n {
			break
		}
		start = max(end-overlap, 0)
	}
	return out
}

// Split breaks text into chunks of at most size whitespace-separated words,
// with overlap words shared between neighbours. Words inside a chunk are
// joined by a single space.
func Split(text string, size, overlap int) []string {
	words := strings.Fields(text)
	wins := Windows(len(words), size, overlap)
	chunks := make([]string, 0, len(wins))
	for _, w := range wins {
		chunks = append(chunks, strings.Join(words[w.Start:w.End], " "))
	}
	return chunks
}

func normalize(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return size, overlap
}
