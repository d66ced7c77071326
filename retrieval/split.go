package retrieval

import (
	"strings"
)

// DefaultChunkChars is the passage size used when none is configured.
const DefaultChunkChars = 1000

// SplitText splits text into chunks of at most maxChars runes. Paragraphs
// (separated by blank lines) are packed greedily; a paragraph longer than
// maxChars is split at word boundaries, and a single word longer than
// maxChars is cut.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}
	add := func(piece, sep string) {
		n := len([]rune(piece))
		if size > 0 && size+len(sep)+n > maxChars {
			flush()
		}
		if size > 0 {
			current.WriteString(sep)
			size += len(sep)
		}
		current.WriteString(piece)
		size += n
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) <= maxChars {
			add(para, "\n\n")
			continue
		}
		flush()
		for _, word := range strings.Fields(para) {
			r := []rune(word)
			for len(r) > maxChars {
				flush()
				chunks = append(chunks, string(r[:maxChars]))
				r = r[maxChars:]
			}
			if len(r) > 0 {
				add(string(r), " ")
			}
		}
		flush()
	}
	flush()
	return chunks
}
