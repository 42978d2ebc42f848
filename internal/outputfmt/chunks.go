package outputfmt

import "strings"

// SplitChunks breaks text into pieces no longer than max bytes, preferring
// line boundaries and hard-splitting lines that exceed the limit on their
// own. Both chat frontends use it for plain replies that bypass a paginator.
func SplitChunks(text string, max int) []string {
	text = strings.TrimRight(text, "\n")
	if max <= 0 || len(text) <= max {
		return []string{text}
	}
	var chunks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			flush()
			chunks = append(chunks, line[:max])
			line = line[max:]
		}
		if b.Len()+len(line)+1 > max {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	flush()
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
