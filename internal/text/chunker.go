package text

import (
	"strings"
)

// Split breaks a document into chunks of at most size characters, with an
// overlap window carried from each chunk into the next so no semantic
// boundary is silently lost. It splits on structure first and only falls
// back to coarser cuts when a unit is too large:
// paragraphs -> lines -> words -> runes.
func Split(doc string, size, overlap int) []string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil
	}
	if len(doc) <= size {
		return []string{doc}
	}

	// Atomic units are capped so a carried tail plus a joining newline
	// plus the next unit never pushes a chunk over the size limit.
	unitLimit := size - overlap - 1
	if unitLimit < 1 {
		unitLimit = 1
	}
	units := atomize(doc, unitLimit, []string{"\n\n", "\n", " "})

	var chunks []string
	var cur strings.Builder

	for _, unit := range units {
		sep := "\n"
		if cur.Len() == 0 {
			sep = ""
		}
		if cur.Len()+len(sep)+len(unit) > size && cur.Len() > 0 {
			chunk := cur.String()
			chunks = append(chunks, chunk)

			cur.Reset()
			if tail := overlapTail(chunk, overlap); tail != "" {
				cur.WriteString(tail)
				sep = "\n"
			} else {
				sep = ""
			}
		}
		cur.WriteString(sep)
		cur.WriteString(unit)
	}

	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// atomize recursively splits s into pieces no longer than limit, using
// progressively finer separators. Runs of separator-only content collapse.
func atomize(s string, limit int, seps []string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) <= limit {
		return []string{s}
	}
	if len(seps) == 0 {
		return hardCut(s, limit)
	}

	parts := strings.Split(s, seps[0])
	var out []string
	for _, part := range parts {
		out = append(out, atomize(part, limit, seps[1:])...)
	}
	return out
}

// hardCut is the last resort for a single token longer than the limit.
func hardCut(s string, limit int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// overlapTail returns the trailing overlap window of a chunk, trimmed to
// the nearest word boundary so the carried text stays readable.
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 || len(chunk) == 0 {
		return ""
	}
	runes := []rune(chunk)
	if len(runes) <= overlap {
		return chunk
	}
	tail := string(runes[len(runes)-overlap:])
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
