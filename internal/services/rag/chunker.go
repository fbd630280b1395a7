package rag

import "strings"

// chunkSeparators are tried in order; each level only re-splits pieces
// that still exceed the chunk size.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits document text into overlapping chunks sized for the
// embedding model.
type Chunker struct {
	Size    int
	Overlap int
}

// Split breaks text into chunks of at most Size bytes, preferring
// paragraph and sentence boundaries. Each chunk after the first is
// prefixed with the tail of its predecessor so context survives the
// boundary.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := c.split(text, 0)
	if c.Overlap <= 0 || len(raw) < 2 {
		return raw
	}

	overlapped := make([]string, 0, len(raw))
	overlapped = append(overlapped, raw[0])
	for i := 1; i < len(raw); i++ {
		tail := raw[i-1]
		if len(tail) > c.Overlap {
			tail = tail[len(tail)-c.Overlap:]
		}
		overlapped = append(overlapped, tail+" "+raw[i])
	}
	return overlapped
}

func (c Chunker) split(text string, sepIdx int) []string {
	if len(text) <= c.Size {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	if sepIdx >= len(chunkSeparators) {
		// No separator left; hard-split at the chunk size.
		step := c.Size - c.Overlap
		if step <= 0 {
			step = c.Size
		}
		var result []string
		for i := 0; i < len(text); i += step {
			end := i + c.Size
			if end > len(text) {
				end = len(text)
			}
			if chunk := strings.TrimSpace(text[i:end]); chunk != "" {
				result = append(result, chunk)
			}
		}
		return result
	}

	sep := chunkSeparators[sepIdx]
	parts := strings.Split(text, sep)

	var result []string
	current := ""
	for _, part := range parts {
		candidate := part
		if current != "" {
			candidate = current + sep + part
		}
		if len(candidate) <= c.Size {
			current = candidate
			continue
		}
		if strings.TrimSpace(current) != "" {
			result = append(result, strings.TrimSpace(current))
		}
		if len(part) > c.Size {
			result = append(result, c.split(part, sepIdx+1)...)
			current = ""
		} else {
			current = part
		}
	}
	if strings.TrimSpace(current) != "" {
		result = append(result, strings.TrimSpace(current))
	}
	return result
}
