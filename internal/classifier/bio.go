package classifier

// BIO tag classes, in model output order.
const (
	tagBegin = iota
	tagInside
	tagOutside
)

// Span is a decoded entity as token indexes, End exclusive.
type Span struct {
	Start int
	End   int
}

func argmax(row []float32) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// FirstSpan decodes BIO tags over n word tokens and returns the first
// entity. tags[0] is the [CLS] position, so word i is read from tags[i+1].
// An Inside tag without an open span is treated as Outside.
func FirstSpan(tags [][]float32, n int) (Span, bool) {
	start := -1
	for i := 0; i < n && i+1 < len(tags); i++ {
		switch argmax(tags[i+1]) {
		case tagBegin:
			if start >= 0 {
				return Span{Start: start, End: i}, true
			}
			start = i
		case tagInside:
			// continues an open span
		default:
			if start >= 0 {
				return Span{Start: start, End: i}, true
			}
		}
	}
	if start >= 0 {
		return Span{Start: start, End: n}, true
	}
	return Span{}, false
}

// spanText returns the source text covered by a token span.
func spanText(text string, toks []Token, s Span) string {
	if s.Start < 0 || s.End > len(toks) || s.Start >= s.End {
		return ""
	}
	return text[toks[s.Start].Start:toks[s.End-1].End]
}
