package parser

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// AmountCandidate is one currency-like figure found in a message body.
// Start and End span the whole match including the currency marker.
type AmountCandidate struct {
	Value decimal.Decimal
	Text  string
	Start int
	End   int
}

// contextWindow is how far (in bytes) each side of a candidate is inspected.
const contextWindow = 90

// Cue weights for amount scoring.
const (
	debitCueScore   = 5.0
	creditCueScore  = 4.0
	balanceCueScore = -6.0
	positionPenalty = 0.5
)

var (
	debitCue   = regexp.MustCompile(`(?i)\b(?:spent|debited|debit|purchase|paid|sent|txn|withdrawn)\b`)
	creditCue  = regexp.MustCompile(`(?i)\b(?:credited|received|deposit(?:ed)?|refund(?:ed)?|cashback)\b`)
	balanceCue = regexp.MustCompile(`(?i)\b(?:avl\.?\s*bal(?:ance)?|avl\.?\s*lmt|avl\.?\s*limit|avail(?:able)?\.?\s*(?:bal(?:ance)?|limit|lmt)|closing\s+bal(?:ance)?|outstanding|total\s+(?:amt\s+|amount\s+)?due|min(?:imum)?\.?\s+(?:amt\s+|amount\s+)?due|bal(?:ance)?|limit|lmt)\b`)
)

// FindAmounts returns every currency-like figure in order of appearance.
func FindAmounts(body string) []AmountCandidate {
	var cands []AmountCandidate
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			if overlaps(cands, m[0], m[1]) {
				continue
			}
			value, err := parseAmount(body[m[2]:m[3]])
			if err != nil {
				continue
			}
			cands = append(cands, AmountCandidate{
				Value: value,
				Text:  body[m[2]:m[3]],
				Start: m[0],
				End:   m[1],
			})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Start < cands[j].Start })
	return cands
}

func overlaps(cands []AmountCandidate, start, end int) bool {
	for _, c := range cands {
		if start < c.End && c.Start < end {
			return true
		}
	}
	return false
}

// ScoreAmounts scores each candidate from its surrounding text. The left
// context stops at the previous candidate and the right context at the next
// one, so a cue is credited to the figure it sits beside. Balance and limit
// cues only count on the left ("Avl Bal Rs.X").
func ScoreAmounts(body string, cands []AmountCandidate) []float64 {
	scores := make([]float64, len(cands))
	for i, c := range cands {
		leftStart := max(0, c.Start-contextWindow)
		if i > 0 {
			leftStart = max(leftStart, cands[i-1].End)
		}
		rightEnd := min(len(body), c.End+contextWindow)
		if i+1 < len(cands) {
			rightEnd = min(rightEnd, cands[i+1].Start)
		}
		left := body[leftStart:c.Start]
		right := body[c.End:rightEnd]

		score := 0.0
		if debitCue.MatchString(left) || debitCue.MatchString(right) {
			score += debitCueScore
		}
		if creditCue.MatchString(left) || creditCue.MatchString(right) {
			score += creditCueScore
		}
		if balanceCue.MatchString(left) {
			score += balanceCueScore
		}
		score -= positionPenalty * float64(i)
		scores[i] = score
	}
	return scores
}

// SelectAmount picks the transaction amount among several candidates.
// Ties go to the earliest figure.
func SelectAmount(body string, cands []AmountCandidate) (AmountCandidate, bool) {
	switch len(cands) {
	case 0:
		return AmountCandidate{}, false
	case 1:
		return cands[0], true
	}
	scores := ScoreAmounts(body, cands)
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return cands[best], true
}

// ExtractAmount finds the transaction amount in a body.
func ExtractAmount(body string) (decimal.Decimal, bool) {
	c, ok := SelectAmount(body, FindAmounts(body))
	if !ok {
		return decimal.Decimal{}, false
	}
	return c.Value, true
}
