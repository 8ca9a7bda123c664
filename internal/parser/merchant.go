package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// merchantTerm ends a merchant candidate: a connective, a sentence stop,
// list punctuation, or end of text.
const merchantTerm = `(?:\s+(?:on|via|using|ref|refno|upi|from|for|avl|bal|txn|is|has|not|by|thru|through|info)\b|\.(?:\s|$)|[,;(]|\s*$)`

const merchantName = `([A-Za-z0-9][A-Za-z0-9 &'._\-*/@]{1,60}?)`

// Merchant candidate patterns, tried in order. Every match of a pattern is
// tried before moving on to the next pattern.
var merchantPatterns = []*regexp.Regexp{
	// VPA x@y (Name)
	regexp.MustCompile(`(?i)\bvpa\s+[a-z0-9._\-]+@[a-z0-9]+\s*\(([^)]{2,60})\)`),
	// Info: X
	regexp.MustCompile(`(?i)\binfo\s*[:\-]?\s*` + merchantName + merchantTerm),
	// at X
	regexp.MustCompile(`(?i)\bat\s+` + merchantName + merchantTerm),
	// to X
	regexp.MustCompile(`(?i)\bto\s+` + merchantName + merchantTerm),
	// UPI/X, UPI-X, UPI: X
	regexp.MustCompile(`(?i)\bupi\s*[/\-:]\s*` + merchantName + merchantTerm),
	// from X
	regexp.MustCompile(`(?i)\bfrom\s+` + merchantName + merchantTerm),
}

var (
	upiHandle = regexp.MustCompile(`(?i)^[a-z0-9._\-]+@[a-z0-9]+$`)

	merchantRefTail   = regexp.MustCompile(`(?i)\s*\b(?:ref(?:no)?|utr|txn|rrn)\b.*$`)
	merchantDate      = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b|\b\d{1,2}[\s\-](?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s\-]\d{2,4}\b`)
	merchantTime      = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?i:am|pm|ist))?\b`)
	merchantDigitTail = regexp.MustCompile(`\s*\b\d{4,}\s*$`)
	companySuffix     = regexp.MustCompile(`(?i)\s*\b(?:pvt\.?\s*ltd|private\s+limited|ltd|limited|llp|inc)\b\.?\s*$`)
)

var merchantStopwords = map[string]bool{
	"USING": true, "VIA": true, "UPI": true, "SELF": true, "NOT": true,
	"ON": true, "REF": true, "BANK": true, "INFO": true, "NA": true,
}

// Leading words that mean the candidate is our own account, not a counterparty.
var merchantBadFirst = map[string]bool{
	"A/C": true, "AC": true, "ACCT": true, "ACCOUNT": true, "YOUR": true,
	"YOU": true, "CARD": true, "MOBILE": true,
}

// ExtractMerchant runs the generic candidate patterns and returns the first
// candidate that survives validation and cleaning.
func ExtractMerchant(body string) string {
	return merchantFrom(body, merchantPatterns)
}

func merchantFrom(body string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if name := acceptMerchant(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

// acceptMerchant cleans a raw candidate and returns it if it is plausible.
func acceptMerchant(raw string) string {
	raw = strings.TrimSpace(raw)
	if !validMerchant(raw) {
		return ""
	}
	if strings.Contains(raw, "/") {
		raw = lastNamedSegment(raw)
	}
	name := CleanMerchant(raw)
	if !validMerchant(name) {
		return ""
	}
	return name
}

// lastNamedSegment picks the last slash-separated segment that is not just digits.
func lastNamedSegment(s string) string {
	parts := strings.Split(s, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.TrimSpace(parts[i])
		if p != "" && hasLetter(p) {
			return p
		}
	}
	return s
}

// CleanMerchant strips references, dates, times, trailing digit runs, company
// suffixes and trailing punctuation from a merchant candidate.
func CleanMerchant(s string) string {
	s = merchantRefTail.ReplaceAllString(s, "")
	s = merchantDate.ReplaceAllString(s, "")
	s = merchantTime.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	s = merchantDigitTail.ReplaceAllString(s, "")
	for {
		stripped := companySuffix.ReplaceAllString(s, "")
		stripped = strings.TrimRight(stripped, " .,-:;*/")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Trim(s, " .,-:;*/'&")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func validMerchant(s string) bool {
	if len(s) < 2 || !hasLetter(s) {
		return false
	}
	if upiHandle.MatchString(s) {
		return false
	}
	upper := strings.ToUpper(s)
	if merchantStopwords[upper] {
		return false
	}
	if fields := strings.Fields(upper); len(fields) > 0 && merchantBadFirst[fields[0]] {
		return false
	}
	return true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
