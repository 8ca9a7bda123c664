// Package promo rejects messages that only look like transactions: OTPs,
// marketing, payment requests, loan offers, statements and spam.
package promo

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
)

// Rejection reasons.
const (
	ReasonOTP       = "otp"
	ReasonRequest   = "payment_request"
	ReasonLoanOffer = "loan_offer"
	ReasonStatement = "statement"
	ReasonMarketing = "marketing"
	ReasonSpam      = "spam"
)

// Verdict is the outcome of Classify. Reason is empty when Reject is false.
type Verdict struct {
	Reject bool   `json:"reject"`
	Reason string `json:"reason,omitempty"`
}

var (
	otpPattern = regexp.MustCompile(`(?i)\botps?\b|\bone[\s-]*time[\s-]*pass(?:word|code)\b|\bverification\s+code\b|\bsecurity\s+code\b`)

	requestPattern = regexp.MustCompile(`(?i)\b(?:has\s+requested|requested\s+(?:money|payment|rs|inr)|collect\s+request|payment\s+request|request(?:ing)?\s+(?:you\s+)?to\s+pay|approve\s+(?:the\s+)?(?:request|payment|mandate))\b`)

	loanPattern = regexp.MustCompile(`(?i)\b(?:pre-?approved|loan\s+(?:of|up\s*to|upto|offer|amount)|personal\s+loan|instant\s+loan|credit\s+limit\s+(?:of|up\s*to|upto|increased?|enhance)|limit\s+(?:increase|enhancement)|emi\s+offer)\b`)

	// Explicit transaction verbs that override a loan/limit offer.
	loanOverride = regexp.MustCompile(`(?i)\b(?:debited|credited|utr|ref\s*no|auth\s*code)\b`)

	statementPattern = regexp.MustCompile(`(?i)\b(?:statement\s+(?:for|of|is|has|generated|dated)|e-?statement|total\s+(?:amt\s+|amount\s+)?due|min(?:imum)?\.?\s+(?:amt\s+|amount\s+)?due|due\s+(?:date|on|by)|bill\s+(?:is\s+)?(?:due|generated))\b`)

	statementOverride = regexp.MustCompile(`(?i)\b(?:payment\s+(?:of\s+\S+\s+)?(?:has\s+been\s+)?received|paid|credited|thank\s+you\s+for\s+(?:the\s+|your\s+)?payment)\b`)

	marketingPattern = regexp.MustCompile(`(?i)\b(?:offers?|win|won|winner|sale|discount|coupon|voucher|congratulations|congrats|hurry|limited\s+period)\b|\bflat\s+\d+\s*%`)

	spamPattern = regexp.MustCompile(`(?i)\bbit\.ly/|\btinyurl\.com/|https?://|\bwww\.|\beligible\b|\bapply\s+now\b|\bclick\s+(?:here|on)\b|\bclaim\b|\bkyc\s+(?:update|expired|pending)\b`)
)

// Classify decides whether body should be dropped before parsing. OTPs and
// payment requests are always rejected. Loan offers yield to explicit
// transaction verbs and statements to payment confirmations. Marketing and
// spam cues yield only to structural evidence: a reference number together
// with an account tail.
func Classify(body string) Verdict {
	body = parser.NormalizeBody(body)

	if otpPattern.MatchString(body) {
		return Verdict{Reject: true, Reason: ReasonOTP}
	}
	if requestPattern.MatchString(body) {
		return Verdict{Reject: true, Reason: ReasonRequest}
	}
	if loanPattern.MatchString(body) && !loanOverride.MatchString(body) {
		return Verdict{Reject: true, Reason: ReasonLoanOffer}
	}
	if statementPattern.MatchString(body) && !statementOverride.MatchString(body) {
		return Verdict{Reject: true, Reason: ReasonStatement}
	}

	structural := parser.FindReference(body) != "" && parser.HasAccountTail(body)
	if marketingPattern.MatchString(body) && !structural {
		return Verdict{Reject: true, Reason: ReasonMarketing}
	}
	if spamPattern.MatchString(body) && !structural {
		return Verdict{Reject: true, Reason: ReasonSpam}
	}
	return Verdict{}
}
