package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Shared pattern library. Everything here is compiled once and is safe to use
// from any goroutine.

// numberGroup captures a comma-grouped or plain decimal figure (Indian lakh
// grouping like 5,00,000 included).
const numberGroup = `([0-9][0-9,]*(?:\.[0-9]+)?)`

// Amount patterns, in priority order. Matches from later patterns are only
// kept when they do not overlap an earlier match.
var amountPatterns = []*regexp.Regexp{
	// Rs.1,234.56 / Rs 500 / INR 500.00 / ₹500
	regexp.MustCompile(`(?i)(?:\b(?:rs|inr)\.?|₹)\s*:?\s*` + numberGroup),
	// 500.00 INR / 500/- Rs
	regexp.MustCompile(`(?i)\b` + numberGroup + `\s*(?:/-)?\s*(?:rs|inr)\b\.?`),
}

// Account tail patterns: 3-4 trailing digits near A/c, Card, ending, or a mask.
var accountTailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:a/?c|acct|account|card)\b\.?\s*(?:no\.?|number)?\s*(?:ending(?:\s+with)?)?\s*[:\-]?\s*[x*.]*\s*[0-9]*?([0-9]{3,4})\b`),
	regexp.MustCompile(`(?i)\bending\s*(?:with)?\s*[x*]*\s*([0-9]{3,4})\b`),
	regexp.MustCompile(`(?i)(?:^|[^a-z0-9])[x*]{2,}[0-9]*?([0-9]{3,4})\b`),
}

var referencePattern = regexp.MustCompile(
	`(?i)\b(?:upi\s*ref(?:\s*no)?\.?|imps\s*ref(?:\s*no)?\.?|ref(?:erence)?\.?(?:\s*(?:no|number|num|id)\.?)?|utr(?:\s*no)?\.?|txn\s*(?:id|no)\.?|transaction\s*(?:id|no)\.?|auth(?:orization)?\s*code|rrn|upi)` +
		`\s*[:\-#]?\s*([a-z0-9]*[0-9][a-z0-9]*)`,
)

var balancePattern = regexp.MustCompile(
	`(?i)\b(?:avl\.?\s*bal(?:ance)?|avail(?:able)?\.?\s*bal(?:ance)?|clear\s*bal(?:ance)?|closing\s*bal(?:ance)?|updated\s*bal(?:ance)?|bal(?:ance)?)\b` +
		`\s*(?:is|of|:|-)?\s*:?\s*(?:(?:rs|inr)\.?|₹)?\s*:?\s*` + numberGroup,
)

type channelRule struct {
	channel models.Channel
	re      *regexp.Regexp
}

// channelRules in priority order: UPI/VPA > ATM > CARD > POS > IMPS > NEFT > RTGS > NETBANKING > CASH.
var channelRules = []channelRule{
	{models.ChannelUPI, regexp.MustCompile(`(?i)\bupi\b|\bvpa\b|@(?:ybl|okaxis|oksbi|okicici|okhdfcbank|paytm|ptyes|ptsbi|ibl|axl|apl|upi)\b`)},
	{models.ChannelATM, regexp.MustCompile(`(?i)\batm\b|\bcash\s+withdrawal\b`)},
	{models.ChannelCard, regexp.MustCompile(`(?i)\bcard\b`)},
	{models.ChannelPOS, regexp.MustCompile(`(?i)\bpos\b|\bpoint\s+of\s+sale\b`)},
	{models.ChannelIMPS, regexp.MustCompile(`(?i)\bimps\b`)},
	{models.ChannelNEFT, regexp.MustCompile(`(?i)\bneft\b`)},
	{models.ChannelRTGS, regexp.MustCompile(`(?i)\brtgs\b`)},
	{models.ChannelNetBanking, regexp.MustCompile(`(?i)\bnet\s*-?\s*banking\b|\binternet\s+banking\b|\bnetbank\b`)},
	{models.ChannelCash, regexp.MustCompile(`(?i)\bcash\s+deposit(?:ed)?\b`)},
}

// Direction keyword sets. Bare "debit"/"credit" are excluded because of
// "debit card" / "credit card".
var (
	debitWords = regexp.MustCompile(`(?i)\b(?:debited|withdrawn|spent|paid|purchased?|charged|sent|deducted|debit\s+(?:of|by|for)|trf\s+to|transferred\s+to)\b`)

	creditWords = regexp.MustCompile(`(?i)\b(?:credited|deposited|received|refund(?:ed)?|cashback|credit\s+(?:of|by)|reversed|reversal)\b`)

	// "earn cashback" and friends are marketing, not a credit.
	earnCashback = regexp.MustCompile(`(?i)\bearn(?:\s+\S+){0,4}?\s+cashback\b`)
)

// transactionWords is the generic "looks like a transaction" gate.
var transactionWords = regexp.MustCompile(`(?i)\b(?:debited|credited|spent|paid|withdrawn|received|deposited|purchased?|sent|transferred|refund(?:ed)?|charged|deducted|txn|transaction|cashback)\b`)

// cardBillDebit recognises a bank-side credit card bill payment, which is a
// DEBIT from the paying account rather than a card spend or a credit.
var cardBillDebit = regexp.MustCompile(`(?i)\b(?:payment|paid)\b.{0,60}?\btowards\b.{0,40}?\bcredit\s+card\b|\bcredit\s+card\s+(?:bill|dues?)\s+(?:payment|paid)\b`)

// creditCardMention is a "credit card XX9876" phrase, removed before channel
// detection on bill payments.
var creditCardMention = regexp.MustCompile(`(?i)\bcredit\s+card\b(?:\s*(?:no\.?)?\s*[x*]*[0-9]{3,4}\b)?`)

// debitedFromAccount finds the paying account on a bill payment.
var debitedFromAccount = regexp.MustCompile(`(?i)\b(?:debited|paid|deducted)\s+from\s+(?:your\s+)?(?:a/?c|acct|account)\b\.?\s*(?:no\.?)?\s*[:\-]?\s*[x*.]*\s*[0-9]*?([0-9]{3,4})\b`)

var creditCardSpend = regexp.MustCompile(`(?i)\b(?:spent|purchase|charged)\b.{0,60}?\bcredit\s+card\b`)

// Scheduled or not-yet-happened money movement.
var preNotificationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\be-?mandate\b.*\b(?:will|due|upcoming|scheduled|registered|created|set\s*up|pre-?debit)\b`),
	regexp.MustCompile(`(?i)\b(?:will|upcoming|scheduled|registered)\b.*\be-?mandate\b`),
	regexp.MustCompile(`(?i)\bwill\s+be\s+(?:auto[\s-]*)?(?:debited|deducted|charged)\b`),
	regexp.MustCompile(`(?i)\bstanding\s+instruction\b.*\b(?:will|due|scheduled|registered)\b`),
	regexp.MustCompile(`(?i)\bpre[\s-]*(?:debit\s+)?notification\b`),
	regexp.MustCompile(`(?i)\bupcoming\s+(?:debit|payment|auto[\s-]*pay)\b`),
}

// Card issuer confirmations of a bill payment that was already debited elsewhere.
var cardBillReceivedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpayment\s+of\s+(?:(?:rs|inr)\.?|₹)\s*[0-9][0-9,.]*\s+(?:has\s+been\s+|is\s+)?received\b.*\bcredit\s+card\b`),
	regexp.MustCompile(`(?i)\b(?:received|thank\s+you\s+for)\s+(?:a\s+|the\s+|your\s+)?payment\b.*\bcredit\s+card\b`),
}

var investmentPattern = regexp.MustCompile(`(?i)\b(?:zerodha|groww|upstox|angel\s*one|kuvera|paytm\s+money|coin\s+by\s+zerodha|mutual\s+funds?|sip|nse|bse|cams|kfintech|iccl|nsccl|indian\s+clearing\s+corp(?:oration)?|clearing\s+corporation|amc)\b`)

var whitespace = regexp.MustCompile(`\s+`)

// normalizeBody folds compatibility characters (full-width digits, odd
// rupee glyphs) and collapses whitespace.
func normalizeBody(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = strings.ReplaceAll(s, "\u200B", "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeBody is normalizeBody for callers outside the package.
func NormalizeBody(s string) string {
	return normalizeBody(s)
}

// parseAmount converts "1,234.56" or "5,00,000" into an exact decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimRight(s, ".")
	return decimal.NewFromString(s)
}

// ParseAmount is parseAmount for callers outside the package.
func ParseAmount(s string) (decimal.Decimal, error) {
	return parseAmount(s)
}

// firstSubmatch returns group 1 of the first pattern that matches.
func firstSubmatch(body string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func matchesAny(body string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// findAccountTail returns the first account/card tail in the body.
func findAccountTail(body string) string {
	return firstSubmatch(body, accountTailPatterns)
}

// FindAccountTails returns every distinct account tail in order of appearance.
func FindAccountTails(body string) []string {
	type hit struct {
		pos  int
		tail string
	}
	var hits []hit
	for _, re := range accountTailPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			hits = append(hits, hit{pos: m[2], tail: body[m[2]:m[3]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	seen := make(map[string]bool)
	var tails []string
	for _, h := range hits {
		if !seen[h.tail] {
			seen[h.tail] = true
			tails = append(tails, h.tail)
		}
	}
	return tails
}

// FindReference returns the reference/UTR/auth code, if any.
func FindReference(body string) string {
	for _, m := range referencePattern.FindAllStringSubmatch(body, -1) {
		if len(m[1]) >= 4 {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// HasAccountTail reports whether any account tail is present.
func HasAccountTail(body string) bool {
	return findAccountTail(body) != ""
}

func findBalance(body string) (decimal.Decimal, bool) {
	m := balancePattern.FindStringSubmatch(body)
	if m == nil {
		return decimal.Decimal{}, false
	}
	bal, err := parseAmount(m[1])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return bal, true
}

// DetectChannel applies the channel priority table.
func DetectChannel(body string) models.Channel {
	for _, rule := range channelRules {
		if rule.re.MatchString(body) {
			return rule.channel
		}
	}
	return ""
}

// DetectDirection picks the earliest debit-like or credit-like verb.
// Returns "" when neither is present.
func DetectDirection(body string) models.Direction {
	if cardBillDebit.MatchString(body) {
		return models.Debit
	}
	cleaned := earnCashback.ReplaceAllString(body, "")
	d := debitWords.FindStringIndex(cleaned)
	c := creditWords.FindStringIndex(cleaned)
	switch {
	case d == nil && c == nil:
		return ""
	case c == nil:
		return models.Debit
	case d == nil:
		return models.Credit
	case d[0] <= c[0]:
		return models.Debit
	default:
		return models.Credit
	}
}

// CountDirectionCues counts debit and credit verbs, used by confidence scoring.
func CountDirectionCues(body string) (debits, credits int) {
	cleaned := earnCashback.ReplaceAllString(body, "")
	return len(debitWords.FindAllStringIndex(cleaned, -1)), len(creditWords.FindAllStringIndex(cleaned, -1))
}

// LooksTransactional is the generic keyword gate.
func LooksTransactional(body string) bool {
	return transactionWords.MatchString(body) || cardBillDebit.MatchString(body)
}

func isInvestment(body string) bool {
	return investmentPattern.MatchString(body)
}
