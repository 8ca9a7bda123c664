// Package transfer recognises internal transfers: single messages that
// describe money moving between the user's own accounts, and pairs of
// messages that describe the two legs of one transfer.
package transfer

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
)

var strongCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bself[\s-]*transfer\b`),
	regexp.MustCompile(`(?i)\btransfer(?:red)?\s+to\s+self\b`),
	regexp.MustCompile(`(?i)\binternal\s+(?:fund\s+)?transfer\b`),
	regexp.MustCompile(`(?i)\bbetween\s+(?:your|own)\s+(?:linked\s+)?accounts\b`),
}

var (
	ownAccount   = regexp.MustCompile(`(?i)\bown\s+(?:a/?c|acct|account)s?\b`)
	toYourAcct   = regexp.MustCompile(`(?i)\bto\s+your\s+(?:a/?c|acct|account)\b`)
	fromYourAcct = regexp.MustCompile(`(?i)\bfrom\s+your\s+(?:a/?c|acct|account)\b`)
	creditedWord = regexp.MustCompile(`(?i)\bcredited\b`)
	debitedWord  = regexp.MustCompile(`(?i)\bdebited\b`)

	// Merchant-addressed payments are never internal on weak cues alone.
	merchantPayment = regexp.MustCompile(`(?i)\b(?:p2m|pos|merchant|spent\s+at|purchase)\b`)
)

// Cue names reported by IsInternal.
const (
	CueStrong   = "phrase"
	CueOwn      = "own_account"
	CueBothSide = "to_and_from_your_account"
	CueDualTail = "dual_tail"
)

// IsInternal reports whether a single message describes a transfer between
// the user's own accounts, and which cue decided it.
func IsInternal(body string, txn *models.ParsedTransaction) (bool, string) {
	body = parser.NormalizeBody(body)
	for _, re := range strongCues {
		if re.MatchString(body) {
			return true, CueStrong
		}
	}

	if isMerchantPayment(body, txn) {
		return false, ""
	}
	if ownAccount.MatchString(body) {
		return true, CueOwn
	}
	if toYourAcct.MatchString(body) && fromYourAcct.MatchString(body) {
		return true, CueBothSide
	}
	if creditedWord.MatchString(body) && debitedWord.MatchString(body) && len(parser.FindAccountTails(body)) >= 2 {
		return true, CueDualTail
	}
	return false, ""
}

func isMerchantPayment(body string, txn *models.ParsedTransaction) bool {
	if txn != nil && (txn.Channel == models.ChannelPOS || txn.CreditCard) {
		return true
	}
	return merchantPayment.MatchString(body)
}
