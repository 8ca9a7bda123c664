package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Rules is a data-driven dialect. Every hook is optional: a nil hook, or a
// hook that returns nothing, falls back to the generic extraction step.
type Rules struct {
	Bank   string
	Method string

	// TransactionWords replaces the generic "looks like a transaction" gate.
	TransactionWords *regexp.Regexp
	// Suppress lists non-event categories (pre-notifications, bill payment
	// confirmations) that are rejected despite transaction-like verbs.
	Suppress []*regexp.Regexp

	Amount         func(body string) (decimal.Decimal, bool)
	Direction      func(body string) models.Direction
	Channel        func(body string) models.Channel
	DefaultChannel models.Channel
	Merchant       func(body string, dir models.Direction) string
	AccountTail    func(body string) string
	Reference      func(body string) string
	Balance        func(body string) (decimal.Decimal, bool)
	CreditCard     func(body string) bool

	// DetectInvestment reclassifies brokerage/mutual-fund/exchange
	// movements as INVESTMENT.
	DetectInvestment bool
}

// BankName returns the dialect's display name.
func (r *Rules) BankName() string {
	return r.Bank
}

// Parse runs the extraction steps in order and returns nil as soon as one of
// them fails. It never panics on malformed text, but a faulty hook may; the
// pipeline recovers at the dialect boundary.
func (r *Rules) Parse(msg models.RawMessage) *models.ParsedTransaction {
	body := normalizeBody(msg.Body)
	if body == "" || matchesAny(body, r.Suppress) {
		return nil
	}
	if !r.isTransaction(body) {
		return nil
	}

	amount, ok := r.amount(body)
	if !ok || !amount.IsPositive() {
		return nil
	}

	dir := r.direction(body)
	if dir == "" {
		return nil
	}

	txn := &models.ParsedTransaction{
		Amount:      amount,
		Direction:   dir,
		Type:        string(dir),
		BankName:    r.Bank,
		ParseMethod: r.Method,
		Source:      msg,
	}

	// a card bill paid from a bank account names the card, but the rail and
	// the debited account are the bank's
	billPayment := cardBillDebit.MatchString(body)
	channelBody := body
	if billPayment {
		channelBody = creditCardMention.ReplaceAllString(body, " ")
	}

	txn.CreditCard = r.creditCard(body)
	txn.Channel = r.channel(channelBody)
	if txn.CreditCard && txn.Channel != models.ChannelUPI {
		txn.Channel = models.ChannelCard
	}

	txn.Merchant = r.merchant(body, dir)
	txn.AccountTail = r.accountTail(body)
	if billPayment {
		if m := debitedFromAccount.FindStringSubmatch(body); m != nil {
			txn.AccountTail = m[1]
		}
	}
	txn.ReferenceID = r.reference(body)
	if bal, ok := r.balance(body); ok {
		txn.BalanceAfter = &bal
	}

	if r.DetectInvestment && isInvestment(body) {
		txn.Type = models.TypeInvestment
	}
	return txn
}

func (r *Rules) isTransaction(body string) bool {
	if r.TransactionWords != nil {
		return r.TransactionWords.MatchString(body) || cardBillDebit.MatchString(body)
	}
	return LooksTransactional(body)
}

func (r *Rules) amount(body string) (decimal.Decimal, bool) {
	if r.Amount != nil {
		if v, ok := r.Amount(body); ok {
			return v, true
		}
	}
	return ExtractAmount(body)
}

func (r *Rules) direction(body string) models.Direction {
	if r.Direction != nil {
		if d := r.Direction(body); d != "" {
			return d
		}
	}
	return DetectDirection(body)
}

func (r *Rules) channel(body string) models.Channel {
	if r.Channel != nil {
		if c := r.Channel(body); c != "" {
			return c
		}
	}
	if c := DetectChannel(body); c != "" {
		return c
	}
	if r.DefaultChannel != "" {
		return r.DefaultChannel
	}
	return models.ChannelOther
}

func (r *Rules) merchant(body string, dir models.Direction) string {
	if r.Merchant != nil {
		if m := r.Merchant(body, dir); m != "" {
			return m
		}
	}
	return ExtractMerchant(body)
}

func (r *Rules) accountTail(body string) string {
	if r.AccountTail != nil {
		if t := r.AccountTail(body); t != "" {
			return t
		}
	}
	return findAccountTail(body)
}

func (r *Rules) reference(body string) string {
	if r.Reference != nil {
		if ref := r.Reference(body); ref != "" {
			return ref
		}
	}
	return FindReference(body)
}

func (r *Rules) balance(body string) (decimal.Decimal, bool) {
	if r.Balance != nil {
		if v, ok := r.Balance(body); ok {
			return v, true
		}
	}
	return findBalance(body)
}

func (r *Rules) creditCard(body string) bool {
	if r.CreditCard != nil {
		return r.CreditCard(body)
	}
	return creditCardSpend.MatchString(body) && !cardBillDebit.MatchString(body)
}

// genericRules is the fallback used for unrecognised senders. Card bill
// payment confirmations are not suppressed here: a bank-side "payment towards
// credit card" is a real debit.
var genericRules = &Rules{
	Bank:     "",
	Method:   "generic",
	Suppress: preNotificationPatterns,
}

// Generic returns the fallback parser.
func Generic() *Rules {
	return genericRules
}
