// Package enrich merges optional hints from an external extraction oracle
// into regex-parsed transactions. The oracle never decides whether a message
// is a transaction and never changes the amount.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
)

// Hint is what an oracle knows about one message. Every field is optional.
type Hint struct {
	IsTransaction bool   `json:"is_transaction"`
	Type          string `json:"type,omitempty"`
	AmountMinor   *int64 `json:"amount_minor,omitempty"`
	Channel       string `json:"channel,omitempty"`
	Merchant      string `json:"merchant,omitempty"`
	AccountTail   string `json:"account_tail,omitempty"`
	Bank          string `json:"bank,omitempty"`
}

// Oracle extracts hints from a raw message.
type Oracle interface {
	Extract(ctx context.Context, sender, body string, timestampMillis int64) (*Hint, error)
}

// SafeExtract calls o with a deadline. Errors, panics and timeouts are logged
// and reported as no hint. A nil oracle yields no hint.
func SafeExtract(ctx context.Context, o Oracle, timeout time.Duration, msg models.RawMessage, log zerolog.Logger) *Hint {
	if o == nil {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		hint *Hint
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		h, err := o.Extract(ctx, msg.Sender, msg.Body, msg.TimestampMillis)
		done <- result{hint: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Warn().Err(res.err).Str("sender", msg.Sender).Msg("oracle failed, continuing without enrichment")
			return nil
		}
		return res.hint
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Str("sender", msg.Sender).Msg("oracle timed out, continuing without enrichment")
		return nil
	}
}

// Merge applies hint to a copy of txn. The regex amount always stands; a
// disagreeing oracle amount is only logged. Type, channel and merchant
// override when present; account tail and bank only fill gaps. A hint that
// claims the message is not a transaction is ignored.
func Merge(txn *models.ParsedTransaction, hint *Hint, log zerolog.Logger) *models.ParsedTransaction {
	if txn == nil || hint == nil || !hint.IsTransaction {
		return txn
	}
	out := *txn

	if hint.AmountMinor != nil {
		oracleAmount := decimal.New(*hint.AmountMinor, -2)
		if !oracleAmount.Equal(txn.Amount) {
			log.Warn().
				Str("regex_amount", txn.Amount.String()).
				Str("oracle_amount", oracleAmount.String()).
				Msg("oracle amount disagrees, keeping regex amount")
		}
	}

	switch t := strings.ToUpper(strings.TrimSpace(hint.Type)); t {
	case models.TypeCredit:
		out.Type, out.Direction = t, models.Credit
	case models.TypeDebit:
		out.Type, out.Direction = t, models.Debit
	case models.TypeInvestment:
		out.Type = t
	}

	if ch, ok := models.ParseChannel(strings.ToUpper(strings.TrimSpace(hint.Channel))); ok {
		out.Channel = ch
	}
	if m := parser.CleanMerchant(hint.Merchant); m != "" {
		out.Merchant = m
	}
	if out.AccountTail == "" {
		out.AccountTail = strings.TrimSpace(hint.AccountTail)
	}
	if out.BankName == "" {
		out.BankName = strings.TrimSpace(hint.Bank)
	}
	return &out
}
