package parser

import (
	"fmt"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Parser defines the interface for SMS dialect parsers.
type Parser interface {
	// Parse extracts a transaction from one message, or returns nil when the
	// message does not describe a completed money movement.
	Parse(msg models.RawMessage) *models.ParsedTransaction
	// BankName returns the human-readable bank name.
	BankName() string
}

// New returns the parser for the given bank.
func New(bank models.BankID) (Parser, error) {
	switch bank {
	case models.BankHDFC:
		return hdfcRules(), nil
	case models.BankICICI:
		return iciciRules(), nil
	case models.BankSBI:
		return sbiRules(), nil
	case models.BankAxis:
		return axisRules(), nil
	case models.BankKotak:
		return kotakRules(), nil
	case models.BankPaytm:
		return paytmRules(), nil
	default:
		return nil, fmt.Errorf("unsupported bank: %q", bank)
	}
}

// SafeParse runs p and converts a panic into a nil result. The second return
// value is false when p panicked.
func SafeParse(p Parser, msg models.RawMessage) (txn *models.ParsedTransaction, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			txn, ok = nil, false
		}
	}()
	return p.Parse(msg), true
}
