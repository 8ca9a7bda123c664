package models

import (
	"github.com/shopspring/decimal"
)

// RawMessage is a single SMS as received from the device or an export.
type RawMessage struct {
	Sender          string `json:"sender"`
	Body            string `json:"body"`
	TimestampMillis int64  `json:"timestamp"`
}

// Direction is the money-movement direction of a transaction.
type Direction string

const (
	Credit   Direction = "CREDIT"
	Debit    Direction = "DEBIT"
	Transfer Direction = "TRANSFER"
)

// Opposite returns the opposite leg for CREDIT/DEBIT and "" otherwise.
func (d Direction) Opposite() Direction {
	switch d {
	case Credit:
		return Debit
	case Debit:
		return Credit
	}
	return ""
}

// Channel is the payment rail used for a transaction.
type Channel string

const (
	ChannelUPI        Channel = "UPI"
	ChannelCard       Channel = "CARD"
	ChannelATM        Channel = "ATM"
	ChannelPOS        Channel = "POS"
	ChannelIMPS       Channel = "IMPS"
	ChannelNEFT       Channel = "NEFT"
	ChannelRTGS       Channel = "RTGS"
	ChannelNetBanking Channel = "NETBANKING"
	ChannelCash       Channel = "CASH"
	ChannelOther      Channel = "OTHER"
)

// ParseChannel maps a free-form channel name onto a known Channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelUPI, ChannelCard, ChannelATM, ChannelPOS, ChannelIMPS, ChannelNEFT,
		ChannelRTGS, ChannelNetBanking, ChannelCash, ChannelOther:
		return Channel(s), true
	}
	return "", false
}

// Transaction types stored on records. INVESTMENT is kept out of the
// CREDIT/DEBIT totals.
const (
	TypeCredit     = "CREDIT"
	TypeDebit      = "DEBIT"
	TypeTransfer   = "TRANSFER"
	TypeInvestment = "INVESTMENT"
)

// Record sources.
const (
	SourceSMS    = "SMS"
	SourceManual = "MANUAL"
)

// BankID identifies a supported bank or fintech dialect.
type BankID string

const (
	BankHDFC  BankID = "hdfc"
	BankICICI BankID = "icici"
	BankSBI   BankID = "sbi"
	BankAxis  BankID = "axis"
	BankKotak BankID = "kotak"
	BankPaytm BankID = "paytm"
)

// ParsedTransaction is the output of the parsing stage. Amount is always
// positive; a message without an amount never produces one.
type ParsedTransaction struct {
	Amount       decimal.Decimal  `json:"amount"`
	Direction    Direction        `json:"direction"`
	Type         string           `json:"type"`
	Merchant     string           `json:"merchant,omitempty"`
	ReferenceID  string           `json:"referenceId,omitempty"`
	AccountTail  string           `json:"accountTail,omitempty"`
	BalanceAfter *decimal.Decimal `json:"balanceAfter,omitempty"`
	BankName     string           `json:"bankName,omitempty"`
	Channel      Channel          `json:"channel,omitempty"`
	CreditCard   bool             `json:"creditCard,omitempty"`
	ParseMethod  string           `json:"parseMethod,omitempty"` // debug: which rule set produced it
	Source       RawMessage       `json:"source"`
}

// TransactionRecord is the persisted shape handed to the storage collaborator.
type TransactionRecord struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	Source          string           `json:"source"`
	Amount          decimal.Decimal  `json:"amount"`
	Merchant        string           `json:"merchant,omitempty"`
	Channel         Channel          `json:"channel,omitempty"`
	AccountTail     string           `json:"accountTail,omitempty"`
	BankName        string           `json:"bankName,omitempty"`
	ReferenceID     string           `json:"referenceId,omitempty"`
	BalanceAfter    *decimal.Decimal `json:"balanceAfter,omitempty"`
	Sender          string           `json:"sender"`
	Body            string           `json:"body"`
	TimestampMillis int64            `json:"timestamp"`
	Excluded        bool             `json:"excluded"`
}

// Counted reports whether the record contributes to CREDIT/DEBIT totals.
func (r TransactionRecord) Counted() bool {
	if r.Excluded {
		return false
	}
	return r.Type == TypeCredit || r.Type == TypeDebit
}

// Summary aggregates a set of records.
type Summary struct {
	TotalCredit decimal.Decimal `json:"totalCredit"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	Net         decimal.Decimal `json:"net"`
	Count       int             `json:"count"`
	Excluded    int             `json:"excluded"`
}
