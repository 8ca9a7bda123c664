package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Result is the outcome of processing one message.
type Result struct {
	Message     models.RawMessage         `json:"message"`
	Transaction *models.ParsedTransaction `json:"transaction,omitempty"`
	Record      *models.TransactionRecord `json:"record,omitempty"`
	Duplicate   bool                      `json:"duplicate,omitempty"`
	PairedWith  string                    `json:"pairedWith,omitempty"`
}

// Rejected reports whether the message produced no transaction.
func (r Result) Rejected() bool {
	return r.Transaction == nil
}

// NewRecord converts a parsed transaction into a storable record with a
// fresh ID.
func NewRecord(txn *models.ParsedTransaction) models.TransactionRecord {
	return models.TransactionRecord{
		ID:              uuid.New().String(),
		Type:            txn.Type,
		Source:          models.SourceSMS,
		Amount:          txn.Amount,
		Merchant:        txn.Merchant,
		Channel:         txn.Channel,
		AccountTail:     txn.AccountTail,
		BankName:        txn.BankName,
		ReferenceID:     txn.ReferenceID,
		BalanceAfter:    txn.BalanceAfter,
		Sender:          txn.Source.Sender,
		Body:            txn.Source.Body,
		TimestampMillis: txn.Source.TimestampMillis,
	}
}

// Process parses msg, stores it once, and cancels it against an earlier
// opposite leg of the same amount. Both legs of a cancelled pair stay
// stored but are marked excluded. Errors come only from the store.
func (p *Pipeline) Process(ctx context.Context, msg models.RawMessage) (Result, error) {
	txn := p.Parse(ctx, msg.Sender, msg.Body, msg.TimestampMillis)
	return p.commit(ctx, msg, txn)
}

// commit stores a parsed transaction and applies pairing.
func (p *Pipeline) commit(ctx context.Context, msg models.RawMessage, txn *models.ParsedTransaction) (Result, error) {
	res := Result{Message: msg}
	if txn == nil {
		return res, nil
	}
	res.Transaction = txn

	rec := NewRecord(txn)
	inserted, err := p.store.Insert(ctx, rec)
	if err != nil {
		return res, fmt.Errorf("storing transaction: %w", err)
	}
	if !inserted {
		p.log.Debug().Str("sender", msg.Sender).Int64("timestamp", msg.TimestampMillis).Msg("duplicate message")
		res.Duplicate = true
		return res, nil
	}

	if rec.Counted() {
		if matched, ok := p.window.Observe(rec.ID, rec.Amount, txn.Direction, rec.TimestampMillis); ok {
			if err := p.store.MarkExcluded(ctx, matched, rec.ID); err != nil {
				return res, fmt.Errorf("excluding offsetting pair: %w", err)
			}
			rec.Excluded = true
			res.PairedWith = matched
			p.log.Debug().
				Str("id", rec.ID).
				Str("paired_with", matched).
				Str("amount", rec.Amount.String()).
				Msg("offsetting pair excluded")
		}
	}
	res.Record = &rec
	return res, nil
}

// ProcessBatch processes msgs ordered by timestamp. Parsing runs on up to
// workers goroutines; storing and pairing then run in timestamp order, so
// the outcome does not depend on scheduling. Results are returned in
// timestamp order.
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []models.RawMessage, workers int) ([]Result, error) {
	ordered := append([]models.RawMessage(nil), msgs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimestampMillis < ordered[j].TimestampMillis
	})
	if workers <= 0 {
		workers = 1
	}

	txns := make([]*models.ParsedTransaction, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, msg := range ordered {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			txns[i] = p.Parse(gctx, msg.Sender, msg.Body, msg.TimestampMillis)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, len(ordered))
	for i, msg := range ordered {
		res, err := p.commit(ctx, msg, txns[i])
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// Summarize totals the records that count: CREDIT and DEBIT records that are
// not excluded. Everything else is reported in Excluded.
func Summarize(records []models.TransactionRecord) models.Summary {
	var s models.Summary
	for _, r := range records {
		if !r.Counted() {
			s.Excluded++
			continue
		}
		s.Count++
		switch r.Type {
		case models.TypeCredit:
			s.TotalCredit = s.TotalCredit.Add(r.Amount)
		case models.TypeDebit:
			s.TotalDebit = s.TotalDebit.Add(r.Amount)
		}
	}
	s.Net = s.TotalCredit.Sub(s.TotalDebit)
	return s
}

// ErrInvalidManual is returned for manual records that cannot be stored.
var ErrInvalidManual = errors.New("invalid manual record")

// AddManual stores a user-entered record through the same insert path as
// parsed messages. A resubmission with the same note and timestamp is
// reported as a duplicate.
func (p *Pipeline) AddManual(ctx context.Context, rec models.TransactionRecord) (models.TransactionRecord, bool, error) {
	switch rec.Type {
	case models.TypeCredit, models.TypeDebit, models.TypeInvestment:
	default:
		return rec, false, fmt.Errorf("%w: type %q", ErrInvalidManual, rec.Type)
	}
	if !rec.Amount.IsPositive() {
		return rec, false, fmt.Errorf("%w: amount must be positive", ErrInvalidManual)
	}
	if rec.TimestampMillis <= 0 {
		return rec, false, fmt.Errorf("%w: timestamp required", ErrInvalidManual)
	}
	if rec.Channel == "" {
		rec.Channel = models.ChannelOther
	}
	rec.ID = uuid.New().String()
	rec.Source = models.SourceManual
	rec.Sender = models.SourceManual
	rec.Excluded = false

	inserted, err := p.store.Insert(ctx, rec)
	if err != nil {
		return rec, false, fmt.Errorf("storing manual record: %w", err)
	}
	return rec, inserted, nil
}
