// Package pipeline wires the promo gate, dialect parsers, internal-transfer
// detection, optional enrichment and storage into one message flow.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/sms-transaction-parser/internal/classifier"
	"github.com/insightdelivered/sms-transaction-parser/internal/enrich"
	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
	"github.com/insightdelivered/sms-transaction-parser/internal/promo"
	"github.com/insightdelivered/sms-transaction-parser/internal/store"
	"github.com/insightdelivered/sms-transaction-parser/internal/transfer"
)

// DefaultOracleTimeout bounds one oracle call when none is configured.
const DefaultOracleTimeout = 5 * time.Second

// Pipeline turns raw messages into transactions. It is safe for concurrent
// use; the pair window is its only mutable state besides the store.
type Pipeline struct {
	registry      *parser.Registry
	generic       parser.Parser
	oracle        enrich.Oracle
	oracleTimeout time.Duration
	classifier    *classifier.Adapter
	store         store.Store
	window        *transfer.PairWindow
	log           zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithRegistry replaces the built-in dialect registry.
func WithRegistry(r *parser.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithOracle enables enrichment with o. Without it the process-wide default
// oracle, if one is set, is used.
func WithOracle(o enrich.Oracle) Option {
	return func(p *Pipeline) { p.oracle = o }
}

// WithOracleTimeout bounds each oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.oracleTimeout = d
		}
	}
}

// WithClassifier attaches the sequence classifier used by Analyze.
func WithClassifier(a *classifier.Adapter) Option {
	return func(p *Pipeline) { p.classifier = a }
}

// WithStore sets the storage collaborator used by Process.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPairWindow sets the cross-message pairing window.
func WithPairWindow(w *transfer.PairWindow) Option {
	return func(p *Pipeline) { p.window = w }
}

// New builds a pipeline. Without options it uses the built-in dialects, an
// in-memory store and a default pair window.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		generic:       parser.Generic(),
		oracleTimeout: DefaultOracleTimeout,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = parser.DefaultRegistry(p.log)
	}
	if p.store == nil {
		p.store = store.NewMemoryStore()
	}
	if p.window == nil {
		p.window = transfer.NewPairWindow(transfer.DefaultWindow, transfer.DefaultBucketSize)
	}
	return p
}

// Store returns the storage collaborator.
func (p *Pipeline) Store() store.Store {
	return p.store
}

// Parse is the pure single-message entry point. It returns nil for anything
// that is not a completed, external money movement, and never panics.
func (p *Pipeline) Parse(ctx context.Context, sender, body string, timestampMillis int64) *models.ParsedTransaction {
	msg := models.RawMessage{Sender: sender, Body: body, TimestampMillis: timestampMillis}
	log := p.log.With().Str("sender", sender).Int64("timestamp", timestampMillis).Logger()

	if v := promo.Classify(body); v.Reject {
		log.Debug().Str("reason", v.Reason).Msg("rejected as noise")
		return nil
	}

	txn := p.parseDialect(msg, log)
	if txn == nil {
		return nil
	}

	if internal, cue := transfer.IsInternal(body, txn); internal {
		log.Debug().Str("cue", cue).Msg("rejected as internal transfer")
		return nil
	}

	oracle := p.oracle
	if oracle == nil {
		oracle = enrich.Default()
	}
	if oracle != nil {
		hint := enrich.SafeExtract(ctx, oracle, p.oracleTimeout, msg, log)
		txn = enrich.Merge(txn, hint, log)
	}
	return txn
}

// parseDialect runs the sender's dialect, or the generic parser when the
// sender is unknown or the dialect faults. A dialect that declines the
// message rejects it.
func (p *Pipeline) parseDialect(msg models.RawMessage, log zerolog.Logger) *models.ParsedTransaction {
	if profile := p.registry.Resolve(msg.Sender); profile != nil {
		txn, ok := parser.SafeParse(profile.Rules, msg)
		if ok {
			return txn
		}
		log.Warn().Str("bank", string(profile.Bank)).Msg("dialect parser failed, using generic parser")
	}
	txn, ok := parser.SafeParse(p.generic, msg)
	if !ok {
		log.Warn().Msg("generic parser failed")
		return nil
	}
	return txn
}

// Analyze runs the sequence classifier, or the regex analysis when no
// classifier is attached.
func (p *Pipeline) Analyze(ctx context.Context, body string) classifier.Analysis {
	if p.classifier == nil {
		return classifier.Fallback(body)
	}
	return p.classifier.AnalyzeSms(ctx, body)
}
