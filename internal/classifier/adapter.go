package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
)

// Config locates the model artifact.
type Config struct {
	ModelPath string
	VocabPath string
	MaxTokens int
	// Timeout bounds one inference, including the wait for the engine.
	Timeout time.Duration
}

type loaded struct {
	engine Engine
	tok    *Tokenizer
}

// Adapter runs the sequence classifier when a model is available and the
// regex fallback otherwise. One inference runs at a time; tokenization and
// decoding run concurrently.
type Adapter struct {
	cfg    Config
	loader Loader
	log    zerolog.Logger

	initMu sync.Mutex
	state  atomic.Pointer[loaded]
	sem    *semaphore.Weighted
}

// NewAdapter creates an adapter. Nothing is loaded until Init or the first
// AnalyzeSms call. A nil loader means the model path is never used.
func NewAdapter(cfg Config, loader Loader, log zerolog.Logger) *Adapter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Adapter{
		cfg:    cfg,
		loader: loader,
		log:    log,
		sem:    semaphore.NewWeighted(1),
	}
}

// Ready reports whether a model is loaded.
func (a *Adapter) Ready() bool {
	return a.state.Load() != nil
}

// Init loads the model. It is idempotent; while one Init runs, concurrent
// callers get ErrInitInProgress instead of waiting.
func (a *Adapter) Init() error {
	if a.Ready() {
		return nil
	}
	if !a.initMu.TryLock() {
		return ErrInitInProgress
	}
	defer a.initMu.Unlock()
	if a.Ready() {
		return nil
	}

	if a.loader == nil || a.cfg.ModelPath == "" {
		return ErrModelUnavailable
	}
	data, err := os.ReadFile(a.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	tok := NewTokenizer(a.cfg.MaxTokens)
	if a.cfg.VocabPath != "" {
		f, err := os.Open(a.cfg.VocabPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		err = tok.LoadVocab(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	}

	engine, err := a.load(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	a.state.Store(&loaded{engine: engine, tok: tok})
	a.log.Info().Str("model", a.cfg.ModelPath).Msg("classifier model loaded")
	return nil
}

func (a *Adapter) load(data []byte) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fmt.Errorf("loader panic: %v", r)
		}
	}()
	engine, err = a.loader(data)
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}
	return engine, err
}

// Release drops the loaded engine so the next call re-initializes. The
// engine is closed only after any inference in flight has returned.
func (a *Adapter) Release() {
	st := a.state.Swap(nil)
	if st == nil {
		return
	}
	// cannot fail with a background context
	_ = a.sem.Acquire(context.Background(), 1)
	defer a.sem.Release(1)
	if err := st.engine.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing classifier engine")
	}
	a.log.Warn().Msg("classifier engine released")
}

// AnalyzeSms classifies body. It always returns an analysis: any model
// problem falls back to the regex analysis.
func (a *Adapter) AnalyzeSms(ctx context.Context, body string) Analysis {
	st := a.state.Load()
	if st == nil {
		if err := a.Init(); err != nil {
			a.log.Debug().Err(err).Msg("classifier model not ready, using regex analysis")
			return Fallback(body)
		}
		if st = a.state.Load(); st == nil {
			return Fallback(body)
		}
	}

	an, err := a.infer(ctx, st, body)
	if err != nil {
		if errors.Is(err, ErrResourceExhausted) {
			a.Release()
		}
		a.log.Warn().Err(err).Msg("classifier inference failed, using regex analysis")
		return Fallback(body)
	}
	return an
}

func (a *Adapter) infer(ctx context.Context, st *loaded, body string) (Analysis, error) {
	body = parser.NormalizeBody(body)
	enc := st.tok.Encode(body)

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return Analysis{}, fmt.Errorf("waiting for engine: %w", err)
	}
	if a.state.Load() != st {
		a.sem.Release(1)
		return Analysis{}, fmt.Errorf("%w: engine released", ErrModelUnavailable)
	}

	type result struct {
		out Outputs
		err error
	}
	done := make(chan result, 1)
	go func() {
		// the permit is held until the engine returns, even past a timeout
		defer a.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		out, err := st.engine.Run(enc.IDs, enc.Mask)
		done <- result{out: out, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return Analysis{}, fmt.Errorf("inference: %w", ctx.Err())
	}
	if res.err != nil {
		return Analysis{}, res.err
	}
	if err := res.out.Validate(len(enc.IDs)); err != nil {
		return Analysis{}, err
	}
	return decode(body, enc, res.out), nil
}

var directionClasses = []models.Direction{models.Debit, models.Credit, models.Transfer}

func decode(body string, enc Encoding, out Outputs) Analysis {
	p := out.transactionalScore()
	dir := argmax(out.Direction)
	an := Analysis{
		IsTransactional:     p >= 0.5,
		Confidence:          p,
		Direction:           directionClasses[dir],
		DirectionConfidence: float64(out.Direction[dir]),
		ChannelHint:         parser.DetectChannel(body),
		Source:              SourceModel,
	}

	n := len(enc.Tokens)
	if s, ok := FirstSpan(out.MerchantTags, n); ok {
		an.Merchant = parser.CleanMerchant(spanText(body, enc.Tokens, s))
	}
	if s, ok := FirstSpan(out.AmountTags, n); ok {
		text := spanText(body, enc.Tokens, s)
		if v, ok := parser.ExtractAmount(text); ok {
			an.Amount = &v
		} else if v, err := parser.ParseAmount(text); err == nil {
			an.Amount = &v
		}
	}
	if s, ok := FirstSpan(out.TypeTags, n); ok {
		an.TypeText = spanText(body, enc.Tokens, s)
	}
	return an
}
