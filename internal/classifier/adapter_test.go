package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// fakeEngine tags fixed word positions; seqLen must match the adapter's MaxTokens.
type fakeEngine struct {
	seqLen   int
	merchant int // word index, -1 for none
	amount   int
	err      error
	panic    bool
	block    chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	closed   atomic.Bool
}

func (f *fakeEngine) Run(ids, mask []int64) (Outputs, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	if f.panic {
		panic("engine crashed")
	}
	if f.err != nil {
		return Outputs{}, f.err
	}
	if len(ids) != f.seqLen {
		return Outputs{}, nil
	}
	tags := func(word int) [][]float32 {
		out := make([][]float32, f.seqLen)
		for k := range out {
			out[k] = oRow
		}
		if word >= 0 {
			out[word+1] = bRow
		}
		return out
	}
	return Outputs{
		Transactional: []float32{0.1, 0.9},
		Direction:     []float32{0.8, 0.15, 0.05},
		MerchantTags:  tags(f.merchant),
		AmountTags:    tags(f.amount),
		TypeTags:      tags(-1),
	}, nil
}

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sms-classifier.bin")
	if err := os.WriteFile(path, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func loaderFor(e Engine) Loader {
	return func([]byte) (Engine, error) { return e, nil }
}

const body = "Rs.500 debited at SWIGGY"

func TestAnalyzeSms_ModelAbsent(t *testing.T) {
	a := NewAdapter(Config{ModelPath: filepath.Join(t.TempDir(), "missing.bin")}, loaderFor(&fakeEngine{}), zerolog.Nop())

	an := a.AnalyzeSms(context.Background(), "Rs.1,250.00 debited from A/c XX1234 at AMAZON on 12-08-24. Avl Bal Rs.8,000")
	if an.Source != SourceRegex {
		t.Errorf("source: got %q, want %q", an.Source, SourceRegex)
	}
	if !an.IsTransactional {
		t.Error("expected transactional")
	}
	if an.Direction != models.Debit {
		t.Errorf("direction: got %q, want DEBIT", an.Direction)
	}
	if an.Amount == nil || !an.Amount.Equal(decimal.RequireFromString("1250")) {
		t.Errorf("amount: got %v, want 1250", an.Amount)
	}
	if an.Merchant != "AMAZON" {
		t.Errorf("merchant: got %q, want AMAZON", an.Merchant)
	}
	if an.DirectionConfidence <= 0.5 {
		t.Errorf("direction confidence: got %v, want > 0.5", an.DirectionConfidence)
	}
	if a.Ready() {
		t.Error("adapter should not be ready without a model")
	}
}

func TestAnalyzeSms_NoLoader(t *testing.T) {
	a := NewAdapter(Config{}, nil, zerolog.Nop())
	if err := a.Init(); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
	if an := a.AnalyzeSms(context.Background(), "Your OTP is 1234"); an.IsTransactional {
		t.Error("OTP should not be transactional")
	}
}

func TestAnalyzeSms_Model(t *testing.T) {
	eng := &fakeEngine{seqLen: 16, merchant: 3, amount: 0}
	a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16}, loaderFor(eng), zerolog.Nop())

	an := a.AnalyzeSms(context.Background(), body)
	if an.Source != SourceModel {
		t.Fatalf("source: got %q, want %q", an.Source, SourceModel)
	}
	if !an.IsTransactional || an.Confidence < 0.89 {
		t.Errorf("transactional: got %v (%v)", an.IsTransactional, an.Confidence)
	}
	if an.Direction != models.Debit {
		t.Errorf("direction: got %q, want DEBIT", an.Direction)
	}
	if an.Merchant != "SWIGGY" {
		t.Errorf("merchant: got %q, want SWIGGY", an.Merchant)
	}
	if an.Amount == nil || !an.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("amount: got %v, want 500", an.Amount)
	}
}

func TestAnalyzeSms_Failures(t *testing.T) {
	tests := []struct {
		name      string
		engine    *fakeEngine
		wantReady bool
	}{
		{"resource exhausted releases engine", &fakeEngine{seqLen: 16, err: ErrResourceExhausted}, false},
		{"wrapped resource exhausted", &fakeEngine{seqLen: 16, err: errors.Join(errors.New("oom"), ErrResourceExhausted)}, false},
		{"generic error keeps engine", &fakeEngine{seqLen: 16, err: errors.New("bad input")}, true},
		{"panic keeps engine", &fakeEngine{seqLen: 16, panic: true}, true},
		{"invalid output", &fakeEngine{seqLen: 99}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16}, loaderFor(tt.engine), zerolog.Nop())
			an := a.AnalyzeSms(context.Background(), body)
			if an.Source != SourceRegex {
				t.Errorf("source: got %q, want %q", an.Source, SourceRegex)
			}
			if an.Direction != models.Debit {
				t.Errorf("direction: got %q, want DEBIT", an.Direction)
			}
			if a.Ready() != tt.wantReady {
				t.Errorf("ready: got %v, want %v", a.Ready(), tt.wantReady)
			}
			if tt.engine.closed.Load() == tt.wantReady {
				t.Errorf("closed: got %v", tt.engine.closed.Load())
			}
		})
	}
}

func TestAnalyzeSms_Timeout(t *testing.T) {
	eng := &fakeEngine{seqLen: 16, merchant: -1, amount: -1, block: make(chan struct{})}
	defer close(eng.block)
	a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16, Timeout: 20 * time.Millisecond}, loaderFor(eng), zerolog.Nop())

	start := time.Now()
	an := a.AnalyzeSms(context.Background(), body)
	if an.Source != SourceRegex {
		t.Errorf("source: got %q, want %q", an.Source, SourceRegex)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}
}

func TestAnalyzeSms_SerializesInference(t *testing.T) {
	eng := &fakeEngine{seqLen: 16, merchant: 3, amount: 0}
	a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16}, loaderFor(eng), zerolog.Nop())
	if err := a.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	var wg sync.WaitGroup
	for k := 0; k < 32; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AnalyzeSms(context.Background(), body)
		}()
	}
	wg.Wait()

	if got := eng.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent inferences: got %d, want 1", got)
	}
}

// exhaustOnceEngine fails its first run with ErrResourceExhausted and
// records whether Close ever overlapped a later run.
type exhaustOnceEngine struct {
	fakeEngine
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
}

func (e *exhaustOnceEngine) Run(ids, mask []int64) (Outputs, error) {
	if e.calls.Add(1) == 1 {
		return Outputs{}, ErrResourceExhausted
	}
	e.running.Add(1)
	defer e.running.Add(-1)
	time.Sleep(20 * time.Millisecond)
	return e.fakeEngine.Run(ids, mask)
}

func (e *exhaustOnceEngine) Close() error {
	if e.running.Load() > 0 {
		e.overlap.Store(true)
	}
	return e.fakeEngine.Close()
}

func TestRelease_WaitsForInflightRun(t *testing.T) {
	eng := &exhaustOnceEngine{fakeEngine: fakeEngine{seqLen: 16, merchant: 3, amount: 0}}
	a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16}, loaderFor(eng), zerolog.Nop())
	if err := a.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AnalyzeSms(context.Background(), body)
		}()
	}
	wg.Wait()

	if !eng.closed.Load() {
		t.Error("engine was not closed after resource exhaustion")
	}
	if eng.overlap.Load() {
		t.Error("engine closed while a run was in flight")
	}
}

func TestInit_Concurrent(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func([]byte) (Engine, error) {
		close(started)
		<-release
		return &fakeEngine{seqLen: 16}, nil
	}
	a := NewAdapter(Config{ModelPath: writeModel(t), MaxTokens: 16}, loader, zerolog.Nop())

	errc := make(chan error, 1)
	go func() { errc <- a.Init() }()
	<-started

	if err := a.Init(); !errors.Is(err, ErrInitInProgress) {
		t.Errorf("got %v, want ErrInitInProgress", err)
	}
	if an := a.AnalyzeSms(context.Background(), body); an.Source != SourceRegex {
		t.Errorf("source during init: got %q, want %q", an.Source, SourceRegex)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("init: %v", err)
	}
	if !a.Ready() {
		t.Error("expected adapter to be ready")
	}
	if err := a.Init(); err != nil {
		t.Errorf("second init: %v", err)
	}
}
