package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means no model is configured or it failed to load.
	ErrModelUnavailable = errors.New("classifier: model unavailable")
	// ErrInvalidOutput means the engine returned tensors of the wrong shape.
	ErrInvalidOutput = errors.New("classifier: invalid model output")
	// ErrResourceExhausted is returned by engines that ran out of memory or
	// another hard resource. The adapter releases the engine when it sees it.
	ErrResourceExhausted = errors.New("classifier: resource exhausted")
	// ErrInitInProgress is returned to callers that race a running Init.
	ErrInitInProgress = errors.New("classifier: initialization in progress")
)

// Outputs are the five model heads for one sequence.
//
//	Transactional  [1] probability, or [2] softmax over (no, yes)
//	Direction      [3] softmax over (DEBIT, CREDIT, TRANSFER)
//	MerchantTags   [seq][3] softmax over (B, I, O) per position
//	AmountTags     [seq][3]
//	TypeTags       [seq][3]
type Outputs struct {
	Transactional []float32
	Direction     []float32
	MerchantTags  [][]float32
	AmountTags    [][]float32
	TypeTags      [][]float32
}

// Engine runs one inference. Implementations need not be safe for
// concurrent use; the adapter serializes calls.
type Engine interface {
	Run(ids, mask []int64) (Outputs, error)
	Close() error
}

// Loader builds an engine from model file bytes.
type Loader func(model []byte) (Engine, error)

// Validate checks tensor counts and shapes against the sequence length.
func (o Outputs) Validate(seqLen int) error {
	if n := len(o.Transactional); n != 1 && n != 2 {
		return fmt.Errorf("%w: transactional head has %d values", ErrInvalidOutput, n)
	}
	if len(o.Direction) != 3 {
		return fmt.Errorf("%w: direction head has %d values", ErrInvalidOutput, len(o.Direction))
	}
	for name, tags := range map[string][][]float32{
		"merchant": o.MerchantTags,
		"amount":   o.AmountTags,
		"type":     o.TypeTags,
	} {
		if len(tags) != seqLen {
			return fmt.Errorf("%w: %s tags cover %d positions, want %d", ErrInvalidOutput, name, len(tags), seqLen)
		}
		for i, row := range tags {
			if len(row) != 3 {
				return fmt.Errorf("%w: %s tags position %d has %d classes", ErrInvalidOutput, name, i, len(row))
			}
		}
	}
	return nil
}

func (o Outputs) transactionalScore() float64 {
	if len(o.Transactional) == 2 {
		return float64(o.Transactional[1])
	}
	return float64(o.Transactional[0])
}
