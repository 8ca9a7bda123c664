package enrich

import (
	"errors"
	"sync/atomic"
)

// ErrProviderAlreadySet is returned by SetDefault after the first call.
var ErrProviderAlreadySet = errors.New("enrich: default oracle already set")

type slot struct{ oracle Oracle }

var defaultSlot atomic.Pointer[slot]

// SetDefault registers the process-wide oracle. It succeeds once; later
// calls return ErrProviderAlreadySet. Prefer passing an Oracle explicitly.
func SetDefault(o Oracle) error {
	if o == nil {
		return errors.New("enrich: nil oracle")
	}
	if !defaultSlot.CompareAndSwap(nil, &slot{oracle: o}) {
		return ErrProviderAlreadySet
	}
	return nil
}

// Default returns the registered oracle, or nil.
func Default() Oracle {
	if s := defaultSlot.Load(); s != nil {
		return s.oracle
	}
	return nil
}
