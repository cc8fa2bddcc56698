package chainer

import "errors"

// ErrCorruptInternalState is returned when the order-statistic trees
// backing the sweep violate an invariant the algorithm depends on,
// such as deleting a key that isn't present.
var ErrCorruptInternalState = errors.New("chainer: corrupt internal state")
