package knngraph

import "errors"

// ErrInsufficientPool is returned by Compile when the item set is too small
// to seed a working heap of capacity 2*K for every item (2*K > N-1).
var ErrInsufficientPool = errors.New("knngraph: item pool too small for configured k")

// ErrNotCompiled is returned by KNearest and ErrorRatio when the index has
// been mutated since the last successful Compile and has not yet been
// recompiled.
var ErrNotCompiled = errors.New("knngraph: index is dirty, call Compile first")

// ErrLengthMismatch signals an internal invariant violation: the exact and
// approximate neighbor lists compared by ErrorRatio had different lengths.
// This should never happen and indicates a bug in the engine, not caller
// misuse.
var ErrLengthMismatch = errors.New("knngraph: exact/approx neighbor length mismatch")
