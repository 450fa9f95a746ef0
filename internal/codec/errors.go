package codec

import "errors"

// ErrCorruptedInput is returned by Uncompress when the input is not a
// well-formed compressed frame.
var ErrCorruptedInput = errors.New("codec: corrupted input")

// ErrShortBuffer is returned by Reader methods when fewer bytes remain
// than the value being decoded requires.
var ErrShortBuffer = errors.New("codec: short buffer")
