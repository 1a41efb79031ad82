package log

import "errors"

// ErrBadOffset is returned when a local read offset falls outside
// [0, write_offset] for the segment being read.
var ErrBadOffset = errors.New("log: offset out of range for segment")

// ErrCorruptIndex is returned when a segment's .idx file exists but
// cannot be parsed as a non-negative decimal, or when a .seg file is
// found with no matching .idx. The core has no repair protocol for
// this; it is fatal on open.
var ErrCorruptIndex = errors.New("log: corrupt or missing segment index")

// Sentinel is the out-of-range cursor value returned by Log.Read when
// the requested offset is not valid for reading.
const Sentinel int64 = -1
