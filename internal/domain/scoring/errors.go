package scoring

import "errors"

// ErrMalformedSignal reports an input value that cannot be read as text,
// a list of text fragments or a flag. Scoring never returns it; the
// affected dimension falls back to NeutralScore and the error is logged.
var ErrMalformedSignal = errors.New("malformed signal")
