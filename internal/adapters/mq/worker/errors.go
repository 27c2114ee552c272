package worker

import "errors"

// ErrPublish marks a request whose score was stored but whose event could
// not be published.
var ErrPublish = errors.New("publish lead scored event")
