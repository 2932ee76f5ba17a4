package poller

import "errors"

// Failure classes for poll cycles. The loop branches on these to decide
// between normal cadence and backoff.
var (
	// ErrSourceUnavailable marks alert-source connection or protocol
	// failures. The poller enters backoff until a fetch succeeds.
	ErrSourceUnavailable = errors.New("alert source unavailable")

	// ErrParse marks a malformed individual alert. Only that alert is
	// skipped; the rest of the batch continues.
	ErrParse = errors.New("malformed alert")
)
