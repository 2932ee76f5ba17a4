package notifier

import "errors"

// ErrThrottled is returned when a send is dropped by the outbound rate cap.
var ErrThrottled = errors.New("notification throttled")
