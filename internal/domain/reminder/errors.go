// internal/domain/reminder/errors.go
package reminder

import "errors"

var ErrReminderNotFound = errors.New("reminder not found")

// ErrStoreUnavailable marks connection/transport failures to the relational
// backend. The repository recovers with a short fixed-count retry; the
// scheduler treats it as "skip this cycle, try again next minute".
var ErrStoreUnavailable = errors.New("reminder store unavailable")
