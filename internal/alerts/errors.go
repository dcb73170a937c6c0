package alerts

import "errors"

// ErrAlertNotFound is returned when an alert id is not in the history.
var ErrAlertNotFound = errors.New("alert not found")
