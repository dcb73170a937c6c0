package simulate

import "errors"

var (
	// ErrUnknownScenario is returned for a scenario name with no script.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrVerification is returned when a scenario run did not produce its
	// expected events or alerts.
	ErrVerification = errors.New("scenario verification failed")
)
