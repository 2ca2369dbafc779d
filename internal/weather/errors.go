package weather

import "fmt"

// ServiceError reports a failed call to the upstream weather provider.
// Body holds a truncated slice of the response for diagnostics.
type ServiceError struct {
	Mode       Source
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("open-meteo %s HTTP %d: %s", e.Mode, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("open-meteo %s: %s", e.Mode, e.Body)
}

// ValidationError reports an upstream response that came back 2xx but is
// unusable (empty or malformed series). It triggers the same fallback path
// as a ServiceError.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid weather series: " + e.Reason
}
