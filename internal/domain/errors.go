package domain

import "fmt"

// ConfigurationError reports a missing required credential or
// setting. It is surfaced to the caller as 200 with a readable
// message: Slack retries non-200 responses and a missing token would
// otherwise turn into a retry storm.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.Missing)
}

// UpstreamDataError reports required upstream data that came back
// empty, e.g. a pipeline without stages.
type UpstreamDataError struct {
	Msg string
}

func (e *UpstreamDataError) Error() string {
	return e.Msg
}

// UpstreamCallError reports a chat API call the platform rejected.
type UpstreamCallError struct {
	Op  string
	Err error
}

func (e *UpstreamCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamCallError) Unwrap() error {
	return e.Err
}
