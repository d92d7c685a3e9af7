package imaging

import "fmt"

// DataError reports pixel data that cannot be measured, such as a frame
// whose buffer does not match its dimensions. Scans recover from it by
// substituting a zero sample.
type DataError struct {
	Region Region
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("cannot measure %s: %v", e.Region, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// ConfigError reports an invalid region or scan configuration. It is raised
// before any frame is read and ends only the operation that was requested.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
