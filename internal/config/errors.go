package config

import "errors"

// Load and Validate wrap one of these; match them with errors.Is.
var (
	// ErrInvalidConfig marks a value outside its allowed range or format,
	// such as a relative api_base_url or an unparsable locale.
	ErrInvalidConfig = errors.New("invalid signupdesk config")
	// ErrLoadConfig marks a config file or env layer that could not be read.
	ErrLoadConfig = errors.New("load signupdesk config failed")
)
