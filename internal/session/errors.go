package session

import "fmt"

// ConfigError reports an invalid session configuration: a bad duration
// budget, an unknown device, a conflicting policy combination, or a
// missing collaborator. Nothing has run when it is returned.
type ConfigError struct {
	Reason string
	// Err carries an underlying cause such as the unsupported-device
	// sentinel, when there is one.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: invalid configuration: %s: %v", e.Reason, e.Err)
	}
	return "session: invalid configuration: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// PolicyError reports a failed policy application. The cause is
// wrapped unmodified.
type PolicyError struct {
	Policy string
	Err    error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("session: policy %q: %v", e.Policy, e.Err)
}

func (e *PolicyError) Unwrap() error { return e.Err }

// CollaboratorError reports a failure inside an external collaborator
// (model, optimizer, or data provider). The cause is wrapped
// unmodified; the runner neither retries nor masks it.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
