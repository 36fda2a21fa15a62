package domain

// ConfigError reports a structurally incomplete donor population, schedule
// or parameter set. It is fatal: setup must abort.
type ConfigError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ContractError reports a programming-contract violation: out-of-range
// household input, malformed feature vectors or an unreachable draw state.
// Callers should not retry.
type ContractError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *ContractError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *ContractError) Unwrap() error {
	return e.Cause
}
