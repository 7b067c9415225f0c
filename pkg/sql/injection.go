package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an injection pattern found in user input.
type InjectionCheckResult struct {
	IsSQLi      bool
	Fingerprint string // libinjection fingerprint of the detected pattern
	InputName   string
	InputValue  any
}

// CheckInputForInjection screens a user-supplied value for SQL injection
// patterns before it is embedded in a prompt or query. Only string values
// are checked; other types cannot carry injection payloads.
//
// Returns nil when the value is clean.
func CheckInputForInjection(name string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			InputName:   name,
			InputValue:  value,
		}
	}

	return nil
}

// CheckInputs screens a set of named user inputs, returning one result per
// value that failed. An empty slice means all inputs are clean.
func CheckInputs(inputs map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range inputs {
		if result := CheckInputForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
