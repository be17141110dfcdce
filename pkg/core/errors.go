package core

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or invalid persisted configuration,
// or a failed phase precondition.
type ConfigurationError struct {
	Message string
	Cause   error
}

// NewConfigurationError creates a ConfigurationError with an optional cause.
func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{Message: message, Cause: cause}
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// AnalysisError reports that the configure session produced no valid
// configuration, or that its terminal event was a failure.
type AnalysisError struct {
	Message string
	Cause   error
}

func NewAnalysisError(message string, cause error) *AnalysisError {
	return &AnalysisError{Message: message, Cause: cause}
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("analysis error: %s", e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

// ProvisionError reports a failed provisioning-phase session. ResourceID is
// set when the failure is attributable to one declared resource.
type ProvisionError struct {
	Message    string
	ResourceID string
	Cause      error
}

func NewProvisionError(message, resourceID string, cause error) *ProvisionError {
	return &ProvisionError{Message: message, ResourceID: resourceID, Cause: cause}
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("provision error: %s", e.Message)
	if e.ResourceID != "" {
		msg += fmt.Sprintf(" (resource %s)", e.ResourceID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ProvisionError) Unwrap() error { return e.Cause }

// AuthenticationError reports a failed cloud-credential verification.
type AuthenticationError struct {
	Provider string
	Message  string
}

func NewAuthenticationError(provider, message string) *AuthenticationError {
	return &AuthenticationError{Provider: provider, Message: message}
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error (%s): %s", e.Provider, e.Message)
}

// RollbackError signals that an apply left resources in an indeterminate
// state. No automatic remediation is performed; the caller must inspect the
// named resources.
type RollbackError struct {
	ResourceIDs []string
	Cause       error
}

func NewRollbackError(resourceIDs []string, cause error) *RollbackError {
	return &RollbackError{ResourceIDs: resourceIDs, Cause: cause}
}

func (e *RollbackError) Error() string {
	msg := "rollback required"
	if len(e.ResourceIDs) > 0 {
		msg += ": resources in indeterminate state: " + strings.Join(e.ResourceIDs, ", ")
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *RollbackError) Unwrap() error { return e.Cause }
