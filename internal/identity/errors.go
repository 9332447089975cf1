package identity

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

// Provider error codes as reported by the Identity Toolkit API.
const (
	ProviderEmailNotFound      = "EMAIL_NOT_FOUND"
	ProviderInvalidPassword    = "INVALID_PASSWORD"
	ProviderInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
	ProviderInvalidEmail       = "INVALID_EMAIL"
	ProviderTooManyAttempts    = "TOO_MANY_ATTEMPTS_TRY_LATER"
	ProviderEmailExists        = "EMAIL_EXISTS"
	ProviderWeakPassword       = "WEAK_PASSWORD"
	ProviderUserDisabled       = "USER_DISABLED"
	ProviderNetworkFailed      = "NETWORK_REQUEST_FAILED"
)

// ProviderError carries a provider failure code such as EMAIL_EXISTS.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity provider: %s: %v", e.Code, e.Err)
	}
	return "identity provider: " + e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// parseProviderCode reduces "WEAK_PASSWORD : Password should be ..." to its code.
func parseProviderCode(message string) string {
	code, _, _ := strings.Cut(message, ":")
	return strings.TrimSpace(code)
}

var signInMessages = map[string]struct {
	code    pkgerrors.Code
	message string
}{
	ProviderEmailNotFound:      {pkgerrors.CodeUnauthorized, "No account found with this email address."},
	ProviderInvalidPassword:    {pkgerrors.CodeUnauthorized, "Incorrect password. Please try again."},
	ProviderInvalidCredentials: {pkgerrors.CodeUnauthorized, "Incorrect password. Please try again."},
	ProviderInvalidEmail:       {pkgerrors.CodeValidation, "Invalid email address."},
	ProviderTooManyAttempts:    {pkgerrors.CodeRateLimit, "Too many failed attempts. Please try again later."},
	ProviderUserDisabled:       {pkgerrors.CodeForbidden, "This account has been disabled."},
	ProviderNetworkFailed:      {pkgerrors.CodeDependency, "Network error. Please check your internet connection."},
}

var signUpMessages = map[string]struct {
	code    pkgerrors.Code
	message string
}{
	ProviderEmailExists:   {pkgerrors.CodeConflict, "An account with this email already exists."},
	ProviderInvalidEmail:  {pkgerrors.CodeValidation, "Invalid email address."},
	ProviderWeakPassword:  {pkgerrors.CodeValidation, "Password is too weak. Please choose a stronger password."},
	ProviderNetworkFailed: {pkgerrors.CodeDependency, "Network error. Please check your internet connection."},
}

// mapProviderError turns provider failures into typed errors with
// user-facing messages; unknown failures get the generic fallback.
func mapProviderError(err error, signUp bool) error {
	table, fallback := signInMessages, "Login failed. Please try again."
	if signUp {
		table, fallback = signUpMessages, "Failed to create account. Please try again."
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		if entry, ok := table[perr.Code]; ok {
			return pkgerrors.Wrap(entry.code, err, entry.message)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fallback)
}
