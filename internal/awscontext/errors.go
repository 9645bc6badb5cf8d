package awscontext

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when neither a key pair nor a
	// credentials directory was given.
	ErrNoCredentials = errors.New("no credentials specified")

	// ErrCredentialsDirNotFound is returned when the credentials directory
	// does not exist or is not a directory.
	ErrCredentialsDirNotFound = errors.New("AWS credentials directory not found")

	// ErrCredentialsFileNotFound is returned when the credentials directory
	// has no credentials file.
	ErrCredentialsFileNotFound = errors.New("AWS credentials file not found")

	// ErrScopeActive is returned by Establish while another scope is open.
	ErrScopeActive = errors.New("an AWS credential scope is already active")

	// ErrNoActiveScope is returned by Scope methods after Close.
	ErrNoActiveScope = errors.New("no active AWS credential scope")
)

// CredentialError reports a credential source that cannot be used. No
// remote call has been made when it is returned.
type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Path)
	}
	return e.Err.Error()
}

func (e *CredentialError) Unwrap() error { return e.Err }

// IdentityResolutionError reports that STS could not confirm who the
// established credentials belong to.
type IdentityResolutionError struct {
	Err error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("resolve AWS caller identity: %v", e.Err)
}

func (e *IdentityResolutionError) Unwrap() error { return e.Err }
