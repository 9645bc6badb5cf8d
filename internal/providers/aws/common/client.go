package common

// Identity is the caller identity STS reports for a loaded configuration.
type Identity struct {
	// AccountID is the numeric AWS account the credentials belong to.
	AccountID string

	// ARN is the caller ARN, e.g. arn:aws:iam::123456789012:user/deploy.
	ARN string

	// UserID is the unique id of the calling principal.
	UserID string
}

// Session hands out service clients bound to an established credential
// scope. Every reconciler takes a Session instead of building clients from
// ambient configuration, so each remote call is guaranteed to run under the
// credentials the caller chose.
//
// Clients must return an error once the scope has ended.
type Session interface {
	Clients() (*ClientSet, error)
}

// StaticSession is a Session over a fixed ClientSet. Use it in tests and
// wherever a ClientSet is already in hand.
type StaticSession struct {
	Set *ClientSet
}

// Clients returns the wrapped ClientSet.
func (s StaticSession) Clients() (*ClientSet, error) {
	return s.Set, nil
}
