package certprov

import (
	"context"
	"errors"
)

// ErrIssuance indicates the external certificate tooling failed, timed out,
// or produced incomplete output. Never retried automatically: blind retries
// against rate-limited ACME infrastructure can cause lockouts, so retry
// policy belongs to the caller.
var ErrIssuance = errors.New("certificate issuance failed")

// IssueRequest describes one issuance run
type IssueRequest struct {
	Name       string // bare subdomain label
	FullDomain string // name joined with the environment's delegated suffix
	WorkDir    string // per-(name, environment) scratch directory
}

// Issuer produces a key/certificate PEM pair for a single domain
type Issuer interface {
	Issue(ctx context.Context, req IssueRequest) (keyPEM, certPEM []byte, err error)
}
