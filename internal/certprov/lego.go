package certprov

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/lego"
	legodns "github.com/go-acme/lego/v4/providers/dns"
	"github.com/go-acme/lego/v4/registration"
	"github.com/joho/godotenv"
)

// LegoIssuer runs the production ACME DNS-01 flow in-process via lego.
// The account key is persisted next to the certificate tree so repeated
// runs reuse one ACME account.
type LegoIssuer struct {
	Email           string
	CADirURL        string
	DNSProvider     string
	CredentialsFile string
	AccountDir      string
}

// acmeUser implements registration.User for lego
type acmeUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *acmeUser) GetEmail() string                        { return u.email }
func (u *acmeUser) GetRegistration() *registration.Resource { return u.registration }
func (u *acmeUser) GetPrivateKey() crypto.PrivateKey        { return u.key }

// Issue obtains a certificate for the requested domain via DNS-01
func (l *LegoIssuer) Issue(ctx context.Context, req IssueRequest) ([]byte, []byte, error) {
	key, err := l.loadOrCreateAccountKey()
	if err != nil {
		return nil, nil, err
	}

	user := &acmeUser{email: l.Email, key: key}
	cfg := lego.NewConfig(user)
	cfg.CADirURL = l.CADirURL

	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create acme client: %v", ErrIssuance, err)
	}

	// Providers read their credentials from the environment; surface the
	// mounted credentials file before constructing one.
	if l.CredentialsFile != "" {
		if err := godotenv.Load(l.CredentialsFile); err != nil {
			return nil, nil, fmt.Errorf("%w: load credentials %s: %v", ErrIssuance, l.CredentialsFile, err)
		}
	}
	provider, err := legodns.NewDNSChallengeProviderByName(l.DNSProvider)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dns provider %s: %v", ErrIssuance, l.DNSProvider, err)
	}
	if err := client.Challenge.SetDNS01Provider(provider); err != nil {
		return nil, nil, fmt.Errorf("%w: set dns provider: %v", ErrIssuance, err)
	}

	// newAccount is idempotent for the same key, so registering on every
	// run either creates or returns the existing account.
	reg, err := client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: acme registration: %v", ErrIssuance, err)
	}
	user.registration = reg

	res, err := client.Certificate.Obtain(certificate.ObtainRequest{
		Domains: []string{req.FullDomain},
		Bundle:  true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: obtain %s: %v", ErrIssuance, req.FullDomain, err)
	}
	if len(res.PrivateKey) == 0 || len(res.Certificate) == 0 {
		return nil, nil, fmt.Errorf("%w: obtain %s: incomplete acme response", ErrIssuance, req.FullDomain)
	}

	return res.PrivateKey, res.Certificate, nil
}

func (l *LegoIssuer) loadOrCreateAccountKey() (crypto.PrivateKey, error) {
	keyPath := filepath.Join(l.AccountDir, "account.key")

	data, err := os.ReadFile(keyPath)
	if err == nil {
		return parseAccountKey(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: read account key: %v", ErrIssuance, err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate account key: %v", ErrIssuance, err)
	}
	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: encode account key: %v", ErrIssuance, err)
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}

	if err := os.MkdirAll(l.AccountDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIssuance, l.AccountDir, err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("%w: write account key: %v", ErrIssuance, err)
	}
	return key, nil
}

func parseAccountKey(data []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode account key PEM")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported account key type")
}
