package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"subdns/internal/cache"
	"subdns/internal/certprov"
	"subdns/internal/certstore"
	"subdns/internal/model"
	"subdns/internal/registry"

	"github.com/sirupsen/logrus"
)

const resolveTTL = 300 * time.Second

// ResolveCache is the advisory cache surface for resolve answers. A nil
// *cache.Cache satisfies it as a pass-through miss.
type ResolveCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Del(ctx context.Context, key string)
}

// CertProvisioner is the certificate surface the lifecycle manager drives
type CertProvisioner interface {
	Issue(ctx context.Context, name string, env certstore.Environment) (*certprov.CertificateInfo, error)
	Info(name string, env certstore.Environment) (*certprov.CertificateInfo, error)
	Regenerate(ctx context.Context, name string, env certstore.Environment) (*certprov.CertificateInfo, error)
	Remove(name string) (bool, error)
	List(env certstore.Environment) ([]certprov.CertificateInfo, error)
	CheckStatus(name string, env certstore.Environment) (*certprov.Status, error)
}

// RegisterInput carries a registration request
type RegisterInput struct {
	Name        string
	CustomerID  string
	PrototypeID string
	TargetURL   string
	ExpiresAt   *time.Time
	Metadata    map[string]interface{}
}

// RegisterResult is the two-phase outcome of a registration: the registry
// write always succeeds or fails as a whole, while certificate provisioning
// is best-effort and reported alongside.
type RegisterResult struct {
	Record                 *model.Subdomain `json:"subdomain"`
	CertificateProvisioned bool             `json:"sslGenerated"`
	CertificateError       string           `json:"sslError,omitempty"`
}

// UpdateFields is the mutable subset of a subdomain; nil members are left
// unchanged
type UpdateFields struct {
	Status    *string
	TargetURL *string
	ExpiresAt *time.Time
	Metadata  map[string]interface{}
}

// Resolution is the answer handed to the DNS responder and resolve callers
type Resolution struct {
	TargetURL   string `json:"targetUrl"`
	CustomerID  string `json:"customerId"`
	PrototypeID string `json:"prototypeId,omitempty"`
	Status      string `json:"status"`
}

// Service is the single entry point coordinating registry writes with
// certificate provisioning. The DNS responder reads through it as well.
type Service struct {
	store  *registry.Store
	certs  CertProvisioner
	cache  ResolveCache
	suffix string
	env    certstore.Environment
	log    *logrus.Entry
}

// NewService creates a lifecycle service authoritative for the given
// delegated suffix
func NewService(store *registry.Store, certs CertProvisioner, resolveCache ResolveCache, suffix string, env certstore.Environment, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if resolveCache == nil {
		resolveCache = (*cache.Cache)(nil)
	}
	return &Service{
		store:  store,
		certs:  certs,
		cache:  resolveCache,
		suffix: strings.ToLower(strings.Trim(suffix, ".")),
		env:    env,
		log:    logger.WithField("component", "lifecycle"),
	}
}

// Suffix returns the delegated suffix this deployment answers for
func (s *Service) Suffix() string {
	return s.suffix
}

// Environment returns the certificate environment derived from deployment mode
func (s *Service) Environment() certstore.Environment {
	return s.env
}

// Register validates and persists a new subdomain, then best-effort
// provisions its certificate. Provisioning failure never rolls back or
// fails the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !ValidName(in.Name) {
		return nil, ErrInvalidName
	}
	name := strings.ToLower(in.Name)

	if _, err := s.store.Get(name); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, err
	}

	sub := &model.Subdomain{
		Name:        name,
		CustomerID:  in.CustomerID,
		PrototypeID: in.PrototypeID,
		TargetURL:   in.TargetURL,
		Status:      model.SubdomainStatusActive,
		ExpiresAt:   in.ExpiresAt,
		Metadata:    model.MetadataValue(in.Metadata),
	}
	// Customer upsert and subdomain insert commit atomically; only after
	// that does issuance start, so a name never resolves before it is
	// legitimately registered.
	if err := s.store.Create(sub, ""); err != nil {
		if errors.Is(err, registry.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	result := &RegisterResult{Record: sub, CertificateProvisioned: true}
	if _, err := s.certs.Issue(ctx, name, s.env); err != nil {
		s.log.WithError(err).WithField("name", name).
			Warn("certificate provisioning failed, registration kept")
		result.CertificateProvisioned = false
		result.CertificateError = err.Error()
	}
	return result, nil
}

// Get returns the full record for name
func (s *Service) Get(name string) (*model.Subdomain, error) {
	return s.store.Get(strings.ToLower(name))
}

// List returns subdomains matching the filter, newest first. Zero limit
// defaults to 100.
func (s *Service) List(filter registry.ListFilter, limit, offset int) ([]model.Subdomain, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(filter, limit, offset)
}

// Update applies the mutable field subset and invalidates the resolve cache
func (s *Service) Update(ctx context.Context, name string, fields UpdateFields) (*model.Subdomain, error) {
	name = strings.ToLower(name)

	cols := map[string]interface{}{}
	if fields.Status != nil {
		cols["status"] = *fields.Status
	}
	if fields.TargetURL != nil {
		cols["target_url"] = *fields.TargetURL
	}
	if fields.ExpiresAt != nil {
		cols["expires_at"] = *fields.ExpiresAt
	}
	if fields.Metadata != nil {
		cols["metadata"] = model.MetadataValue(fields.Metadata)
	}

	sub, err := s.store.Update(name, cols)
	if err != nil {
		return nil, err
	}
	s.cache.Del(ctx, resolveKey(name))
	return sub, nil
}

// Delete removes the registry row and best-effort retires the certificate.
// Certificate removal failure does not fail the delete.
func (s *Service) Delete(ctx context.Context, name string) (bool, error) {
	name = strings.ToLower(name)

	removed, err := s.store.Delete(name)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.cache.Del(ctx, resolveKey(name))
	if _, err := s.certs.Remove(name); err != nil {
		s.log.WithError(err).WithField("name", name).
			Warn("certificate removal failed, subdomain deleted anyway")
	}
	return true, nil
}

// Resolve answers "where does this fqdn point". Names outside the
// delegated suffix, unknown, inactive or lazily-expired records all yield
// ErrNotFound; the expiry check here is independent of the sweep.
func (s *Service) Resolve(ctx context.Context, fqdn string) (*Resolution, error) {
	name, ok := s.stripSuffix(fqdn)
	if !ok {
		return nil, ErrNotFound
	}

	if data, hit := s.cache.Get(ctx, resolveKey(name)); hit {
		var res Resolution
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
	}

	sub, err := s.store.Get(name)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubdomainStatusActive || sub.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	res := &Resolution{
		TargetURL:   sub.TargetURL,
		CustomerID:  sub.CustomerID,
		PrototypeID: sub.PrototypeID,
		Status:      sub.Status,
	}
	// The cached entry must never outlive the lease: cap its TTL at the
	// time remaining until expires_at.
	ttl := resolveTTL
	if sub.ExpiresAt != nil {
		if remaining := time.Until(*sub.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		if data, err := json.Marshal(res); err == nil {
			s.cache.Set(ctx, resolveKey(name), data, ttl)
		}
	}
	return res, nil
}

// SweepExpired flips lapsed active rows to expired, returning the count.
// Pure registry maintenance, no certificate side effects.
func (s *Service) SweepExpired() (int, error) {
	return s.store.SweepExpired(time.Now())
}

// Certificate pass-throughs, kept here so one component owns both registry
// and certificate concerns for a name.

// CertificateInfo returns metadata for a provisioned pair
func (s *Service) CertificateInfo(name string) (*certprov.CertificateInfo, error) {
	return s.certs.Info(strings.ToLower(name), s.env)
}

// RegenerateCertificate removes and reissues the pair for a name
func (s *Service) RegenerateCertificate(ctx context.Context, name string) (*certprov.CertificateInfo, error) {
	return s.certs.Regenerate(ctx, strings.ToLower(name), s.env)
}

// RemoveCertificate retires the pair for a name; idempotent
func (s *Service) RemoveCertificate(name string) (bool, error) {
	return s.certs.Remove(strings.ToLower(name))
}

// ListCertificates lists every provisioned pair for this environment
func (s *Service) ListCertificates() ([]certprov.CertificateInfo, error) {
	return s.certs.List(s.env)
}

// CertificateStatus reports presence plus metadata for a name
func (s *Service) CertificateStatus(name string) (*certprov.Status, error) {
	return s.certs.CheckStatus(strings.ToLower(name), s.env)
}

func (s *Service) stripSuffix(fqdn string) (string, bool) {
	fqdn = strings.ToLower(strings.TrimSuffix(fqdn, "."))
	bare, found := strings.CutSuffix(fqdn, "."+s.suffix)
	if !found || bare == "" || strings.Contains(bare, ".") {
		return "", false
	}
	return bare, true
}

func resolveKey(name string) string {
	return "resolve:" + name
}
