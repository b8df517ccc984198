package certprov

import (
	"context"
	"fmt"
	"time"

	"subdns/internal/certstore"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CertificateInfo describes a provisioned certificate pair
type CertificateInfo struct {
	Name        string                `json:"name"`
	FullDomain  string                `json:"fullDomain"`
	Environment certstore.Environment `json:"environment"`
	KeyPath     string                `json:"keyPath"`
	CertPath    string                `json:"certPath"`
	Size        int64                 `json:"size"`
	ModifiedAt  time.Time             `json:"modifiedAt"`
}

// Status reports whether a shared-directory pair exists for a name
type Status struct {
	Name        string                `json:"name"`
	Environment certstore.Environment `json:"environment"`
	Exists      bool                  `json:"exists"`
	Info        *CertificateInfo      `json:"info,omitempty"`
}

// Options wires a Provisioner
type Options struct {
	DevelopmentDomain string
	ProductionDomain  string
	Development       Issuer
	Production        Issuer
	Logger            *logrus.Entry
}

// Provisioner produces and retires certificate pairs without blocking
// registry operations. Concurrent Issue calls for the same
// (name, environment) collapse into one run and share its outcome.
type Provisioner struct {
	store *certstore.Store
	opts  Options
	log   *logrus.Entry
	group singleflight.Group
}

// New creates a provisioner over the given store
func New(store *certstore.Store, opts Options) *Provisioner {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Provisioner{
		store: store,
		opts:  opts,
		log:   log.WithField("component", "cert-provisioner"),
	}
}

// FullDomain joins a bare name with the environment's delegated suffix
func (p *Provisioner) FullDomain(name string, env certstore.Environment) string {
	if env == certstore.EnvProduction {
		return name + "." + p.opts.ProductionDomain
	}
	return name + "." + p.opts.DevelopmentDomain
}

// Issue provisions a pair for (name, environment) and publishes it into the
// shared directory. Issuance failures carry the tool diagnostics and are
// never retried here.
func (p *Provisioner) Issue(ctx context.Context, name string, env certstore.Environment) (*CertificateInfo, error) {
	key := name + "|" + string(env)
	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		return p.issue(ctx, name, env)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.log.WithFields(logrus.Fields{"name": name, "env": env}).
			Debug("issuance shared with in-flight request")
	}
	return v.(*CertificateInfo), nil
}

func (p *Provisioner) issue(ctx context.Context, name string, env certstore.Environment) (*CertificateInfo, error) {
	jobID := uuid.NewString()
	fullDomain := p.FullDomain(name, env)
	log := p.log.WithFields(logrus.Fields{"job": jobID, "name": name, "env": env, "domain": fullDomain})

	issuer := p.opts.Development
	if env == certstore.EnvProduction {
		issuer = p.opts.Production
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: no issuer configured for %s", ErrIssuance, env)
	}

	workDir, err := p.store.WorkDir(name, env)
	if err != nil {
		return nil, err
	}

	log.Info("issuing certificate")
	keyPEM, certPEM, err := issuer.Issue(ctx, IssueRequest{
		Name:       name,
		FullDomain: fullDomain,
		WorkDir:    workDir,
	})
	if err != nil {
		log.WithError(err).Warn("issuance failed")
		return nil, err
	}

	if err := p.store.Publish(name, keyPEM, certPEM); err != nil {
		log.WithError(err).Error("failed to publish certificate pair")
		return nil, err
	}

	info, err := p.Info(name, env)
	if err != nil {
		return nil, err
	}
	log.Info("certificate published")
	return info, nil
}

// Exists reports whether both shared-directory files are present
func (p *Provisioner) Exists(name string) bool {
	return p.store.Exists(name)
}

// Info returns file metadata plus the derived full domain
func (p *Provisioner) Info(name string, env certstore.Environment) (*CertificateInfo, error) {
	fi, err := p.store.Info(name)
	if err != nil {
		return nil, err
	}
	return &CertificateInfo{
		Name:        fi.Name,
		FullDomain:  p.FullDomain(name, env),
		Environment: env,
		KeyPath:     fi.KeyPath,
		CertPath:    fi.CertPath,
		Size:        fi.Size,
		ModifiedAt:  fi.ModifiedAt,
	}, nil
}

// Regenerate removes the existing pair and reissues from scratch. It runs
// under the same flight key as Issue, so a regenerate arriving while an
// issuance is in flight joins that run instead of deleting the pair it is
// about to publish.
func (p *Provisioner) Regenerate(ctx context.Context, name string, env certstore.Environment) (*CertificateInfo, error) {
	key := name + "|" + string(env)
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if _, err := p.store.Remove(name); err != nil {
			return nil, err
		}
		return p.issue(ctx, name, env)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CertificateInfo), nil
}

// Remove retires the pair for a name. Absence is success.
func (p *Provisioner) Remove(name string) (bool, error) {
	return p.store.Remove(name)
}

// List resolves every shared-directory pair to its info
func (p *Provisioner) List(env certstore.Environment) ([]CertificateInfo, error) {
	fis, err := p.store.List()
	if err != nil {
		return nil, err
	}
	infos := make([]CertificateInfo, 0, len(fis))
	for _, fi := range fis {
		infos = append(infos, CertificateInfo{
			Name:        fi.Name,
			FullDomain:  p.FullDomain(fi.Name, env),
			Environment: env,
			KeyPath:     fi.KeyPath,
			CertPath:    fi.CertPath,
			Size:        fi.Size,
			ModifiedAt:  fi.ModifiedAt,
		})
	}
	return infos, nil
}

// CheckStatus reports presence plus metadata for a name
func (p *Provisioner) CheckStatus(name string, env certstore.Environment) (*Status, error) {
	st := &Status{Name: name, Environment: env, Exists: p.store.Exists(name)}
	if !st.Exists {
		return st, nil
	}
	info, err := p.Info(name, env)
	if err != nil {
		return nil, err
	}
	st.Info = info
	return st, nil
}
