package certprov

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subdns/internal/certstore"
)

// gateIssuer blocks every Issue call on release and counts invocations
type gateIssuer struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (g *gateIssuer) Issue(_ context.Context, req IssueRequest) ([]byte, []byte, error) {
	if atomic.AddInt32(&g.calls, 1) == 1 && g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}
	return []byte("KEY-" + req.Name), []byte("CERT-" + req.FullDomain), nil
}

type failIssuer struct{}

func (failIssuer) Issue(context.Context, IssueRequest) ([]byte, []byte, error) {
	return nil, nil, errors.New("boom")
}

func newTestProvisioner(t *testing.T, dev Issuer) *Provisioner {
	t.Helper()
	store := certstore.New(t.TempDir())
	if err := store.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout() error = %v", err)
	}
	return New(store, Options{
		DevelopmentDomain: "localhost",
		ProductionDomain:  "example.com",
		Development:       dev,
	})
}

func TestIssuePublishesPair(t *testing.T) {
	p := newTestProvisioner(t, &gateIssuer{})

	info, err := p.Issue(context.Background(), "demo1", certstore.EnvDevelopment)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if info.Name != "demo1" || info.FullDomain != "demo1.localhost" {
		t.Errorf("Issue() info = %+v", info)
	}
	if !p.Exists("demo1") {
		t.Error("Exists() = false after issue")
	}
}

func TestIssueCollapsesConcurrent(t *testing.T) {
	issuer := &gateIssuer{started: make(chan struct{}), release: make(chan struct{})}
	p := newTestProvisioner(t, issuer)

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Issue(context.Background(), "demo1", certstore.EnvDevelopment)
		}(i)
	}

	// Hold the gate open only after the first run is in flight, so the
	// later callers join it instead of starting their own.
	<-issuer.started
	time.Sleep(50 * time.Millisecond)
	close(issuer.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: Issue() error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&issuer.calls); got != 1 {
		t.Errorf("issuer invoked %d times, want 1", got)
	}
}

func TestIssueFailureNotPublished(t *testing.T) {
	p := newTestProvisioner(t, failIssuer{})

	if _, err := p.Issue(context.Background(), "demo1", certstore.EnvDevelopment); err == nil {
		t.Fatal("Issue() error = nil, want failure")
	}
	if p.Exists("demo1") {
		t.Error("pair published despite issuance failure")
	}
}

func TestIssueNoProductionIssuer(t *testing.T) {
	p := newTestProvisioner(t, &gateIssuer{})

	_, err := p.Issue(context.Background(), "demo1", certstore.EnvProduction)
	if !errors.Is(err, ErrIssuance) {
		t.Errorf("Issue() error = %v, want ErrIssuance", err)
	}
}

func TestRegenerate(t *testing.T) {
	issuer := &gateIssuer{}
	p := newTestProvisioner(t, issuer)

	if _, err := p.Issue(context.Background(), "demo1", certstore.EnvDevelopment); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := p.Regenerate(context.Background(), "demo1", certstore.EnvDevelopment); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if got := atomic.LoadInt32(&issuer.calls); got != 2 {
		t.Errorf("issuer invoked %d times, want 2", got)
	}
	if !p.Exists("demo1") {
		t.Error("pair missing after regenerate")
	}
}

func TestRegenerateJoinsInFlightIssue(t *testing.T) {
	issuer := &gateIssuer{started: make(chan struct{}), release: make(chan struct{})}
	p := newTestProvisioner(t, issuer)

	var wg sync.WaitGroup
	var issueErr, regenErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, issueErr = p.Issue(context.Background(), "demo1", certstore.EnvDevelopment)
	}()

	// Fire the regenerate only once the issuance is in flight; it must
	// not delete the pair that run is about to publish.
	<-issuer.started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, regenErr = p.Regenerate(context.Background(), "demo1", certstore.EnvDevelopment)
	}()

	time.Sleep(50 * time.Millisecond)
	close(issuer.release)
	wg.Wait()

	if issueErr != nil {
		t.Errorf("Issue() error = %v", issueErr)
	}
	if regenErr != nil {
		t.Errorf("Regenerate() error = %v", regenErr)
	}
	if !p.Exists("demo1") {
		t.Error("pair missing after concurrent issue and regenerate")
	}
}

func TestCheckStatus(t *testing.T) {
	p := newTestProvisioner(t, &gateIssuer{})

	st, err := p.CheckStatus("demo1", certstore.EnvDevelopment)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if st.Exists || st.Info != nil {
		t.Errorf("CheckStatus() before issue = %+v", st)
	}

	if _, err := p.Issue(context.Background(), "demo1", certstore.EnvDevelopment); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	st, err = p.CheckStatus("demo1", certstore.EnvDevelopment)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if !st.Exists || st.Info == nil || st.Info.FullDomain != "demo1.localhost" {
		t.Errorf("CheckStatus() after issue = %+v", st)
	}
}

func TestListDerivesFullDomain(t *testing.T) {
	p := newTestProvisioner(t, &gateIssuer{})

	for _, name := range []string{"alpha", "beta"} {
		if _, err := p.Issue(context.Background(), name, certstore.EnvDevelopment); err != nil {
			t.Fatalf("Issue(%s) error = %v", name, err)
		}
	}

	infos, err := p.List(certstore.EnvDevelopment)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(infos))
	}
	for _, info := range infos {
		if info.FullDomain != info.Name+".localhost" {
			t.Errorf("List() fullDomain = %q for %q", info.FullDomain, info.Name)
		}
	}
}
