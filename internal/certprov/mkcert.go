package certprov

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// MkcertIssuer produces development certificates by invoking a local CA
// tool (mkcert by default)
type MkcertIssuer struct {
	Command string
	Timeout time.Duration
}

// NewMkcertIssuer creates a development issuer
func NewMkcertIssuer(command string, timeout time.Duration) *MkcertIssuer {
	if command == "" {
		command = "mkcert"
	}
	return &MkcertIssuer{Command: command, Timeout: timeout}
}

// Issue runs the local CA tool and reads back the generated pair
func (m *MkcertIssuer) Issue(ctx context.Context, req IssueRequest) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	keyFile := filepath.Join(req.WorkDir, req.Name+"-key.pem")
	certFile := filepath.Join(req.WorkDir, req.Name+"-cert.pem")

	cmd := exec.CommandContext(ctx, m.Command,
		"-key-file", keyFile,
		"-cert-file", certFile,
		req.FullDomain,
	)
	cmd.Dir = req.WorkDir

	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, fmt.Errorf("%w: %s timed out after %s: %s", ErrIssuance, m.Command, m.Timeout, output)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s exited: %v: %s", ErrIssuance, m.Command, err, output)
	}

	return readPair(keyFile, certFile, output)
}

// readPair loads the expected output files, mapping absence to ErrIssuance
// with the tool diagnostics attached
func readPair(keyFile, certFile string, output []byte) ([]byte, []byte, error) {
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing key output %s: %s", ErrIssuance, keyFile, output)
	}
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing certificate output %s: %s", ErrIssuance, certFile, output)
	}
	return keyPEM, certPEM, nil
}
