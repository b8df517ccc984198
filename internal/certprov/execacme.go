package certprov

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ExecACMEIssuer runs an isolated external ACME tool (the lego CLI by
// default) for the production DNS-01 flow. Provider credentials come from
// an env-style file and are injected only into the child process.
type ExecACMEIssuer struct {
	Command         string
	Email           string
	CADirURL        string
	DNSProvider     string
	CredentialsFile string
	Timeout         time.Duration
}

// Issue invokes the external tool and collects its output files
func (e *ExecACMEIssuer) Issue(ctx context.Context, req IssueRequest) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Command,
		"--accept-tos",
		"--email", e.Email,
		"--server", e.CADirURL,
		"--dns", e.DNSProvider,
		"--domains", req.FullDomain,
		"--path", req.WorkDir,
		"run",
	)
	cmd.Dir = req.WorkDir

	env := os.Environ()
	if e.CredentialsFile != "" {
		creds, err := godotenv.Read(e.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read credentials %s: %v", ErrIssuance, e.CredentialsFile, err)
		}
		for k, v := range creds {
			env = append(env, k+"="+v)
		}
	}
	cmd.Env = env

	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, fmt.Errorf("%w: %s timed out after %s: %s", ErrIssuance, e.Command, e.Timeout, output)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s exited: %v: %s", ErrIssuance, e.Command, err, output)
	}

	// lego writes <path>/certificates/<domain>.key and .crt
	keyFile := filepath.Join(req.WorkDir, "certificates", req.FullDomain+".key")
	certFile := filepath.Join(req.WorkDir, "certificates", req.FullDomain+".crt")
	return readPair(keyFile, certFile, output)
}
