package kudzu

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// Transport moves raw request and response bodies to and from the Kudzu API.
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
}

// CommandRunner executes a local process and returns its stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// SSHTransport reaches an API that only listens on a remote host's loopback
// by running curl there over ssh.
type SSHTransport struct {
	Host           string
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	run CommandRunner
}

func NewSSHTransport(host, baseURL string, connectTimeout, requestTimeout time.Duration) (*SSHTransport, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required for ssh transport")
	}
	return &SSHTransport{
		Host:           host,
		BaseURL:        strings.TrimRight(baseURL, "/"),
		ConnectTimeout: connectTimeout,
		RequestTimeout: requestTimeout,
		run:            execRunner,
	}, nil
}

// WithRunner swaps the process runner, mostly for tests.
func (t *SSHTransport) WithRunner(run CommandRunner) *SSHTransport {
	t.run = run
	return t
}

func (t *SSHTransport) Get(ctx context.Context, path string) ([]byte, error) {
	remote := fmt.Sprintf("curl -s --max-time %d %s", seconds(t.RequestTimeout), shellQuote(t.BaseURL+path))
	return t.ssh(ctx, remote)
}

func (t *SSHTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	// base64 keeps arbitrary JSON safe inside the remote shell command
	encoded := base64.StdEncoding.EncodeToString(body)
	remote := fmt.Sprintf(
		"echo %s | base64 -d | curl -s --max-time %d -X POST %s -H 'Content-Type: application/json' -d @-",
		shellQuote(encoded), seconds(t.RequestTimeout), shellQuote(t.BaseURL+path),
	)
	return t.ssh(ctx, remote)
}

// Args returns the ssh argument vector for a remote command.
func (t *SSHTransport) Args(remote string) []string {
	return []string{
		"-o", fmt.Sprintf("ConnectTimeout=%d", seconds(t.ConnectTimeout)),
		"-o", "ServerAliveInterval=30",
		"-o", "BatchMode=yes",
		t.Host,
		remote,
	}
}

func (t *SSHTransport) ssh(ctx context.Context, remote string) ([]byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, t.ConnectTimeout+t.RequestTimeout+5*time.Second)
	defer cancel()

	stdout, stderr, err := t.run(execCtx, "ssh", t.Args(remote)...)
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: ssh to %s timed out", ErrUnreachable, t.Host)
		}
		return nil, fmt.Errorf("%w: ssh failed (%v): %s", ErrUnreachable, err, strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

// HTTPTransport talks to the API directly.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) ([]byte, error) {
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return data, nil
}

func seconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// IsUnreachable reports whether err came from a transport-level failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
