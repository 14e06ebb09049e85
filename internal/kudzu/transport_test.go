package kudzu

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSSHTransport_Get(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName = name
		gotArgs = args
		return []byte(`{"status":"ok"}`), nil, nil
	}

	tr, err := NewSSHTransport("titan", "http://localhost:4000/", 10*time.Second, 15*time.Second)
	if err != nil {
		t.Fatalf("NewSSHTransport failed: %v", err)
	}
	tr.WithRunner(runner)

	out, err := tr.Get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(out) != `{"status":"ok"}` {
		t.Errorf("unexpected output %q", out)
	}
	if gotName != "ssh" {
		t.Errorf("expected ssh, got %q", gotName)
	}

	want := []string{
		"-o", "ConnectTimeout=10",
		"-o", "ServerAliveInterval=30",
		"-o", "BatchMode=yes",
		"titan",
		"curl -s --max-time 15 'http://localhost:4000/health'",
	}
	if strings.Join(gotArgs, "|") != strings.Join(want, "|") {
		t.Errorf("expected args %q, got %q", want, gotArgs)
	}
}

func TestSSHTransport_Post(t *testing.T) {
	var remote string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		remote = args[len(args)-1]
		return []byte(`{}`), nil, nil
	}
	tr, _ := NewSSHTransport("titan", "http://localhost:4000", time.Second, time.Second)
	tr.WithRunner(runner)

	body := []byte(`{"purpose":"it's"}`)
	if _, err := tr.Post(context.Background(), "/api/v1/holograms/m/traces", body); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	if !strings.HasPrefix(remote, "echo '"+encoded+"' | base64 -d | curl -s --max-time 1 -X POST ") {
		t.Errorf("unexpected remote command %q", remote)
	}
	if !strings.Contains(remote, "'http://localhost:4000/api/v1/holograms/m/traces'") {
		t.Errorf("expected quoted url in %q", remote)
	}
}

func TestSSHTransport_Failure(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("ssh: connect to host titan port 22: Connection refused\n"), errors.New("exit status 255")
	}
	tr, _ := NewSSHTransport("titan", "http://localhost:4000", time.Second, time.Second)
	tr.WithRunner(runner)

	_, err := tr.Get(context.Background(), "/health")
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Connection refused") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestNewSSHTransport_RequiresHost(t *testing.T) {
	if _, err := NewSSHTransport("", "http://x", time.Second, time.Second); err == nil {
		t.Error("expected error for empty host")
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("a'b"); got != `'a'\''b'` {
		t.Errorf("unexpected quoting %s", got)
	}
}

func TestHTTPTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			w.Write([]byte(`{"status": "ok"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/holograms/m/traces":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			body, _ := io.ReadAll(r.Body)
			w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, 5*time.Second)
	c := NewClient(tr)

	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	out, err := tr.Post(context.Background(), "/api/v1/holograms/m/traces", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if string(out) != `{"a":1}` {
		t.Errorf("unexpected echo %q", out)
	}

	if _, err := tr.Get(context.Background(), "/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTPTransport(url, time.Second)
	if _, err := tr.Get(context.Background(), "/health"); !IsUnreachable(err) {
		t.Errorf("expected unreachable error, got %v", err)
	}
}
