package tunnel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLogFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ngrok.log")

	src := LogFileSource{Path: path}
	if _, err := src.Read(context.Background()); !errors.Is(err, ErrNoDescriptor) {
		t.Fatalf("missing file: err = %v, want ErrNoDescriptor", err)
	}

	content := "lvl=info msg=\"no descriptor\"\n" +
		"lvl=info msg=\"started tunnel\" url=tcp://2.tcp.ngrok.io:10001\n" +
		"lvl=info msg=\"reconnected\" url=tcp://4.tcp.ngrok.io:10002\n" +
		"lvl=info msg=\"heartbeat\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := "lvl=info msg=\"reconnected\" url=tcp://4.tcp.ngrok.io:10002"; got != want {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestAPISource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tunnels" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tunnels":[{"name":"web","proto":"https","public_url":"https://abc.ngrok.io"},{"name":"command_line","proto":"tcp","public_url":"tcp://6.tcp.ngrok.io:15555"}],"uri":"/api/tunnels"}`))
	}))
	defer srv.Close()

	got, err := NewAPISource(srv.URL + "/").Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "tcp://6.tcp.ngrok.io:15555" {
		t.Fatalf("Read = %q", got)
	}
}

func TestAPISourceNoTunnel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tunnels":[]}`))
	}))
	defer srv.Close()

	if _, err := NewAPISource(srv.URL).Read(context.Background()); !errors.Is(err, ErrNoDescriptor) {
		t.Fatalf("err = %v, want ErrNoDescriptor", err)
	}
}

func TestAPISourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewAPISource(url).Read(context.Background()); !errors.Is(err, ErrNoDescriptor) {
		t.Fatalf("err = %v, want ErrNoDescriptor", err)
	}
}
