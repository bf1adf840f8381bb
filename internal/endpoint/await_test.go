package endpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAwaitSucceedsOnceDescriptorAppears(t *testing.T) {
	calls := 0
	read := func(ctx context.Context) (string, error) {
		calls++
		switch calls {
		case 1:
			return "", os.ErrNotExist
		case 2:
			return "lvl=info msg=starting", nil
		default:
			return "url=tcp://203.0.113.5:41234", nil
		}
	}

	ep, err := Await(context.Background(), read, 5*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("Await error: %v", err)
	}
	if ep != (Endpoint{Host: "203.0.113.5", Port: 41234}) {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
	if calls != 3 {
		t.Fatalf("expected 3 reads, got %d", calls)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	read := func(ctx context.Context) (string, error) {
		return "url=tcp://host:notaport", nil
	}

	_, err := Await(context.Background(), read, 5*time.Millisecond, 40*time.Millisecond)
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if terr.Attempts < 2 {
		t.Fatalf("expected repeated attempts, got %d", terr.Attempts)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected last ParseError to be reachable, got %v", terr.Last)
	}
}

func TestAwaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	read := func(context.Context) (string, error) {
		cancel()
		return "", errors.New("not yet")
	}

	_, err := Await(ctx, read, time.Millisecond, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAwaitReadsGrowingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngrok.log")
	read := func(context.Context) (string, error) {
		b, err := os.ReadFile(path)
		return string(b), err
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("t=now lvl=info msg=\"started tunnel\" url=tcp://0.tcp.ngrok.io:12345\n"), 0o644)
	}()

	ep, err := Await(context.Background(), read, 5*time.Millisecond, 2*time.Second)
	if err != nil {
		t.Fatalf("Await error: %v", err)
	}
	if ep.Host != "0.tcp.ngrok.io" || ep.Port != 12345 {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
}
