package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestShouldBlock(t *testing.T) {
	tests := []struct {
		resource string
		url      string
		want     bool
	}{
		{resource: "Image", url: "https://cdn.shop.test/a.jpg", want: true},
		{resource: "Stylesheet", url: "https://shop.test/site.css", want: true},
		{resource: "Font", url: "https://fonts.test/a.woff2", want: true},
		{resource: "Media", url: "https://shop.test/intro.mp4", want: true},
		{resource: "Document", url: "https://shop.test/search?q=tv", want: false},
		{resource: "Script", url: "https://shop.test/app.js", want: false},
		{resource: "XHR", url: "https://shop.test/api/items", want: false},
		{resource: "Script", url: "https://www.googletagmanager.com/gtm.js", want: true},
		{resource: "Fetch", url: "https://stats.g.doubleclick.net/collect", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.resource+" "+tt.url, func(t *testing.T) {
			if got := ShouldBlock(tt.resource, tt.url); got != tt.want {
				t.Fatalf("ShouldBlock(%q, %q)=%v, want %v", tt.resource, tt.url, got, tt.want)
			}
		})
	}
}

func TestManagersRefuseAfterShutdown(t *testing.T) {
	ctx := context.Background()

	shared := NewShared(Options{})
	if err := shared.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown of an unlaunched browser: %v", err)
	}
	if _, err := shared.Acquire(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("shared acquire err=%v, want ErrClosed", err)
	}

	isolated := NewIsolated(Options{})
	if err := isolated.Shutdown(ctx); err != nil {
		t.Fatalf("isolated shutdown: %v", err)
	}
	if _, err := isolated.Acquire(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("isolated acquire err=%v, want ErrClosed", err)
	}
	if isolated.Open() != 0 {
		t.Fatalf("open=%d, want 0", isolated.Open())
	}
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewShared(Options{}).Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("shared err=%v, want context.Canceled", err)
	}
	if _, err := NewIsolated(Options{}).Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("isolated err=%v, want context.Canceled", err)
	}
}

func TestFindChromeBinaryPrefersEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/custom/chrome")
	if got := findChromeBinary(); got != "/opt/custom/chrome" {
		t.Fatalf("binary=%q", got)
	}
}

// unresponsiveChrome returns a fake Chrome binary that announces a DevTools
// endpoint which accepts connections and never answers.
func unresponsiveChrome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake chrome binary is a shell script")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		var held []net.Conn
		defer func() {
			for _, c := range held {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, c)
		}
	}()

	line := fmt.Sprintf("DevTools listening on ws://%s/devtools/browser/stuck", ln.Addr())
	script := fmt.Sprintf("#!/bin/sh\necho %q\necho %q >&2\nexec sleep 30\n", line, line)
	path := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake chrome: %v", err)
	}
	return path
}

func TestSharedAcquireBoundedByContext(t *testing.T) {
	shared := NewShared(Options{ChromePath: unresponsiveChrome(t), LaunchTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type outcome struct {
		err     error
		elapsed time.Duration
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			start := time.Now()
			_, err := shared.Acquire(ctx)
			results <- outcome{err: err, elapsed: time.Since(start)}
		}()
	}

	// Shutdown must not queue behind the launch in flight.
	time.Sleep(200 * time.Millisecond)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelShutdown()
	start := time.Now()
	if err := shared.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if d := time.Since(start); d > 400*time.Millisecond {
		t.Fatalf("shutdown took %s while a launch was pending", d)
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.err == nil {
				t.Fatalf("acquire succeeded against an unresponsive browser")
			}
			if r.elapsed > 4*time.Second {
				t.Fatalf("acquire returned after %s, ctx deadline was 1s", r.elapsed)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("acquire still blocked 5s after a 1s ctx deadline")
		}
	}
}

func TestSharedLaunchTimeout(t *testing.T) {
	shared := NewShared(Options{ChromePath: unresponsiveChrome(t), LaunchTimeout: 500 * time.Millisecond})
	defer shared.Shutdown(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := shared.Acquire(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err=%v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("acquire ignored the launch timeout")
	}
}

func TestIsolatedAcquireReleasesBrowserOnDeadline(t *testing.T) {
	isolated := NewIsolated(Options{ChromePath: unresponsiveChrome(t), LaunchTimeout: time.Minute})
	defer isolated.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := isolated.Acquire(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err=%v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("isolated acquire still blocked 5s after a 1s ctx deadline")
	}
	if isolated.Open() != 0 {
		t.Fatalf("open=%d, want 0", isolated.Open())
	}
}
