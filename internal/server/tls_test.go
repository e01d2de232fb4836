package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/edgeview/internal/testutil/testlog"
	"github.com/danmuck/edgeview/internal/testutil/tlstest"
)

func TestServeListenerTLS(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "edgeview-test-ca")
	certFile, keyFile := ca.IssueLocalhost(t, dir)

	srv, _ := newTestServer(t, Options{TLSCertFile: certFile, TLSKeyFile: keyFile})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: ca.ClientConfig()},
	}
	resp, err := client.Get("https://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("https health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.TLS == nil {
		t.Fatalf("unexpected response: %d tls=%v", resp.StatusCode, resp.TLS != nil)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
