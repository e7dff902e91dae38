package http_test

import (
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"

	handler "github.com/samirrijal/osmmap/internal/adapters/http"
)

func TestListen_FallsBackToNextPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ln, err := handler.Listen("127.0.0.1", port, 5, slog.Default())
	if err != nil {
		t.Fatalf("expected a fallback port: %v", err)
	}
	defer ln.Close()

	got := ln.Addr().(*net.TCPAddr).Port
	if got <= port || got >= port+5 {
		t.Errorf("expected a port in (%d, %d), got %d", port, port+5, got)
	}
}

func TestListen_GivesUp(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	_, err = handler.Listen("127.0.0.1", port, 1, slog.Default())
	if err == nil {
		t.Fatal("expected an error with a single busy port")
	}
	if want := strconv.Itoa(port); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name port %s", err, want)
	}
}
