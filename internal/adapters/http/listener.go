package http

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// Listen binds host:port, moving on to the following ports when one is
// taken, up to attempts ports in total.
func Listen(host string, port, attempts int, log *slog.Logger) (net.Listener, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				log.Warn("configured port busy, using another", "wanted", port, "addr", ln.Addr().String())
			}
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in %d-%d: %w", port, port+attempts-1, lastErr)
}
