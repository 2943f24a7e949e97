package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabular/internal/logging"
)

// sessionID returns the table identity of the current request.
func sessionID(ctx context.Context) string {
	return logging.SessionID(ctx)
}

// hostOnly strips the port from a host:port address.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// isMultipart reports whether the request body is a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
