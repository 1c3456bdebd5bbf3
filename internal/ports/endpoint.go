package ports

import (
	"net"
	"strconv"
	"strings"
)

// LoopbackHost is the only address the backend is ever bound to.
const LoopbackHost = "127.0.0.1"

// Endpoint is the host/port pair the backend listens on.
// It is a value type; once allocated it is never modified.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr returns the endpoint in host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the http base URL for the endpoint, without a trailing slash.
func (e Endpoint) URL() string {
	return "http://" + e.Addr()
}

// URLFor joins path onto the endpoint base URL.
func (e Endpoint) URLFor(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.URL() + path
}

// IsZero reports whether the endpoint has not been allocated.
func (e Endpoint) IsZero() bool {
	return e.Port == 0
}

func (e Endpoint) String() string {
	return e.Addr()
}
