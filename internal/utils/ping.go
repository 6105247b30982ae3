package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// AuthorizerPingTimeout bounds a reachability probe of the Authorizer
const AuthorizerPingTimeout = 1500 * time.Millisecond

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"mysql": "3306",
}

// DialAddress resolves the host:port a TCP probe of serviceURL should dial
func DialAddress(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid URL %q: no host", serviceURL)
	}
	port := u.Port()
	if port == "" {
		if port = defaultPorts[u.Scheme]; port == "" {
			port = "80"
		}
	}
	return net.JoinHostPort(host, port), nil
}

// PingService reports whether a TCP connection to serviceURL opens within timeout
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	address, err := DialAddress(serviceURL)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn.Close()
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(ctx context.Context, authzURL string) error {
	return PingService(ctx, authzURL, AuthorizerPingTimeout)
}
