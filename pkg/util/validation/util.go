// Package validation validates addresses and paths of the config.
package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ValidHostPort returns an error if hostAndPort is not a "host:port" bind
// address with a numeric port. The host may be empty to bind all interfaces.
func ValidHostPort(hostAndPort string) error {
	_, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		return err
	}
	if _, err = strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// ValidPath returns an error if p is not an absolute http path.
func ValidPath(p string) error {
	if len(p) == 0 || p[0] != '/' {
		return errors.New("must start with /")
	}
	u, err := url.Parse(p)
	if err != nil {
		return err
	}
	if u.Path != p {
		return errors.New("must not have a query or fragment")
	}
	return nil
}
