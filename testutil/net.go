/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"net"
	"time"
)

const dialRetryInterval = 10 * time.Millisecond

// GetLocalAddrWithFreeTCPPort returns a loopback address with a port that nobody listens on.
func GetLocalAddrWithFreeTCPPort() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().String()
}

// WaitListeningServer dials addr until it accepts a TCP connection or timeout expires.
func WaitListeningServer(addr string, timeout time.Duration) error {
	ticker := time.NewTicker(dialRetryInterval)
	defer ticker.Stop()
	expired := time.After(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-expired:
			return fmt.Errorf("server on %s is not listening after %s: %w", addr, timeout, err)
		case <-ticker.C:
		}
	}
}
