/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package netutil contains network helpers shared by the broker components.
package netutil

import (
	"context"
	"net"
	"time"

	"go.uber.org/atomic"
)

// DefaultDNSDialTimeout is a timeout for connecting to a single DNS server.
const DefaultDNSDialTimeout = 5 * time.Second

// NewRoundRobinResolver creates a resolver that sends DNS queries to the given servers ("host:port")
// in turn instead of the ones from the system configuration.
// The journal uses it to resolve the database host via service discovery DNS:
//
//	resolver := netutil.NewRoundRobinResolver([]string{"127.0.0.1:8600"}, netutil.DefaultDNSDialTimeout)
//	poolCfg.ConnConfig.LookupFunc = resolver.LookupHost
func NewRoundRobinResolver(servers []string, dialTimeout time.Duration) *net.Resolver {
	var next atomic.Uint32
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			addr := servers[int(next.Add(1)-1)%len(servers)]
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, network, addr)
		},
	}
}
