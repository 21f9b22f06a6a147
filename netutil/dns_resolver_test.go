/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package netutil

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// dnsRecorder is a UDP server that records who was asked and answers nothing.
type dnsRecorder struct {
	conn net.PacketConn
	mu   sync.Mutex
	hits int
}

func startDNSRecorder(t *testing.T) *dnsRecorder {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &dnsRecorder{conn: conn}
	go func() {
		buf := make([]byte, 512)
		for {
			if _, _, readErr := conn.ReadFrom(buf); readErr != nil {
				return
			}
			r.mu.Lock()
			r.hits++
			r.mu.Unlock()
		}
	}()
	t.Cleanup(func() { _ = conn.Close() })
	return r
}

func (r *dnsRecorder) getHits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func TestNewRoundRobinResolver(t *testing.T) {
	first, second := startDNSRecorder(t), startDNSRecorder(t)
	resolver := NewRoundRobinResolver(
		[]string{first.conn.LocalAddr().String(), second.conn.LocalAddr().String()}, time.Second)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
		_, err := resolver.LookupHost(ctx, "db.service.consul")
		cancel()
		require.Error(t, err)
	}

	require.Eventually(t, func() bool { return first.getHits() > 0 && second.getHits() > 0 },
		time.Second*3, time.Millisecond*10)
}
