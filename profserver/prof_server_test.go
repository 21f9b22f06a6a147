/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/log/logtest"
)

func TestProfServer(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	srv := New(&Config{Enabled: true, Address: "127.0.0.1:0"}, logRecorder)

	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second*3, time.Millisecond*10)

	resp, err := http.Get("http://" + srv.Addr().String() + "/debug/pprof/cmdline")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(true))
	require.Len(t, fatalErr, 0)
	_, found := logRecorder.FindEntry("profiling HTTP server closed")
	require.True(t, found)
}

func TestProfServer_StartError(t *testing.T) {
	srv := New(&Config{Enabled: true, Address: "127.0.0.1:-1"}, logtest.NewRecorder())
	fatalErr := make(chan error, 1)
	srv.Start(fatalErr)
	require.Error(t, <-fatalErr)
	require.NoError(t, srv.Stop(false))
}
