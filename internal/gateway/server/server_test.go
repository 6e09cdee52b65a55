package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pollscope/internal/gateway/handler"
	"pollscope/internal/gateway/middleware"
	"pollscope/internal/types/poll"
)

type emptyProcessor struct{}

func (emptyProcessor) Process(context.Context, string) (map[string]poll.ProcessedDivision, error) {
	return nil, nil
}

func TestServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(l.Addr().String(), NewMux(handler.New(emptyProcessor{}, nil, nil), nil), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	cli := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	resp, err := cli.Get("http://" + l.Addr().String() + "/api/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = cli.Post("http://"+l.Addr().String()+"/api/polls", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	tr.CloseIdleConnections()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
