package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	mux := http.NewServeMux()
	server := NewServer(":8000", mux)

	require.Equal(t, ":8000", server.Addr)
	require.Equal(t, readTimeout, server.ReadTimeout)
	require.Equal(t, idleTimeout, server.IdleTimeout)

	// The manual sync handler can hold a response open for the full 30s
	// upstream fetch; the write timeout must leave room for that.
	require.Greater(t, server.WriteTimeout, 30*time.Second)
}
