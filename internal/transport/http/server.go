package httptransport

import (
	"net/http"
	"time"
)

// The write timeout must outlast the manual sync path, which blocks on the
// 30s upstream activity fetch before replying.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 45 * time.Second
	idleTimeout  = 60 * time.Second
)

// NewServer creates the service's *http.Server with the provided handler.
func NewServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}
