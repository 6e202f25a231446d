// Package mergeserver serves the merged document over HTTP and re-merges it
// when a watched snippet changes.
package mergeserver

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"
	"gopkg.in/yaml.v3"
)

// Rebuild runs a full merge and returns the merged document.
type Rebuild func() (map[string]any, error)

// Server holds the last successfully merged document. A failed re-merge
// keeps the previous document so clients never receive a half-built config.
type Server struct {
	rebuild Rebuild

	mu      sync.Mutex
	body    []byte
	builtAt time.Time
}

// New runs the initial merge and returns a serving-ready Server.
func New(rebuild Rebuild) (*Server, error) {
	s := &Server{rebuild: rebuild}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-merges and swaps in the new document.
func (s *Server) Reload() error {
	doc, err := s.rebuild()
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	body, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode merged document: %w", err)
	}
	s.mu.Lock()
	s.body = body
	s.builtAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() ([]byte, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body, s.builtAt
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		_, builtAt := s.snapshot()
		c.JSON(http.StatusOK, gin.H{"ok": true, "built_at": builtAt.UTC().Format(time.RFC3339)})
	})

	r.GET("/config.yaml", func(c *gin.Context) {
		body, _ := s.snapshot()
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", body)
	})

	r.POST("/-/reload", func(c *gin.Context) {
		if err := s.Reload(); err != nil {
			log.Printf("reload failed (http): %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		_, builtAt := s.snapshot()
		c.JSON(http.StatusOK, gin.H{"ok": true, "built_at": builtAt.UTC().Format(time.RFC3339)})
	})

	return r
}

// Run serves until the listener fails. maxConns caps concurrent connections
// when positive.
func (s *Server) Run(listen string, maxConns int) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("serving merged config: addr=%q max_conns=%d", listen, maxConns)
	return srv.Serve(ln)
}
