// Package server serves the generated authoring pages over local HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// NotFoundBody is the response text for missing files.
const NotFoundBody = "File not found"

var contentTypes = map[string]string{
	".html": "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
	".json": "application/json",
}

// ContentType maps a file name to the served content type.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}

// Server serves files under a root directory. "/" is answered with the
// entry document.
type Server struct {
	root   string
	entry  string
	logger *slog.Logger
}

// New returns a server for root. A nil logger discards request logs.
func New(root, entry string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{root: root, entry: entry, logger: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := s.serve(w, r)
	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration", time.Since(start))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) int {
	name, ok := s.resolve(r.URL.Path)
	if !ok {
		return notFound(w)
	}
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return notFound(w)
	}
	data, err := os.ReadFile(name) //nolint:gosec // G304: confined to the served root by resolve
	if err != nil {
		return notFound(w)
	}

	w.Header().Set("Content-Type", ContentType(name))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
	return http.StatusOK
}

// resolve maps a request path to a file under root. Paths that would
// leave the root are rejected.
func (s *Server) resolve(urlPath string) (string, bool) {
	if urlPath == "" || urlPath == "/" {
		urlPath = "/" + s.entry
	}
	if strings.Contains(urlPath, "\x00") {
		return "", false
	}
	clean := path.Clean("/" + urlPath)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" {
		return "", false
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", false
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	within, err := filepath.Rel(root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func notFound(w http.ResponseWriter) int {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(NotFoundBody))
	return http.StatusNotFound
}

// ListenAndServe serves on addr until ctx is done. ready, when set, is
// called with the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(addr string)) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           s,
	}
	if ready != nil {
		ready(listener.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
