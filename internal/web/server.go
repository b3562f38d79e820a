package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// StaticFS returns the embedded kiosk UI files rooted at static/.
func StaticFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}
	return subFS
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /capture", s.handlers.HandleCapture)
	mux.HandleFunc("POST /countdown", s.handlers.HandleCountdown)
	mux.HandleFunc("GET /preview", s.handlers.HandlePreview)

	mux.HandleFunc("GET /frames", s.handlers.HandleFrames)
	mux.HandleFunc("GET /frames/{category}/{name}/image", s.handlers.HandleFrameImage)

	mux.HandleFunc("POST /sessions", s.handlers.HandleCreateSession)
	mux.HandleFunc("GET /sessions", s.handlers.HandleSessions)
	mux.HandleFunc("GET /sessions/{id}/photos", s.handlers.HandleSessionPhotos)

	mux.HandleFunc("GET /photos/{id}/image", s.handlers.HandlePhotoImage)
	mux.HandleFunc("GET /photos/{id}/thumb", s.handlers.HandlePhotoThumb)
	mux.HandleFunc("DELETE /photos/{id}", s.handlers.HandleDeletePhoto)

	mux.HandleFunc("POST /camera/device", s.handlers.HandleSwitchDevice)
	mux.HandleFunc("GET /stats", s.handlers.HandleStats)
	mux.HandleFunc("GET /ws", s.handlers.Hub.HandleWS)
	mux.HandleFunc("GET /healthz", s.handlers.HandleHealth)

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("web server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Mux())
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
