package ping

import (
	"context"
	"errors"
	"net/http"
	"time"

	charm "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// Path is the route the gateway binds to the handler.
const Path = "/ping"

// NewRouter serves the handler's response at GET /ping. It mirrors the
// gateway route for local development.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get(Path, func(w http.ResponseWriter, req *http.Request) {
		resp, _ := h.Handle(req.Context(), nil)
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h *Handler, log *charm.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving ping locally", "addr", addr, "path", Path)
		errCh <- srv.ListenAndServe()
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
		log.Info("shutting down local server")
		return srv.Shutdown(shutdownCtx)
	}
}
