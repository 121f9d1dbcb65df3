package tiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const shutdownTimeout = 5 * time.Second

// TileSource is the lookup contract the server depends on. *Store satisfies
// it; tests substitute their own.
type TileSource interface {
	Tile(ctx context.Context, zoom, column, row int) ([]byte, error)
}

// WithServerLogger sets the logger for the server.
func WithServerLogger(logger *slog.Logger) func(s *Server) {
	return func(s *Server) {
		s.logger = logger.With(slog.String("component", "tileserver"))
	}
}

// Server serves tiles over HTTP as GET /{zoom}/{column}/{row}, with the row
// in the client (top-origin) convention. It holds no per-request state;
// concurrent requests only share the read-only source.
type Server struct {
	addr   string
	source TileSource
	logger *slog.Logger
}

// NewServer creates a Server listening on addr once Run is called.
func NewServer(addr string, source TileSource, options ...func(s *Server)) *Server {
	s := Server{
		addr:   addr,
		source: source,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	s.logger.Info("tile server listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down tile server: %w", err)
		}
		return nil

	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("tile server: %w", err)
		}
		return nil
	}
}

// ServeHTTP handles a single tile request. Both a malformed path and a
// missing tile answer 404; they are logged as distinct causes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	zoom, column, row, err := parseTilePath(r.URL.Path)
	if err != nil {
		s.logger.Debug("malformed tile request",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		http.NotFound(w, r)
		return
	}

	if !ValidCoordinate(zoom, column, row) {
		s.logger.Debug("tile not found",
			slog.String("path", r.URL.Path),
			slog.String("cause", "coordinate off the zoom grid"))
		http.NotFound(w, r)
		return
	}

	// Clients address rows top-origin; the archive stores them bottom-origin.
	data, err := s.source.Tile(r.Context(), zoom, column, FlipRow(zoom, row))
	if errors.Is(err, ErrTileNotFound) {
		s.logger.Debug("tile not found", slog.String("path", r.URL.Path))
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("tile lookup failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("tile served",
		slog.String("path", r.URL.Path),
		slog.String("size", humanize.Bytes(uint64(len(data)))))

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseTilePath decomposes /{zoom}/{column}/{row} into three non-negative
// integers. Any other shape is a malformed request.
func parseTilePath(path string) (zoom, column, row int, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 path segments, got %d", len(parts))
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("parsing segment '%s': %w", part, err)
		}
		if v < 0 {
			return 0, 0, 0, fmt.Errorf("negative segment '%s'", part)
		}
		values[i] = v
	}

	return values[0], values[1], values[2], nil
}
