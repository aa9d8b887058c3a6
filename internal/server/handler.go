// internal/server/handler.go - Tile and health handlers
package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/cache"
	"github.com/valpere/tile_to_png/internal/logger"
	"github.com/valpere/tile_to_png/internal/tile"
)

// Liveness answers ok while the process is up
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, x, y, err := parseCoordinate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	coord := tile.NewTileCoordinate(z, x, y).String()
	ctx := logger.WithTile(r.Context(), coord)
	key := cache.Key(s.prefix, z, x, y, s.variant)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx, &s.logger).Warn().Err(err).Msg("cache get failed")
	}
	s.metrics.CacheLookup(ok)
	if ok {
		s.writePNG(w, data, "HIT")
		return
	}

	response, err := s.fetcher.FetchTile(ctx, z, x, y)
	if err != nil {
		s.fail(w, r, coord, err)
		return
	}

	rendered, err := s.processor.Process(ctx, response)
	if err != nil {
		s.fail(w, r, coord, err)
		return
	}

	data, err = s.png.Format(rendered)
	if err != nil {
		s.fail(w, r, coord, internal.NewError(internal.ErrorCodeRender, "png encoding failed", err))
		return
	}

	if err := s.cache.Set(ctx, key, data); err != nil {
		logger.FromContext(logger.WithCache(ctx, "miss"), &s.logger).Warn().Err(err).Msg("cache set failed")
	}
	s.writePNG(w, data, "MISS")
}

func (s *Server) writePNG(w http.ResponseWriter, data []byte, cacheResult string) {
	w.Header().Set("Content-Type", s.png.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.maxAge.Seconds())))
	w.Header().Set("X-Cache", cacheResult)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, coord string, err error) {
	status := statusFor(err)
	ev := logger.FromContext(r.Context(), &s.logger).Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.FromContext(r.Context(), &s.logger).Error()
	}
	ev.Err(err).Str("tile", coord).Int("status", status).Msg("tile request failed")
	http.Error(w, http.StatusText(status), status)
}

// statusFor maps an application error code to an HTTP status
func statusFor(err error) int {
	switch internal.ErrorCodeOf(err) {
	case internal.ErrorCodeNotFound:
		return http.StatusNotFound
	case internal.ErrorCodeValidation:
		return http.StatusBadRequest
	case internal.ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	case internal.ErrorCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseCoordinate(r *http.Request) (int, int, int, error) {
	var vals [3]int
	for i, name := range []string{"z", "x", "y"} {
		v, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid %s: %q", name, chi.URLParam(r, name))
		}
		vals[i] = v
	}
	if err := tile.ValidateCoordinates(vals[0], vals[1], vals[2]); err != nil {
		return 0, 0, 0, err
	}
	return vals[0], vals[1], vals[2], nil
}
