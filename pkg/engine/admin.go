package engine

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/httputil"
	"github.com/getmockd/stubby/pkg/requestlog"
)

// AdminPrefix is the path prefix of the operational endpoints.
const AdminPrefix = "/__stubby"

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status           string    `json:"status"`
	Version          string    `json:"version,omitempty"`
	Uptime           string    `json:"uptime"`
	ConfigVersion    uint64    `json:"configVersion"`
	LoadedAt         time.Time `json:"loadedAt"`
	Lifecycles       int       `json:"lifecycles"`
	ProxyConfigs     int       `json:"proxyConfigs"`
	WebSocketConfigs int       `json:"webSocketConfigs"`
	WebSocketsOpen   int64     `json:"webSocketsOpen"`
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)
	r.Get("/config/{resourceID}", s.handleLifecycleYAML)
	r.Get("/proxy-config/{uuid}", s.handleProxyYAML)
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", s.handleListRequests)
		r.Delete("/", s.handleClearRequests)
		r.Get("/{id}", s.handleGetRequest)
	})
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", s.registry.Handler())
	}
}

// RequestListResponse is the body of the request journal listing.
type RequestListResponse struct {
	Total    int                 `json:"total"`
	Requests []*requestlog.Entry `json:"requests"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.repo.Snapshot()
	cfg := snap.Config()
	render.JSON(w, r, HealthResponse{
		Status:           "ok",
		Version:          s.version,
		Uptime:           time.Since(s.startTime).Round(time.Second).String(),
		ConfigVersion:    snap.Version(),
		LoadedAt:         snap.LoadedAt(),
		Lifecycles:       len(cfg.Lifecycles),
		ProxyConfigs:     len(cfg.ProxyConfigs),
		WebSocketConfigs: len(cfg.WebSocketConfigs),
		WebSocketsOpen:   s.ws.Active(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	out, err := config.RenderAll(s.repo.Snapshot().Config())
	if err != nil {
		httputil.WriteError(w, r, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writeYAML(w, out)
}

func (s *Server) handleLifecycleYAML(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "resourceID"))
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, "invalid_resource_id", "resource id must be an integer")
		return
	}
	lc, ok := s.repo.Snapshot().Lifecycle(id)
	if !ok || lc.Source == nil {
		httputil.WriteNotFound(w, r, "not_found", "no stub with resource id "+strconv.Itoa(id), nil)
		return
	}
	out, err := config.CompleteYAML(lc.Source)
	if err != nil {
		httputil.WriteError(w, r, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writeYAML(w, out)
}

func (s *Server) handleProxyYAML(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	pc, ok := s.repo.Snapshot().ProxyConfig(uuid)
	if !ok || pc.Source == nil {
		httputil.WriteNotFound(w, r, "not_found", "no proxy config with uuid "+uuid, nil)
		return
	}
	out, err := config.CompleteYAML(pc.Source)
	if err != nil {
		httputil.WriteError(w, r, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writeYAML(w, out)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRequestFilter(r)
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	render.JSON(w, r, RequestListResponse{
		Total:    s.requests.Count(),
		Requests: s.requests.List(filter),
	})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry := s.requests.Get(id)
	if entry == nil {
		httputil.WriteNotFound(w, r, "not_found", "no request with id "+id, nil)
		return
	}
	render.JSON(w, r, entry)
}

func (s *Server) handleClearRequests(w http.ResponseWriter, r *http.Request) {
	s.requests.Clear()
	render.NoContent(w, r)
}

// parseRequestFilter reads method, path, outcome, protocol, resourceId,
// status, limit and offset query parameters.
func parseRequestFilter(r *http.Request) (*requestlog.Filter, error) {
	q := r.URL.Query()
	f := &requestlog.Filter{
		Protocol: q.Get("protocol"),
		Method:   q.Get("method"),
		Path:     q.Get("path"),
		Outcome:  q.Get("outcome"),
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"status", &f.StatusCode},
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("query parameter %q must be a non-negative integer", p.name)
		}
		*p.dst = n
	}
	if v := q.Get("resourceId"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("query parameter %q must be an integer", "resourceId")
		}
		f.ResourceID = &n
	}
	return f, nil
}

func writeYAML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write([]byte(body + "\n"))
}
