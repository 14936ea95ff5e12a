package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
	"mercator-hq/ratelimiter/pkg/telemetry/logging"
)

// LimiterView is the JSON representation of a limiter. Config and metrics
// fields are flattened into one object.
type LimiterView struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags,omitempty"`
	ConfigView
	ratelimiter.Metrics
}

// ConfigView renders a limiter config with human-readable durations.
type ConfigView struct {
	LimitForPeriod     int    `json:"limit_for_period"`
	LimitRefreshPeriod string `json:"limit_refresh_period"`
	TimeoutDuration    string `json:"timeout_duration"`
}

// EventsResponse is the body of the events endpoint.
type EventsResponse struct {
	Name   string            `json:"name"`
	Total  int64             `json:"total"`
	Events []*storage.Record `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newLimiterView(l *ratelimiter.RateLimiter) LimiterView {
	cfg := l.Config()
	return LimiterView{
		Name: l.Name(),
		Tags: l.Tags(),
		ConfigView: ConfigView{
			LimitForPeriod:     cfg.LimitForPeriod,
			LimitRefreshPeriod: cfg.LimitRefreshPeriod.String(),
			TimeoutDuration:    cfg.TimeoutDuration.String(),
		},
		Metrics: l.Metrics(),
	}
}

// listLimiters handles GET /ratelimiters.
func (s *Server) listLimiters(w http.ResponseWriter, r *http.Request) {
	all := s.deps.Registry.All()
	views := make([]LimiterView, 0, len(all))
	for _, l := range all {
		views = append(views, newLimiterView(l))
	}
	writeJSON(w, http.StatusOK, views)
}

// getLimiter handles GET /ratelimiters/{name}.
func (s *Server) getLimiter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	l, ok := s.deps.Registry.Find(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("rate limiter %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, newLimiterView(l))
}

// listEvents handles GET /ratelimiters/{name}/events.
//
// Query parameters:
//   - type: SUCCESSFUL_ACQUIRE, FAILED_ACQUIRE or DRAINED
//   - since, until: RFC 3339 timestamps
//   - limit: maximum number of events, newest first
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	if _, ok := s.deps.Registry.Find(name); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("rate limiter %q not found", name))
		return
	}

	query, err := parseEventsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query.LimiterName = name

	records, err := s.deps.Events.Query(ctx, query)
	if err != nil {
		var qerr *storage.QueryError
		if errors.As(err, &qerr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromContext(ctx).ErrorContext(ctx, "event query failed", "limiter", name, "error", err)
		writeError(w, http.StatusInternalServerError, "event query failed")
		return
	}

	total, err := s.deps.Events.Count(ctx, query)
	if err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "event count failed", "limiter", name, "error", err)
		writeError(w, http.StatusInternalServerError, "event query failed")
		return
	}

	if records == nil {
		records = []*storage.Record{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{Name: name, Total: total, Events: records})
}

// ParseEventType accepts an event type name in any letter case.
func ParseEventType(s string) (ratelimiter.EventType, error) {
	switch t := ratelimiter.EventType(strings.ToUpper(s)); t {
	case ratelimiter.EventSuccessfulAcquire, ratelimiter.EventFailedAcquire, ratelimiter.EventDrained:
		return t, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

func parseEventsQuery(r *http.Request) (*storage.Query, error) {
	values := r.URL.Query()
	query := &storage.Query{}

	if v := values.Get("type"); v != "" {
		t, err := ParseEventType(v)
		if err != nil {
			return nil, err
		}
		query.Type = t
	}

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		query.Limit = limit
	}

	for param, dst := range map[string]*time.Time{"since": &query.Since, "until": &query.Until} {
		v := values.Get(param)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: expected RFC 3339", param, v)
		}
		*dst = t
	}

	if err := query.Validate(); err != nil {
		return nil, err
	}
	return query, nil
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}
