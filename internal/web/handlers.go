package web

import (
	"net/http"
	"strconv"
	"time"

	"timely/internal/output"
	"timely/internal/query"
)

// timeRange reads the from/to query params, defaulting to today. Both
// accept the same flexible spellings as the CLI.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()

	fromSpec := r.URL.Query().Get("from")
	if fromSpec == "" {
		fromSpec = "today"
	}
	toSpec := r.URL.Query().Get("to")
	if toSpec == "" {
		toSpec = "now"
	}

	from, err := query.ParseTime(fromSpec, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := query.ParseTime(toSpec, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRange(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(err))
		return
	}
	groupBy, err := query.ParseGroupBy(r.URL.Query().Get("group"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(err))
		return
	}
	excludeAFK := r.URL.Query().Get("exclude_afk") == "true"

	summary, err := s.queries.Summary(r.Context(), from, to, groupBy, excludeAFK)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, summary)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRange(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(err))
		return
	}
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, output.Failure(err))
			return
		}
	}

	timeline, err := s.queries.Timeline(r.Context(), from, to, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, timeline)
}

func (s *Server) handleProductivity(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRange(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(err))
		return
	}

	prod, err := s.queries.Productivity(r.Context(), from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, prod)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.cats.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, cats)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := s.queries.Current(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	// no events yet is not an error here
	respondData(w, current)
}
