package api

import (
	"errors"
	"net/http"

	"github.com/pairstats/analytics-backend/internal/models"
	"github.com/pairstats/analytics-backend/internal/service"
)

// parseMetricsRequest maps the shared query parameters of the metrics
// routes onto a service request.
func parseMetricsRequest(r *http.Request) (service.Request, error) {
	req := service.Request{
		Accounts:    splitParam(r, "accounts"),
		Start:       r.URL.Query().Get("start"),
		End:         r.URL.Query().Get("end"),
		Earliest:    parseBoolParam(r, "earliest"),
		MTD:         parseBoolParam(r, "mtd"),
		IncludeLive: parseBoolParam(r, "include_live"),
	}

	for _, d := range []string{req.Start, req.End} {
		if d != "" && !validateDate(d) {
			return req, errors.New("invalid date " + d + ", expected YYYY-MM-DD")
		}
	}

	var err error
	if req.TZOffsetHours, err = parseIntParam(r, "tz", 0); err != nil {
		return req, err
	}
	if req.DayStartHour, err = parseIntParam(r, "day_start_hour", 0); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	req, err := parseMetricsRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Performance(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type streaksResponse struct {
	Accounts map[string]models.Streaks `json:"accounts"`
	Merged   models.Streaks            `json:"merged"`
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	req, err := parseMetricsRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	per, merged, err := s.svc.Streaks(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streaksResponse{Accounts: per, Merged: merged})
}

// writeServiceError maps validation failures to 400 and everything else
// to 500; degraded inputs never reach this path.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoAccounts),
		errors.Is(err, service.ErrBadDate),
		errors.Is(err, service.ErrBadBaseline):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Errorw("metrics request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
	}
}
