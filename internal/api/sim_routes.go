package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pairstats/analytics-backend/internal/simulate"
)

// handleSimulate resamples the selected accounts' merged daily returns and
// reports drawdown-exceedance, loss-run and time-to-recovery statistics.
// The history window defaults to all available data.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req, err := parseMetricsRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Start == "" && !req.MTD {
		req.Earliest = true
	}
	// "account=merged" (the default) simulates the combined series;
	// a concrete name restricts the selection to that account.
	if acct := r.URL.Query().Get("account"); acct != "" && acct != "merged" {
		req.Accounts = []string{acct}
	}

	cfg := s.simDefaults
	if cfg.Paths, err = parseIntParam(r, "paths", cfg.Paths); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cfg.Paths > maxSimPaths {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("paths %d exceeds the limit of %d", cfg.Paths, maxSimPaths))
		return
	}
	if cfg.Persistence, err = parseFloatParam(r, "persistence", cfg.Persistence); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cfg.Horizon, err = parseIntParam(r, "horizon", cfg.Horizon); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cfg.StartDrawdownPct, err = parseFloatParam(r, "start_drawdown", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if thresholds := splitParam(r, "thresholds"); thresholds != nil {
		cfg.Thresholds = nil
		for _, t := range thresholds {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil || f <= 0 {
				writeError(w, http.StatusBadRequest, "invalid threshold "+t)
				return
			}
			cfg.Thresholds = append(cfg.Thresholds, f)
		}
	}
	if runs := splitParam(r, "runs"); runs != nil {
		cfg.Runs = nil
		for _, v := range runs {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid run length "+v)
				return
			}
			cfg.Runs = append(cfg.Runs, n)
		}
	}

	// A fixed seed makes the response reproducible; otherwise each call
	// resamples fresh.
	seed, err := parseIntParam(r, "seed", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if seed != 0 {
		cfg.Seed = int64(seed)
	} else {
		cfg.Seed = time.Now().UnixNano()
	}

	returns, err := s.svc.ReturnSeries(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	report, err := simulate.Run(returns, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
