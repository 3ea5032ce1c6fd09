// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

const checkTimeout = 2 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Liveness always answers ok while the process serves HTTP.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

type checkResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Readiness pings every named dependency and answers 503 if any fails.
// With no dependencies it is always ready.
func Readiness(deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string        `json:"status"`
			Checks []checkResult `json:"checks,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		out := resp{Status: "ready"}
		for _, n := range names {
			res := checkResult{Name: n, OK: true}
			if err := deps[n].Ping(ctx); err != nil {
				res.OK = false
				res.Error = err.Error()
				out.Status = "not_ready"
			}
			out.Checks = append(out.Checks, res)
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
