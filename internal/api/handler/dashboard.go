package handler

import (
	"errors"
	"net/http"

	"github.com/furqan899/safelift-ai/internal/api/response"
	"github.com/furqan899/safelift-ai/internal/store"
)

// NewDashboardMetricsHandler returns the handler for GET /api/v1/dashboard/metrics.
// It serves the most recent daily snapshot.
func NewDashboardMetricsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metric, err := st.LatestMetric(r.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "No metrics recorded yet", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load metrics", nil)
			return
		}
		response.JSON(w, metric)
	}
}
