package stripapi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/store"
)

// handleListReports processes GET /api/v1/reports?page=&page_size=.
func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: "ERR_INVALID_QUERY_PARAM", Message: err.Error()})
		return
	}

	pageSize, err := parseOptionalInt(r, "page_size", 10)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: "ERR_INVALID_QUERY_PARAM", Message: err.Error()})
		return
	}

	// Out-of-range values are clamped, not rejected.
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	reports, total, err := a.reports.ListReports(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error("failed to list reports", slog.String("error", err.Error()))
		renderInternal(w, r, "Failed to retrieve reports")
		return
	}

	data := make([]StoredReport, 0, len(reports))
	for _, rep := range reports {
		data = append(data, mapStoredReport(rep))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			TotalItems:  total,
			TotalPages:  int(math.Ceil(float64(total) / float64(pageSize))),
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// handleGetReport processes GET /api/v1/reports/{id}, returning the full log lines.
func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := a.reports.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrReportNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_NOT_FOUND",
				Message: fmt.Sprintf("Report for build '%s' not found", id),
			})
			return
		}
		logger.FromContext(r.Context()).Error("failed to get report", slog.String("build_id", id), slog.String("error", err.Error()))
		renderInternal(w, r, "Failed to retrieve report")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapStoredReport(rep))
}

// parseOptionalInt returns defaultValue when the query parameter is absent and
// an error only when it is present but malformed.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}

func mapStoredReport(rep *store.Report) StoredReport {
	return StoredReport{
		BuildID:     rep.BuildID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Invocations: rep.Invocations,
		VariantsIn:  rep.VariantsIn,
		VariantsOut: rep.VariantsOut,
		Lines:       rep.Lines,
		CreatedAt:   rep.CreatedAt,
	}
}
