package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
)

// --- Service interface ---

// ReportServicer builds period reports.
// Satisfied by *service.ReportService.
type ReportServicer interface {
	Report(ctx context.Context, p service.Period, now time.Time) (*service.PeriodReport, error)
	Location() *time.Location
}

// --- ReportHandler ---

// ReportHandler handles the financial report and its download.
type ReportHandler struct {
	svc      ReportServicer
	exporter service.ReportExporter
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler. exporter may be nil, in which
// case the export endpoint answers 501.
func NewReportHandler(svc ReportServicer, exporter service.ReportExporter) *ReportHandler {
	return &ReportHandler{svc: svc, exporter: exporter, now: time.Now}
}

// RegisterRoutes registers report endpoints.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.GetReport)
	r.Get("/export", h.Export)
}

// --- Response types ---

type dailyResponse struct {
	Date string `json:"date"`
	totalsResponse
}

type dishSalesResponse struct {
	DishID   uuid.UUID `json:"dish_id"`
	DishName string    `json:"dish_name"`
	Quantity int64     `json:"quantity"`
	Revenue  string    `json:"revenue"`
}

type reportResponse struct {
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Totals      totalsResponse      `json:"totals"`
	Daily       []dailyResponse     `json:"daily"`
	TopDishes   []dishSalesResponse `json:"top_dishes"`
	Balance     string              `json:"balance"`
	Currency    string              `json:"currency"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// --- Handlers ---

// GetReport returns totals, a per-day breakdown and the best selling dishes
// for start_date..end_date. Both bounds are inclusive; the default is the
// last 30 days.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildReportResponse(report))
}

// Export renders the same report through the configured exporter as a file
// download.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusNotImplemented, "report export is not configured")
		return
	}

	report, ok := h.build(w, r)
	if !ok {
		return
	}

	// Render fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, report); err != nil {
		logger.Errorf("export report: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	filename := fmt.Sprintf("report_%s_%s.%s",
		report.Period.Start.Format(dateLayout),
		report.Period.LastDay().Format(dateLayout),
		h.exporter.FileExtension())

	w.Header().Set("Content-Type", h.exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warningf("write report export: %v", err)
	}
}

// --- Helpers ---

func (h *ReportHandler) build(w http.ResponseWriter, r *http.Request) (*service.PeriodReport, bool) {
	now := h.now()
	period, err := parsePeriod(r, h.svc.Location(), now)
	if err != nil {
		writeServiceError(w, "parse period", err)
		return nil, false
	}

	report, err := h.svc.Report(r.Context(), period, now)
	if err != nil {
		writeServiceError(w, "build report", err)
		return nil, false
	}
	return report, true
}

// --- Response builders ---

func buildReportResponse(p *service.PeriodReport) reportResponse {
	resp := reportResponse{
		StartDate:   p.Period.Start.Format(dateLayout),
		EndDate:     p.Period.LastDay().Format(dateLayout),
		Totals:      buildTotals(p.Totals),
		Daily:       make([]dailyResponse, 0, len(p.Daily)),
		TopDishes:   make([]dishSalesResponse, 0, len(p.TopDishes)),
		Balance:     p.Balance.StringFixed(money.Scale),
		Currency:    enum.Currency,
		GeneratedAt: p.GeneratedAt,
	}
	for _, d := range p.Daily {
		resp.Daily = append(resp.Daily, dailyResponse{
			Date:           d.Day.Format(dateLayout),
			totalsResponse: buildTotals(d.Totals),
		})
	}
	for _, d := range p.TopDishes {
		resp.TopDishes = append(resp.TopDishes, dishSalesResponse{
			DishID:   d.DishID,
			DishName: d.DishName,
			Quantity: d.Quantity,
			Revenue:  d.Revenue.StringFixed(money.Scale),
		})
	}
	return resp
}
