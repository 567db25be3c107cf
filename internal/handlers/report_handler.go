package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/services"
	"dress-rental/internal/timeutil"
	"dress-rental/pkg/utils"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// reportParams reads ?year=, ?from=, ?to= and ?limit=
func reportParams(r *http.Request) (services.ReportParams, error) {
	var p services.ReportParams
	var err error
	if p.Year, err = queryInt(r, "year"); err != nil {
		return p, err
	}
	if p.Limit, err = queryInt(r, "limit"); err != nil {
		return p, err
	}
	if p.From, err = queryDate(r, "from"); err != nil {
		return p, err
	}
	if p.To, err = queryDate(r, "to"); err != nil {
		return p, err
	}
	return p, nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, name+" must be YYYY-MM-DD")
	}
	return d, nil
}

func reportFormat(r *http.Request, fallback string) string {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		return f
	}
	return fallback
}

// ListReports names the reports served under /api/reports/{name}
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string][]string{"reports": services.ReportNames})
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Service.Dashboard(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dash)
}

// GetReport serves one report as a JSON table or, with ?format=csv|xlsx|pdf, as a download
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	p, err := reportParams(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	format := reportFormat(r, services.FormatJSON)
	if format == services.FormatJSON {
		table, err := h.Service.Table(r.Context(), name, p)
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, table)
		return
	}

	data, err := h.Service.Export(r.Context(), name, format, p)
	if err != nil {
		utils.Error(w, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.%s", name, timeutil.FormatDate(timeutil.Now()), format)
	attachment(w, services.ContentType(format), filename, data)
}

// ExportBundle zips every report in ?format= (csv by default). When an
// archive is configured the upload location is returned in X-Archive-Location.
func (h *ReportHandler) ExportBundle(w http.ResponseWriter, r *http.Request) {
	p, err := reportParams(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	res, err := h.Service.ExportBundle(r.Context(), reportFormat(r, services.FormatCSV), p)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if res.Location != "" {
		w.Header().Set("X-Archive-Location", res.Location)
	}
	if len(res.Failed) > 0 {
		w.Header().Set("X-Failed-Reports", strings.Join(res.Failed, ","))
	}
	attachment(w, "application/zip", res.Filename, res.Data)
}
