package controller

import (
	"errors"
	"net/http"

	"folio/internal/report"
)

// Report provides the admin report handlers
type Report struct {
	View
	Registry *report.Registry
}

// Register registers the report routes
func (rc *Report) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/reports", rc.list)
	mux.HandleFunc("GET /admin/reports/{name}", rc.show)
}

func (rc *Report) list(w http.ResponseWriter, r *http.Request) {
	data := rc.pageData(r)
	data.Title = "Reports"
	data.Reports = rc.Registry.List()
	rc.render(w, r, http.StatusOK, "reports.html", data)
}

func (rc *Report) show(w http.ResponseWriter, r *http.Request) {
	rep, err := rc.Registry.Get(r.PathValue("name"))
	if errors.Is(err, report.ErrUnknownReport) {
		http.NotFound(w, r)
		return
	}

	records, err := rep.SourceRecords(r.Context())
	if err != nil {
		rc.serverError(w, r, err)
		return
	}

	data := rc.pageData(r)
	data.Title = rep.Title()
	data.Report = rep
	data.Records = records
	rc.render(w, r, http.StatusOK, "reports.html", data)
}
