package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/tabular/internal/core"
	"github.com/JonMunkholm/tabular/internal/logging"
	"github.com/JonMunkholm/tabular/internal/service"
	"github.com/JonMunkholm/tabular/internal/web/templates"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// maxMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const maxMemory = 10 << 20

// formActions are processed in this order when a form names several.
var formActions = []string{"upload_csv", "reset", "sort", "analyze", "download"}

// handleIndex renders the page for the session's current table.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, templates.PageData{}, nil)
}

// handleAction processes a form post from the page. Errors from the
// submitted action are shown as a banner above the current table.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(ctx)

	if err := s.parseForm(w, r); err != nil {
		s.renderPage(w, r, templates.PageData{}, err)
		return
	}

	requested := requestedActions(r)
	var (
		data   templates.PageData
		failed error
	)

	if requested["upload_csv"] {
		if err := s.uploadFromForm(r, id); err != nil {
			failed = err
		}
	}

	if requested["reset"] {
		if err := s.service.Reset(ctx, id); err != nil {
			s.renderPage(w, r, data, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if requested["sort"] {
		data.Sort = templates.SortForm{
			Mode:   r.FormValue("sort_mode"),
			Column: r.FormValue("sort_column"),
			Order:  r.FormValue("sort_order"),
		}
		req := service.ParseSortRequest(data.Sort.Mode, data.Sort.Column, data.Sort.Order)
		if _, err := s.service.Sort(ctx, id, req); err != nil && !errors.Is(err, core.ErrNoTable) {
			failed = err
		}
	}

	if requested["analyze"] {
		data.Selected = r.Form["columns"]
		data.Chart = core.ParseChartKind(r.FormValue("chart_type"))
		analysis, err := s.service.Analyze(ctx, id, service.AnalyzeRequest{
			Columns: data.Selected,
			Chart:   data.Chart,
		})
		switch {
		case err != nil && !errors.Is(err, core.ErrNoTable):
			failed = err
		case analysis != nil:
			data.Stats = analysis.Stats
			data.ChartData = &analysis.Chart
		}
	}

	if requested["download"] && failed == nil {
		err := s.sendDownload(w, r)
		if err == nil {
			return
		}
		if !errors.Is(err, core.ErrNoTable) {
			failed = err
		}
	}

	s.renderPage(w, r, data, failed)
}

// parseForm limits the body size and parses either form encoding.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(maxMemory)
	} else {
		err = r.ParseForm()
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return service.ErrFileTooLarge
	}
	return err
}

// requestedActions reads the submitted action. Forms name it with an
// "action" field; a field named after the action itself also counts.
func requestedActions(r *http.Request) map[string]bool {
	out := make(map[string]bool)
	if a := r.FormValue("action"); a != "" {
		out[a] = true
	}
	for _, a := range formActions {
		if _, ok := r.Form[a]; ok {
			out[a] = true
		}
	}
	return out
}

// uploadFromForm stores the csv_file part of a multipart form.
func (s *Server) uploadFromForm(r *http.Request, id string) error {
	file, header, err := r.FormFile("csv_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return service.ErrNoFile
	}
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = s.service.Upload(r.Context(), id, header.Filename, file)
	return err
}

// renderPage renders the index page for the session's stored table. When
// failed is set the page carries an error banner and a matching status.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, data templates.PageData, failed error) {
	ctx := r.Context()

	view, err := s.service.View(ctx, sessionID(ctx))
	switch {
	case err == nil:
		data.Table = view.Table
		data.NumericColumns = view.NumericColumns
		data.Summary = view.Summary
		data.Correlation = view.Correlation
		data.Insights = view.Insights
	case !errors.Is(err, core.ErrNoTable) && failed == nil:
		failed = err
	}
	data.PreviewRows = s.cfg.Upload.PreviewRows

	status := http.StatusOK
	if failed != nil {
		msg := core.MapError(failed)
		status = statusFor(msg)
		logError(r, failed, msg, status)
		data.Error = &msg
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Page(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render page", "error", err)
	}
}

// sendDownload sends the session's table as a CSV attachment. The table
// fingerprint doubles as a strong ETag; a matching If-None-Match is
// answered from the fingerprint alone, without serializing the table.
// Nothing is written when an error is returned.
func (s *Server) sendDownload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id := sessionID(ctx)

	if match := r.Header.Get("If-None-Match"); match != "" {
		fp, err := s.service.Fingerprint(ctx, id)
		if err != nil {
			return err
		}
		if match == etagFor(fp) {
			setCacheHeaders(w, fp)
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	dl, err := s.service.Download(ctx, id)
	if err != nil {
		return err
	}

	setCacheHeaders(w, dl.Fingerprint)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	if _, err := w.Write(dl.Data); err != nil {
		logging.FromContext(ctx).Error("write download", "error", err)
	}
	return nil
}

func etagFor(fingerprint string) string {
	return `"` + fingerprint + `"`
}

func setCacheHeaders(w http.ResponseWriter, fingerprint string) {
	w.Header().Set("ETag", etagFor(fingerprint))
	w.Header().Set("Cache-Control", "private, no-cache")
}
