package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabular/internal/core"
	"github.com/JonMunkholm/tabular/internal/service"
)

// tableResponse is the JSON form of a table. Missing cells are null.
type tableResponse struct {
	Columns []string    `json:"columns"`
	Index   []int       `json:"index"`
	Rows    [][]*string `json:"rows"`
}

func newTableResponse(t *core.Table) tableResponse {
	resp := tableResponse{
		Columns: t.Names(),
		Index:   t.Index,
		Rows:    make([][]*string, t.RowCount()),
	}
	for i := range resp.Rows {
		cells := t.Row(i)
		row := make([]*string, len(cells))
		for j, c := range cells {
			if !c.IsMissing() {
				text := c.Text
				row[j] = &text
			}
		}
		resp.Rows[i] = row
	}
	return resp
}

// uploadResponse reports the shape of a freshly uploaded table.
type uploadResponse struct {
	Filename       string       `json:"filename"`
	Summary        core.Summary `json:"summary"`
	NumericColumns []string     `json:"numeric_columns"`
}

// sortRequest is the JSON body of POST /api/sort.
type sortRequest struct {
	Mode   string `json:"mode"`
	Column string `json:"column"`
	Order  string `json:"order"`
}

// handleAPIUpload stores the uploaded csv_file for the session.
func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(w, r, service.ErrFileTooLarge)
		case errors.Is(err, http.ErrNotMultipart):
			respondError(w, r, service.ErrNoFile)
		default:
			writeError(w, r, http.StatusBadRequest, "invalid form")
		}
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		respondError(w, r, service.ErrNoFile)
		return
	}
	defer file.Close()

	t, err := s.service.Upload(r.Context(), sessionID(r.Context()), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, uploadResponse{
		Filename:       header.Filename,
		Summary:        core.Summarize(t),
		NumericColumns: core.NumericColumns(t),
	})
}

// handleAPISort sorts the session's table. Accepts a JSON body or form
// fields named like the page form.
func (s *Server) handleAPISort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		req = sortRequest{
			Mode:   r.FormValue("sort_mode"),
			Column: r.FormValue("sort_column"),
			Order:  r.FormValue("sort_order"),
		}
	}

	t, err := s.service.Sort(r.Context(), sessionID(r.Context()), service.ParseSortRequest(req.Mode, req.Column, req.Order))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, newTableResponse(t))
}

// handleAPIStats returns statistics for the columns named in the query.
// Columns may be repeated or comma separated; with none given every
// numeric column is described.
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	columns := queryColumns(r)
	if len(columns) == 0 {
		view, err := s.service.View(r.Context(), sessionID(r.Context()))
		if err != nil {
			respondError(w, r, err)
			return
		}
		columns = view.NumericColumns
	}

	analysis, err := s.service.Analyze(r.Context(), sessionID(r.Context()), service.AnalyzeRequest{
		Columns: columns,
		Chart:   core.ParseChartKind(r.URL.Query().Get("chart_type")),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	if analysis == nil {
		analysis = &service.Analysis{Stats: map[string]core.ColumnStats{}}
	}
	writeJSON(w, analysis)
}

func queryColumns(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["columns"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// handleAPICorrelation returns the correlation matrix.
func (s *Server) handleAPICorrelation(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.Correlation(r.Context(), sessionID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, m)
}

// handleAPIInsights returns the derived insights.
func (s *Server) handleAPIInsights(w http.ResponseWriter, r *http.Request) {
	ins, err := s.service.Insights(r.Context(), sessionID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, ins)
}

// handleAPISummary returns the table's KPIs.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Summary(r.Context(), sessionID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, sum)
}

// handleAPITable returns the stored table.
func (s *Server) handleAPITable(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.View(r.Context(), sessionID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, newTableResponse(view.Table))
}

// handleAPIDownload sends the table as processed_data.csv.
func (s *Server) handleAPIDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.sendDownload(w, r); err != nil {
		respondError(w, r, err)
	}
}

// handleAPIReset discards the session's table.
func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context(), sessionID(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports liveness and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"uploads": s.service.UploadLimiterStatus(),
	})
}
