// Package service ties the table pipeline to a table store.
//
// Every operation works on the table stored for one session identity.
// Writers (Upload, Sort, Reset) are serialized per stored table, which for
// shared-slot stores spans every session; readers load whatever snapshot
// was last saved. A failed operation never changes the
// stored table.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/tabular/internal/core"
	"github.com/JonMunkholm/tabular/internal/logging"
	"github.com/JonMunkholm/tabular/internal/store"
)

// DownloadFilename is the attachment name of downloaded tables.
const DownloadFilename = "processed_data.csv"

var (
	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Config holds service limits.
type Config struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
}

// Service runs table operations for sessions.
type Service struct {
	store       store.TableStore
	limiter     *core.UploadLimiter
	locks       *keyedMutex
	maxFileSize int64
}

// New creates a service backed by st.
func New(st store.TableStore, cfg Config) *Service {
	return &Service{
		store:       st,
		limiter:     core.NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		locks:       newKeyedMutex(),
		maxFileSize: cfg.MaxFileSize,
	}
}

// Upload parses r as CSV and makes it the session's table. On any error the
// previously stored table is left as it was.
func (s *Service) Upload(ctx context.Context, id, filename string, r io.Reader) (*core.Table, error) {
	if r == nil || filename == "" {
		return nil, ErrNoFile
	}

	logger := logging.WithFields(ctx, "filename", filename)
	start := time.Now()

	var table *core.Table
	err := s.limiter.Do(ctx, func() error {
		t, err := s.parse(r)
		if err != nil {
			return err
		}

		unlock := s.lock(id)
		defer unlock()
		if err := s.store.Save(ctx, id, t); err != nil {
			return fmt.Errorf("save upload: %w", err)
		}
		table = t
		return nil
	})
	if err != nil {
		logger.Warn("upload rejected", "error", err)
		return nil, err
	}

	logger.Info("upload completed",
		"rows", table.RowCount(),
		"columns", table.ColumnCount(),
		"duration", time.Since(start),
	)
	return table, nil
}

func (s *Service) parse(r io.Reader) (*core.Table, error) {
	if s.maxFileSize <= 0 {
		return core.ParseReader(r)
	}

	counter := core.NewCountingReader(io.LimitReader(r, s.maxFileSize+1))
	data, err := io.ReadAll(counter)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if counter.BytesRead > s.maxFileSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	return core.Parse(data)
}

// SortRequest is a sort submitted from a form or the API.
type SortRequest struct {
	Mode      core.SortMode
	Column    string
	Ascending bool
}

// ParseSortRequest builds a SortRequest from form values. The order is
// ascending only when it is "asc"; unknown modes sort by column.
func ParseSortRequest(mode, column, order string) SortRequest {
	return SortRequest{
		Mode:      core.ParseSortMode(mode),
		Column:    column,
		Ascending: order == "asc",
	}
}

func (r SortRequest) spec() core.SortSpec {
	return core.SortSpec{Mode: r.Mode, Column: r.Column, Ascending: r.Ascending}
}

// Sort reorders the session's table and stores the result.
func (s *Service) Sort(ctx context.Context, id string, req SortRequest) (*core.Table, error) {
	unlock := s.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	sorted := core.Sort(t, req.spec())
	if sorted == t {
		return t, nil
	}
	if err := s.store.Save(ctx, id, sorted); err != nil {
		return nil, fmt.Errorf("save sorted table: %w", err)
	}

	logging.FromContext(ctx).Info("table sorted",
		"mode", req.Mode.String(),
		"column", req.Column,
		"ascending", req.Ascending,
	)
	return sorted, nil
}

// AnalyzeRequest selects the columns to describe and the chart style.
type AnalyzeRequest struct {
	Columns []string
	Chart   core.ChartKind
}

// Analysis holds per-column statistics and the matching chart series.
type Analysis struct {
	Stats map[string]core.ColumnStats `json:"stats"`
	Chart core.Chart                  `json:"chart"`
}

// Analyze computes statistics and chart data for the selected columns.
// With no columns selected the result is nil.
func (s *Service) Analyze(ctx context.Context, id string, req AnalyzeRequest) (*Analysis, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(req.Columns) == 0 {
		return nil, nil
	}
	return &Analysis{
		Stats: core.ComputeStats(t, req.Columns),
		Chart: core.BuildChart(t, req.Columns, req.Chart),
	}, nil
}

// Stats computes statistics for the named columns.
func (s *Service) Stats(ctx context.Context, id string, columns []string) (map[string]core.ColumnStats, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.ComputeStats(t, columns), nil
}

// Correlation computes the correlation matrix of the session's table.
func (s *Service) Correlation(ctx context.Context, id string) (*core.CorrelationMatrix, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.Correlate(t), nil
}

// Insights derives insights from the session's table.
func (s *Service) Insights(ctx context.Context, id string) (core.Insights, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return core.Insights{}, err
	}
	return core.ComputeInsights(t), nil
}

// Summary describes the shape of the session's table.
func (s *Service) Summary(ctx context.Context, id string) (core.Summary, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(t), nil
}

// Download is a serialized table ready to send.
type Download struct {
	Filename    string
	Data        []byte
	Fingerprint string
}

// Download serializes the session's table as CSV.
func (s *Service) Download(ctx context.Context, id string) (*Download, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := core.Serialize(t)
	if err != nil {
		return nil, fmt.Errorf("serialize table: %w", err)
	}
	fp, err := core.Fingerprint(t)
	if err != nil {
		return nil, fmt.Errorf("fingerprint table: %w", err)
	}
	return &Download{Filename: DownloadFilename, Data: data, Fingerprint: fp}, nil
}

// Fingerprint returns the fingerprint of the session's table. Stores that
// persist it answer without loading the table.
func (s *Service) Fingerprint(ctx context.Context, id string) (string, error) {
	if fp, ok := s.store.(store.Fingerprinter); ok {
		v, err := fp.Fingerprint(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", core.ErrNoTable
		}
		if err != nil {
			return "", fmt.Errorf("load fingerprint: %w", err)
		}
		return v, nil
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	v, err := core.Fingerprint(t)
	if err != nil {
		return "", fmt.Errorf("fingerprint table: %w", err)
	}
	return v, nil
}

// Reset discards the session's table.
func (s *Service) Reset(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear table: %w", err)
	}
	logging.FromContext(ctx).Info("table reset")
	return nil
}

// View is everything the page shows for a stored table.
type View struct {
	Table          *core.Table
	NumericColumns []string
	Summary        core.Summary
	Correlation    *core.CorrelationMatrix
	Insights       core.Insights
}

// View loads the session's table with its derived display data. It
// returns core.ErrNoTable when nothing has been uploaded.
func (s *Service) View(ctx context.Context, id string) (*View, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{
		Table:          t,
		NumericColumns: core.NumericColumns(t),
		Summary:        core.Summarize(t),
		Correlation:    core.Correlate(t),
		Insights:       core.ComputeInsights(t),
	}, nil
}

// UploadLimiterStatus reports upload slot usage.
func (s *Service) UploadLimiterStatus() core.UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// lock serializes writers of the table stored for id.
func (s *Service) lock(id string) (unlock func()) {
	key := id
	if k, ok := s.store.(store.Keyer); ok {
		key = k.Key(id)
	}
	return s.locks.Lock(key)
}

func (s *Service) load(ctx context.Context, id string) (*core.Table, error) {
	t, err := s.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.ErrNoTable
	}
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	return t, nil
}
