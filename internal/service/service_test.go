package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/tabular/internal/core"
	"github.com/JonMunkholm/tabular/internal/store"
)

const sample = "a,b\n1,2\n3,x\n5,4\n"

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return New(st, Config{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second}), st
}

func upload(t *testing.T, s *Service, id, csv string) *core.Table {
	t.Helper()
	tbl, err := s.Upload(context.Background(), id, "data.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	return tbl
}

// failingStore fails every Save after the first n.
type failingStore struct {
	*store.Memory
	mu    sync.Mutex
	saves int
	limit int
}

func (f *failingStore) Save(ctx context.Context, id string, t *core.Table) error {
	f.mu.Lock()
	f.saves++
	over := f.saves > f.limit
	f.mu.Unlock()
	if over {
		return &store.StorageError{Backend: "test", Op: "save", Err: errors.New("disk full")}
	}
	return f.Memory.Save(ctx, id, t)
}

func TestUpload(t *testing.T) {
	s, st := newTestService(t)

	tbl := upload(t, s, "sess", sample)

	if tbl.RowCount() != 3 || tbl.ColumnCount() != 2 {
		t.Errorf("shape = %dx%d, want 3x2", tbl.RowCount(), tbl.ColumnCount())
	}
	if st.Len() != 1 {
		t.Errorf("stored sessions = %d, want 1", st.Len())
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		wantErr  error
	}{
		{name: "no file name", filename: "", body: sample, wantErr: ErrNoFile},
		{name: "header only", filename: "x.csv", body: "a,b\n", wantErr: core.ErrEmptyInput},
		{name: "empty payload", filename: "x.csv", body: "", wantErr: core.ErrNoColumns},
		{name: "ragged rows", filename: "x.csv", body: "a,b\n1,2,3\n", wantErr: core.ErrMalformedCSV},
		{name: "too large", filename: "x.csv", body: "a\n" + strings.Repeat("1\n", 600), wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			s := New(st, Config{MaxFileSize: 1000, MaxConcurrent: 1, MaxWaitTime: time.Second})
			ctx := context.Background()

			previous := upload(t, s, "sess", sample)

			_, err := s.Upload(ctx, "sess", tt.filename, strings.NewReader(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
			}

			got, err := st.Load(ctx, "sess")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !got.Equal(previous) {
				t.Error("failed upload changed the stored table")
			}
		})
	}
}

func TestUpload_StorageFailureKeepsPrevious(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), limit: 1}
	s := New(st, Config{})
	ctx := context.Background()

	previous := upload(t, s, "sess", sample)

	_, err := s.Upload(ctx, "sess", "new.csv", strings.NewReader("z\n9\n"))
	var se *store.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Upload() error = %v, want StorageError", err)
	}
	if code := core.MapError(err).Code; code != "STO001" {
		t.Errorf("MapError code = %q, want STO001", code)
	}

	got, _ := st.Load(ctx, "sess")
	if !got.Equal(previous) {
		t.Error("storage failure changed the stored table")
	}
}

func TestSort(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()
	upload(t, s, "sess", sample)

	sorted, err := s.Sort(ctx, "sess", ParseSortRequest("column", "a", "desc"))
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	if !slices.Equal(sorted.Index, []int{2, 1, 0}) {
		t.Errorf("Index = %v, want [2 1 0]", sorted.Index)
	}

	stored, _ := st.Load(ctx, "sess")
	if !stored.Equal(sorted) {
		t.Error("sorted table was not stored")
	}

	// An unknown column leaves the table as it is.
	again, err := s.Sort(ctx, "sess", ParseSortRequest("column", "nope", "asc"))
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	if !again.Equal(sorted) {
		t.Error("unknown column changed the table")
	}
}

func TestSort_NoTable(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Sort(context.Background(), "sess", SortRequest{Column: "a"})
	if !errors.Is(err, core.ErrNoTable) {
		t.Errorf("Sort() error = %v, want ErrNoTable", err)
	}
}

func TestSort_StorageFailureKeepsPrevious(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), limit: 1}
	s := New(st, Config{})
	ctx := context.Background()
	previous := upload(t, s, "sess", sample)

	if _, err := s.Sort(ctx, "sess", SortRequest{Column: "a"}); err == nil {
		t.Fatal("Sort() expected error")
	}
	got, _ := st.Load(ctx, "sess")
	if !got.Equal(previous) {
		t.Error("failed sort changed the stored table")
	}
}

func TestParseSortRequest(t *testing.T) {
	tests := []struct {
		mode, column, order string
		want                SortRequest
	}{
		{"column", "a", "asc", SortRequest{Mode: core.SortByColumn, Column: "a", Ascending: true}},
		{"column", "a", "desc", SortRequest{Mode: core.SortByColumn, Column: "a"}},
		{"", "a", "", SortRequest{Mode: core.SortByColumn, Column: "a"}},
		{"row_max", "", "asc", SortRequest{Mode: core.SortByRowMax, Ascending: true}},
		{"weird", "b", "ASC", SortRequest{Mode: core.SortByColumn, Column: "b"}},
	}
	for _, tt := range tests {
		if got := ParseSortRequest(tt.mode, tt.column, tt.order); got != tt.want {
			t.Errorf("ParseSortRequest(%q, %q, %q) = %+v, want %+v", tt.mode, tt.column, tt.order, got, tt.want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	upload(t, s, "sess", sample)

	got, err := s.Analyze(ctx, "sess", AnalyzeRequest{Columns: []string{"a", "b"}, Chart: core.ChartLine})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Stats["a"].Average != 3 || got.Stats["b"].Lowest != 2 {
		t.Errorf("Stats = %+v", got.Stats)
	}
	if got.Chart.Kind != core.ChartLine || len(got.Chart.Values) != 3 {
		t.Errorf("Chart = %+v", got.Chart)
	}

	none, err := s.Analyze(ctx, "sess", AnalyzeRequest{})
	if err != nil || none != nil {
		t.Errorf("Analyze() with no columns = %+v, %v; want nil, nil", none, err)
	}
}

func TestReadOperations_NoTable(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	checks := map[string]func() error{
		"analyze": func() error { _, err := s.Analyze(ctx, "x", AnalyzeRequest{Columns: []string{"a"}}); return err },
		"stats":   func() error { _, err := s.Stats(ctx, "x", []string{"a"}); return err },
		"corr":    func() error { _, err := s.Correlation(ctx, "x"); return err },
		"insight": func() error { _, err := s.Insights(ctx, "x"); return err },
		"summary": func() error { _, err := s.Summary(ctx, "x"); return err },
		"dl":      func() error { _, err := s.Download(ctx, "x"); return err },
		"view":    func() error { _, err := s.View(ctx, "x"); return err },
	}
	for name, fn := range checks {
		if err := fn(); !errors.Is(err, core.ErrNoTable) {
			t.Errorf("%s: error = %v, want ErrNoTable", name, err)
		}
	}
}

func TestDownload(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	upload(t, s, "sess", sample)
	if _, err := s.Sort(ctx, "sess", SortRequest{Column: "a"}); err != nil {
		t.Fatalf("Sort() error = %v", err)
	}

	dl, err := s.Download(ctx, "sess")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if dl.Filename != "processed_data.csv" {
		t.Errorf("Filename = %q", dl.Filename)
	}
	if string(dl.Data) != "a,b\n5,4\n3,x\n1,2\n" {
		t.Errorf("Data = %q", dl.Data)
	}
	if len(dl.Fingerprint) != 64 {
		t.Errorf("Fingerprint = %q", dl.Fingerprint)
	}
}

func TestReset(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()
	upload(t, s, "sess", sample)
	upload(t, s, "other", sample)

	if err := s.Reset(ctx, "sess"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := s.View(ctx, "sess"); !errors.Is(err, core.ErrNoTable) {
		t.Errorf("View() after reset error = %v, want ErrNoTable", err)
	}
	if st.Len() != 1 {
		t.Errorf("other sessions should be untouched, stored = %d", st.Len())
	}
}

func TestView(t *testing.T) {
	s, _ := newTestService(t)
	upload(t, s, "sess", "a,b,c\n1,,x\n2,NA,y\n3,4,z\n")

	v, err := s.View(context.Background(), "sess")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if !slices.Equal(v.NumericColumns, []string{"a", "b"}) {
		t.Errorf("NumericColumns = %v", v.NumericColumns)
	}
	if v.Summary.Missing != 2 {
		t.Errorf("Summary.Missing = %d, want 2", v.Summary.Missing)
	}
	if v.Insights.MostMissing == nil || v.Insights.MostMissing.Column != "b" {
		t.Errorf("MostMissing = %+v, want b", v.Insights.MostMissing)
	}
	if len(v.Correlation.Columns) != 2 {
		t.Errorf("Correlation columns = %v", v.Correlation.Columns)
	}
}

func TestConcurrentSortsAreSerialized(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()
	upload(t, s, "sess", "v\n3\n1\n2\n5\n4\n")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(asc bool) {
			defer wg.Done()
			if _, err := s.Sort(ctx, "sess", SortRequest{Column: "v", Ascending: asc}); err != nil {
				t.Errorf("Sort() error = %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	got, _ := st.Load(ctx, "sess")
	if err := got.Validate(); err != nil {
		t.Fatalf("stored table invalid: %v", err)
	}
	if got.RowCount() != 5 {
		t.Errorf("RowCount = %d, want 5", got.RowCount())
	}
	if n := s.locks.size(); n != 0 {
		t.Errorf("lock entries left = %d, want 0", n)
	}
}

func TestUploadLimiterStatus(t *testing.T) {
	s, _ := newTestService(t)
	status := s.UploadLimiterStatus()
	if status.MaxConcurrent != 2 || status.Active != 0 {
		t.Errorf("status = %+v", status)
	}
	if err := s.WaitForUploads(context.Background()); err != nil {
		t.Errorf("WaitForUploads() error = %v", err)
	}
}

// gatedSingle blocks Loads for one session until release is closed.
type gatedSingle struct {
	*store.Single
	session string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSingle) Load(ctx context.Context, id string) (*core.Table, error) {
	if id == g.session {
		close(g.entered)
		<-g.release
	}
	return g.Single.Load(ctx, id)
}

func TestSharedSlotWritersAreSerialized(t *testing.T) {
	ctx := context.Background()
	st := &gatedSingle{
		Single:  store.NewSingle(),
		session: "sess-a",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(st, Config{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second})
	upload(t, s, "sess-a", "a\n3\n1\n2\n")

	sorted := make(chan error, 1)
	go func() {
		_, err := s.Sort(ctx, "sess-a", SortRequest{Column: "a", Ascending: true})
		sorted <- err
	}()
	<-st.entered

	uploaded := make(chan error, 1)
	go func() {
		_, err := s.Upload(ctx, "sess-b", "new.csv", strings.NewReader("z\n9\n"))
		uploaded <- err
	}()
	// Give the upload a chance to overtake the sort if writers of the
	// shared slot were not serialized.
	time.Sleep(50 * time.Millisecond)
	close(st.release)

	if err := <-sorted; err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	if err := <-uploaded; err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	got, err := st.Single.Load(ctx, "anyone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !slices.Equal(got.Names(), []string{"z"}) {
		t.Errorf("stored columns = %v, want [z]: a sort overwrote a later upload", got.Names())
	}
}

// fingerprintStore persists a fixed fingerprint and counts table loads.
type fingerprintStore struct {
	*store.Memory
	fingerprint string
	loads       int
}

func (f *fingerprintStore) Load(ctx context.Context, id string) (*core.Table, error) {
	f.loads++
	return f.Memory.Load(ctx, id)
}

func (f *fingerprintStore) Fingerprint(ctx context.Context, id string) (string, error) {
	if _, err := f.Memory.Load(ctx, id); err != nil {
		return "", err
	}
	return f.fingerprint, nil
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()

	t.Run("stored", func(t *testing.T) {
		st := &fingerprintStore{Memory: store.NewMemory(), fingerprint: "stored"}
		s := New(st, Config{MaxConcurrent: 1, MaxWaitTime: time.Second})
		upload(t, s, "sess", sample)

		got, err := s.Fingerprint(ctx, "sess")
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if got != "stored" {
			t.Errorf("Fingerprint() = %q, want the stored value", got)
		}
		if st.loads != 0 {
			t.Errorf("table loaded %d times, want 0", st.loads)
		}

		_, err = s.Fingerprint(ctx, "other")
		if !errors.Is(err, core.ErrNoTable) {
			t.Errorf("Fingerprint(other) error = %v, want ErrNoTable", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		st, err := store.OpenSQLite(ctx, ":memory:")
		if err != nil {
			t.Fatalf("OpenSQLite() error = %v", err)
		}
		s := New(st, Config{MaxConcurrent: 1, MaxWaitTime: time.Second})
		defer s.Close()
		upload(t, s, "sess", sample)
		if _, err := s.Sort(ctx, "sess", SortRequest{Column: "a"}); err != nil {
			t.Fatalf("Sort() error = %v", err)
		}

		got, err := s.Fingerprint(ctx, "sess")
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		dl, err := s.Download(ctx, "sess")
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if got != dl.Fingerprint {
			t.Errorf("stored fingerprint %q != download fingerprint %q", got, dl.Fingerprint)
		}
	})

	t.Run("computed", func(t *testing.T) {
		s, _ := newTestService(t)
		upload(t, s, "sess", sample)

		got, err := s.Fingerprint(ctx, "sess")
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		want, _ := core.Fingerprint(mustTable(t, sample))
		if got != want {
			t.Errorf("Fingerprint() = %q, want %q", got, want)
		}

		if _, err := s.Fingerprint(ctx, "other"); !errors.Is(err, core.ErrNoTable) {
			t.Errorf("Fingerprint(other) error = %v, want ErrNoTable", err)
		}
	})
}

func mustTable(t *testing.T, csv string) *core.Table {
	t.Helper()
	tbl, err := core.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tbl
}
