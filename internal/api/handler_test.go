package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"effcurve/internal/catalog"
	"effcurve/internal/chart"
	"effcurve/internal/exporter"
	"effcurve/internal/loader"
	"effcurve/internal/repository"
	"effcurve/internal/testutil"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Handler, []loader.Source) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	names := []string{testutil.ReferenceName(25000), testutil.ReferenceName(50000)}
	testutil.WriteWorkbook(t, dir, names[0], testutil.Reference(25000))
	testutil.WriteWorkbook(t, dir, names[1], testutil.Reference(50000))
	sources := loader.SourcesIn(dir, names)

	repo := repository.New(sources, repository.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { _ = repo.Close() })

	h := NewHandler(repo, catalog.Default(), 0)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, h, sources
}

func doRequest(t *testing.T, r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestGetChart_DefaultSelection(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/chart", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var resp ChartResponse
	decode(t, w, &resp)
	if resp.State != StateRendered {
		t.Fatalf("state = %q", resp.State)
	}
	if resp.Selection.Q != 25000 || resp.Selection.LeadTime != 0 || len(resp.Selection.Methods) != 1 || resp.Selection.Methods[0] != "II" {
		t.Errorf("selection = %+v", resp.Selection)
	}
	if resp.Points != 3 {
		t.Errorf("points = %d, want 3", resp.Points)
	}
	layout, _ := resp.Figure["layout"].(map[string]any)
	title, _ := layout["title"].(map[string]any)
	if title["text"] != "Efficiency Curves for Q = 25000, L = 0" {
		t.Errorf("title = %v", layout["title"])
	}
}

func TestGetChart_MultipleMethods(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/chart?q=50000&l=1&methods=V&methods=I,VII", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp ChartResponse
	decode(t, w, &resp)
	if resp.Points != 9 {
		t.Errorf("points = %d, want 9", resp.Points)
	}
	data, _ := resp.Figure["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("traces = %d", len(data))
	}
	first, _ := data[0].(map[string]any)
	if first["name"] != "V" {
		t.Errorf("first trace = %v, want V", first["name"])
	}
}

func TestGetChart_NoSelection(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/chart?q=25000&l=0&methods=", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ChartResponse
	decode(t, w, &resp)
	if resp.State != StateNoSelection || resp.Message != chart.NoSelectionMessage {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Figure != nil {
		t.Error("figure should be omitted")
	}
}

func TestGetChart_InvalidInput(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for _, target := range []string{
		"/api/chart?q=12345",
		"/api/chart?q=abc",
		"/api/chart?l=2",
		"/api/chart?methods=VIII",
		"/api/chart?methods=II,II",
	} {
		w := doRequest(t, r, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestGetChart_MissingSourceIs500(t *testing.T) {
	r, _, sources := newTestRouter(t)
	if err := os.Remove(sources[1].Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	w := doRequest(t, r, http.MethodGet, "/api/chart", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestGetChartPNG(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/chart.png?methods=II,III&width=640&height=400", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	w = doRequest(t, r, http.MethodGet, "/api/chart.png?methods=", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("empty selection status = %d, want 204", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/chart.png?width=5", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad width status = %d, want 400", w.Code)
	}
}

func TestGetStatusAndReload(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/status", nil)
	var status StatusResponse
	decode(t, w, &status)
	if !status.Loaded || status.Rows != 84 || status.Loads != 1 || len(status.Sources) != 2 {
		t.Fatalf("status = %+v", status)
	}

	w = doRequest(t, r, http.MethodPost, "/api/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}
	var reloaded struct {
		DatasetID string `json:"datasetId"`
		Loads     int    `json:"loads"`
	}
	decode(t, w, &reloaded)
	if reloaded.Loads != 2 || reloaded.DatasetID == status.DatasetID {
		t.Errorf("reload = %+v, previous dataset %s", reloaded, status.DatasetID)
	}
}

func TestReload_FailureIs500(t *testing.T) {
	r, _, sources := newTestRouter(t)
	if err := os.Remove(sources[0].Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	w := doRequest(t, r, http.MethodPost, "/api/reload", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/status", nil)
	var status StatusResponse
	decode(t, w, &status)
	if status.Loaded || status.Error == "" {
		t.Errorf("status = %+v", status)
	}
}

func TestGetCatalog(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/catalog", nil)
	var cat catalog.Catalog
	decode(t, w, &cat)
	if len(cat.Methods) != 7 || cat.Methods[0].Label != "I" || len(cat.DemandQuantities) != 2 {
		t.Errorf("catalog = %+v", cat)
	}
}

func TestListCombinations(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/combinations", nil)
	var resp struct {
		Items []CombinationItem `json:"items"`
		Total int               `json:"total"`
	}
	decode(t, w, &resp)
	if resp.Total != 28 {
		t.Fatalf("total = %d, want 28", resp.Total)
	}
	first := resp.Items[0]
	if first.Q != 25000 || first.L != 0 || first.Method != "I" || first.Rows != 3 {
		t.Errorf("first = %+v", first)
	}
}

func TestExportAndDownload(t *testing.T) {
	r, h, _ := newTestRouter(t)

	body := []byte(`{"q":25000,"l":1,"methods":["II","IV"]}`)
	w := doRequest(t, r, http.MethodPost, "/api/export", body)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", w.Code, w.Body.String())
	}
	var resp ExportResponse
	decode(t, w, &resp)
	if resp.Token == "" || resp.Points != 6 || resp.Filename != "efficiency-curves-Q25000-L1.xlsx" {
		t.Fatalf("resp = %+v", resp)
	}

	w = doRequest(t, r, http.MethodGet, resp.DownloadURL, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content-type = %q", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open downloaded workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exporter.SheetTraces)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 7 {
		t.Errorf("rows = %d, want header + 6", len(rows))
	}

	// 一次性链接
	w = doRequest(t, r, http.MethodGet, resp.DownloadURL, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second download status = %d, want 404", w.Code)
	}
	if h.downloads.len() != 0 {
		t.Errorf("downloads left = %d", h.downloads.len())
	}
}

func TestExport_Rejects(t *testing.T) {
	r, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"q":`},
		{"no methods", `{"q":25000,"l":0,"methods":[]}`},
		{"unknown q", `{"q":1,"l":0,"methods":["II"]}`},
	}
	for _, tt := range tests {
		w := doRequest(t, r, http.MethodPost, "/api/export", []byte(tt.body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, w.Code)
		}
	}
}

func TestExportDownloadStore_Expiry(t *testing.T) {
	t.Parallel()

	s := newExportDownloadStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, expiresAt := s.put([]byte("x"), "a.xlsx", time.Minute)
	if !expiresAt.Equal(now.Add(time.Minute)) {
		t.Errorf("expiresAt = %v", expiresAt)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := s.take(token); ok {
		t.Fatal("expired token should not be served")
	}
	if s.len() != 0 {
		t.Errorf("expired item not purged")
	}
}

func TestReload_InFlightFigureStillBuilds(t *testing.T) {
	r, h, _ := newTestRouter(t)

	// 模拟请求已取得数据集、尚未完成查询时收到 reload
	ds, err := h.repo.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w := doRequest(t, r, http.MethodPost, "/api/reload", nil); w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}

	fig, err := chart.Build(ds, h.catalog, chart.DefaultSelection(h.catalog))
	if err != nil {
		t.Fatalf("build on dataset held across reload: %v", err)
	}
	if fig.PointCount() != 3 {
		t.Errorf("points = %d, want 3", fig.PointCount())
	}
}
