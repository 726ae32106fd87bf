package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zone-match/internal/config"
	"zone-match/internal/kml"
	"zone-match/internal/sheet"
	"zone-match/internal/zone"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2"><Document>
<Placemark><name>A</name>
<ExtendedData><Data name="square_number"><value>29A</value></Data><Data name="sign_number"><value>2/204</value></Data></ExtendedData>
<Polygon><outerBoundaryIs><LinearRing><coordinates>39,21,0 39,21.01,0 39.01,21.01,0 39.01,21,0 39,21,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
</Placemark>
</Document></kml>`

func testConfig() *config.Config {
	return &config.Config{FillAlpha: 85, MaxUpload: 1 << 20, ProgressN: 100, CacheTTL: time.Minute}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := New(&zone.Holder{}, nil, testConfig())
	return s, s.Routes()
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loadSample(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/zones?format=kml", []byte(sampleKML), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("load zones: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNoDatasetConflict(t *testing.T) {
	_, h := newTestServer(t)
	for _, target := range []string{"/zones", "/lookup?coord=21,39", "/export/zones.kml", "/export/zones.xlsx", "/zones/1"} {
		if rec := do(t, h, http.MethodGet, target, nil, ""); rec.Code != http.StatusConflict {
			t.Errorf("GET %s = %d, want 409", target, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodPost, "/batch", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("POST /batch = %d, want 409", rec.Code)
	}
}

func TestLoadAndSummary(t *testing.T) {
	_, h := newTestServer(t)
	loadSample(t, h)
	rec := do(t, h, http.MethodGet, "/zones", nil, "")
	var sum summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil || sum.Zones != 1 || sum.Version == "" {
		t.Fatalf("summary = %s (%v)", rec.Body.String(), err)
	}
	rec = do(t, h, http.MethodGet, "/zones/1", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"square_number":"29A"`) {
		t.Fatalf("zone 1 = %d %s", rec.Code, rec.Body.String())
	}
	if rec = do(t, h, http.MethodGet, "/zones/2", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("zone 2 = %d", rec.Code)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t)
	bad := `<kml><Document><Placemark><name>x</name><Polygon><outerBoundaryIs><LinearRing><coordinates>1,1 2,2</coordinates></LinearRing></outerBoundaryIs></Polygon></Placemark></Document></kml>`
	if rec := do(t, h, http.MethodPost, "/zones", []byte(bad), ""); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed ring = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/zones?format=csv", []byte("a,b"), ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d", rec.Code)
	}
	big := bytes.Repeat([]byte("x"), 2<<20)
	if rec := do(t, h, http.MethodPost, "/zones", big, ""); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversize = %d", rec.Code)
	}
}

func TestLoadMultipartInfersFormat(t *testing.T) {
	_, h := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "zones.kml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(sampleKML))
	_ = mw.Close()
	if rec := do(t, h, http.MethodPost, "/zones", body.Bytes(), mw.FormDataContentType()); rec.Code != http.StatusOK {
		t.Fatalf("multipart load = %d %s", rec.Code, rec.Body.String())
	}
}

func TestLookup(t *testing.T) {
	s, h := newTestServer(t)
	loadSample(t, h)
	cases := []struct {
		target string
		code   int
	}{
		{"/lookup?coord=21.005,39.005&square=29A&sign=2/204", zone.CodeFull},
		{"/lookup?lat=21.005&lon=39.005&square=29A&sign=0", zone.CodeSquare},
		{"/lookup?coord=21.005,39.005&square=30B", zone.CodeNoMatch},
		{"/lookup?coord=25,45", zone.CodeOutside},
	}
	for _, c := range cases {
		rec := do(t, h, http.MethodGet, c.target, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", c.target, rec.Code, rec.Body.String())
		}
		var resp lookupResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Outcome.Code != c.code {
			t.Errorf("%s: code = %d, want %d", c.target, resp.Outcome.Code, c.code)
		}
		wantNearest := c.code == zone.CodeNoMatch || c.code == zone.CodeOutside
		if (resp.Nearest != nil) != wantNearest {
			t.Errorf("%s: nearest = %+v", c.target, resp.Nearest)
		}
		if resp.Label != zone.CodeLabel(c.code) {
			t.Errorf("%s: label = %q", c.target, resp.Label)
		}
	}
	if s.cache.lru.Len() != len(cases) {
		t.Errorf("lru entries = %d", s.cache.lru.Len())
	}
	first := do(t, h, http.MethodGet, cases[0].target, nil, "").Body.String()
	again := do(t, h, http.MethodGet, cases[0].target, nil, "").Body.String()
	if first != again {
		t.Errorf("cached response differs:\n%s\n%s", first, again)
	}
	for _, bad := range []string{"/lookup?coord=abc", "/lookup?coord=95,10", "/lookup"} {
		if rec := do(t, h, http.MethodGet, bad, nil, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", bad, rec.Code)
		}
	}
}

func pointsXLSX(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := []string{"id", "lat", "lon", "square_number", "sign_number"}
	rows := [][]any{
		{"p1", 21.005, 39.005, "29A", "2/204"},
		{"p2", 25.0, 45.0, "", ""},
		{"p3", "oops", 39.0, "", ""},
	}
	if err := sheet.WriteTable(&buf, header, rows); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBatch(t *testing.T) {
	_, h := newTestServer(t)
	loadSample(t, h)
	rec := do(t, h, http.MethodPost, "/batch", pointsXLSX(t), xlsxType)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("x-run-id") == "" || rec.Header().Get("x-row-errors") != "1" {
		t.Errorf("headers = %v", rec.Header())
	}
	tbl, err := sheet.ReadTable(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	if got := tbl.Cell(tbl.Rows[0], "CMP_Result"); got != "1" {
		t.Errorf("row 1 code = %q", got)
	}
	if got := tbl.Cell(tbl.Rows[1], "CMP_Result"); got != "4" {
		t.Errorf("row 2 code = %q", got)
	}
	if tbl.Cell(tbl.Rows[1], "nearest_zone") == "" || tbl.Cell(tbl.Rows[0], "nearest_zone") != "" {
		t.Errorf("nearest pass applied to wrong rows")
	}
	if tbl.Cell(tbl.Rows[2], "error") == "" {
		t.Errorf("bad row has no error")
	}

	var missing bytes.Buffer
	_ = sheet.WriteTable(&missing, []string{"id", "lat"}, [][]any{{"a", 1.0}})
	if rec := do(t, h, http.MethodPost, "/batch", missing.Bytes(), xlsxType); rec.Code != http.StatusBadRequest {
		t.Errorf("missing column = %d", rec.Code)
	}
}

func TestExports(t *testing.T) {
	_, h := newTestServer(t)
	loadSample(t, h)

	rec := do(t, h, http.MethodGet, "/export/zones.kml?alpha=128", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("zones.kml = %d", rec.Code)
	}
	src, err := kml.Parse(bytes.NewReader(rec.Body.Bytes()))
	if err != nil || len(src) != 1 || src[0].SignNumber != "2/204" {
		t.Fatalf("exported kml reparse = %+v (%v)", src, err)
	}
	if !strings.Contains(rec.Body.String(), "<color>80") {
		t.Errorf("fill alpha not applied")
	}
	if rec := do(t, h, http.MethodGet, "/export/zones.kml?alpha=300", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad alpha = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/export/zones.xlsx", nil, "")
	zs, err := sheet.ReadZones(bytes.NewReader(rec.Body.Bytes()))
	if err != nil || len(zs) != 1 || zs[0].SquareNumber != "29A" {
		t.Fatalf("zones.xlsx = %+v (%v)", zs, err)
	}

	rec = do(t, h, http.MethodPost, "/export/points.kml", pointsXLSX(t), xlsxType)
	if rec.Code != http.StatusOK {
		t.Fatalf("points.kml = %d %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"1 - Full match", "4 - Outside zones", "p1"} {
		if !strings.Contains(body, want) {
			t.Errorf("points.kml missing %q", want)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "zonematch_") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", zone.Result{Outcome: zone.Outcome{Code: 1}})
	c.Set("b", zone.Result{Outcome: zone.Outcome{Code: 2}})
	c.Get("a")
	c.Set("c", zone.Result{Outcome: zone.Outcome{Code: 3}})
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if r, ok := c.Get("a"); !ok || r.Outcome.Code != 1 {
		t.Error("recent entry evicted")
	}
	exp := NewLRU(2, -time.Second)
	exp.Set("x", zone.Result{})
	if _, ok := exp.Get("x"); ok {
		t.Error("expired entry returned")
	}
}
