package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zone-match/internal/batch"
	"zone-match/internal/kml"
	"zone-match/internal/loader"
	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/sheet"
	"zone-match/internal/zone"

	"github.com/go-chi/chi/v5"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
const kmlType = "application/vnd.google-earth.kml+xml"

type summary struct {
	Zones    int       `json:"zones"`
	Version  string    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
}

type lookupResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Version string  `json:"version"`
	Label   string  `json:"label"`
	zone.Result
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError：按错误类别映射状态码；未装载数据集为 409，上传过大为 413，其余输入错误为 400
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, zone.ErrNoDataset):
		status = http.StatusConflict
	case errors.As(err, &mbe):
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("content-type", contentType)
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(body)
}

// 文档注释：读取上传内容
// 背景：同时接受原始请求体与 multipart 表单（字段名 file），后者可携带文件名用于推断格式。
// 约束：总大小受 MAX_UPLOAD_MB 限制，超出时返回 *http.MaxBytesError。
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload)
	if strings.HasPrefix(r.Header.Get("content-type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.cfg.MaxUpload); err != nil {
			return nil, "", err
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("form field file: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return data, fh.Filename, err
	}
	data, err := io.ReadAll(r.Body)
	return data, "", err
}

func (s *Server) handleLoadZones(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" && name != "" {
		format = loader.FormatOf(name)
	}
	ds, err := loader.Bytes(format, data)
	if err != nil {
		logger.L().Warn("zones_load_error", "format", format, "err", err)
		writeError(w, err)
		return
	}
	s.holder.Set(ds)
	metrics.DatasetZones.Set(float64(ds.Len()))
	writeJSON(w, http.StatusOK, summary{Zones: ds.Len(), Version: ds.Version(), LoadedAt: ds.LoadedAt()})
}

func (s *Server) handleZonesSummary(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary{Zones: ds.Len(), Version: ds.Version(), LoadedAt: ds.LoadedAt()})
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("bad zone id %q", chi.URLParam(r, "id")))
		return
	}
	z, ok := ds.Zone(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("zone %d not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"polygon_id":    z.ID,
		"square_number": z.SquareNumber,
		"sign_number":   z.SignNumber,
		"coordinates":   z.Ring,
		"area_sqm":      z.AreaSqm,
		"center":        z.Centroid,
	})
}

// 文档注释：单点查询
// 背景：coord=lat,lon（与人工输入一致，纬度在前）或 lat/lon 两个参数；square/sign 为期望值，缺省为空串。
// 约束：结果按数据集版本缓存；命中缓存与直接计算的响应一致。
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	qv := r.URL.Query()
	coord := qv.Get("coord")
	if coord == "" {
		coord = qv.Get("lat") + "," + qv.Get("lon")
	}
	pt, err := batch.ParseLatLon(coord)
	if err != nil {
		writeError(w, err)
		return
	}
	t0 := time.Now()
	q := zone.Query{Point: pt, ExpectedSquare: qv.Get("square"), ExpectedSign: qv.Get("sign")}
	key := lookupKey(ds.Version(), q)
	res, hit := s.cache.get(r.Context(), key)
	if !hit {
		res = ds.Lookup(q)
		s.cache.set(r.Context(), key, res)
	}
	metrics.LookupsTotal.Inc()
	metrics.LookupDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	metrics.LookupCodeTotal.WithLabelValues(strconv.Itoa(res.Outcome.Code)).Inc()
	writeJSON(w, http.StatusOK, lookupResponse{
		Lat:     pt.Lat(),
		Lon:     pt.Lon(),
		Version: ds.Version(),
		Label:   zone.CodeLabel(res.Outcome.Code),
		Result:  res,
	})
}

// runUpload：读取上传的点表并执行第一轮批量查询
func (s *Server) runUpload(w http.ResponseWriter, r *http.Request) (*zone.Dataset, *batch.Report, bool) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	data, _, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	t, err := sheet.ReadPoints(bytes.NewReader(data))
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	l := logger.L()
	rep := batch.Run(r.Context(), ds, t.Header, batch.FromTable(t), logger.Progress(l, s.cfg.ProgressN, "path", r.URL.Path))
	if rep.Err != nil {
		l.Warn("batch_aborted", "run_id", rep.RunID, "err", rep.Err)
		return nil, nil, false
	}
	w.Header().Set("x-run-id", rep.RunID)
	w.Header().Set("x-row-errors", strconv.Itoa(rep.Failed))
	return ds, rep, true
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ds, rep, ok := s.runUpload(w, r)
	if !ok {
		return
	}
	rep.NearestPass(ds)
	header, rows := rep.Table()
	var buf bytes.Buffer
	if err := sheet.WriteTable(&buf, header, rows); err != nil {
		logger.L().Error("batch_write_error", "run_id", rep.RunID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeFile(w, xlsxType, "results.xlsx", buf.Bytes())
}

func (s *Server) handleExportPointsKML(w http.ResponseWriter, r *http.Request) {
	_, rep, ok := s.runUpload(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := kml.WritePoints(&buf, rep.PointMarks()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeFile(w, kmlType, "points.kml", buf.Bytes())
}

func (s *Server) handleExportZonesKML(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	alpha := s.cfg.FillAlpha
	if v := r.URL.Query().Get("alpha"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			writeError(w, fmt.Errorf("alpha %q: want 0..255", v))
			return
		}
		alpha = uint8(n)
	}
	var buf bytes.Buffer
	if err := kml.WriteZones(&buf, ds.Zones(), alpha); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeFile(w, kmlType, "zones.kml", buf.Bytes())
}

func (s *Server) handleExportZonesXLSX(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := sheet.WriteZones(&buf, ds.Zones()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeFile(w, xlsxType, "zones.xlsx", buf.Bytes())
}
