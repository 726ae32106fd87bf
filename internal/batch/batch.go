// 包 batch：点批量查询（逐行包含判定与比对，第二轮最近区域兜底）
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"zone-match/internal/kml"
	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/sheet"
	"zone-match/internal/zone"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Row：一条输入行；Values 与表头对齐，其余为按列名取出的字段
type Row struct {
	Line   int
	Values []string
	ID     string
	Lat    string
	Lon    string
	Square string
	Sign   string
}

// RowResult：单行结果；Err 非空时其余字段无意义
type RowResult struct {
	Row     Row
	Point   orb.Point
	Matches []zone.Match
	Outcome zone.Outcome
	Nearest *zone.Nearest
	Err     error
}

// Report：一次批量运行的全部结果
type Report struct {
	RunID   string
	Header  []string
	Results []RowResult
	Failed  int
	// Err 为运行被取消时的上下文错误，已处理的行仍保留
	Err error
}

// Progress：进度回调，done 单调递增
type Progress func(done, total int)

// FromTable：把表格行转换为批量输入，缺省列按空串处理
func FromTable(t *sheet.Table) []Row {
	rows := make([]Row, 0, len(t.Rows))
	for i, v := range t.Rows {
		vals := make([]string, len(t.Header))
		copy(vals, v)
		rows = append(rows, Row{
			Line:   t.Line(i),
			Values: vals,
			ID:     t.Cell(v, sheet.ColID),
			Lat:    t.Cell(v, sheet.ColLat),
			Lon:    t.Cell(v, sheet.ColLon),
			Square: t.Cell(v, sheet.ColSquare),
			Sign:   t.Cell(v, sheet.ColSign),
		})
	}
	return rows
}

// ParseLatLon：解析用户输入的 "lat, lon"（纬度在前），返回 (经度, 纬度) 点
func ParseLatLon(text string) (orb.Point, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("coordinate %q: want \"lat, lon\"", text)
	}
	return parsePoint(parts[0], parts[1])
}

func parsePoint(latS, lonS string) (orb.Point, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("bad latitude %q", latS)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return orb.Point{}, fmt.Errorf("bad longitude %q", lonS)
	}
	return orb.Point{lon, lat}, nil
}

// 文档注释：批量包含判定与比对（第一轮）
// 背景：顺序逐行处理；单行经纬度无法解析时记录该行错误并继续，不中断整批。
// 约束：数据集只读，调用方可在多个批次间共享；ctx 取消时停止并在 Report.Err 返回原因。
func Run(ctx context.Context, ds *zone.Dataset, header []string, rows []Row, progress Progress) *Report {
	rep := &Report{RunID: uuid.NewString(), Header: header, Results: make([]RowResult, 0, len(rows))}
	l := logger.L().With("run_id", rep.RunID)
	t0 := time.Now()
	l.Info("batch_begin", "rows", len(rows), "zones", ds.Len())
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			rep.Err = err
			l.Warn("batch_canceled", "done", i, "err", err)
			break
		}
		res := RowResult{Row: row}
		pt, err := parsePoint(row.Lat, row.Lon)
		if err != nil {
			res.Err = fmt.Errorf("row %d: %w", row.Line, err)
			rep.Failed++
			metrics.BatchRowErrorsTotal.Inc()
			l.Debug("batch_row_error", "line", row.Line, "err", err)
		} else {
			res.Point = pt
			res.Matches = ds.Resolve(pt)
			res.Outcome = zone.Classify(zone.Query{Point: pt, ExpectedSquare: row.Square, ExpectedSign: row.Sign}, res.Matches)
			metrics.LookupCodeTotal.WithLabelValues(strconv.Itoa(res.Outcome.Code)).Inc()
		}
		metrics.BatchRowsTotal.Inc()
		rep.Results = append(rep.Results, res)
		if progress != nil {
			progress(i+1, len(rows))
		}
	}
	l.Info("batch_done", "rows", len(rep.Results), "failed", rep.Failed, "ms", time.Since(t0).Milliseconds())
	return rep
}

// 文档注释：最近区域兜底（第二轮）
// 背景：只对代码 3/4 的行计算质心最近区域，其余行保持空值。
func (r *Report) NearestPass(ds *zone.Dataset) int {
	n := 0
	for i := range r.Results {
		res := &r.Results[i]
		if res.Err != nil {
			continue
		}
		if res.Outcome.Code != zone.CodeNoMatch && res.Outcome.Code != zone.CodeOutside {
			continue
		}
		if near, ok := ds.Nearest(res.Point); ok {
			res.Nearest = &near
			n++
		}
	}
	logger.L().Debug("batch_nearest_done", "run_id", r.RunID, "rows", n)
	return n
}

// Errors：逐行错误汇总
func (r *Report) Errors() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// compactJSON：紧凑 JSON，不转义 HTML 字符，非 ASCII 原样保留
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

func boolCell(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// 文档注释：结果表
// 背景：输入列原样保留（经纬度解析成功时写为数值），其后追加结果列；不适用的单元格留空。
func (r *Report) Table() ([]string, [][]any) {
	header := append(append([]string{}, r.Header...), sheet.ResultColumns...)
	latCol, lonCol := indexOf(r.Header, sheet.ColLat), indexOf(r.Header, sheet.ColLon)
	rows := make([][]any, 0, len(r.Results))
	for _, res := range r.Results {
		row := make([]any, 0, len(header))
		for i, v := range res.Row.Values {
			switch {
			case res.Err == nil && i == latCol:
				row = append(row, res.Point.Lat())
			case res.Err == nil && i == lonCol:
				row = append(row, res.Point.Lon())
			default:
				row = append(row, v)
			}
		}
		for len(row) < len(r.Header) {
			row = append(row, nil)
		}
		if res.Err != nil {
			row = append(row, nil, nil, nil, nil, nil, nil, nil, res.Err.Error())
			rows = append(rows, row)
			continue
		}
		var dist, near any
		if res.Nearest != nil {
			dist = math.Round(res.Nearest.DistanceM*100) / 100
			near = compactJSON(zone.Match{ZoneID: res.Nearest.ZoneID, SquareNumber: res.Nearest.SquareNumber, SignNumber: res.Nearest.SignNumber})
		}
		row = append(row,
			len(res.Matches),
			compactJSON(res.Matches),
			boolCell(res.Outcome.SquareMatch),
			boolCell(res.Outcome.SignMatch),
			res.Outcome.Code,
			dist,
			near,
			nil,
		)
		rows = append(rows, row)
	}
	return header, rows
}

// PointMarks：转换为 KML 点结果（错误行跳过）
func (r *Report) PointMarks() []kml.PointMark {
	out := make([]kml.PointMark, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Err != nil {
			continue
		}
		out = append(out, kml.PointMark{
			ID:         res.Row.ID,
			Point:      res.Point,
			Square:     res.Row.Square,
			Sign:       res.Row.Sign,
			MatchCount: len(res.Matches),
			Code:       res.Outcome.Code,
		})
	}
	return out
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
