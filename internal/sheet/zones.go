package sheet

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"zone-match/internal/zone"

	"github.com/paulmach/orb"
	"github.com/xuri/excelize/v2"
)

// 区域表列名
const (
	ColPolygonID   = "polygon_id"
	ColSquare      = "square_number"
	ColSign        = "sign_number"
	ColCoordinates = "coordinates"
	ColArea        = "Area"
	ColCenter      = "Center"
)

var zoneHeader = []string{ColPolygonID, ColSquare, ColSign, ColCoordinates, ColArea, ColCenter}

// 文档注释：从 xlsx 读取区域
// 背景：coordinates 列为 JSON 编码的 [[lon,lat],...]；Area/Center 列存在且非空时直接沿用，用于回读先前导出的表而不重新计算。
// 约束：缺少 coordinates 列或任一行 JSON 无法解析时整体拒绝，错误信息给出列名或行号。
func ReadZones(r io.Reader) ([]zone.Source, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.Require(ColCoordinates); err != nil {
		return nil, err
	}
	out := make([]zone.Source, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := t.Line(i)
		s := zone.Source{
			Name:         fmt.Sprintf("row %d", line),
			SquareNumber: t.Cell(row, ColSquare),
			SignNumber:   t.Cell(row, ColSign),
		}
		var ring orb.Ring
		if err := json.Unmarshal([]byte(t.Cell(row, ColCoordinates)), &ring); err != nil {
			return nil, fmt.Errorf("row %d: bad %s: %w", line, ColCoordinates, err)
		}
		s.Ring = ring
		if v := strings.TrimSpace(t.Cell(row, ColArea)); !missing(v) {
			a, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s: %w", line, ColArea, err)
			}
			s.Area = &a
		}
		if v := strings.TrimSpace(t.Cell(row, ColCenter)); !missing(v) {
			var c orb.Point
			if err := json.Unmarshal([]byte(v), &c); err != nil {
				return nil, fmt.Errorf("row %d: bad %s: %w", line, ColCenter, err)
			}
			s.Center = &c
		}
		out = append(out, s)
	}
	return out, nil
}

func missing(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// 文档注释：导出区域为 xlsx
// 背景：与数据集一一对应，coordinates/Center 为 JSON，Area 为数值；回读后编号、环、元数据、面积与质心保持一致。
// 约束：顶点过多、JSON 超出单元格上限的区域直接报错并给出编号，不写出截断的文件。
func WriteZones(w io.Writer, zones []zone.Zone) error {
	rows := make([][]any, 0, len(zones))
	for _, z := range zones {
		coords, err := json.Marshal(z.Ring)
		if err != nil {
			return err
		}
		if len(coords) > excelize.TotalCellChars {
			return fmt.Errorf("zone %d: %d vertices encode to %d characters, over the xlsx cell limit of %d", z.ID, len(z.Ring), len(coords), excelize.TotalCellChars)
		}
		center, err := json.Marshal(z.Centroid)
		if err != nil {
			return err
		}
		rows = append(rows, []any{z.ID, z.SquareNumber, z.SignNumber, string(coords), z.AreaSqm, string(center)})
	}
	return WriteTable(w, zoneHeader, rows)
}
