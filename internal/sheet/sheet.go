// 包 sheet：xlsx 表格读写（区域表与点批量表）
package sheet

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// MissingColumnError：缺少必需列，装载整体拒绝
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q is missing", e.Column)
}

// Table：首个工作表的表头与数据行（原始单元格文本）
type Table struct {
	Header []string
	Rows   [][]string
	// Lines 为每个数据行在工作表中的行号（从 1 起，表头为第 1 行），跳过的空白行不占位
	Lines  []int
	index  map[string]int
}

// Line：第 i 个数据行的工作表行号；未记录时按紧邻表头推算
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Col：列下标，不存在返回 -1
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Require：检查必需列
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if t.Col(n) < 0 {
			return &MissingColumnError{Column: n}
		}
	}
	return nil
}

// Cell：越界（行尾空白被截断）时返回空串
func (t *Table) Cell(row []string, name string) string {
	i := t.Col(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// 文档注释：读取首个工作表
// 背景：使用原始单元格值（不套用数字格式），保证 "007" 与 "2/204" 等按字面比较；完全空白的行被跳过。
// 约束：表头去除首尾空白；重复表头以第一次出现为准。
func ReadTable(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	t := &Table{index: map[string]int{}}
	if len(rows) == 0 {
		return t, nil
	}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		t.Header = append(t.Header, h)
		if _, dup := t.index[h]; !dup && h != "" {
			t.index[h] = i
		}
	}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, i+2)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// 文档注释：写出单工作表
// 背景：nil 单元格留空；float64 以最短可还原精度写入，回读得到同一数值。
// 约束：excelize 会把超过 TotalCellChars 的字符串静默截断，这里提前拒绝，避免写出无法回读的文件。
func WriteTable(w io.Writer, header []string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			if s, ok := v.(string); ok && utf8.RuneCountInString(s) > excelize.TotalCellChars {
				col := ""
				if j < len(header) {
					col = header[j]
				}
				return fmt.Errorf("row %d column %q: %d characters exceed the xlsx cell limit of %d", i+2, col, utf8.RuneCountInString(s), excelize.TotalCellChars)
			}
		}
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := row
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}
