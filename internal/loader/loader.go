// 包 loader：按格式装载区域数据集（KML/KMZ/xlsx），服务与命令行工具共用
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zone-match/internal/kml"
	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/sheet"
	"zone-match/internal/zone"
)

// 支持的输入格式
const (
	FormatKML  = "kml"
	FormatKMZ  = "kmz"
	FormatXLSX = "xlsx"
)

// FormatOf：按扩展名推断格式，未知扩展名返回空串
func FormatOf(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "kml":
		return FormatKML
	case "kmz":
		return FormatKMZ
	case "xlsx":
		return FormatXLSX
	}
	return ""
}

// 文档注释：从内存数据装载数据集
// 背景：format 为空时按内容嗅探（zip 魔数视为 KMZ，否则 KML）；xlsx 必须显式指定，因为 xlsx 本身也是 zip。
// 约束：任一区域环非法时整体失败，不产生部分数据集。
func Bytes(format string, data []byte) (*zone.Dataset, error) {
	t0 := time.Now()
	var (
		src []zone.Source
		err error
	)
	switch format {
	case FormatXLSX:
		src, err = sheet.ReadZones(bytes.NewReader(data))
	case FormatKMZ:
		src, err = kml.ParseKMZ(data)
	case FormatKML:
		src, err = kml.Parse(bytes.NewReader(data))
	case "":
		src, err = kml.ParseBytes(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	ds, err := zone.Build(src)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = "sniffed"
	}
	metrics.DatasetLoadsTotal.WithLabelValues(format).Inc()
	logger.L().Info("zones_loaded", "format", format, "zones", ds.Len(), "version", ds.Version(), "ms", time.Since(t0).Milliseconds())
	return ds, nil
}

// File：从文件装载，格式由扩展名决定
func File(path string) (*zone.Dataset, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("%s: unknown zone file extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := Bytes(format, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
