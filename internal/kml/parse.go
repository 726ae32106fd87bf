// 包 kml：KML/KMZ 区域读取与区域、点结果导出
package kml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"zone-match/internal/zone"

	"github.com/PuerkitoBio/goquery"
	"github.com/paulmach/orb"
	"golang.org/x/text/unicode/norm"
)

// 描述表格中的字段标签（原始数据为阿拉伯语，兼容英文）
var (
	squareLabels = []string{"رقم المربع", "square number", "square_number"}
	signLabels   = []string{"رقم الشاخص", "sign number", "sign_number"}
)

type placemark struct {
	Name        string          `xml:"name"`
	Description string          `xml:"description"`
	Extended    extendedData    `xml:"ExtendedData"`
	Polygons    []polygon       `xml:"Polygon"`
	Multi       []multiGeometry `xml:"MultiGeometry"`
}

type extendedData struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	Schema []struct {
		Simple []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

type polygon struct {
	Outer string `xml:"outerBoundaryIs>LinearRing>coordinates"`
}

type multiGeometry struct {
	Polygons []polygon      `xml:"Polygon"`
	Multi    []multiGeometry `xml:"MultiGeometry"`
}

func (m multiGeometry) flatten(out []polygon) []polygon {
	out = append(out, m.Polygons...)
	for _, c := range m.Multi {
		out = c.flatten(out)
	}
	return out
}

// 文档注释：解析 KML 文档中的全部区域
// 背景：每个 Placemark 下的每个 Polygon（含 MultiGeometry 内）各产生一条记录，仅取外环；元数据优先取 ExtendedData，缺失字段再回落到描述中的 HTML 表格。
// 约束：坐标无法解析或环少于 3 个点时整体失败，错误信息带 Placemark 名称；不做拓扑修复。
func Parse(r io.Reader) ([]zone.Source, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	var out []zone.Source
	n := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kml decode: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm placemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, fmt.Errorf("kml placemark %d: %w", n+1, err)
		}
		n++
		label := strings.TrimSpace(pm.Name)
		if label == "" {
			label = fmt.Sprintf("#%d", n)
		}
		square, sign := pm.metadata()
		polys := pm.Polygons
		for _, m := range pm.Multi {
			polys = m.flatten(polys)
		}
		for _, p := range polys {
			ring, err := ParseCoordinates(p.Outer)
			if err != nil {
				return nil, fmt.Errorf("placemark %s: %w", label, err)
			}
			if len(ring) < 3 {
				return nil, fmt.Errorf("placemark %s: %w: %d points", label, zone.ErrMalformedRing, len(ring))
			}
			out = append(out, zone.Source{Name: label, SquareNumber: square, SignNumber: sign, Ring: ring})
		}
	}
	return out, nil
}

func (pm placemark) metadata() (square, sign string) {
	var haveSquare, haveSign bool
	set := func(name, value string) {
		switch strings.TrimSpace(name) {
		case "square_number":
			square, haveSquare = strings.TrimSpace(value), true
		case "sign_number":
			sign, haveSign = strings.TrimSpace(value), true
		}
	}
	for _, d := range pm.Extended.Data {
		set(d.Name, d.Value)
	}
	for _, sd := range pm.Extended.Schema {
		for _, s := range sd.Simple {
			set(s.Name, s.Value)
		}
	}
	if haveSquare && haveSign {
		return square, sign
	}
	tSquare, tSign := descriptionTable(pm.Description)
	if !haveSquare {
		square = tSquare
	}
	if !haveSign {
		sign = tSign
	}
	return square, sign
}

// descriptionTable：从描述 HTML 的 td 序列中读取“标签 → 下一格”对，后出现者覆盖先出现者
func descriptionTable(desc string) (square, sign string) {
	if strings.TrimSpace(desc) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(desc))
	if err != nil {
		return "", ""
	}
	var cells []string
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(s.Text()))
	})
	for i := 0; i+1 < len(cells); i++ {
		switch {
		case isLabel(cells[i], squareLabels):
			square = cells[i+1]
		case isLabel(cells[i], signLabels):
			sign = cells[i+1]
		}
	}
	return square, sign
}

func isLabel(s string, labels []string) bool {
	s = normLabel(s)
	for _, l := range labels {
		if s == normLabel(l) {
			return true
		}
	}
	return false
}

func normLabel(s string) string {
	s = norm.NFC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseCoordinates：解析 "lon,lat[,alt] lon,lat[,alt] ..." 坐标串
func ParseCoordinates(text string) (orb.Ring, error) {
	fields := strings.Fields(text)
	ring := make(orb.Ring, 0, len(fields))
	for _, tok := range fields {
		parts := strings.Split(tok, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("bad coordinate token %q", tok)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude in %q: %w", tok, err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude in %q: %w", tok, err)
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring, nil
}

// 文档注释：解析 KMZ（zip 包内首个 .kml 文件）
func ParseKMZ(data []byte) ([]zone.Source, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("kmz open: %w", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("kmz entry %s: %w", f.Name, err)
		}
		defer rc.Close()
		return Parse(rc)
	}
	return nil, errors.New("kmz: no .kml entry")
}

// ParseBytes：按 zip 魔数区分 KMZ 与 KML
func ParseBytes(data []byte) ([]zone.Source, error) {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return ParseKMZ(data)
	}
	return Parse(bytes.NewReader(data))
}

func ParseFile(path string) ([]zone.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".kmz") {
		return ParseKMZ(data)
	}
	return ParseBytes(data)
}
