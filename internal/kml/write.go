package kml

import (
	"fmt"
	"image/color"
	"io"
	"math/rand"
	"strconv"

	"zone-match/internal/zone"

	"github.com/paulmach/orb"
	gokml "github.com/twpayne/go-kml/v3"
)

// 点结果颜色：绿/黄/橙/红 对应代码 1..4
var codeColors = map[int]color.RGBA{
	zone.CodeFull:    {R: 0x00, G: 0xff, B: 0x00, A: 0xff},
	zone.CodeSquare:  {R: 0xff, G: 0xff, B: 0x00, A: 0xff},
	zone.CodeNoMatch: {R: 0xff, G: 0xa5, B: 0x00, A: 0xff},
	zone.CodeOutside: {R: 0xff, G: 0x00, B: 0x00, A: 0xff},
}

// CodeColor：分类代码对应的图标颜色，未知代码为白色
func CodeColor(code int) color.RGBA {
	if c, ok := codeColors[code]; ok {
		return c
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// 文档注释：随机区域颜色
// 背景：导出时每个区域一种颜色便于肉眼区分；未设置随机种子，结果不可复现，测试只校验结构。
// 返回：填充色（alpha 为入参）与边线色（alpha 固定 ff），两者 RGB 相同。
// 约束：按原样写入各通道，不做预乘；color.RGBA 按分量展开，写出的 aabbggrr 与此一致。
func RandomColor(fillAlpha uint8) (fill, line color.RGBA) {
	r, g, b := uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256))
	return color.RGBA{R: r, G: g, B: b, A: fillAlpha}, color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func coordinates(pts ...orb.Point) gokml.CoordinatesElement {
	cs := make([]gokml.Coordinate, 0, len(pts))
	for _, p := range pts {
		cs = append(cs, gokml.Coordinate{Lon: p.Lon(), Lat: p.Lat()})
	}
	return gokml.Coordinates(cs...)
}

func write(w io.Writer, doc *gokml.KMLElement) error {
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("kml encode: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// 文档注释：导出区域为 KML
// 背景：每个区域一个 Placemark，包含名称、可读描述、ExtendedData（square_number/sign_number/Area_sqm）、随机样式与闭合外环。
// 约束：ExtendedData 字段名与读取端一致，导出文件可再次装载。
func WriteZones(w io.Writer, zones []zone.Zone, fillAlpha uint8) error {
	children := []gokml.Element{gokml.Name("zones")}
	for _, z := range zones {
		fill, line := RandomColor(fillAlpha)
		area := strconv.FormatFloat(z.AreaSqm, 'f', 2, 64)
		children = append(children, gokml.Placemark(
			gokml.Name(fmt.Sprintf("Polygon %d", z.ID)),
			gokml.Description(fmt.Sprintf("Square: %s | Sign: %s | Area: %s m²", z.SquareNumber, z.SignNumber, area)),
			gokml.Style(
				gokml.LineStyle(gokml.Color(line), gokml.Width(2)),
				gokml.PolyStyle(gokml.Color(fill)),
			),
			gokml.ExtendedData(
				gokml.Data("square_number", gokml.Value(z.SquareNumber)),
				gokml.Data("sign_number", gokml.Value(z.SignNumber)),
				gokml.Data("Area_sqm", gokml.Value(area)),
			),
			gokml.Polygon(gokml.OuterBoundaryIs(gokml.LinearRing(coordinates(z.Ring...)))),
		))
	}
	return write(w, gokml.KML(gokml.Document(children...)))
}

// PointMark：一条已分类的点结果
type PointMark struct {
	ID         string
	Point      orb.Point
	Square     string
	Sign       string
	MatchCount int
	Code       int
}

// 文档注释：导出点结果为 KML
// 背景：按分类代码 1..4 分成四个文件夹，点图标按代码着色；描述列出编号、声明的方格号/标牌号、命中数与代码。
// 约束：四个文件夹始终输出（可为空），顺序固定。
func WritePoints(w io.Writer, points []PointMark) error {
	folders := make([][]gokml.Element, 4)
	for i := range folders {
		code := i + 1
		folders[i] = []gokml.Element{gokml.Name(fmt.Sprintf("%d - %s", code, zone.CodeLabel(code)))}
	}
	for i, p := range points {
		if p.Code < zone.CodeFull || p.Code > zone.CodeOutside {
			continue
		}
		label := p.ID
		if label == "" {
			label = fmt.Sprintf("Point %d", i+1)
		}
		folders[p.Code-1] = append(folders[p.Code-1], gokml.Placemark(
			gokml.Name(label),
			gokml.Description(fmt.Sprintf("ID: %s | Square: %s | Sign: %s | Zones: %d | Result: %d",
				p.ID, p.Square, p.Sign, p.MatchCount, p.Code)),
			gokml.Style(gokml.IconStyle(gokml.Color(CodeColor(p.Code)))),
			gokml.Point(coordinates(p.Point)),
		))
	}
	children := []gokml.Element{gokml.Name("points")}
	for _, f := range folders {
		children = append(children, gokml.Folder(f...))
	}
	return write(w, gokml.KML(gokml.Document(children...)))
}
