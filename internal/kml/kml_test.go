package kml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"zone-match/internal/zone"

	"github.com/paulmach/orb"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
  <Folder>
    <Placemark>
      <name>zone one</name>
      <description><![CDATA[<table><tr><td>رقم المربع</td><td>29A</td></tr><tr><td>رقم الشاخص</td><td>2/204</td></tr></table>]]></description>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>
        39.0,21.0,0 39.0,21.01,0 39.01,21.01,0 39.01,21.0,0 39.0,21.0,0
      </coordinates></LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
  </Folder>
  <Placemark>
    <name>zone two</name>
    <description><![CDATA[<table><tr><td>رقم المربع</td><td>from-table</td></tr><tr><td>رقم الشاخص</td><td>table-sign</td></tr></table>]]></description>
    <ExtendedData>
      <Data name="square_number"><value>30B</value></Data>
    </ExtendedData>
    <MultiGeometry>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>40,22 40,22.01 40.01,22.01 40,22</coordinates></LinearRing></outerBoundaryIs></Polygon>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>41,22 41,22.01 41.01,22.01 41,22</coordinates></LinearRing></outerBoundaryIs></Polygon>
    </MultiGeometry>
  </Placemark>
  <Placemark>
    <name>marker only</name>
    <Point><coordinates>39,21,0</coordinates></Point>
  </Placemark>
</Document>
</kml>`

func TestParse(t *testing.T) {
	src, err := Parse(strings.NewReader(sampleKML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(src) != 3 {
		t.Fatalf("sources = %d, want 3", len(src))
	}
	if src[0].SquareNumber != "29A" || src[0].SignNumber != "2/204" {
		t.Errorf("table metadata = %q/%q", src[0].SquareNumber, src[0].SignNumber)
	}
	if len(src[0].Ring) != 5 || src[0].Ring[2] != (orb.Point{39.01, 21.01}) {
		t.Errorf("ring = %v", src[0].Ring)
	}
	// ExtendedData 优先，缺失字段回落到表格
	for _, s := range src[1:] {
		if s.SquareNumber != "30B" || s.SignNumber != "table-sign" {
			t.Errorf("merged metadata = %q/%q", s.SquareNumber, s.SignNumber)
		}
	}
	if src[2].Ring[0] != (orb.Point{41, 22}) {
		t.Errorf("multigeometry order: %v", src[2].Ring)
	}
}

func TestParseSimpleData(t *testing.T) {
	doc := `<kml><Document><Placemark><ExtendedData><SchemaData schemaUrl="#s">
<SimpleData name="square_number">7</SimpleData><SimpleData name="sign_number">007</SimpleData>
</SchemaData></ExtendedData>
<Polygon><outerBoundaryIs><LinearRing><coordinates>0,0 0,1 1,1 0,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
</Placemark></Document></kml>`
	src, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(src) != 1 || src[0].SquareNumber != "7" || src[0].SignNumber != "007" {
		t.Fatalf("sources = %+v", src)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		coords string
	}{
		{"bad token", "39.0,21.0 oops 39.01,21.0"},
		{"bad number", "39.0,21.0 39.x,21.01 39.01,21.0"},
		{"too short", "39.0,21.0 39.01,21.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<kml><Placemark><name>p</name><Polygon><outerBoundaryIs><LinearRing><coordinates>` +
				tt.coords + `</coordinates></LinearRing></outerBoundaryIs></Polygon></Placemark></kml>`
			if _, err := Parse(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			} else if !strings.Contains(err.Error(), "placemark p") {
				t.Fatalf("error does not name placemark: %v", err)
			}
		})
	}
	doc := `<kml><Placemark><Polygon><outerBoundaryIs><LinearRing><coordinates>0,0 1,1</coordinates></LinearRing></outerBoundaryIs></Polygon></Placemark></kml>`
	if _, err := Parse(strings.NewReader(doc)); !errors.Is(err, zone.ErrMalformedRing) {
		t.Fatalf("err = %v, want ErrMalformedRing", err)
	}
}

func kmzBytes(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseKMZ(t *testing.T) {
	data := kmzBytes(t, "doc.kml", sampleKML)
	src, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(src) != 3 {
		t.Fatalf("sources = %d", len(src))
	}

	path := filepath.Join(t.TempDir(), "zones.kmz")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if src, err = ParseFile(path); err != nil || len(src) != 3 {
		t.Fatalf("ParseFile: %d %v", len(src), err)
	}

	if _, err := ParseKMZ(kmzBytes(t, "readme.txt", "x")); err == nil {
		t.Fatalf("expected error for kmz without kml")
	}
}

var hexColor = regexp.MustCompile(`^[0-9a-f]{8}$`)

// abgr：KML 颜色文本（aabbggrr）
func abgr(c color.RGBA) string {
	return fmt.Sprintf("%02x%02x%02x%02x", c.A, c.B, c.G, c.R)
}

func TestRandomColorStructure(t *testing.T) {
	for i := 0; i < 20; i++ {
		fill, line := RandomColor(0x55)
		if !hexColor.MatchString(abgr(fill)) || !hexColor.MatchString(abgr(line)) {
			t.Fatalf("bad colours %q %q", abgr(fill), abgr(line))
		}
		if fill.A != 0x55 || line.A != 0xff {
			t.Fatalf("alpha byte missing: %q %q", abgr(fill), abgr(line))
		}
		if fill.R != line.R || fill.G != line.G || fill.B != line.B {
			t.Fatalf("fill and line differ in rgb: %q %q", abgr(fill), abgr(line))
		}
	}
}

func TestWriteZonesRoundTrip(t *testing.T) {
	src, err := Parse(strings.NewReader(sampleKML))
	if err != nil {
		t.Fatal(err)
	}
	ds, err := zone.Build(src)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteZones(&buf, ds.Zones(), 0x55); err != nil {
		t.Fatalf("WriteZones: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"http://www.opengis.net/kml/2.2",
		"<name>Polygon 1</name>",
		"Square: 29A | Sign: 2/204 | Area:",
		`<Data name="Area_sqm">`,
		"<width>2</width>",
		"<PolyStyle>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	again, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(again) != len(src) {
		t.Fatalf("re-parse count = %d", len(again))
	}
	for i := range again {
		want := ds.Zones()[i]
		if again[i].SquareNumber != want.SquareNumber || again[i].SignNumber != want.SignNumber {
			t.Errorf("zone %d metadata lost: %+v", i+1, again[i])
		}
		if len(again[i].Ring) != len(want.Ring) {
			t.Fatalf("zone %d ring length = %d, want %d", i+1, len(again[i].Ring), len(want.Ring))
		}
		for j := range want.Ring {
			if again[i].Ring[j] != want.Ring[j] {
				t.Errorf("zone %d vertex %d = %v, want %v", i+1, j, again[i].Ring[j], want.Ring[j])
			}
		}
	}
}

func TestWritePointsFolders(t *testing.T) {
	pts := []PointMark{
		{ID: "a", Point: orb.Point{39.005, 21.005}, Square: "29A", Sign: "2/204", MatchCount: 1, Code: 1},
		{ID: "b", Point: orb.Point{39.005, 21.005}, Square: "29A", Sign: "x", MatchCount: 1, Code: 2},
		{ID: "", Point: orb.Point{45, 25}, Code: 4},
	}
	var buf bytes.Buffer
	if err := WritePoints(&buf, pts); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}
	var doc struct {
		Folders []struct {
			Name       string `xml:"name"`
			Placemarks []struct {
				Name        string `xml:"name"`
				Description string `xml:"description"`
				Color       string `xml:"Style>IconStyle>color"`
			} `xml:"Placemark"`
		} `xml:"Document>Folder"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Folders) != 4 {
		t.Fatalf("folders = %d", len(doc.Folders))
	}
	counts := []int{1, 1, 0, 1}
	for i, f := range doc.Folders {
		if len(f.Placemarks) != counts[i] {
			t.Errorf("folder %q has %d placemarks", f.Name, len(f.Placemarks))
		}
		for _, p := range f.Placemarks {
			if p.Color != abgr(CodeColor(i+1)) {
				t.Errorf("folder %d colour %q", i+1, p.Color)
			}
		}
	}
	if got := doc.Folders[3].Placemarks[0].Name; got != "Point 3" {
		t.Errorf("unnamed point label = %q", got)
	}
	if d := doc.Folders[0].Placemarks[0].Description; d != "ID: a | Square: 29A | Sign: 2/204 | Zones: 1 | Result: 1" {
		t.Errorf("description = %q", d)
	}
}
