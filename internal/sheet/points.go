package sheet

import "io"

// 点批量表列名
const (
	ColID  = "id"
	ColLat = "lat"
	ColLon = "lon"
)

// 结果列（追加在输入列之后）
var ResultColumns = []string{
	"polygons_count", "result", "CMP_square", "CMP_sign", "CMP_Result",
	"nearest_distance_m", "nearest_zone", "error",
}

// ReadPoints：读取点批量表，至少包含 lat/lon 两列；id、square_number、sign_number 可缺省
func ReadPoints(r io.Reader) (*Table, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.Require(ColLat, ColLon); err != nil {
		return nil, err
	}
	return t, nil
}
