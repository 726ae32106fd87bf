package zone

import (
	"errors"

	"github.com/paulmach/orb"
)

// 文档注释：区域与查询的最小数据结构
// 背景：区域为带方格号/标牌号的多边形；几何只保留外环，面积与质心在装载时一次性派生。
// 约束：装载后只读；整个数据集随每次重新装载丢弃重建，不做增量更新。
type Zone struct {
	ID           int
	Ring         orb.Ring // 已闭合，首尾相同
	SquareNumber string
	SignNumber   string
	AreaSqm      float64
	Centroid     orb.Point
}

// Source：解析层产出的单条区域记录；Area/Center 为空表示需要计算
type Source struct {
	Name         string
	SquareNumber string
	SignNumber   string
	Ring         orb.Ring
	Area         *float64
	Center       *orb.Point
}

// Query：一次点查询；期望值缺省按空字符串比较
type Query struct {
	Point          orb.Point
	ExpectedSquare string
	ExpectedSign   string
}

// Match：包含查询点的区域（按数据集顺序）
type Match struct {
	ZoneID       int    `json:"polygon_id"`
	SquareNumber string `json:"square_number"`
	SignNumber   string `json:"sign_number"`
}

// 比对结果代码
const (
	CodeFull    = 1 // 标牌号一致
	CodeSquare  = 2 // 仅方格号一致
	CodeNoMatch = 3 // 在区域内但均不一致
	CodeOutside = 4 // 不在任何区域内
)

// Outcome：比对分类；区域外时 SignMatch/SquareMatch 为 nil
type Outcome struct {
	SignMatch   *bool `json:"sign_match"`
	SquareMatch *bool `json:"square_match"`
	Code        int   `json:"code"`
}

// Nearest：按质心距离最近的区域
type Nearest struct {
	ZoneID       int     `json:"polygon_id"`
	SquareNumber string  `json:"square_number"`
	SignNumber   string  `json:"sign_number"`
	DistanceM    float64 `json:"distance_m"`
}

// Result：单点完整查询结果
type Result struct {
	Matches []Match  `json:"matches"`
	Outcome Outcome  `json:"outcome"`
	Nearest *Nearest `json:"nearest,omitempty"`
}

var (
	ErrMalformedRing = errors.New("malformed ring")
	ErrNoDataset     = errors.New("no zone dataset loaded")
)

// CodeLabel：分类代码的可读名称，用于导出分组
func CodeLabel(code int) string {
	switch code {
	case CodeFull:
		return "Full match"
	case CodeSquare:
		return "Square match"
	case CodeNoMatch:
		return "No match"
	case CodeOutside:
		return "Outside zones"
	}
	return "Unknown"
}
