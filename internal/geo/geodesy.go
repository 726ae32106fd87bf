// 包 geo：地理量测基础函数（面积、球面距离、质心），供区域数据集与最近区域查询复用
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// EarthRadiusM 球面距离使用的地球半径（米）
	EarthRadiusM = 6371000.0
	// MetersPerDegree 赤道处每度对应的地面距离（米）
	MetersPerDegree = 111320.0
)

// 文档注释：多边形面积（平方米）
// 背景：先在经纬度平面上按鞋带公式求平方度面积，再以质心纬度处的等距圆柱比例换算为地面面积。
// 约束：一阶局部近似，适用于跨度数公里以内的区域；极地附近（cos→0）与跨越 180° 经线时不可用。
func AreaSqm(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	c, a := planar.CentroidArea(r)
	a = math.Abs(a)
	if a == 0 || math.IsNaN(a) {
		return 0
	}
	lonScale := MetersPerDegree * math.Cos(c.Lat()*math.Pi/180)
	return math.Abs(a * lonScale * MetersPerDegree)
}

// Centroid：多边形几何质心（经度, 纬度）
func Centroid(r orb.Ring) orb.Point {
	if len(r) == 0 {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(r)
	return c
}

// 文档注释：球面距离（Haversine），返回米
// 约束：输入为 (经度, 纬度) 度数；对称，相同点返回 0。
func DistanceM(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CloseRing：首尾不一致时补一个首点，返回新切片，不修改入参
func CloseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// DistinctVertices：环上去除闭合点后的不同顶点数
func DistinctVertices(r orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(r))
	for _, p := range r {
		seen[p] = struct{}{}
	}
	return len(seen)
}
