package zone

import (
	"math"

	"zone-match/internal/geo"

	"github.com/paulmach/orb"
)

// 文档注释：最近区域（质心距离）
// 背景：包含判定未命中或不一致时给出诊断性兜底；按质心球面距离而非边界，因此不走包围盒索引。
// 约束：全量线性扫描，区域规模为数百级；距离相同取先遇到者；仅空数据集返回 false。
func (d *Dataset) Nearest(pt orb.Point) (Nearest, bool) {
	if d == nil || len(d.zones) == 0 {
		return Nearest{}, false
	}
	best := -1
	bestD := math.Inf(1)
	for i := range d.zones {
		dist := geo.DistanceM(pt, d.zones[i].Centroid)
		if dist < bestD {
			bestD = dist
			best = i
		}
	}
	if best < 0 {
		// 质心含 NaN 时距离无法比较，退回首个区域
		best = 0
		bestD = geo.DistanceM(pt, d.zones[0].Centroid)
	}
	z := d.zones[best]
	return Nearest{ZoneID: z.ID, SquareNumber: z.SquareNumber, SignNumber: z.SignNumber, DistanceM: bestD}, true
}
