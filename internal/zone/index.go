package zone

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// 文档注释：包围盒 R-Tree 索引
// 背景：粗过滤阶段只比较包围盒，返回候选集（可能多，不会漏）；精确判定交给点入多边形。
// 约束：树中只存数据集下标；构建 O(n log n)，查询期望 O(log n + k)。
type bboxIndex struct {
	tr rtree.RTreeG[int]
}

func buildIndex(zones []Zone) *bboxIndex {
	idx := &bboxIndex{}
	for i := range zones {
		b := zones[i].Ring.Bound()
		idx.tr.Insert([2]float64(b.Min), [2]float64(b.Max), i)
	}
	return idx
}

// candidates：包围盒包含该点的区域下标，按数据集顺序
func (x *bboxIndex) candidates(pt orb.Point) []int {
	var out []int
	p := [2]float64(pt)
	x.tr.Search(p, p, func(_, _ [2]float64, i int) bool {
		out = append(out, i)
		return true
	})
	sort.Ints(out)
	return out
}

// 文档注释：点包含判定（含边界）
// 背景：先索引取候选，再逐个执行边界包含的点入多边形判定；点落在边或顶点上视为命中。
// 返回：所有命中区域，保持数据集原始编号顺序；区域重叠时全部返回；空数据集返回空切片。
func (d *Dataset) Resolve(pt orb.Point) []Match {
	out := []Match{}
	if d == nil || len(d.zones) == 0 {
		return out
	}
	for _, i := range d.index.candidates(pt) {
		z := &d.zones[i]
		if planar.RingContains(z.Ring, pt) {
			out = append(out, Match{ZoneID: z.ID, SquareNumber: z.SquareNumber, SignNumber: z.SignNumber})
		}
	}
	return out
}
