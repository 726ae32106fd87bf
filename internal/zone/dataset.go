// 包 zone：区域匹配引擎（数据集、空间索引、包含判定、比对分类、最近区域兜底）
package zone

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"zone-match/internal/geo"

	"github.com/paulmach/orb"
)

// 文档注释：区域数据集（只读快照）
// 背景：一次装载构建全部区域与其包围盒索引；查询期只读共享，可多协程并发访问而无需加锁。
// 约束：索引只保存数据集下标，不持有区域；重建时数据集与索引一起丢弃。
type Dataset struct {
	zones    []Zone
	index    *bboxIndex
	version  string
	loadedAt time.Time
}

// 文档注释：由解析后的记录装载数据集
// 背景：编号按输入顺序从 1 开始；面积/质心若已提供（例如回读先前导出的表格）则直接沿用，避免重复计算带来的漂移。
// 约束：任一环少于 3 个不同顶点时整体拒绝装载，不静默丢弃；索引构建完成后数据集才可查询。
func Build(sources []Source) (*Dataset, error) {
	zones := make([]Zone, 0, len(sources))
	for i, s := range sources {
		if geo.DistinctVertices(s.Ring) < 3 {
			label := s.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("zone %s: %w: need at least 3 distinct vertices, got %d", label, ErrMalformedRing, geo.DistinctVertices(s.Ring))
		}
		ring := geo.CloseRing(s.Ring)
		z := Zone{
			ID:           i + 1,
			Ring:         ring,
			SquareNumber: s.SquareNumber,
			SignNumber:   s.SignNumber,
		}
		if s.Area != nil {
			z.AreaSqm = *s.Area
		} else {
			z.AreaSqm = geo.AreaSqm(ring)
		}
		if s.Center != nil {
			z.Centroid = *s.Center
		} else {
			z.Centroid = geo.Centroid(ring)
		}
		zones = append(zones, z)
	}
	return &Dataset{
		zones:    zones,
		index:    buildIndex(zones),
		version:  contentVersion(zones),
		loadedAt: time.Now(),
	}, nil
}

// Len：区域数量
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.zones)
}

// Zones：按编号顺序返回区域副本切片（元素共享环数据，调用方不得修改）
func (d *Dataset) Zones() []Zone {
	if d == nil {
		return nil
	}
	out := make([]Zone, len(d.zones))
	copy(out, d.zones)
	return out
}

// Zone：按编号取区域
func (d *Dataset) Zone(id int) (Zone, bool) {
	if d == nil || id < 1 || id > len(d.zones) {
		return Zone{}, false
	}
	return d.zones[id-1], true
}

func (d *Dataset) Version() string { return d.version }

func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Lookup：包含判定 → 比对分类 → 代码 3/4 时最近区域兜底
func (d *Dataset) Lookup(q Query) Result {
	matches := d.Resolve(q.Point)
	res := Result{Matches: matches, Outcome: Classify(q, matches)}
	if res.Outcome.Code == CodeNoMatch || res.Outcome.Code == CodeOutside {
		if n, ok := d.Nearest(q.Point); ok {
			res.Nearest = &n
		}
	}
	return res
}

// Sources：将数据集还原为可再次装载的记录（携带面积与质心）
func (d *Dataset) Sources() []Source {
	out := make([]Source, 0, d.Len())
	for _, z := range d.Zones() {
		area := z.AreaSqm
		center := z.Centroid
		out = append(out, Source{
			Name:         fmt.Sprintf("Polygon %d", z.ID),
			SquareNumber: z.SquareNumber,
			SignNumber:   z.SignNumber,
			Ring:         append(orb.Ring(nil), z.Ring...),
			Area:         &area,
			Center:       &center,
		})
	}
	return out
}

// 文档注释：数据集内容版本
// 背景：对环坐标、元数据、面积与质心做 sha256，同一份区域在不同进程或重启后得到同一版本，共享缓存因此可以跨副本命中。
// 约束：字符串带长度前缀写入，避免拼接歧义；只取前 16 字节的十六进制。
func contentVersion(zones []Zone) string {
	h := sha256.New()
	var buf [8]byte
	putF := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	putS := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	for _, z := range zones {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(z.Ring)))
		h.Write(buf[:])
		for _, p := range z.Ring {
			putF(p.Lon())
			putF(p.Lat())
		}
		putS(z.SquareNumber)
		putS(z.SignNumber)
		putF(z.AreaSqm)
		putF(z.Centroid.Lon())
		putF(z.Centroid.Lat())
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
