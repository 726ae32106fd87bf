package zone

import "sync/atomic"

// 文档注释：当前数据集持有器
// 背景：服务进程通过 atomic.Pointer 无锁切换数据集；重新装载时整体替换，读路径不阻塞。
// 约束：从不原地修补索引；未装载时 Current 返回 ErrNoDataset。
type Holder struct{ p atomic.Pointer[Dataset] }

func (h *Holder) Set(d *Dataset) { h.p.Store(d) }

func (h *Holder) Current() (*Dataset, error) {
	d := h.p.Load()
	if d == nil {
		return nil, ErrNoDataset
	}
	return d, nil
}
