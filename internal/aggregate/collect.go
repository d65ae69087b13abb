package aggregate

import (
	"sort"
	"sync"

	"go-film-diary/internal/model"
)

// pageResult 为单页处理结果。
type pageResult struct {
	page          int
	entries       int
	detailsFailed int
	dropped       int
	records       []model.EnrichedRecord
	err           error
}

// collector 在页面完成时收集结果；页面完成顺序任意，快照按页码排序。
type collector struct {
	mu    sync.Mutex
	pages []pageResult
}

func (c *collector) add(p pageResult) {
	c.mu.Lock()
	c.pages = append(c.pages, p)
	c.mu.Unlock()
}

// snapshot 拼接全部页面的记录并汇总统计；同时返回最后一个页面级错误。
func (c *collector) snapshot() ([]model.EnrichedRecord, model.RunStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.pages, func(i, j int) bool { return c.pages[i].page < c.pages[j].page })

	var (
		st      model.RunStats
		lastErr error
		n       int
	)
	for _, p := range c.pages {
		n += len(p.records)
	}
	out := make([]model.EnrichedRecord, 0, n)
	for _, p := range c.pages {
		if p.err != nil {
			st.PagesFailed++
			lastErr = p.err
			continue
		}
		st.Entries += p.entries
		st.DetailsFailed += p.detailsFailed
		st.Dropped += p.dropped
		out = append(out, p.records...)
	}
	st.Rows = len(out)
	return out, st, lastErr
}
