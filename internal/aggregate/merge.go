package aggregate

import (
	"go-film-diary/internal/model"
)

// DetailResult 为单个详情任务的结果：Err 为 nil 时 Detail 有效。
type DetailResult struct {
	URL    string
	Detail model.FilmDetail
	Err    error
}

func (r DetailResult) OK() bool { return r.Err == nil }

// Merge 按详情 URL 把 entries 与 results 连接，返回完整记录与被丢弃的条数。
// 与位置无关：results 的顺序不影响输出，输出顺序与 entries 一致。
// 详情失败、找不到对应详情或任一必填字段为空的条目都会被丢弃。
func Merge(entries []model.DiaryEntry, results []DetailResult) ([]model.EnrichedRecord, int) {
	byURL := make(map[string]DetailResult, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		// 同一 URL 有多个结果时优先保留成功的
		if prev, ok := byURL[r.URL]; ok && prev.OK() {
			continue
		}
		byURL[r.URL] = r
	}

	out := make([]model.EnrichedRecord, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		if e.URL == nil {
			dropped++
			continue
		}
		res, ok := byURL[*e.URL]
		if !ok || !res.OK() {
			dropped++
			continue
		}
		rec, ok := Complete(e, res.Detail)
		if !ok {
			dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}

// Complete 合并一条日记与其详情；任一标量字段为空时返回 false。
// genres/actors 为列表列，不参与必填判定。
func Complete(e model.DiaryEntry, d model.FilmDetail) (model.EnrichedRecord, bool) {
	if e.Film == nil || e.Rating == nil || e.Year == nil || e.Liked == nil ||
		e.LogDate == nil || e.URL == nil {
		return model.EnrichedRecord{}, false
	}
	if d.Country == nil || d.Studio == nil || d.PrimaryLanguage == nil ||
		d.Director == nil || d.RunningTime == nil || d.AverageRating == nil {
		return model.EnrichedRecord{}, false
	}
	return model.EnrichedRecord{
		Film:            *e.Film,
		Rating:          *e.Rating,
		Date:            *e.Year,
		Liked:           *e.Liked,
		LogDate:         *e.LogDate,
		URL:             *e.URL,
		Country:         *d.Country,
		Studio:          *d.Studio,
		PrimaryLanguage: *d.PrimaryLanguage,
		Genres:          d.Genres,
		Director:        *d.Director,
		Actors:          d.Actors,
		RunningTime:     *d.RunningTime,
		AverageRating:   *d.AverageRating,
	}, true
}
