// 包 model 定义日记抓取流水线的数据模型（日记条目/影片详情/合并记录/数据集/统计）。
//
// 约定：抓取与解析阶段的可缺失字段一律使用指针或 nil 切片表示"空"，
// 只有合并校验通过的 EnrichedRecord 才使用具体值。
package model

import (
	"strconv"
	"strings"
	"time"
)

// DiaryEntry 表示日记列表页中的一次观影记录（同一影片重看会产生多条）。
type DiaryEntry struct {
	Film    *string `json:"film"`
	Rating  *int    `json:"rating"` // 原始刻度：0-10，每半星为 1
	Year    *int    `json:"date"`
	Liked   *bool   `json:"liked"`
	LogDate *string `json:"log_date"`
	URL     *string `json:"url"` // 详情页路径，如 /film/heat-1995/
}

// FilmDetail 为详情页解析出的补充信息。
type FilmDetail struct {
	Country         *string  `json:"country"`
	Studio          *string  `json:"studio"`
	PrimaryLanguage *string  `json:"primary_language"`
	Genres          []string `json:"genres"`
	Director        *string  `json:"director"`
	Actors          []string `json:"actors"`
	RunningTime     *int     `json:"running_time"`
	AverageRating   *float64 `json:"average_rating"`
}

// EnrichedRecord 为 DiaryEntry 与 FilmDetail 合并后的完整记录（一次观影一行）。
type EnrichedRecord struct {
	Film            string   `json:"film"`
	Rating          int      `json:"rating"`
	Date            int      `json:"date"`
	Liked           bool     `json:"liked"`
	LogDate         string   `json:"log_date"`
	URL             string   `json:"url"`
	Country         string   `json:"country"`
	Studio          string   `json:"studio"`
	PrimaryLanguage string   `json:"primary_language"`
	Genres          []string `json:"genres"`
	Director        string   `json:"director"`
	Actors          []string `json:"actors"`
	RunningTime     int      `json:"running_time"`
	AverageRating   float64  `json:"average_rating"`
}

// Columns 为下游渲染层约定的列顺序。
var Columns = []string{
	"film", "rating", "date", "liked", "log_date", "url",
	"country", "studio", "primary_language", "genres",
	"director", "actors", "running_time", "average_rating",
}

// ListSep 为 CSV/表格中列表列的连接符。
const ListSep = "|"

// Strings 按 Columns 顺序把记录展开为字符串（列表列用 ListSep 连接）。
func (r EnrichedRecord) Strings() []string {
	return []string{
		r.Film,
		strconv.Itoa(r.Rating),
		strconv.Itoa(r.Date),
		strconv.FormatBool(r.Liked),
		r.LogDate,
		r.URL,
		r.Country,
		r.Studio,
		r.PrimaryLanguage,
		strings.Join(r.Genres, ListSep),
		r.Director,
		strings.Join(r.Actors, ListSep),
		strconv.Itoa(r.RunningTime),
		strconv.FormatFloat(r.AverageRating, 'f', 2, 64),
	}
}

// Values 与 Strings 相同顺序，但保留数值类型（用于 XLSX 单元格）。
func (r EnrichedRecord) Values() []any {
	return []any{
		r.Film, r.Rating, r.Date, r.Liked, r.LogDate, r.URL,
		r.Country, r.Studio, r.PrimaryLanguage, strings.Join(r.Genres, ListSep),
		r.Director, strings.Join(r.Actors, ListSep), r.RunningTime, r.AverageRating,
	}
}

// RunStats 为一次流水线运行的统计。
type RunStats struct {
	Pages         int           `json:"pages"`
	PagesFailed   int           `json:"pages_failed"`
	Entries       int           `json:"entries"`
	DetailsFailed int           `json:"details_failed"`
	Dropped       int           `json:"dropped"` // 字段不完整被过滤的记录数（含详情失败）
	Rows          int           `json:"rows"`
	Duration      time.Duration `json:"duration_ns"`
}

// Dataset 为一次运行产出的完整数据集；跨页无顺序约定，不去重。
type Dataset struct {
	RunID      string           `json:"run_id"`
	Username   string           `json:"username"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Stats      RunStats         `json:"stats"`
	Records    []EnrichedRecord `json:"records"`
}

// Ptr 返回值的指针，便于构造可空字段。
func Ptr[T any](v T) *T { return &v }
