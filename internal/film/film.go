// 包 film 负责影片详情页：抓取并解析国家/制片公司/语言/类型/导演/演员/片长/平均分。
package film

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-film-diary/internal/diary"
	"go-film-diary/internal/fetch"
	"go-film-diary/internal/model"
	"go-film-diary/internal/rules"
)

// Parse 解析详情页。任一选择器匹配不到时对应字段为 nil，这不是错误；
// 只有 HTML 本身无法读取时才返回 error。
func Parse(html string, d *rules.Detail) (model.FilmDetail, error) {
	if d == nil {
		d = rules.Default().Detail
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.FilmDetail{}, fmt.Errorf("parse detail html: %w", err)
	}
	root := doc.Selection

	var fd model.FilmDetail
	fd.Country = lookup(root, d.Country)
	fd.Studio = lookup(root, d.Studio)
	fd.PrimaryLanguage = lookup(root, d.Language)
	fd.Genres = rules.LookupAll(root, d.Genres)
	fd.Director = lookup(root, d.Director)
	fd.Actors = rules.LookupAll(root, d.Actors)
	if v, ok := rules.Lookup(root, d.Runtime); ok {
		if n, ok := Minutes(v); ok {
			fd.RunningTime = &n
		}
	}
	if v, ok := rules.Lookup(root, d.AverageRating); ok {
		if f, ok := LeadingFloat(v); ok {
			fd.AverageRating = &f
		}
	}
	return fd, nil
}

func lookup(s *goquery.Selection, expr string) *string {
	if v, ok := rules.Lookup(s, expr); ok {
		return &v
	}
	return nil
}

// Minutes 从片长文本的第一个词中取出全部数字，如 "142 mins More at IMDb" -> 142。
// 第一个词中没有数字时返回 false。
func Minutes(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	var b strings.Builder
	for _, r := range fields[0] {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// LeadingFloat 解析形如 "3.85 out of 5" 的文本中第一个词对应的数值。
func LeadingFloat(text string) (float64, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Fetcher 抓取详情页并解析；parse 允许调用方把解析放到 CPU 工作池中执行。
type Fetcher struct {
	Client  *fetch.Client
	BaseURL string
	Rules   *rules.Detail
	// Parse 为空时在当前 goroutine 内直接解析。
	Parse func(ctx context.Context, fn func()) error
}

// FetchAndParse 按详情路径抓取并解析。仅当抓取失败（透传 fetch 的错误）
// 或解析无法进行时返回 error。
func (f *Fetcher) FetchAndParse(ctx context.Context, detailURL string) (model.FilmDetail, error) {
	html, err := f.Client.Fetch(ctx, diary.DetailURL(f.BaseURL, detailURL))
	if err != nil {
		return model.FilmDetail{}, err
	}
	var (
		fd   model.FilmDetail
		perr error
	)
	run := func() { fd, perr = Parse(html, f.Rules) }
	if f.Parse == nil {
		run()
	} else if err := f.Parse(ctx, run); err != nil {
		return model.FilmDetail{}, err
	}
	return fd, perr
}
