// 包 diary 负责日记列表页：
// - ListingURL/PageURL/DetailURL 构造请求地址
// - ProbePages 探测总页数
// - ParseListing 把列表页解析为有序的 DiaryEntry
package diary

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-film-diary/internal/fetch"
	"go-film-diary/internal/model"
	"go-film-diary/internal/rules"
)

// ListingURL 返回日记根地址：{base}/{username}/films/diary/
func ListingURL(base, username string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(username) + "/films/diary/"
}

// PageURL 返回第 n 页地址：{base}/{username}/films/diary/page/{n}/
func PageURL(base, username string, n int) string {
	return ListingURL(base, username) + "page/" + strconv.Itoa(n) + "/"
}

// DetailURL 把列表页给出的详情路径补全为绝对地址。
func DetailURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

// ProbePages 抓取日记根页并返回总页数；页面没有分页控件时为 1。
// 只做一次请求不重试：NotFound 表示用户不存在，Transient 交给调用方决定。
func ProbePages(ctx context.Context, cl *fetch.Client, base, username, paginationSel string) (int, error) {
	if strings.TrimSpace(username) == "" {
		return 0, fmt.Errorf("username required")
	}
	html, err := cl.Once(ctx, ListingURL(base, username))
	if err != nil {
		return 0, err
	}
	return ParsePageCount(html, paginationSel)
}

// ParsePageCount 取分页控件中最大的页码。
func ParsePageCount(html, paginationSel string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse listing html: %w", err)
	}
	pages := 1
	doc.Find(paginationSel).Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > pages {
			pages = n
		}
	})
	return pages, nil
}

// ParseListing 解析一页日记。文档中的行顺序即返回顺序；
// 行内缺失的属性得到 nil 字段而不是丢弃该行（过滤在合并阶段进行）。
func ParseListing(html string, l *rules.Listing) ([]model.DiaryEntry, error) {
	if l == nil {
		l = rules.Default().Listing
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	rows := doc.Find(l.Item)
	out := make([]model.DiaryEntry, 0, rows.Length())
	rows.Each(func(_ int, s *goquery.Selection) {
		out = append(out, parseRow(s, l))
	})
	return out, nil
}

func parseRow(s *goquery.Selection, l *rules.Listing) model.DiaryEntry {
	var e model.DiaryEntry
	if v, ok := rules.Lookup(s, l.Film); ok {
		e.Film = &v
	}
	if v, ok := rules.Lookup(s, l.Rating); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.Rating = &n
		}
	}
	if v, ok := rules.Lookup(s, l.Year); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.Year = &n
		}
	}
	if v, ok := rules.Lookup(s, l.Liked); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			e.Liked = &b
		}
	}
	if v, ok := rules.Lookup(s, l.LogDate); ok {
		e.LogDate = &v
	}
	if v, ok := rules.Lookup(s, l.Poster); ok {
		if l.PosterStrip != "" {
			v = strings.ReplaceAll(v, l.PosterStrip, "")
		}
		e.URL = &v
	}
	return e
}
