// 包 feeds 读取用户的日记 RSS（/{username}/rss/），得到最近的观影记录。
// 订阅只包含最新若干条，完整历史仍需走日记列表页。
package feeds

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"go-film-diary/internal/fetch"
	"go-film-diary/internal/logx"
	"go-film-diary/internal/model"
)

const ns = "letterboxd"

// FeedURL 返回用户订阅地址：{base}/{username}/rss/
func FeedURL(base, username string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(username) + "/rss/"
}

// Recent 抓取并解析用户订阅，返回带观影日期的条目（最多 limit 条，0 表示不限制）。
// 评论列表等非日记条目没有 watchedDate，会被跳过。
func Recent(ctx context.Context, cl *fetch.Client, base, username string, limit int) ([]model.DiaryEntry, error) {
	body, err := cl.Fetch(ctx, FeedURL(base, username))
	if err != nil {
		return nil, fmt.Errorf("GET feed %s: %w", username, err)
	}
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", username, err)
	}
	out := make([]model.DiaryEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		e, ok := entryFrom(it)
		if !ok {
			logx.Debugf("跳过非日记条目：%s", it.Link)
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func entryFrom(it *gofeed.Item) (model.DiaryEntry, bool) {
	var e model.DiaryEntry
	x := it.Extensions[ns]
	watched, ok := first(x, "watchedDate")
	if !ok {
		return e, false
	}
	e.LogDate = &watched
	if v, ok := first(x, "filmTitle"); ok {
		e.Film = &v
	}
	if v, ok := first(x, "filmYear"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			e.Year = &n
		}
	}
	if v, ok := first(x, "memberRating"); ok {
		if stars, err := strconv.ParseFloat(v, 64); err == nil {
			r := int(math.Round(stars * 2))
			e.Rating = &r
		}
	}
	if v, ok := first(x, "memberLike"); ok {
		b := strings.EqualFold(v, "yes")
		e.Liked = &b
	}
	if p, ok := filmPath(it.Link); ok {
		e.URL = &p
	}
	return e, true
}

func first(x map[string][]ext.Extension, name string) (string, bool) {
	vs := x[name]
	if len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0].Value)
	return v, v != ""
}

// filmPath 从条目链接（/{user}/film/{slug}/[n/]）中取出详情路径 /film/{slug}/。
func filmPath(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "film" && parts[i+1] != "" {
			return "/film/" + parts[i+1] + "/", true
		}
	}
	return "", false
}
