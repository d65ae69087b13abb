// 包 aggregate 负责主流程编排：
// - 探测总页数
// - 并发抓取每一页并解析日记
// - 每页内并发抓取详情，按详情 URL 合并并过滤不完整记录
// - 拼接全部页面得到数据集
//
// 单页或单条详情的失败只影响自身，不会取消其他任务。
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"go-film-diary/internal/diary"
	"go-film-diary/internal/fetch"
	"go-film-diary/internal/film"
	"go-film-diary/internal/logx"
	"go-film-diary/internal/model"
	"go-film-diary/internal/pool"
	"go-film-diary/internal/rules"
)

var (
	// ErrEmptyResult 表示抓取正常但过滤后没有任何记录（"该用户没有数据"）。
	ErrEmptyResult = errors.New("no diary data for this user")
	// ErrAllPagesFailed 表示每一页都抓取失败（"抓取失败"），会同时包裹最后一个页面错误。
	ErrAllPagesFailed = errors.New("every diary page failed")

	errMissingURL = errors.New("diary entry has no detail url")
)

const detailMemoSize = 4096

// Options 为编排参数。
type Options struct {
	BaseURL string
	Preset  rules.Preset
	// PageLimit/DetailLimit 为并发上限，0 表示不限。
	PageLimit   int
	DetailLimit int
}

// Runner 持有抓取客户端与解析工作池；二者由调用方创建并负责关闭。
type Runner struct {
	opts  Options
	fetch *fetch.Client
	probe *fetch.Client
	pool  *pool.Pool
}

// New 创建 Runner。probe 为页数探测专用客户端，为 nil 时复用 cl。
func New(opts Options, cl, probe *fetch.Client, p *pool.Pool) *Runner {
	if probe == nil {
		probe = cl
	}
	if opts.Preset.Listing == nil || opts.Preset.Detail == nil {
		opts.Preset = rules.Default()
	}
	return &Runner{opts: opts, fetch: cl, probe: probe, pool: p}
}

// runState 为单次运行内共享的详情去重状态（重看同一影片只抓一次）。
type runState struct {
	details *film.Fetcher
	memo    *lru.Cache[string, DetailResult]
	sf      singleflight.Group
	fetched atomic.Int64
}

// Run 执行一次完整抓取并返回数据集。
//
// 错误约定：
// - 探测失败：直接返回（可用 errors.Is(err, fetch.ErrNotFound) 区分用户不存在）
// - 全部页面失败：返回 ErrAllPagesFailed
// - 结果为空：返回 ErrEmptyResult，数据集仍然有效
func (r *Runner) Run(ctx context.Context, username string) (model.Dataset, error) {
	started := time.Now()
	ds := model.Dataset{
		RunID:     uuid.NewString(),
		Username:  username,
		StartedAt: started.UTC(),
	}

	total, err := diary.ProbePages(ctx, r.probe, r.opts.BaseURL, username, r.opts.Preset.Pagination)
	if err != nil {
		return ds, fmt.Errorf("probe %s: %w", username, err)
	}
	logx.Infof("用户 %s 的日记共 %d 页", username, total)

	memo, err := lru.New[string, DetailResult](detailMemoSize)
	if err != nil {
		return ds, fmt.Errorf("detail memo: %w", err)
	}
	st := &runState{
		details: &film.Fetcher{
			Client:  r.fetch,
			BaseURL: r.opts.BaseURL,
			Rules:   r.opts.Preset.Detail,
			Parse:   r.pool.Do,
		},
		memo: memo,
	}

	var (
		col collector
		g   errgroup.Group
	)
	if r.opts.PageLimit > 0 {
		g.SetLimit(r.opts.PageLimit)
	}
	for page := 1; page <= total; page++ {
		page := page
		g.Go(func() error {
			col.add(r.processPage(ctx, st, username, page, total))
			return nil
		})
	}
	_ = g.Wait()

	records, stats, lastErr := col.snapshot()
	stats.Pages = total
	stats.Duration = time.Since(started)
	ds.Records = records
	ds.Stats = stats
	ds.FinishedAt = time.Now().UTC()
	logx.Infof("抓取完成：页数=%d 失败页=%d 日记=%d 详情失败=%d 丢弃=%d 保留=%d 详情请求=%d 耗时=%s",
		stats.Pages, stats.PagesFailed, stats.Entries, stats.DetailsFailed, stats.Dropped, stats.Rows,
		st.fetched.Load(), stats.Duration.Round(time.Millisecond))

	if stats.Rows > 0 {
		return ds, nil
	}
	if stats.PagesFailed == total {
		return ds, fmt.Errorf("%w: %w", ErrAllPagesFailed, lastErr)
	}
	return ds, ErrEmptyResult
}

// processPage 处理单页：抓取 → 解析 → 并发详情 → 合并过滤。
func (r *Runner) processPage(ctx context.Context, st *runState, username string, page, total int) pageResult {
	res := pageResult{page: page}
	html, err := r.fetch.Fetch(ctx, diary.PageURL(r.opts.BaseURL, username, page))
	if err != nil {
		logx.Warn("页面抓取失败", "page", page, "total", total, "err", err)
		res.err = err
		return res
	}

	var (
		entries []model.DiaryEntry
		perr    error
	)
	if err := r.pool.Do(ctx, func() { entries, perr = diary.ParseListing(html, r.opts.Preset.Listing) }); err != nil {
		perr = err
	}
	if perr != nil {
		logx.Warnf("第 %d/%d 页解析失败：%v", page, total, perr)
		res.err = perr
		return res
	}

	results := r.fetchDetails(ctx, st, entries)
	for _, d := range results {
		if !d.OK() {
			res.detailsFailed++
		}
	}
	res.entries = len(entries)
	res.records, res.dropped = Merge(entries, results)
	logx.Debugf("第 %d/%d 页：日记=%d 详情失败=%d 保留=%d", page, total, res.entries, res.detailsFailed, len(res.records))
	return res
}

// fetchDetails 为每条日记并发抓取详情；每个任务的结果单独记录，互不取消。
func (r *Runner) fetchDetails(ctx context.Context, st *runState, entries []model.DiaryEntry) []DetailResult {
	results := make([]DetailResult, len(entries))
	var g errgroup.Group
	if r.opts.DetailLimit > 0 {
		g.SetLimit(r.opts.DetailLimit)
	}
	for i, e := range entries {
		i, e := i, e
		if e.URL == nil {
			results[i] = DetailResult{Err: errMissingURL}
			continue
		}
		g.Go(func() error {
			results[i] = st.detail(ctx, *e.URL)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// detail 返回某个详情 URL 的结果；同一次运行内相同 URL 只抓取一次。
func (st *runState) detail(ctx context.Context, url string) DetailResult {
	if res, ok := st.memo.Get(url); ok {
		return res
	}
	v, _, _ := st.sf.Do(url, func() (any, error) {
		if res, ok := st.memo.Get(url); ok {
			return res, nil
		}
		st.fetched.Add(1)
		fd, err := st.details.FetchAndParse(ctx, url)
		if err != nil {
			logx.Debugf("详情失败：%s %v", url, err)
		}
		res := DetailResult{URL: url, Detail: fd, Err: err}
		st.memo.Add(url, res)
		return res, nil
	})
	return v.(DetailResult)
}
