package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"go-film-diary/internal/aggregate"
	"go-film-diary/internal/diary"
	"go-film-diary/internal/export"
	"go-film-diary/internal/feeds"
	"go-film-diary/internal/fetch"
	"go-film-diary/internal/logx"
	"go-film-diary/internal/model"
	"go-film-diary/internal/pool"
	"go-film-diary/internal/store"
	"go-film-diary/internal/summary"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func newScrapeCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
		top    string
		topN   int
	)
	cmd := &cobra.Command{
		Use:   "scrape [username]",
		Short: "抓取完整日记并补全影片详情",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.usernameArg(args)
			if err != nil {
				return err
			}
			if format == "" {
				format = a.cfg.Output.Format
			}
			if out == "" {
				out = a.cfg.Output.Path
			}
			var dim summary.Dimension
			if top != "" {
				if dim, err = summary.ParseDimension(top); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			cl, probe, err := a.clients()
			if err != nil {
				return err
			}
			defer cl.Close()
			defer probe.Close()
			p := pool.New(a.cfg.Concurrency.Parse)
			defer p.Close()

			run := aggregate.New(aggregate.Options{
				BaseURL:     a.cfg.BaseURL,
				Preset:      a.preset,
				PageLimit:   a.cfg.Concurrency.Pages,
				DetailLimit: a.cfg.Concurrency.Details,
			}, cl, probe, p)
			logx.Infof("开始抓取：用户=%s 解析并发=%d", username, p.Size())
			ds, err := run.Run(ctx, username)
			switch {
			case errors.Is(err, aggregate.ErrEmptyResult):
				return &exitError{code: 2, err: fmt.Errorf("用户 %s 没有可用的日记数据", username)}
			case errors.Is(err, fetch.ErrNotFound):
				return &exitError{code: 1, err: fmt.Errorf("用户 %s 不存在：%w", username, err)}
			case err != nil:
				return &exitError{code: 1, err: fmt.Errorf("抓取失败：%w", err)}
			}
			logx.Info("运行完成", "run_id", ds.RunID, "rows", ds.Stats.Rows, "dropped", ds.Stats.Dropped)

			if a.cfg.Database.Enable {
				if err := saveRun(ctx, a.cfg.Database.DSN, ds); err != nil {
					logx.Warnf("写入数据库失败：%v", err)
				} else {
					logx.Infof("已写入数据库：%s", a.cfg.Database.DSN)
				}
			}
			if err := export.Write(ds, format, out, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if out != "" {
				logx.Infof("已导出 %s（%d 行）", out, len(ds.Records))
			}
			if dim != "" {
				// 数据集写到 stdout 时，排行改写到 stderr 以免混在一起
				var w io.Writer = cmd.OutOrStdout()
				if out == "" {
					w = cmd.ErrOrStderr()
				}
				export.ToTopTable(w, dim, summary.Top(ds.Records, dim, topN))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: json|csv|xlsx|table (default from OUTPUT.format)")
	cmd.Flags().StringVar(&out, "out", "", "output path (default stdout; required for xlsx)")
	cmd.Flags().StringVar(&top, "top", "", "also print top-N by dimension: country|primary_language|genre|director|actor|studio")
	cmd.Flags().IntVar(&topN, "n", 10, "top-N size")
	return cmd
}

func saveRun(ctx context.Context, dsn string, ds model.Dataset) error {
	st, err := store.OpenSQLite(dsn)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, ds)
}

func newPagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pages [username]",
		Short: "只探测日记总页数",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.usernameArg(args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			probe, err := a.probeClient()
			if err != nil {
				return err
			}
			defer probe.Close()
			n, err := diary.ProbePages(ctx, probe, a.cfg.BaseURL, username, a.preset.Pagination)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("探测页数失败：%w", err)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newRecentCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent [username]",
		Short: "读取订阅中的最近观影记录",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.usernameArg(args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			cl, err := fetch.New(a.fetchOptions())
			if err != nil {
				return fmt.Errorf("http client: %w", err)
			}
			defer cl.Close()
			entries, err := feeds.Recent(ctx, cl, a.cfg.BaseURL, username, limit)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("读取订阅失败：%w", err)}
			}
			if len(entries) == 0 {
				return &exitError{code: 2, err: fmt.Errorf("用户 %s 的订阅中没有日记", username)}
			}
			export.ToEntryTable(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max entries (0 = all in feed)")
	return cmd
}

func newTopCmd(a *app) *cobra.Command {
	var (
		user string
		n    int
	)
	cmd := &cobra.Command{
		Use:   "top <dimension>",
		Short: "按维度统计最近一次保存的运行（需开启 DATABASE.enable）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := summary.ParseDimension(args[0])
			if err != nil {
				return err
			}
			if user == "" {
				user = a.cfg.Username
			}
			if user == "" {
				return fmt.Errorf("--user required")
			}
			st, err := store.OpenSQLite(a.cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()
			ds, err := st.LatestRun(cmd.Context(), user)
			if errors.Is(err, store.ErrNoRun) {
				return &exitError{code: 2, err: fmt.Errorf("库中没有用户 %s 的运行记录，请先执行 scrape", user)}
			}
			if err != nil {
				return err
			}
			logx.Infof("使用运行 %s（%s，%d 行）", ds.RunID, ds.FinishedAt.Local().Format("2006-01-02 15:04"), len(ds.Records))
			export.ToTopTable(cmd.OutOrStdout(), dim, summary.Top(ds.Records, dim, n))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "username (default USERNAME from config)")
	cmd.Flags().IntVar(&n, "n", 10, "top-N size (0 = all)")
	return cmd
}
