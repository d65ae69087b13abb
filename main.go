// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端、解析工作池、数据库
// - scrape 抓取完整日记并导出；pages/recent/top 为辅助命令
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-film-diary/internal/logx"
)

// exitError 携带进程退出码：1 为抓取失败/用户不存在，2 为没有数据。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logx.Errorf("%v", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "filmdiary",
		Short:         "filmdiary 抓取 Letterboxd 用户的观影日记并补全影片详情。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "settings.yaml", "path to settings.yaml (optional)")
	f.StringVar(&a.rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")
	f.StringVar(&a.presetName, "preset", "", "selector preset name in rules.yaml")

	root.AddCommand(
		newScrapeCmd(a),
		newPagesCmd(a),
		newRecentCmd(a),
		newTopCmd(a),
	)
	return root
}

// usernameArg 取位置参数，缺省时回退到配置中的 USERNAME。
func (a *app) usernameArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.cfg.Username != "" {
		return a.cfg.Username, nil
	}
	return "", fmt.Errorf("username required (argument or USERNAME in %s)", a.configPath)
}
