package main

import (
	"errors"
	"fmt"
	"os"

	"go-film-diary/internal/config"
	"go-film-diary/internal/fetch"
	"go-film-diary/internal/logx"
	"go-film-diary/internal/rules"
)

// app 为各子命令共享的配置与资源构造。
type app struct {
	configPath string
	rulesPath  string
	presetName string

	cfg    *config.Config
	preset rules.Preset
}

// load 读取配置与规则并初始化日志；配置/规则文件不存在时使用内置默认值。
func (a *app) load() error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	var rl *rules.Rules
	if a.rulesPath != "" {
		r, err := rules.Load(a.rulesPath)
		switch {
		case err == nil:
			rl = r
		case errors.Is(err, os.ErrNotExist):
		default:
			logx.Warnf("加载规则失败，使用内置选择器：%v", err)
		}
	}
	a.preset = rl.Resolve(a.presetName)
	return nil
}

func (a *app) fetchOptions() fetch.Options {
	return fetch.Options{
		ProxyHTTP:  a.cfg.Proxy.HTTP,
		ProxyHTTPS: a.cfg.Proxy.HTTPS,
		Timeout:    a.cfg.Timeout(),
		Attempts:   a.cfg.Retry.Attempts,
		BaseDelay:  a.cfg.BaseDelay(),
		UserAgent:  a.cfg.UserAgent,
	}
}

// probeClient 创建页数探测专用客户端：PROBE_VERIFY_TLS 未开启时不校验证书。
func (a *app) probeClient() (*fetch.Client, error) {
	opts := a.fetchOptions()
	opts.InsecureTLS = !a.cfg.ProbeVerifyTLS
	cl, err := fetch.New(opts)
	if err != nil {
		return nil, fmt.Errorf("probe client: %w", err)
	}
	return cl, nil
}

// clients 创建抓取客户端与页数探测客户端；调用方负责 Close。
func (a *app) clients() (cl, probe *fetch.Client, err error) {
	cl, err = fetch.New(a.fetchOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("http client: %w", err)
	}
	probe, err = a.probeClient()
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	return cl, probe, nil
}
