// 包 fetch 封装抓取用 HTTP 客户端：代理、逐次超时、指数退避重试与错误分类。
// 同一个 Client 可被任意多个 goroutine 并发复用。
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"go-film-diary/internal/logx"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultAttempts  = 5
	defaultBaseDelay = time.Second
	maxBodyBytes     = 8 << 20
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
)

// Client 为带重试策略的 HTTP 客户端。
type Client struct {
	http      *http.Client
	ua        string
	timeout   time.Duration
	attempts  int
	baseDelay time.Duration
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	// Timeout 为单次尝试的超时，超时计为可重试失败。
	Timeout time.Duration
	// Attempts 为总尝试次数（含首次）。
	Attempts int
	// BaseDelay 为退避基数：第 n 次重试前等待 BaseDelay*2^(n-1)，无随机抖动。
	BaseDelay time.Duration
	// InsecureTLS 关闭证书校验（仅用于页数探测请求）。
	InsecureTLS bool
	UserAgent   string
}

// New 创建客户端，支持 http/https 代理与逐次超时配置。
func New(opts Options) (*Client, error) {
	var proxyHTTP, proxyHTTPS *url.URL
	if opts.ProxyHTTP != "" {
		u, err := url.Parse(opts.ProxyHTTP)
		if err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
		proxyHTTP = u
	}
	if opts.ProxyHTTPS != "" {
		u, err := url.Parse(opts.ProxyHTTPS)
		if err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
		proxyHTTPS = u
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && proxyHTTPS != nil {
				return proxyHTTPS, nil
			}
			if req.URL.Scheme == "http" && proxyHTTP != nil {
				return proxyHTTP, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   32,
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	// 支持环境变量覆盖 UA（FILMDIARY_UA），其次为配置值
	ua := os.Getenv("FILMDIARY_UA")
	if ua == "" {
		ua = strings.TrimSpace(opts.UserAgent)
	}
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		http:      &http.Client{Transport: transport},
		ua:        ua,
		timeout:   opts.Timeout,
		attempts:  opts.Attempts,
		baseDelay: opts.BaseDelay,
	}, nil
}

// Close 释放空闲连接。
func (c *Client) Close() {
	if c == nil || c.http == nil {
		return
	}
	c.http.CloseIdleConnections()
}

// Fetch 以 GET 抓取 URL 并返回正文。
// 仅网络错误/超时/5xx 会按指数退避重试；证书校验失败与其余状态立即返回。
// 可重试错误耗尽尝试次数后返回 KindExhausted，内含最后一次错误。
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = c.baseDelay << uint(c.attempts)
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.attempts-1)), ctx)

	var (
		body  string
		tries int
	)
	op := func() error {
		tries++
		s, err := c.attempt(ctx, rawURL)
		if err == nil {
			body = s
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		logx.Debugf("抓取失败，%v 后重试（第 %d 次）：%v", wait, tries, err)
	}
	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		return body, nil
	}
	if IsTransient(err) && ctx.Err() == nil {
		return "", &Error{Kind: KindExhausted, URL: rawURL, Attempts: tries, Err: err}
	}
	return "", err
}

// Once 只做一次尝试，不重试（由调用方决定如何处理 Transient）。
func (c *Client) Once(ctx context.Context, rawURL string) (string, error) {
	return c.attempt(ctx, rawURL)
}

// attempt 执行单次 GET，自带超时。
func (c *Client) attempt(ctx context.Context, rawURL string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// 外层 ctx 已取消：不归类为可重试
			return "", ctx.Err()
		}
		return "", &Error{Kind: classifyTransport(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Kind: classifyStatus(resp.StatusCode), URL: rawURL, Status: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindTransient, URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(b), nil
}
