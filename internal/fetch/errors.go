package fetch

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
)

// Kind 为抓取失败的分类。
type Kind string

const (
	KindNotFound  Kind = "not_found" // 401/403/404/410：目标不存在或不可访问
	KindTransient Kind = "transient" // 网络错误/超时/5xx，可重试
	KindExhausted Kind = "exhausted" // 可重试错误耗尽全部尝试
	KindStatus    Kind = "status"    // 其余非 2xx 状态，不重试
	KindTLS       Kind = "tls"       // 证书校验失败，不重试
)

// 供 errors.Is 判定的哨兵错误。
var (
	ErrNotFound  = errors.New("fetch: not found")
	ErrTransient = errors.New("fetch: transient failure")
	ErrExhausted = errors.New("fetch: retries exhausted")
	ErrStatus    = errors.New("fetch: unexpected status")
	ErrTLS       = errors.New("fetch: certificate verification failed")
)

// Error 为带分类的抓取错误。
type Error struct {
	Kind     Kind
	URL      string
	Status   int // 0 表示未收到响应
	Attempts int // 仅 KindExhausted 使用
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindExhausted:
		return fmt.Sprintf("GET %s: %s after %d attempts: %v", e.URL, e.Kind, e.Attempts, e.Err)
	case e.Status != 0 && e.Err == nil:
		return fmt.Sprintf("GET %s: %s: http status %d %s", e.URL, e.Kind, e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, fetch.ErrNotFound) 之类的判定按 Kind 生效。
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrExhausted:
		return e.Kind == KindExhausted
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrTLS:
		return e.Kind == KindTLS
	}
	return false
}

// classifyStatus 把非 2xx 状态码映射为错误分类。
func classifyStatus(code int) Kind {
	switch {
	case code >= 500:
		return KindTransient
	case code == http.StatusUnauthorized, code == http.StatusForbidden,
		code == http.StatusNotFound, code == http.StatusGone:
		return KindNotFound
	default:
		return KindStatus
	}
}

// classifyTransport 为请求级错误分类：证书校验失败为 KindTLS，其余为 KindTransient。
func classifyTransport(err error) Kind {
	var cve *tls.CertificateVerificationError
	if errors.As(err, &cve) {
		return KindTLS
	}
	return KindTransient
}

// IsTransient 判断 err 是否为单次可重试失败（不含已耗尽）。
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}
