package rules

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Lookup 在 scope 内对表达式求值，返回去除首尾空白后的值与是否命中。
// 表达式语法：
// - 文本："a.name"（首个匹配元素的文本）或 "."（scope 自身文本）
// - 属性："meta[name='x']@content"，或 "@data-film-name"（scope 自身属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
//
// 匹配不到、属性缺失或值为空白都视为未命中。
func Lookup(scope *goquery.Selection, expr string) (string, bool) {
	for _, alt := range alternatives(expr) {
		if v, ok := lookupSingle(scope, alt); ok {
			return v, true
		}
	}
	return "", false
}

// LookupAll 返回全部匹配元素的值（文本或属性），跳过空白值。
// 使用第一个有结果的 "||" 候选；没有任何结果时返回 nil。
func LookupAll(scope *goquery.Selection, expr string) []string {
	for _, alt := range alternatives(expr) {
		sel, attr := split(alt)
		if sel == "" || sel == "." {
			if v, ok := lookupSingle(scope, alt); ok {
				return []string{v}
			}
			continue
		}
		var out []string
		scope.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := value(s, attr); ok {
				out = append(out, v)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func alternatives(expr string) []string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	parts := strings.Split(expr, "||")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookupSingle(scope *goquery.Selection, expr string) (string, bool) {
	sel, attr := split(expr)
	if sel == "" || sel == "." {
		return value(scope, attr)
	}
	el := scope.Find(sel).First()
	if el.Length() == 0 {
		return "", false
	}
	return value(el, attr)
}

// split 把 "sel@attr" 拆成选择器与属性名；属性部分必须是合法属性名，
// 以免误拆 a[href*='@'] 这类选择器。
func split(expr string) (sel, attr string) {
	at := strings.LastIndex(expr, "@")
	if at < 0 || !isAttrName(expr[at+1:]) {
		return strings.TrimSpace(expr), ""
	}
	return strings.TrimSpace(expr[:at]), strings.TrimSpace(expr[at+1:])
}

func isAttrName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ':':
		default:
			return false
		}
	}
	return true
}

func value(s *goquery.Selection, attr string) (string, bool) {
	var v string
	if attr == "" {
		v = normSpace(s.Text())
	} else {
		raw, ok := s.Attr(attr)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(raw)
	}
	if v == "" {
		return "", false
	}
	return v, true
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
