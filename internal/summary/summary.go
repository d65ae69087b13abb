// 包 summary 对数据集按维度计数，给出前 N 名。
package summary

import (
	"fmt"
	"sort"
	"strings"

	"go-film-diary/internal/model"
)

// Dimension 为可统计的列。
type Dimension string

const (
	Country  Dimension = "country"
	Language Dimension = "primary_language"
	Genre    Dimension = "genre"
	Director Dimension = "director"
	Actor    Dimension = "actor"
	Studio   Dimension = "studio"
)

// Dimensions 列出全部维度，顺序用于帮助信息。
var Dimensions = []Dimension{Country, Language, Genre, Director, Actor, Studio}

// Count 为某个取值的出现次数（一次观影计一次，重看重复计数）。
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ParseDimension 解析维度名，接受 language/genres/actors 等别名。
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "country":
		return Country, nil
	case "primary_language", "language":
		return Language, nil
	case "genre", "genres":
		return Genre, nil
	case "director":
		return Director, nil
	case "actor", "actors":
		return Actor, nil
	case "studio":
		return Studio, nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Top 统计 records 在维度 dim 上的前 n 名（n<=0 返回全部）。
// 列表列逐个展开计数；次数相同按名称升序。
func Top(records []model.EnrichedRecord, dim Dimension, n int) []Count {
	counts := map[string]int{}
	for _, r := range records {
		for _, v := range values(r, dim) {
			if v = strings.TrimSpace(v); v != "" {
				counts[v]++
			}
		}
	}
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func values(r model.EnrichedRecord, dim Dimension) []string {
	switch dim {
	case Country:
		return []string{r.Country}
	case Language:
		return []string{r.PrimaryLanguage}
	case Genre:
		return r.Genres
	case Director:
		return []string{r.Director}
	case Actor:
		return r.Actors
	case Studio:
		return []string{r.Studio}
	}
	return nil
}
