// 包 rules 提供页面解析所用的选择器预设：
// - 内置 Default 与目标站点当前标记逐字对应
// - 可通过 rules.yaml 按预设名覆盖个别选择器，应对站点改版
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个预设的解析规则，空字段回退到内置默认值。
type Preset struct {
	Pagination string  `yaml:"pagination"`
	Listing    *Listing `yaml:"listing"`
	Detail     *Detail  `yaml:"detail"`
}

// Listing 描述日记列表页：
// - item：每条日记记录对应的元素
// - 其余字段为表达式（见 Lookup），相对 item 求值
// - poster_strip：从海报路径中去掉的缩略图尺寸片段，剩余部分即详情页路径
type Listing struct {
	Item        string `yaml:"item"`
	Film        string `yaml:"film"`
	Rating      string `yaml:"rating"`
	Year        string `yaml:"year"`
	Liked       string `yaml:"liked"`
	LogDate     string `yaml:"log_date"`
	Poster      string `yaml:"poster"`
	PosterStrip string `yaml:"poster_strip"`
}

// Detail 描述影片详情页，各字段为相对整个文档求值的表达式。
type Detail struct {
	Country       string `yaml:"country"`
	Studio        string `yaml:"studio"`
	Language      string `yaml:"language"`
	Genres        string `yaml:"genres"`
	Director      string `yaml:"director"`
	Actors        string `yaml:"actors"`
	Runtime       string `yaml:"runtime"`
	AverageRating string `yaml:"average_rating"`
}

// Default 返回内置预设。
func Default() Preset {
	return Preset{
		Pagination: "li.paginate-page",
		Listing: &Listing{
			Item:        "a[rel='nofollow']",
			Film:        "@data-film-name",
			Rating:      "@data-rating",
			Year:        "@data-film-year",
			Liked:       "@data-liked",
			LogDate:     "@data-viewing-date",
			Poster:      "@data-film-poster",
			PosterStrip: "image-150/",
		},
		Detail: &Detail{
			Country:       "a[href*='/films/country/']",
			Studio:        "a[href*='/studio/']",
			Language:      "a[href*='/films/language/']",
			Genres:        "a[href*='/films/genre/']",
			Director:      "a[href*='/director/']",
			Actors:        "a[href*='/actor/']",
			Runtime:       "p[class*='text-link']",
			AverageRating: "meta[name='twitter:data2']@content",
		},
	}
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），名称为空或不存在时回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}

// Resolve 返回内置默认值叠加命名预设覆盖后的完整预设；r 为 nil 时即 Default()。
func (r *Rules) Resolve(name string) Preset {
	out := Default()
	p, ok := r.GetPreset(name)
	if !ok {
		return out
	}
	override(&out.Pagination, p.Pagination)
	if l := p.Listing; l != nil {
		d := out.Listing
		override(&d.Item, l.Item)
		override(&d.Film, l.Film)
		override(&d.Rating, l.Rating)
		override(&d.Year, l.Year)
		override(&d.Liked, l.Liked)
		override(&d.LogDate, l.LogDate)
		override(&d.Poster, l.Poster)
		override(&d.PosterStrip, l.PosterStrip)
	}
	if x := p.Detail; x != nil {
		d := out.Detail
		override(&d.Country, x.Country)
		override(&d.Studio, x.Studio)
		override(&d.Language, x.Language)
		override(&d.Genres, x.Genres)
		override(&d.Director, x.Director)
		override(&d.Actors, x.Actors)
		override(&d.Runtime, x.Runtime)
		override(&d.AverageRating, x.AverageRating)
	}
	return out
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
