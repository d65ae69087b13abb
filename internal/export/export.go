// 包 export 负责把数据集写出：
// - json：带运行信息与统计的完整数据集
// - csv/xlsx：按固定列顺序逐行输出，列表列用 "|" 连接
// - table：终端表格
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go-film-diary/internal/model"
)

// Formats 为支持的输出格式。
var Formats = []string{"json", "csv", "xlsx", "table"}

// createFile 打开导出文件；测试中可替换。
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// Write 按格式写出数据集。path 为空时写到 w（xlsx 必须指定 path）。
// 写文件时关闭失败同样返回错误。
func Write(ds model.Dataset, format, path string, w io.Writer) (err error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
	}
	switch format {
	case "xlsx":
		if path == "" {
			return fmt.Errorf("xlsx export requires an output path")
		}
		return ToXLSX(ds.Records, path)
	case "json", "csv", "table":
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
	if path != "" {
		f, cerr := createFile(path)
		if cerr != nil {
			return fmt.Errorf("create %s: %w", path, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", path, cerr)
			}
		}()
		w = f
	}
	switch format {
	case "csv":
		return ToCSV(w, ds.Records)
	case "table":
		return ToTable(w, ds.Records)
	}
	return ToJSON(w, ds)
}

// ToJSON 写出数据集（带缩进格式）。记录为空时输出 [] 而不是 null。
func ToJSON(w io.Writer, ds model.Dataset) error {
	if ds.Records == nil {
		ds.Records = []model.EnrichedRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
