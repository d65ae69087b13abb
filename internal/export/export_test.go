package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-film-diary/internal/model"
	"go-film-diary/internal/summary"
)

func sample() model.Dataset {
	return model.Dataset{
		RunID:      "6f1c2f8e-0000-4000-8000-000000000001",
		Username:   "alice",
		StartedAt:  time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 3, 2, 10, 0, 5, 0, time.UTC),
		Stats:      model.RunStats{Pages: 1, Entries: 2, Dropped: 1, Rows: 1, Duration: 5 * time.Second},
		Records: []model.EnrichedRecord{{
			Film: "Heat", Rating: 9, Date: 1995, Liked: true, LogDate: "2024-03-02", URL: "/film/heat-1995/",
			Country: "USA", Studio: "Warner Bros. Pictures", PrimaryLanguage: "English",
			Genres: []string{"Crime", "Drama"}, Director: "Michael Mann",
			Actors: []string{"Al Pacino", "Robert De Niro"}, RunningTime: 170, AverageRating: 4.21,
		}},
	}
}

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(sample(), "json", "", &buf))

	var got model.Dataset
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Fatalf("json roundtrip (-want +got):\n%s", diff)
	}
	require.Contains(t, buf.String(), `"primary_language": "English"`)
	require.Contains(t, buf.String(), `"date": 1995`)
}

func TestWrite_JSONEmptyRecords(t *testing.T) {
	ds := sample()
	ds.Records = nil
	var buf bytes.Buffer
	require.NoError(t, ToJSON(&buf, ds))
	require.Contains(t, buf.String(), `"records": []`)
}

func TestWrite_CSVToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Write(sample(), "CSV", path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, model.Columns, rows[0])
	require.Equal(t, []string{
		"Heat", "9", "1995", "true", "2024-03-02", "/film/heat-1995/",
		"USA", "Warner Bros. Pictures", "English", "Crime|Drama",
		"Michael Mann", "Al Pacino|Robert De Niro", "170", "4.21",
	}, rows[1])
}

func TestWrite_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Write(sample(), "xlsx", path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, model.Columns, rows[0])
	require.Equal(t, "Heat", rows[1][0])
	require.Equal(t, "Crime|Drama", rows[1][9])
	require.Equal(t, "170", rows[1][12])
}

func TestWrite_XLSXNeedsPath(t *testing.T) {
	require.Error(t, Write(sample(), "xlsx", "", &bytes.Buffer{}))
}

func TestWrite_UnknownFormat(t *testing.T) {
	require.Error(t, Write(sample(), "parquet", "", &bytes.Buffer{}))

	path := filepath.Join(t.TempDir(), "out.parquet")
	require.Error(t, Write(sample(), "parquet", path, nil))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

// failingCloser 写入成功但关闭失败（模拟磁盘写满时的延迟报错）。
type failingCloser struct{ bytes.Buffer }

func (*failingCloser) Close() error { return errors.New("no space left on device") }

func TestWrite_CloseErrorReturned(t *testing.T) {
	fc := &failingCloser{}
	prev := createFile
	createFile = func(string) (io.WriteCloser, error) { return fc, nil }
	t.Cleanup(func() { createFile = prev })

	err := Write(sample(), "csv", "out.csv", nil)
	require.ErrorContains(t, err, "no space left on device")
	require.Contains(t, fc.String(), "Heat")
}

func TestToTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(sample(), "table", "", &buf))
	out := buf.String()
	require.Contains(t, out, "Heat")
	require.Contains(t, out, "Al Pacino|Robert De Niro")
	require.Contains(t, strings.ToLower(out), "primary_language")
}

func TestToTopTable(t *testing.T) {
	var buf bytes.Buffer
	ToTopTable(&buf, summary.Country, []summary.Count{{Name: "USA", Count: 3}, {Name: "France", Count: 1}})
	out := buf.String()
	require.Contains(t, out, "USA")
	require.Contains(t, out, "France")
	require.Less(t, strings.Index(out, "USA"), strings.Index(out, "France"))
}

func TestToEntryTable_NullsAsDash(t *testing.T) {
	var buf bytes.Buffer
	ToEntryTable(&buf, []model.DiaryEntry{{Film: model.Ptr("Ronin"), LogDate: model.Ptr("2024-02-20")}})
	out := buf.String()
	require.Contains(t, out, "Ronin")
	require.Contains(t, out, " - ")
}
