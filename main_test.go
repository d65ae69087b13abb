package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-film-diary/internal/fetch"
)

const listingPage = `<html><body>
<a rel="nofollow" data-film-name="Heat" data-rating="9" data-film-year="1995" data-liked="true"
   data-viewing-date="2024-03-02" data-film-poster="/film/heat-1995/image-150/">Edit</a>
</body></html>`

func detailPage(country string) string {
	return `<html><head><meta name="twitter:data2" content="4.21 out of 5"></head><body>
<a href="/director/michael-mann/">Michael Mann</a>
<a href="/actor/al-pacino/">Al Pacino</a>
<a href="/studio/warner/">Warner Bros. Pictures</a>` + country + `
<a href="/films/language/english/">English</a>
<a href="/films/genre/crime/">Crime</a>
<p class="text-link">170&nbsp;mins</p></body></html>`
}

// site 返回只有一页一条记录的假站点；country 为空时详情缺少国家。
func site(t *testing.T, country string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alice/films/diary/", "/alice/films/diary/page/1/":
			_, _ = w.Write([]byte(listingPage))
		case "/film/heat-1995/":
			_, _ = w.Write([]byte(detailPage(country)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func settings(t *testing.T, baseURL string, extra string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "settings.yaml")
	body := "BASE_URL: " + baseURL + "\nRETRY:\n  attempts: 1\n  base_ms: 1\nLOG_LEVEL: none\n" + extra
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestScrape_CSVToFile(t *testing.T) {
	base := site(t, `<a href="/films/country/usa/">USA</a>`)
	out := filepath.Join(t.TempDir(), "diary.csv")
	cfg := settings(t, base, "")

	_, err := execute("scrape", "alice", "--config", cfg, "--rules", "", "--format", "csv", "--out", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Heat", rows[1][0])
	require.Equal(t, "USA", rows[1][6])
}

func TestScrape_SavesRunForTop(t *testing.T) {
	base := site(t, `<a href="/films/country/usa/">USA</a>`)
	dsn := filepath.Join(t.TempDir(), "diary.db")
	cfg := settings(t, base, "USERNAME: alice\nDATABASE:\n  enable: true\n  dsn: "+dsn+"\n")

	_, err := execute("scrape", "--config", cfg, "--rules", "")
	require.NoError(t, err)

	out, err := execute("top", "country", "--config", cfg, "--rules", "")
	require.NoError(t, err)
	require.Contains(t, out, "USA")
}

func TestScrape_EmptyResultExitsTwo(t *testing.T) {
	base := site(t, "")
	cfg := settings(t, base, "")
	_, err := execute("scrape", "alice", "--config", cfg, "--rules", "")
	require.Equal(t, 2, exitCode(err))
}

func TestScrape_UnknownUserExitsOne(t *testing.T) {
	base := site(t, "")
	cfg := settings(t, base, "")
	_, err := execute("scrape", "nobody", "--config", cfg, "--rules", "")
	require.Equal(t, 1, exitCode(err))
	require.True(t, strings.Contains(err.Error(), "nobody"))
}

func TestPages(t *testing.T) {
	base := site(t, "")
	cfg := settings(t, base, "")
	out, err := execute("pages", "alice", "--config", cfg, "--rules", "")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)
}

func TestTop_NoStoredRun(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "diary.db")
	cfg := settings(t, "http://127.0.0.1:1", "DATABASE:\n  dsn: "+dsn+"\n")
	_, err := execute("top", "genre", "--user", "alice", "--config", cfg, "--rules", "")
	require.Equal(t, 2, exitCode(err))
}

func TestProbeClientFollowsVerifyTLSSetting(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(srv.Close)

	out, err := execute("pages", "alice", "--config", settings(t, srv.URL, ""), "--rules", "")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)

	_, err = execute("pages", "alice", "--config", settings(t, srv.URL, "PROBE_VERIFY_TLS: true\n"), "--rules", "")
	require.ErrorIs(t, err, fetch.ErrTLS)

	a := &app{configPath: settings(t, srv.URL, ""), rulesPath: ""}
	require.NoError(t, a.load())
	cl, probe, err := a.clients()
	require.NoError(t, err)
	defer cl.Close()
	defer probe.Close()
	_, err = probe.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = cl.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, fetch.ErrTLS)
}
