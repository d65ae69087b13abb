package aggregate

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"go-film-diary/internal/model"
)

func entry(film, url string) model.DiaryEntry {
	return model.DiaryEntry{
		Film:    model.Ptr(film),
		Rating:  model.Ptr(8),
		Year:    model.Ptr(1999),
		Liked:   model.Ptr(true),
		LogDate: model.Ptr("2024-01-02"),
		URL:     model.Ptr(url),
	}
}

func detail(country string) model.FilmDetail {
	return model.FilmDetail{
		Country:         model.Ptr(country),
		Studio:          model.Ptr("Studio " + country),
		PrimaryLanguage: model.Ptr("English"),
		Genres:          []string{"Drama"},
		Director:        model.Ptr("Director " + country),
		Actors:          []string{"A", "B"},
		RunningTime:     model.Ptr(100),
		AverageRating:   model.Ptr(3.5),
	}
}

func TestMerge_JoinsByURLNotPosition(t *testing.T) {
	entries := []model.DiaryEntry{
		entry("One", "/film/one/"),
		entry("Two", "/film/two/"),
		entry("Three", "/film/three/"),
		entry("Four", "/film/four/"),
	}
	results := []DetailResult{
		{URL: "/film/one/", Detail: detail("USA")},
		{URL: "/film/two/", Detail: detail("France")},
		{URL: "/film/three/", Detail: detail("Japan")},
		{URL: "/film/four/", Detail: detail("Korea")},
	}
	want, dropped := Merge(entries, results)
	require.Zero(t, dropped)
	require.Len(t, want, 4)
	require.Equal(t, "France", want[1].Country)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]DetailResult(nil), results...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, _ := Merge(entries, shuffled)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("shuffled details changed output (-want +got):\n%s", diff)
		}
	}
}

func TestMerge_ForeignResultNeverEnriches(t *testing.T) {
	entries := []model.DiaryEntry{entry("One", "/film/one/")}
	results := []DetailResult{{URL: "/film/other/", Detail: detail("USA")}}
	got, dropped := Merge(entries, results)
	require.Empty(t, got)
	require.Equal(t, 1, dropped)
}

func TestMerge_FailedDetailDropsOnlyThatEntry(t *testing.T) {
	entries := []model.DiaryEntry{
		entry("One", "/film/one/"),
		entry("Two", "/film/two/"),
	}
	results := []DetailResult{
		{URL: "/film/one/", Err: errors.New("exhausted")},
		{URL: "/film/two/", Detail: detail("USA")},
	}
	got, dropped := Merge(entries, results)
	require.Equal(t, 1, dropped)
	require.Len(t, got, 1)
	require.Equal(t, "Two", got[0].Film)
}

func TestMerge_RewatchesShareDetail(t *testing.T) {
	entries := []model.DiaryEntry{entry("Heat", "/film/heat/"), entry("Heat", "/film/heat/")}
	entries[1].LogDate = model.Ptr("2024-05-05")
	got, dropped := Merge(entries, []DetailResult{{URL: "/film/heat/", Detail: detail("USA")}})
	require.Zero(t, dropped)
	require.Len(t, got, 2)
	require.Equal(t, "2024-01-02", got[0].LogDate)
	require.Equal(t, "2024-05-05", got[1].LogDate)
}

func TestComplete_AnyRequiredNullDrops(t *testing.T) {
	full, ok := Complete(entry("One", "/film/one/"), detail("USA"))
	require.True(t, ok)
	require.Equal(t, model.EnrichedRecord{
		Film: "One", Rating: 8, Date: 1999, Liked: true, LogDate: "2024-01-02", URL: "/film/one/",
		Country: "USA", Studio: "Studio USA", PrimaryLanguage: "English", Genres: []string{"Drama"},
		Director: "Director USA", Actors: []string{"A", "B"}, RunningTime: 100, AverageRating: 3.5,
	}, full)

	entryMutations := map[string]func(*model.DiaryEntry){
		"film":     func(e *model.DiaryEntry) { e.Film = nil },
		"rating":   func(e *model.DiaryEntry) { e.Rating = nil },
		"date":     func(e *model.DiaryEntry) { e.Year = nil },
		"liked":    func(e *model.DiaryEntry) { e.Liked = nil },
		"log_date": func(e *model.DiaryEntry) { e.LogDate = nil },
		"url":      func(e *model.DiaryEntry) { e.URL = nil },
	}
	for name, mut := range entryMutations {
		e := entry("One", "/film/one/")
		mut(&e)
		_, ok := Complete(e, detail("USA"))
		require.False(t, ok, name)
	}

	detailMutations := map[string]func(*model.FilmDetail){
		"country":          func(d *model.FilmDetail) { d.Country = nil },
		"studio":           func(d *model.FilmDetail) { d.Studio = nil },
		"primary_language": func(d *model.FilmDetail) { d.PrimaryLanguage = nil },
		"director":         func(d *model.FilmDetail) { d.Director = nil },
		"running_time":     func(d *model.FilmDetail) { d.RunningTime = nil },
		"average_rating":   func(d *model.FilmDetail) { d.AverageRating = nil },
	}
	for name, mut := range detailMutations {
		d := detail("USA")
		mut(&d)
		_, ok := Complete(entry("One", "/film/one/"), d)
		require.False(t, ok, name)
	}

	// 列表列为空不影响保留
	d := detail("USA")
	d.Genres, d.Actors = nil, nil
	_, ok = Complete(entry("One", "/film/one/"), d)
	require.True(t, ok)
}
