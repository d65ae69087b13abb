// 包 store 提供存储实现（SQLite）：保存每次运行的数据集，供 top 等离线命令读取。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-film-diary/internal/model"
)

// ErrNoRun 表示库中没有该用户的运行记录。
var ErrNoRun = errors.New("no stored run")

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 执行建表语句，保持幂等。时间统一存 UTC 纳秒。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            started_at INTEGER NOT NULL,
            finished_at INTEGER NOT NULL,
            pages INTEGER,
            pages_failed INTEGER,
            entries INTEGER,
            details_failed INTEGER,
            dropped INTEGER,
            row_count INTEGER,
            duration_ns INTEGER
        );`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(username, started_at);`,
		`CREATE TABLE IF NOT EXISTS diary_rows (
            run_id TEXT NOT NULL,
            seq INTEGER NOT NULL,
            film TEXT,
            rating INTEGER,
            date INTEGER,
            liked INTEGER,
            log_date TEXT,
            url TEXT,
            country TEXT,
            studio TEXT,
            primary_language TEXT,
            genres TEXT,
            director TEXT,
            actors TEXT,
            running_time INTEGER,
            average_rating REAL,
            PRIMARY KEY(run_id, seq)
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// SaveRun 在一个事务内写入运行信息与全部记录。
func (s *SQLite) SaveRun(ctx context.Context, ds model.Dataset) error {
	if ds.RunID == "" {
		return errors.New("dataset.run_id required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	st := ds.Stats
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(id, username, started_at, finished_at,
            pages, pages_failed, entries, details_failed, dropped, row_count, duration_ns)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		ds.RunID, ds.Username, ds.StartedAt.UnixNano(), ds.FinishedAt.UnixNano(),
		st.Pages, st.PagesFailed, st.Entries, st.DetailsFailed, st.Dropped, st.Rows, int64(st.Duration)); err != nil {
		return fmt.Errorf("insert run %s: %w", ds.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO diary_rows(run_id, seq, film, rating, date, liked, log_date, url,
            country, studio, primary_language, genres, director, actors, running_time, average_rating)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()
	for i, r := range ds.Records {
		genres, err := json.Marshal(r.Genres)
		if err != nil {
			return fmt.Errorf("encode genres: %w", err)
		}
		actors, err := json.Marshal(r.Actors)
		if err != nil {
			return fmt.Errorf("encode actors: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, ds.RunID, i, r.Film, r.Rating, r.Date, r.Liked, r.LogDate, r.URL,
			r.Country, r.Studio, r.PrimaryLanguage, string(genres), r.Director, string(actors),
			r.RunningTime, r.AverageRating); err != nil {
			return fmt.Errorf("insert row %d of %s: %w", i, ds.RunID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", ds.RunID, err)
	}
	return nil
}

// LatestRun 读取用户最近一次运行；没有记录时返回 ErrNoRun。
func (s *SQLite) LatestRun(ctx context.Context, username string) (model.Dataset, error) {
	var (
		ds             model.Dataset
		started, ended int64
		duration       int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, started_at, finished_at,
            pages, pages_failed, entries, details_failed, dropped, row_count, duration_ns
        FROM runs WHERE username = ? ORDER BY started_at DESC LIMIT 1`, username).
		Scan(&ds.RunID, &ds.Username, &started, &ended,
			&ds.Stats.Pages, &ds.Stats.PagesFailed, &ds.Stats.Entries, &ds.Stats.DetailsFailed,
			&ds.Stats.Dropped, &ds.Stats.Rows, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return ds, fmt.Errorf("%w for %s", ErrNoRun, username)
	}
	if err != nil {
		return ds, fmt.Errorf("query run: %w", err)
	}
	ds.StartedAt = time.Unix(0, started).UTC()
	ds.FinishedAt = time.Unix(0, ended).UTC()
	ds.Stats.Duration = time.Duration(duration)

	recs, err := s.rows(ctx, ds.RunID)
	if err != nil {
		return ds, err
	}
	ds.Records = recs
	return ds, nil
}

func (s *SQLite) rows(ctx context.Context, runID string) ([]model.EnrichedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT film, rating, date, liked, log_date, url, country, studio,
            primary_language, genres, director, actors, running_time, average_rating
        FROM diary_rows WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	out := []model.EnrichedRecord{}
	for rows.Next() {
		var (
			r              model.EnrichedRecord
			genres, actors string
		)
		if err := rows.Scan(&r.Film, &r.Rating, &r.Date, &r.Liked, &r.LogDate, &r.URL, &r.Country, &r.Studio,
			&r.PrimaryLanguage, &genres, &r.Director, &actors, &r.RunningTime, &r.AverageRating); err != nil {
			return nil, fmt.Errorf("scan rows: %w", err)
		}
		if err := json.Unmarshal([]byte(genres), &r.Genres); err != nil {
			return nil, fmt.Errorf("decode genres: %w", err)
		}
		if err := json.Unmarshal([]byte(actors), &r.Actors); err != nil {
			return nil, fmt.Errorf("decode actors: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
