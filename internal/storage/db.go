package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"tender/internal"
)

type DB struct {
	conn *sqlx.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; the server and the worker share the handle
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS client_profiles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  profile_id TEXT NOT NULL UNIQUE,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tender_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  client_profile_id INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'new',
  input_path TEXT NOT NULL,
  result_path TEXT,
  log TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(client_profile_id) REFERENCES client_profiles(id)
);
CREATE INDEX IF NOT EXISTS idx_tender_jobs_status ON tender_jobs(status);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id TEXT NOT NULL,
  job_id INTEGER,
  timings_json TEXT NOT NULL,
  counts_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(job_id) REFERENCES tender_jobs(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const profileColumns = `id, name, profile_id`

const jobColumns = `id, client_profile_id, status, input_path, result_path, log, created_at, updated_at`

func (d *DB) CreateProfile(name, profileID string) (internal.ClientProfile, error) {
	res, err := d.conn.Exec(`INSERT INTO client_profiles (name, profile_id) VALUES (?, ?)`, name, profileID)
	if err != nil {
		return internal.ClientProfile{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return internal.ClientProfile{}, err
	}
	return internal.ClientProfile{ID: id, Name: name, ProfileID: profileID}, nil
}

func (d *DB) GetProfile(id int64) (*internal.ClientProfile, error) {
	var p internal.ClientProfile
	err := d.conn.Get(&p, `SELECT `+profileColumns+` FROM client_profiles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) ListProfiles() ([]internal.ClientProfile, error) {
	out := []internal.ClientProfile{}
	if err := d.conn.Select(&out, `SELECT `+profileColumns+` FROM client_profiles ORDER BY name, id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) CreateJob(profileID int64, inputPath string) (internal.TenderJob, error) {
	res, err := d.conn.Exec(`INSERT INTO tender_jobs (client_profile_id, status, input_path) VALUES (?, ?, ?)`,
		profileID, internal.JobNew, inputPath)
	if err != nil {
		return internal.TenderJob{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return internal.TenderJob{}, err
	}
	job, err := d.GetJob(id)
	if err != nil {
		return internal.TenderJob{}, err
	}
	if job == nil {
		return internal.TenderJob{}, errors.New("failed to create job")
	}
	return *job, nil
}

func (d *DB) GetJob(id int64) (*internal.TenderJob, error) {
	var job internal.TenderJob
	err := d.conn.Get(&job, `SELECT `+jobColumns+` FROM tender_jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (d *DB) MustJob(id int64) (internal.TenderJob, error) {
	job, err := d.GetJob(id)
	if err != nil {
		return internal.TenderJob{}, err
	}
	if job == nil {
		return internal.TenderJob{}, fmt.Errorf("job not found: id=%d", id)
	}
	return *job, nil
}

// ListJobs returns the latest jobs first.
func (d *DB) ListJobs(limit int) ([]internal.TenderJob, error) {
	out := []internal.TenderJob{}
	if err := d.conn.Select(&out, `SELECT `+jobColumns+` FROM tender_jobs ORDER BY id DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobsByStatus returns the oldest jobs first.
func (d *DB) ListJobsByStatus(status internal.JobStatus, limit int) ([]internal.TenderJob, error) {
	out := []internal.TenderJob{}
	if err := d.conn.Select(&out, `SELECT `+jobColumns+` FROM tender_jobs WHERE status = ? ORDER BY id ASC LIMIT ?`, status, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimJob moves a job to in_progress. It reports false when another runner
// holds the job; a hold older than staleAfter is taken over, and a
// non-positive staleAfter never expires.
func (d *DB) ClaimJob(id int64, staleAfter time.Duration) (bool, error) {
	res, err := d.conn.Exec(`
UPDATE tender_jobs SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND (status != ? OR (? AND updated_at <= datetime('now', ?)))
`, internal.JobInProgress, id, internal.JobInProgress, staleAfter > 0, sqliteAgo(staleAfter))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RequeueStale puts jobs stuck in in_progress for longer than staleAfter back
// to new, noting it in their log. It returns how many were requeued.
func (d *DB) RequeueStale(staleAfter time.Duration) (int64, error) {
	if staleAfter <= 0 {
		return 0, nil
	}
	res, err := d.conn.Exec(`
UPDATE tender_jobs SET status = ?, log = log || ?, updated_at = CURRENT_TIMESTAMP
WHERE status = ? AND updated_at <= datetime('now', ?)
`, internal.JobNew, "requeued: previous run did not finish\n", internal.JobInProgress, sqliteAgo(staleAfter))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sqliteAgo(d time.Duration) string {
	return fmt.Sprintf("-%d seconds", int64(d/time.Second))
}

// FinishJob stores the terminal status, result path and the full job log.
func (d *DB) FinishJob(id int64, status internal.JobStatus, resultPath *string, log string) error {
	_, err := d.conn.Exec(`
UPDATE tender_jobs SET status = ?, result_path = ?, log = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, status, resultPath, log, id)
	return err
}

func (d *DB) InsertRun(traceID string, jobID int64, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (trace_id, job_id, timings_json, counts_json) VALUES (?, ?, ?, ?)`,
		traceID, jobID, string(timingsJSON), string(countsJSON))
	return err
}

type RunRecord struct {
	ID         int64  `db:"id"`
	TraceID    string `db:"trace_id"`
	JobID      int64  `db:"job_id"`
	TimingsRaw string `db:"timings_json"`
	CountsRaw  string `db:"counts_json"`
}

func (d *DB) ListRuns(jobID int64) ([]RunRecord, error) {
	out := []RunRecord{}
	if err := d.conn.Select(&out, `SELECT id, trace_id, job_id, timings_json, counts_json FROM runs WHERE job_id = ? ORDER BY id`, jobID); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.Get(&value, `SELECT value FROM metadata WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
