package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"tender/internal"
	"tender/internal/config"
	"tender/internal/pipeline"
	"tender/internal/storage"
)

type stubClient struct {
	offers []internal.Offer
}

func (s stubClient) Search(context.Context, internal.TenderRequest, string) []internal.Offer {
	return s.offers
}

func (s stubClient) LoadDirectory(context.Context) internal.Directory {
	return internal.Directory{7: "Main"}
}

type fixture struct {
	db      *storage.DB
	cfg     config.Config
	runner  *Runner
	profile internal.ClientProfile
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "tender.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		OutputDir:        filepath.Join(dir, "out"),
		ABCPHost:         "abcp.example.test",
		ABCPUserLogin:    "login",
		ABCPUserPassword: "md5hash",
		Workers:          2,
	}
	profile, err := db.CreateProfile("Retail", "12")
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(db, cfg, zerolog.Nop())
	runner.newClient = func(c config.ABCPConfig, _ internal.EventSink) pipeline.Client {
		if c.BaseURL != "https://abcp.example.test" {
			t.Fatalf("base url=%q", c.BaseURL)
		}
		return stubClient{offers: []internal.Offer{{"brand": "BOSCH", "number": "0986AB1", "price": json.Number("100"), "distributorId": json.Number("7")}}}
	}
	return &fixture{db: db, cfg: cfg, runner: runner, profile: profile, dir: dir}
}

func (f *fixture) input(t *testing.T, name string, rows [][]any) string {
	t.Helper()
	x := excelize.NewFile()
	sheet := x.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = x.SetCellValue(sheet, cell, v)
		}
	}
	path := filepath.Join(f.dir, name)
	if err := x.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunnerSuccess(t *testing.T) {
	f := newFixture(t)
	input := f.input(t, "req.xlsx", [][]any{{"Бренд", "Артикул", "Количество"}, {"Bosch", "0 986 AB1", 2}})
	job, err := f.db.CreateJob(f.profile.ID, input)
	if err != nil {
		t.Fatal(err)
	}

	done, err := f.runner.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != internal.JobDone || done.ResultPath == nil {
		t.Fatalf("job=%+v", done)
	}
	if *done.ResultPath != ResultPath(f.cfg.OutputDir, job.ID) {
		t.Fatalf("result=%s", *done.ResultPath)
	}
	if !strings.HasSuffix(*done.ResultPath, filepath.Join("tender_results", "job_1_abcp_result.xlsx")) {
		t.Fatalf("result=%s", *done.ResultPath)
	}
	if _, err := os.Stat(*done.ResultPath); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"start: job 1", "profile: Retail (profileId=12)", "OK: result saved to"} {
		if !strings.Contains(done.Log, want) {
			t.Fatalf("log missing %q:\n%s", want, done.Log)
		}
	}

	runs, err := f.db.ListRuns(job.ID)
	if err != nil || len(runs) != 1 || !strings.Contains(runs[0].CountsRaw, `"exact":1`) {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
}

func TestRunnerFailuresMarkError(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(f *fixture)
		rows    [][]any
		wantLog string
		target  func(error) bool
	}{
		{
			name:    "missing config",
			mutate:  func(f *fixture) { f.runner.cfg.ABCPUserPassword = "" },
			rows:    [][]any{{"Brand", "Article"}, {"Bosch", "1"}},
			wantLog: "configuration error: missing required env vars: ABCP_USERPSW",
			target: func(err error) bool {
				var e *config.ConfigError
				return errors.As(err, &e)
			},
		},
		{
			name:    "undetectable columns",
			rows:    [][]any{{"Name", "Price"}, {"x", 1}},
			wantLog: "input error: column detection failed",
			target: func(err error) bool {
				var e *pipeline.ColumnDetectionError
				return errors.As(err, &e)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.mutate != nil {
				tc.mutate(f)
			}
			job, err := f.db.CreateJob(f.profile.ID, f.input(t, "req.xlsx", tc.rows))
			if err != nil {
				t.Fatal(err)
			}
			done, err := f.runner.Run(context.Background(), job.ID)
			if err == nil || !tc.target(err) {
				t.Fatalf("err=%v", err)
			}
			if done.Status != internal.JobError || done.ResultPath != nil {
				t.Fatalf("job=%+v", done)
			}
			if !strings.Contains(done.Log, tc.wantLog) {
				t.Fatalf("log:\n%s", done.Log)
			}
		})
	}
}

func TestRunnerCancelledRunIsError(t *testing.T) {
	f := newFixture(t)
	input := f.input(t, "req.xlsx", [][]any{{"Бренд", "Артикул", "Количество"}, {"Bosch", "0 986 AB1", 2}})
	job, err := f.db.CreateJob(f.profile.ID, input)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done, err := f.runner.Run(ctx, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if done.Status != internal.JobError || done.ResultPath != nil {
		t.Fatalf("job=%+v", done)
	}
	if !strings.Contains(done.Log, "run interrupted") {
		t.Fatalf("log:\n%s", done.Log)
	}
	if _, err := os.Stat(ResultPath(f.cfg.OutputDir, job.ID)); !os.IsNotExist(err) {
		t.Fatalf("result file written: %v", err)
	}
}

func TestRunnerRejectsJobInProgress(t *testing.T) {
	f := newFixture(t)
	job, _ := f.db.CreateJob(f.profile.ID, "/nowhere.xlsx")
	if ok, err := f.db.ClaimJob(job.ID, time.Hour); err != nil || !ok {
		t.Fatalf("claim ok=%v err=%v", ok, err)
	}
	if _, err := f.runner.Run(context.Background(), job.ID); !errors.Is(err, ErrJobBusy) {
		t.Fatalf("err=%v", err)
	}
}

func TestWorkerRunOnce(t *testing.T) {
	f := newFixture(t)
	good, _ := f.db.CreateJob(f.profile.ID, f.input(t, "a.xlsx", [][]any{{"Brand", "Article"}, {"Bosch", "1"}}))
	bad, _ := f.db.CreateJob(f.profile.ID, filepath.Join(f.dir, "missing.xlsx"))

	w := NewWorker(f.db, f.runner, 0, zerolog.Nop())
	n, err := w.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if j, _ := f.db.MustJob(good.ID); j.Status != internal.JobDone {
		t.Fatalf("good=%+v", j)
	}
	if j, _ := f.db.MustJob(bad.ID); j.Status != internal.JobError || !strings.Contains(j.Log, "input error") {
		t.Fatalf("bad=%+v", j)
	}
	if v, _ := f.db.GetMetadata(lastPollKey); v == nil {
		t.Fatal("last poll not recorded")
	}

	n, err = w.RunOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second cycle n=%d err=%v", n, err)
	}
}

func TestWorkerRequeuesStaleJob(t *testing.T) {
	f := newFixture(t)
	job, _ := f.db.CreateJob(f.profile.ID, f.input(t, "a.xlsx", [][]any{{"Brand", "Article"}, {"Bosch", "1"}}))
	if ok, err := f.db.ClaimJob(job.ID, time.Hour); err != nil || !ok {
		t.Fatalf("claim ok=%v err=%v", ok, err)
	}

	w := NewWorker(f.db, f.runner, 0, zerolog.Nop())
	if n, err := w.RunOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := f.runner.Run(context.Background(), job.ID); !errors.Is(err, ErrJobBusy) {
		t.Fatalf("err=%v", err)
	}

	// timestamps have second resolution
	f.runner.staleAfter = time.Second
	time.Sleep(1100 * time.Millisecond)

	n, err := w.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	done, _ := f.db.MustJob(job.ID)
	if done.Status != internal.JobDone || !strings.Contains(done.Log, "requeued") {
		t.Fatalf("job=%+v", done)
	}
}
