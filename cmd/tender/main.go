package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tender/internal"
	"tender/internal/abcp"
	"tender/internal/config"
	"tender/internal/jobs"
	"tender/internal/pipeline"
	"tender/internal/server"
	"tender/internal/storage"
	"tender/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg, "tender")

	cmd := os.Args[1]
	if cmd == "run" {
		runOnce(cfg, logger, os.Args[2:])
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "profile:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "display name")
		profileID := fs.String("profile-id", "", "ABCP profileId")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" || strings.TrimSpace(*profileID) == "" {
			must(fmt.Errorf("--name and --profile-id are required"))
		}
		p, err := db.CreateProfile(strings.TrimSpace(*name), strings.TrimSpace(*profileID))
		must(err)
		fmt.Printf("profile added id=%d %s\n", p.ID, p)
	case "profile:list":
		profiles, err := db.ListProfiles()
		must(err)
		for _, p := range profiles {
			fmt.Printf("%d\t%s\n", p.ID, p)
		}
	case "job:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		profile := fs.Int64("profile", 0, "client profile id")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *profile == 0 {
			must(fmt.Errorf("--input and --profile are required"))
		}
		p, err := db.GetProfile(*profile)
		must(err)
		if p == nil {
			must(fmt.Errorf("client profile %d not found", *profile))
		}
		abs, err := filepath.Abs(*input)
		must(err)
		_, err = os.Stat(abs)
		must(err)
		job, err := db.CreateJob(p.ID, abs)
		must(err)
		fmt.Printf("job created id=%d status=%s\n", job.ID, job.Status)
	case "job:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "job id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		runner := jobs.NewRunner(db, cfg, logger)
		job, err := runner.Run(context.Background(), *id)
		if job.Log != "" {
			fmt.Print(job.Log)
		}
		must(err)
		fmt.Printf("job %d %s result=%s\n", job.ID, job.Status, derefString(job.ResultPath))
	case "job:list":
		list, err := db.ListJobs(20)
		must(err)
		for _, j := range list {
			fmt.Printf("%d\t%s\tprofile=%d\t%s\t%s\n", j.ID, j.Status, j.ProfileID, j.CreatedAt, filepath.Base(j.InputPath))
		}
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		withWorker := fs.Bool("worker", false, "also poll and run new jobs in this process")
		_ = fs.Parse(os.Args[2:])

		runner := jobs.NewRunner(db, cfg, logger)
		srv := &http.Server{Addr: cfg.Addr(), Handler: server.NewRouter(cfg, db, runner, logger)}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if *withWorker {
			w := jobs.NewWorker(db, runner, time.Duration(cfg.WorkerIntervalSec)*time.Second, logger)
			go func() { _ = w.Run(ctx) }()
		}

		go func() {
			logger.Info().Str("addr", cfg.Addr()).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("listen")
			}
		}()

		<-ctx.Done()
		logger.Info().Msg("server shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	default:
		usage()
		os.Exit(1)
	}
}

// runOnce reconciles one file without touching the job database.
func runOnce(cfg config.Config, logger zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	input := fs.String("input", "", "input table (.xlsx, .xls, .csv, .html)")
	output := fs.String("output", "", "output xlsx path")
	profileID := fs.String("profile-id", "", "ABCP profileId for prices")
	profileName := fs.String("profile-name", "", "profile label for the report")
	_ = fs.Parse(args)
	if *input == "" || *output == "" {
		must(fmt.Errorf("--input --output are required"))
	}

	abcpCfg, err := cfg.ABCP()
	must(err)

	events := internal.LogSink{Logger: logger}

	var profile *internal.ClientProfile
	if strings.TrimSpace(*profileID) != "" {
		profile = &internal.ClientProfile{Name: util.FirstNonEmpty(strings.TrimSpace(*profileName), strings.TrimSpace(*profileID)), ProfileID: strings.TrimSpace(*profileID)}
	}

	p := &pipeline.Pipeline{
		Client: abcp.NewClient(abcpCfg, events),
		Runner: pipeline.NewRunner(cfg.Workers),
		Events: events,
	}
	stats, err := p.Run(context.Background(), pipeline.RunOptions{InputPath: *input, OutputPath: *output, Profile: profile})
	must(err)
	fmt.Printf("run done requests=%d offers=%d exact=%d cross=%d unmatched=%d output=%s\n",
		stats.Requests, stats.Offers, stats.Exact, stats.Cross, stats.Unmatched, *output)
}

func usage() {
	fmt.Println("usage: tender <command>")
	fmt.Println("commands:")
	fmt.Println("  run --input=request.xlsx --output=./out/result.xlsx [--profile-id=12 --profile-name=Retail]")
	fmt.Println("  profile:add --name=Retail --profile-id=12")
	fmt.Println("  profile:list")
	fmt.Println("  job:create --input=request.xlsx --profile=1")
	fmt.Println("  job:run --id=1")
	fmt.Println("  job:list")
	fmt.Println("  serve [--worker]")
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
