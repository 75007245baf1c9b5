// Command submit validates a local forecast file and uploads it to the
// archive, or with -dry-run writes the canonical file next to -out.
//
// Usage:
//
//	go run ./cmd/submit \
//	  -file forecast.nc -variable tas -date 20241114 -period 1 \
//	  -team ECMWF -model modelA -archive dir -archive-dir data/archive
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/forecast-submission-gateway/internal/archive"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
	"github.com/couchcryptid/forecast-submission-gateway/internal/observability"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry/sqlite"
	"github.com/couchcryptid/forecast-submission-gateway/internal/submission"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	file := flag.String("file", "", "forecast netCDF file to submit")
	variable := flag.String("variable", "", "forecast variable (tas, mslp, pr)")
	date := flag.String("date", "", "forecast start date, YYYYMMDD")
	period := flag.String("period", "", "forecast period code")
	team := flag.String("team", "", "team name")
	model := flag.String("model", "", "model name")
	ruleset := flag.String("ruleset", "default", "rule set: default, period or weekly")
	datePolicy := flag.String("date-policy", "none", "start date policy: none or weekday")
	registryPath := flag.String("registry", "", "optional SQLite registry to check the team against")
	archiveKind := flag.String("archive", "dir", "archive backend: dir or ftp")
	archiveDir := flag.String("archive-dir", "data/archive", "archive root for -archive dir")
	ftpAddr := flag.String("ftp-addr", "", "FTP server host:port for -archive ftp")
	ftpUser := flag.String("ftp-user", "anonymous", "FTP user")
	ftpPassword := flag.String("ftp-password", "", "FTP password")
	ftpRoot := flag.String("ftp-root", "/forecasts", "FTP archive root")
	out := flag.String("out", ".", "output directory for -dry-run")
	dryRun := flag.Bool("dry-run", false, "validate and write the canonical file locally without uploading")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *file == "" || *variable == "" || *date == "" || *period == "" || *team == "" || *model == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -file, -variable, -date, -period, -team, -model")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules, err := forecast.RulesByName(*ruleset)
	if err != nil {
		return err
	}
	var dates forecast.DatePolicy
	switch *datePolicy {
	case "none":
	case "weekday":
		dates = forecast.NewThursdayWindow(clockwork.NewRealClock())
	default:
		return fmt.Errorf("unknown -date-policy %q", *datePolicy)
	}
	validator, err := forecast.NewValidator(rules, dates, logger)
	if err != nil {
		return err
	}

	var store archive.Store
	switch *archiveKind {
	case "dir":
		store = archive.Dir{Root: *archiveDir}
	case "ftp":
		if *ftpAddr == "" {
			return errors.New("-ftp-addr is required for -archive ftp")
		}
		store = archive.FTP{Addr: *ftpAddr, User: *ftpUser, Password: *ftpPassword, Root: *ftpRoot, Timeout: 30 * time.Second}
	default:
		return fmt.Errorf("unknown -archive %q", *archiveKind)
	}

	var reg registry.Registry
	if *registryPath != "" {
		db, err := sqlite.Open(ctx, *registryPath, nil)
		if err != nil {
			return err
		}
		defer db.Close()
		reg = db
	}

	grid, err := ncfile.ReadFile(*file)
	if err != nil {
		return err
	}
	code, err := forecast.ParsePeriodCode(json.Number(*period))
	if err != nil {
		return err
	}
	req := submission.Request{
		Grid: grid,
		Submission: forecast.Submission{
			Variable:  *variable,
			StartDate: *date,
			Period:    code,
			Team:      *team,
			Model:     *model,
		},
	}

	svc := submission.New(validator, reg, store, nil, logger, observability.NewMetrics(), submission.Settings{})

	if *dryRun {
		p, err := svc.Prepare(ctx, req)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(*out, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path := filepath.Join(*out, p.Filename)
		if err := os.WriteFile(path, p.Payload, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("valid: wrote %s (%d bytes)", path, len(p.Payload))
		return nil
	}

	r, err := svc.Submit(ctx, req)
	if err != nil {
		return err
	}
	log.Printf("submitted %s/%s (%d bytes, id %s)", r.Directory, r.Filename, r.Bytes, r.ID)
	return nil
}
