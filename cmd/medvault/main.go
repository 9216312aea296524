package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"medvault/internal/bootstrap"
	"medvault/internal/config"
	"medvault/internal/core/domain"
	"medvault/internal/core/ports"
	"medvault/internal/observability/logging"
)

var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".odt":  "application/vnd.oasis.opendocument.text",
}

func main() {
	profilePath := flag.String("profile", "", "path to a patient profile YAML file")
	ingestDir := flag.String("ingest", "", "directory of files to classify and store")
	removeID := flag.String("remove", "", "id of a stored document to remove")
	list := flag.Bool("list", false, "list stored documents")
	reset := flag.Bool("reset", false, "clear the store before any other action")
	report := flag.Bool("report", false, "synthesize the report and write both exports")
	outDir := flag.String("out", "", "export output directory (overrides EXPORT_DIR)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("medvault", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if cfg.MetricsPort != "" {
		go func() {
			addr := ":" + cfg.MetricsPort
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.Metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Error("metrics_server_failed", "error", err)
			}
		}()
	}

	if err := run(ctx, app, runOptions{
		profilePath: *profilePath,
		ingestDir:   *ingestDir,
		removeID:    *removeID,
		list:        *list,
		reset:       *reset,
		report:      *report,
		outDir:      *outDir,
	}); err != nil {
		if domain.IsKind(err, domain.ErrPermission) {
			log.Fatalf("permission error (check GEMINI_API_KEY): %v", err)
		}
		log.Fatalf("medvault: %v", err)
	}
}

type runOptions struct {
	profilePath string
	ingestDir   string
	removeID    string
	list        bool
	reset       bool
	report      bool
	outDir      string
}

func run(ctx context.Context, app *bootstrap.App, opts runOptions) error {
	session := app.Session

	if opts.reset {
		if err := session.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("store cleared")
	}

	if err := session.Init(ctx); err != nil {
		return err
	}
	app.Metrics.SetDocumentsStored(len(session.Documents()))

	if opts.profilePath != "" {
		profile, err := loadProfile(opts.profilePath)
		if err != nil {
			return err
		}
		if err := session.SetProfile(ctx, profile); err != nil {
			return err
		}
	}

	if opts.ingestDir != "" {
		files, err := readInputFiles(opts.ingestDir)
		if err != nil {
			return err
		}

		start := time.Now()
		err = session.Ingest(ctx, files, progressSink(app))
		app.Metrics.ObserveClassification("medvault", time.Since(start), err)
		if err != nil {
			// The progress sink only sees completed batches; the batch that
			// failed is counted here.
			app.Metrics.ObserveBatch("medvault", err)
			return err
		}
		session.Acknowledge()
		app.Metrics.SetDocumentsStored(len(session.Documents()))
		fmt.Printf("ingested %d documents\n", len(session.Documents()))
	}

	if opts.removeID != "" {
		if err := session.Remove(ctx, opts.removeID); err != nil {
			return err
		}
		app.Metrics.SetDocumentsStored(len(session.Documents()))
		fmt.Printf("removed %s\n", opts.removeID)
	}

	if opts.list {
		for i, doc := range session.Documents() {
			date := doc.Date
			if date == "" {
				date = "N/A"
			}
			dup := ""
			if doc.Duplicate {
				dup = " [duplicate]"
			}
			fmt.Printf("%3d  %s  %-10s  %-14s  %s%s\n", i+1, doc.ID, date, doc.Category, doc.Summary, dup)
		}
	}

	if opts.report {
		return generateReport(ctx, app, opts.outDir)
	}
	return nil
}

func generateReport(ctx context.Context, app *bootstrap.App, outDir string) error {
	session := app.Session

	profile := session.Profile()
	if profile == nil {
		return fmt.Errorf("no patient profile stored; pass -profile")
	}
	if len(session.Documents()) == 0 {
		return fmt.Errorf("no documents stored; pass -ingest first")
	}

	start := time.Now()
	rep, err := session.Synthesize(ctx)
	app.Metrics.ObserveSynthesis("medvault", time.Since(start), err)
	if err != nil {
		return err
	}
	session.Acknowledge()

	start = time.Now()
	artifacts, err := app.ExportUC.Export(ctx, *profile, rep, session.Documents())
	elapsed := time.Since(start)
	app.Metrics.ObserveExport("medvault", "fixed-page", elapsed, err)
	app.Metrics.ObserveExport("medvault", "flow-document", elapsed, err)
	if err != nil {
		return err
	}

	dir := outDir
	if dir == "" {
		dir = app.Config.ExportDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, artifact := range []struct {
		name string
		data []byte
	}{
		{artifacts.PDFName, artifacts.PDF},
		{artifacts.FlowName, artifacts.Flow},
	} {
		path := filepath.Join(dir, artifact.name)
		if err := os.WriteFile(path, artifact.data, 0o644); err != nil {
			return fmt.Errorf("write export %s: %w", artifact.name, err)
		}
		slog.Info("export_rendered", "path", path, "bytes", len(artifact.data))
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

// progressSink prints progress to the operator, counts the batch for
// metrics, and mirrors the event to NATS when configured.
func progressSink(app *bootstrap.App) ports.ProgressSink {
	return ports.ProgressFunc(func(done, total int) {
		fmt.Printf("classified %d/%d\n", done, total)
		slog.Info("batch_classified", "done", done, "total", total)
		app.Metrics.ObserveBatch("medvault", nil)
		if app.ProgressEvents != nil {
			app.ProgressEvents.Progress(done, total)
		}
	})
}

func loadProfile(path string) (domain.PatientProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.PatientProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var profile domain.PatientProfile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return domain.PatientProfile{}, fmt.Errorf("parse profile: %w", err)
	}
	switch profile.Gender {
	case domain.GenderMale, domain.GenderFemale, domain.GenderOther:
	default:
		return domain.PatientProfile{}, fmt.Errorf("profile gender must be male, female or other, got %q", profile.Gender)
	}
	return profile, nil
}

// readInputFiles loads a directory in name order. Files with an unrecognized
// extension are skipped here; the ingestion boundary filters by mime type
// again.
func readInputFiles(dir string) ([]domain.InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ingest dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	files := make([]domain.InputFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		mimeType, ok := mimeByExtension[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files = append(files, domain.InputFile{
			Name:     entry.Name(),
			MimeType: mimeType,
			Data:     data,
		})
	}
	return files, nil
}
