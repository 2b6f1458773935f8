// Command facedecode decodes SCRFD network outputs into face detections.
//
// Frames are read as newline-delimited JSON from a file or stdin (-input), or
// as length-prefixed JSON from a model runner process (-exec). Detections are
// written to stdout, one JSON line per frame.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/facedecode/internal/annotate"
	"github.com/ayusman/facedecode/internal/app"
	"github.com/ayusman/facedecode/internal/config"
	"github.com/ayusman/facedecode/internal/detector"
	"github.com/ayusman/facedecode/internal/hook"
	"github.com/ayusman/facedecode/internal/logging"
	"github.com/ayusman/facedecode/internal/source"
	"github.com/ayusman/facedecode/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type options struct {
	input    string
	exec     string
	envFile  string
	dbPath   string
	hooksDir string
	image    string
	annotate string
	logLevel string
	batch    int
	runs     int

	conf      float64
	iou       float64
	minFace   int
	landmarks bool
}

// record is one line of output.
type record struct {
	Frame      int                  `json:"frame"`
	RunID      string               `json:"run_id,omitempty"`
	LatencyMS  float64              `json:"latency_ms"`
	Detections []detector.Detection `json:"detections"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(opts, set)
	if err != nil {
		fmt.Fprintf(stderr, "facedecode: %v\n", err)
		return 2
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Output: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "facedecode: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, opts, cfg, log, stdout); err != nil {
		log.WithError(err).Error("facedecode failed")
		return exitCode(err)
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	var opts options
	fs := flag.NewFlagSet("facedecode", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.input, "input", "-", "NDJSON frame file, - for stdin")
	fs.StringVar(&opts.exec, "exec", "", "model runner command emitting length-prefixed frames (overrides -input)")
	fs.StringVar(&opts.envFile, "env", "", "env file with FACEDECODE_* settings (default ./.env)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database to record runs in")
	fs.StringVar(&opts.hooksDir, "hooks", "", "directory of hooks to run per frame")
	fs.StringVar(&opts.image, "image", "", "source image to annotate")
	fs.StringVar(&opts.annotate, "annotate", "", "annotated output path; a %d verb is replaced by the frame index")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level")
	fs.IntVar(&opts.batch, "batch", 1, "frames decoded concurrently per batch")
	fs.IntVar(&opts.runs, "runs", 0, "list the last N stored runs and exit")

	fs.Float64Var(&opts.conf, "conf", 0, "confidence threshold")
	fs.Float64Var(&opts.iou, "iou", 0, "NMS IoU threshold")
	fs.IntVar(&opts.minFace, "min-face", 0, "minimum face width and height in pixels")
	fs.BoolVar(&opts.landmarks, "landmarks", true, "decode facial landmarks")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// loadConfig applies explicitly set flags over the environment.
func loadConfig(opts options, set map[string]bool) (config.Config, error) {
	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}

	p := &cfg.Detector.Params
	if set["conf"] {
		p.ConfidenceThreshold = float32(opts.conf)
	}
	if set["iou"] {
		p.IOUThreshold = float32(opts.iou)
	}
	if set["min-face"] {
		p.MinFaceSize = opts.minFace
	}
	if set["landmarks"] {
		p.ReturnLandmarks = opts.landmarks
	}
	if set["db"] {
		cfg.DBPath = opts.dbPath
	}
	if set["log-level"] {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func execute(ctx context.Context, opts options, cfg config.Config, log *logrus.Logger, stdout io.Writer) error {
	var st *store.Store
	if cfg.DBPath != "" {
		s, err := store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		st = s
	}

	if opts.runs > 0 {
		if st == nil {
			return fmt.Errorf("%w: -runs requires a database", detector.ErrInvalidConfig)
		}
		return listRuns(st, opts.runs, stdout)
	}

	det, err := detector.NewSCRFD(cfg.Detector)
	if err != nil {
		return err
	}

	src, name, err := openSource(opts, cfg, log)
	if err != nil {
		return err
	}
	defer src.Close()

	var hooks *hook.Manager
	if opts.hooksDir != "" {
		hooks = hook.NewManager(opts.hooksDir)
		if err := hooks.Discover(); err != nil {
			return fmt.Errorf("discover hooks: %w", err)
		}
		log.WithField("hooks", len(hooks.List())).Info("hooks loaded")
	}

	a, err := app.New(app.Config{
		Source:     src,
		SourceName: name,
		Detector:   det,
		Params:     cfg.Detector.Params,
		BatchSize:  opts.batch,
		Store:      st,
		Hooks:      hooks,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	// Output failures stop the run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	enc := json.NewEncoder(stdout)
	var writeErr error
	a.OnResult(func(r app.Result) {
		if writeErr != nil {
			return
		}
		writeErr = enc.Encode(record{
			Frame:      r.Index,
			RunID:      r.RunID,
			LatencyMS:  float64(r.Latency.Microseconds()) / 1000,
			Detections: r.Detections,
		})
		if writeErr == nil && opts.annotate != "" {
			writeErr = annotateFrame(opts, r)
		}
		if writeErr != nil {
			cancel()
		}
	})

	stats, err := a.Run(runCtx)
	log.WithFields(logging.Fields{
		"frames":        stats.Frames,
		"faces":         stats.Faces,
		"skipped":       stats.Skipped,
		"hook_failures": stats.HookFailures,
		"elapsed":       stats.Elapsed.String(),
	}).Info("done")

	if writeErr != nil {
		return fmt.Errorf("write output: %w", writeErr)
	}
	return err
}

func openSource(opts options, cfg config.Config, log *logrus.Logger) (source.Source, string, error) {
	numStrides := len(cfg.Detector.Strides)

	if fields := strings.Fields(opts.exec); len(fields) > 0 {
		src, err := source.NewProcessSource(source.ProcessConfig{
			Command:    fields[0],
			Args:       fields[1:],
			NumStrides: numStrides,
			Stderr:     log.WriterLevel(logrus.DebugLevel),
		})
		if err != nil {
			return nil, "", err
		}
		return src, fields[0], nil
	}

	src, err := source.Open(opts.input, numStrides)
	if err != nil {
		return nil, "", err
	}
	return src, src.Name(), nil
}

func annotateFrame(opts options, r app.Result) error {
	if opts.image == "" {
		return fmt.Errorf("%w: -annotate requires -image", detector.ErrInvalidConfig)
	}
	out := opts.annotate
	if strings.Contains(out, "%d") {
		out = fmt.Sprintf(out, r.Index)
	}
	return annotate.File(opts.image, out, r.Detections, annotate.DefaultStyle())
}

func listRuns(st *store.Store, limit int, stdout io.Writer) error {
	runs, err := st.Runs().List(limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// exitCode maps configuration and input shape errors to 2.
func exitCode(err error) int {
	if errors.Is(err, detector.ErrInvalidConfig) || errors.Is(err, detector.ErrShapeMismatch) {
		return 2
	}
	return 1
}
