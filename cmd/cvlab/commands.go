package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"cvlab/internal/config"
	"cvlab/internal/logger"
	"cvlab/internal/opencv/conversion"
	"cvlab/internal/pipeline"
	"cvlab/internal/samples"
	"cvlab/internal/shutdown"
	"cvlab/internal/stages"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// commonFlags are shared by every command that reads the configuration.
type commonFlags struct {
	configPath    string
	outputRoot    string
	photoPath     string
	samplesDir    string
	keepOriginals bool
	logLevel      string
	logFormat     string

	set map[string]bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "cvlab.yaml", "YAML configuration file (missing file uses defaults)")
	fs.StringVar(&c.outputRoot, "output", "", "output root directory")
	fs.StringVar(&c.photoPath, "photo", "", "personal photo path")
	fs.StringVar(&c.samplesDir, "samples", "", "directory with <name>.png replacements for the standard images")
	fs.BoolVar(&c.keepOriginals, "keep-originals", true, "also write <name>_original.png in the filtering output")
	fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&c.logFormat, "log-format", "", "console or json")
}

// parse parses args and remembers which flags were given explicitly.
func (c *commonFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	return nil
}

// load reads the configuration file, then applies any flags that were set.
func (c *commonFlags) load() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}

	if c.outputRoot != "" {
		cfg.OutputRoot = c.outputRoot
	}
	if c.photoPath != "" {
		cfg.PhotoPath = c.photoPath
	}
	if c.samplesDir != "" {
		cfg.SamplesDir = c.samplesDir
	}
	if c.set["keep-originals"] {
		cfg.KeepOriginals = c.keepOriginals
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	return cfg, cfg.Validate()
}

type app struct {
	cfg      config.Config
	log      logger.Logger
	shutdown *shutdown.Manager
}

func newApp(cfg config.Config) *app {
	log := logger.New(cfg.Log.Format, cfg.LogLevel())
	m := shutdown.NewManager(context.Background(), log)
	m.Listen()

	log.Debug("Main", "configuration loaded", map[string]interface{}{
		"output_root":    cfg.OutputRoot,
		"photo_path":     cfg.PhotoPath,
		"samples_dir":    cfg.SamplesDir,
		"keep_originals": cfg.KeepOriginals,
		"stages":         cfg.Stages,
		"gocv_version":   gocv.Version(),
		"opencv_version": gocv.OpenCVVersion(),
	})

	return &app{cfg: cfg, log: log, shutdown: m}
}

func (a *app) coordinator(list []stages.Stage) *pipeline.Coordinator {
	provider := samples.NewProvider(a.cfg.SamplesDir, a.cfg.PhotoPath, a.log)
	return pipeline.NewCoordinator(a.cfg.OutputRoot, provider, list, a.log)
}

func (a *app) stageOptions() stages.Options {
	return stages.Options{KeepOriginals: a.cfg.KeepOriginals, Logger: a.log}
}

func (a *app) run(stdout io.Writer) (pipeline.Result, error) {
	defer a.shutdown.Shutdown()

	list := pipeline.DefaultStages(a.cfg, a.stageOptions())
	result, err := a.coordinator(list).Run(a.shutdown.Context())
	printResult(stdout, result)
	return result, err
}

func printResult(w io.Writer, result pipeline.Result) {
	fmt.Fprintf(w, "Stages succeeded: %d\n", len(result.Succeeded()))
	for _, name := range result.Succeeded() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "Stages failed: %d\n", len(result.Failed()))
	for _, s := range result.Stages {
		if !s.OK() {
			fmt.Fprintf(w, "  %s: %v\n", s.Name, s.Err)
		}
	}
	if result.SummaryPath != "" {
		fmt.Fprintf(w, "Summary: %s\n", result.SummaryPath)
	}
}

func runCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := common.parse(fs, args); err != nil {
		return 2
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	result, err := newApp(cfg).run(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if !result.OK() {
		return 1
	}
	return 0
}

func stageCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)

	if len(args) == 0 || !config.IsStage(args[0]) {
		fmt.Fprintf(stderr, "stage: want one of %v\n", config.AllStages)
		return 2
	}
	name := args[0]
	if err := common.parse(fs, args[1:]); err != nil {
		return 2
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	cfg.Stages = []string{name}

	a := newApp(cfg)
	defer a.shutdown.Shutdown()

	list := pipeline.DefaultStages(cfg, a.stageOptions())
	res := a.coordinator(list).RunStage(a.shutdown.Context(), list[0])
	if !res.OK() {
		fmt.Fprintf(stderr, "stage %s: %v\n", name, res.Err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %d images, %d records in %s\n", res.Name, res.Images, res.Records, res.Dir)
	return 0
}

func verifyCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := common.parse(fs, args); err != nil {
		return 2
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	return verify(cfg.OutputRoot, stdout)
}

func verify(root string, stdout io.Writer) int {
	checks, err := pipeline.Verify(root)
	for _, c := range checks {
		switch {
		case !c.OK():
			fmt.Fprintf(stdout, "FAIL %s: %s\n", c.Path, c.Problem)
		case c.Files > 0:
			fmt.Fprintf(stdout, "ok   %s: %d file(s), %d CSV row(s)\n", c.Path, c.Files, c.Rows)
		default:
			fmt.Fprintf(stdout, "ok   %s\n", c.Path)
		}
	}

	if err != nil {
		fmt.Fprintln(stdout, "verification failed")
		return 1
	}
	fmt.Fprintln(stdout, "all outputs present")
	return 0
}

func testCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := common.parse(fs, args); err != nil {
		return 2
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	if _, err := newApp(cfg).run(stdout); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	return verify(cfg.OutputRoot, stdout)
}

func checkerboardCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("checkerboard", flag.ContinueOnError)
	fs.SetOutput(stderr)

	board := samples.CalibrationBoard
	out := fs.String("out", "checkerboard.png", "output image path")
	fs.IntVar(&board.CornersX, "cols", board.CornersX, "internal corners per row")
	fs.IntVar(&board.CornersY, "rows", board.CornersY, "internal corners per column")
	fs.IntVar(&board.Square, "square", board.Square, "square size in pixels")
	fs.IntVar(&board.Margin, "margin", board.Margin, "white border in pixels")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	img, err := board.Render()
	if err != nil {
		fmt.Fprintf(stderr, "checkerboard: %v\n", err)
		return 2
	}
	defer img.Close()

	gray, err := conversion.GrayMatToImage(img)
	if err != nil {
		fmt.Fprintf(stderr, "checkerboard: %v\n", err)
		return 1
	}
	if err := imaging.Save(gray, *out); err != nil {
		fmt.Fprintf(stderr, "checkerboard: %v\n", err)
		return 1
	}

	size := board.Size()
	fmt.Fprintf(stdout, "wrote %s (%dx%d, %dx%d internal corners)\n",
		*out, size.X, size.Y, board.CornersX, board.CornersY)
	return 0
}
