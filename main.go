package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/thiremani/oslogopt/compiler"
	"github.com/thiremani/oslogopt/config"
	"github.com/thiremani/oslogopt/lexer"
	"github.com/thiremani/oslogopt/parser"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"tinygo.org/x/go-llvm"
)

var SIL_SUFFIX = ".sil"
var OPT_SIL_SUFFIX = ".opt.sil"
var IR_SUFFIX = ".ll"

type options struct {
	configPath string
	target     string
	wordSize   int
	emit       string
	outDir     string
	noCache    bool
	verbose    bool
	version    bool
	files      []string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("oslogopt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: oslogopt [flags] file%s...\n", SIL_SUFFIX)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "config file (default: "+config.FileName+" found from the first input's directory upward)")
	fs.StringVar(&opts.target, "target", "", "LLVM target triple (default: host)")
	fs.IntVar(&opts.wordSize, "word-size", 0, "override the target word size in bytes (4 or 8)")
	fs.StringVar(&opts.emit, "emit", "", "output kind: "+config.EmitSIL+" or "+config.EmitLLVM)
	fs.StringVar(&opts.outDir, "o", "", "output directory (default: stdout for a single input)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the output cache")
	fs.BoolVar(&opts.verbose, "v", false, "log every optimized call")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.files = fs.Args()
	return opts, nil
}

// loadConfig finds the config file and applies flag overrides to it.
func loadConfig(opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" && len(opts.files) > 0 {
		found, err := config.FindConfig(filepath.Dir(opts.files[0]))
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		zap.L().Debug("loaded config", zap.String("path", path))
	}

	if opts.set["target"] {
		cfg.Target = opts.target
	}
	if opts.set["word-size"] {
		cfg.WordSize = opts.wordSize
	}
	if opts.set["emit"] {
		cfg.Emit = opts.emit
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveTarget(cfg *config.Config) (compiler.Target, error) {
	target, err := compiler.NewTarget(cfg.Target)
	if err != nil {
		return compiler.Target{}, err
	}
	if cfg.WordSize != 0 {
		return target.WithWordSize(cfg.WordSize)
	}
	return target, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newLogger builds a console logger without timestamps. Levels are colored
// when w is a terminal.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	if isTerminal(w) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func outputName(path, emit string) string {
	base := strings.TrimSuffix(filepath.Base(path), SIL_SUFFIX)
	if emit == config.EmitLLVM {
		return base + IR_SUFFIX
	}
	return base + OPT_SIL_SUFFIX
}

// compileFile parses source, folds its log calls and renders the output.
func compileFile(path string, source []byte, target compiler.Target, emit string) ([]byte, *compiler.Result, error) {
	l := lexer.New(path, string(source))
	p := parser.New(l)
	m := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, nil, errors.Join(joined...)
	}

	res := compiler.NewPass(target).Run(m)
	if emit != config.EmitLLVM {
		return []byte(m.String()), res, nil
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	em := compiler.NewEmitter(ctx, strings.TrimSuffix(filepath.Base(path), SIL_SUFFIX), target)
	defer em.Dispose()
	if err := em.Emit(res); err != nil {
		return nil, nil, fmt.Errorf("lowering %s: %w", path, err)
	}
	return []byte(em.GenerateIR()), res, nil
}

func summarize(res *compiler.Result) string {
	return fmt.Sprintf("folded %d/%d log calls", res.Folded(), len(res.Sites))
}

func processFile(path string, cfg *config.Config, target compiler.Target, noCache bool) ([]byte, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	build := func() ([]byte, string, error) {
		out, res, err := compileFile(path, source, target, cfg.Emit)
		if err != nil {
			return nil, "", err
		}
		return out, summarize(res), nil
	}
	if noCache {
		return build()
	}

	key := newCacheKey(source, target, cfg.Emit)
	out, summary, _, err := cachedBuild(cfg.CacheDir, outputName(path, cfg.Emit), key, build)
	return out, summary, err
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		printVersion(stdout)
		return 0
	}
	if len(opts.files) == 0 {
		fmt.Fprintf(stderr, "usage: oslogopt [flags] file%s...\n", SIL_SUFFIX)
		return 2
	}
	if len(opts.files) > 1 && opts.outDir == "" {
		fmt.Fprintln(stderr, "-o is required with more than one input file")
		return 2
	}

	level := zapcore.InfoLevel
	if opts.verbose {
		level = zapcore.DebugLevel
	}
	log := newLogger(stderr, level)
	defer log.Sync()
	undo := zap.ReplaceGlobals(log)
	defer undo()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}
	if cfg.RemarksEnabled() || opts.verbose {
		compiler.SetLogger(log)
	} else {
		compiler.SetLogger(log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)))
	}
	defer compiler.SetLogger(nil)

	target, err := resolveTarget(cfg)
	if err != nil {
		log.Error("invalid target", zap.Error(err))
		return 1
	}
	log.Debug("specializing log calls",
		zap.String("target", target.Triple),
		zap.Int("word_size", target.WordSize),
		zap.String("emit", cfg.Emit),
	)

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0755); err != nil {
			log.Error("creating output directory", zap.Error(err))
			return 1
		}
	}

	status := 0
	for _, path := range opts.files {
		out, summary, err := processFile(path, cfg, target, opts.noCache)
		if err != nil {
			fmt.Fprintln(stderr, err)
			status = 1
			continue
		}

		if opts.outDir == "" {
			stdout.Write(out)
		} else {
			outPath := filepath.Join(opts.outDir, outputName(path, cfg.Emit))
			if err := os.WriteFile(outPath, out, 0644); err != nil {
				log.Error("writing output", zap.String("path", outPath), zap.Error(err))
				status = 1
				continue
			}
		}
		fmt.Fprintf(stderr, "%s: %s\n", path, summary)
	}
	return status
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
