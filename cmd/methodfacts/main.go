// Package main implements the CLI driver for the method fact collectors.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/715d/methodfacts/pkg/classfile"
	"github.com/715d/methodfacts/pkg/methodfacts"
)

// Config holds all command-line configuration options.
type Config struct {
	Feeds       []string // class feeds or directories to analyze
	Libraries   []string // feeds consulted only for the class hierarchy
	Verbose     bool     // enables detailed output and statistics
	Format      string   // auto, text or json
	NoCoreStubs bool     // leave out the embedded core library stubs
	All         bool     // report every analysed method
	Profile     bool     // enables CPU and memory profiling
}

const exitError = 2

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "methodfacts [feeds...]",
		Short: "Collect whole-program facts about compiled methods",
		Long: `methodfacts reads class feeds and records, for every method:
- code size, call count and calling exposure
- whether it modifies state, directly or through calls on its own receiver
- whether it implements a signature inherited from a supertype
- whether a returned List, Set or Map is unmodifiable`,
		Example: `  methodfacts ./classes                  # Analyze every feed under ./classes
  methodfacts app.yaml --lib deps.txtar  # Resolve supertypes from a library feed
  methodfacts --all --format json . > facts.json`,
		Args:               cobra.ArbitraryArgs,
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("methodfacts version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfg.Format, "format", "auto", "Output format: auto, text or json (auto picks text on a terminal)")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.Libraries, "lib", nil, "Library feeds used only to resolve the class hierarchy")
	rootCmd.PersistentFlags().BoolVar(&cfg.NoCoreStubs, "no-jdk", false, "Do not load the embedded core library stubs")
	rootCmd.PersistentFlags().BoolVar(&cfg.All, "all", false, "Report every analysed method, not only those with notable facts")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg.Feeds = args
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = []string{"."}
	}

	result, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(os.Stdout, result, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}
	return nil
}

// Result is the report for one run.
type Result struct {
	Methods []methodfacts.MethodRow `json:"methods"`
	Stats   methodfacts.Stats       `json:"stats"`
}

func runAnalysis(ctx context.Context, cfg *Config) (*Result, error) {
	slog.Info("loading feeds", "feeds", cfg.Feeds)
	classes, err := methodfacts.LoadClasses(ctx, methodfacts.LoaderOptions{Paths: cfg.Feeds})
	if err != nil {
		return nil, fmt.Errorf("loading feeds: %w", err)
	}
	slog.Info("loaded classes", "num", len(classes))

	var libs []*classfile.Class
	if len(cfg.Libraries) > 0 {
		libs, err = methodfacts.LoadClasses(ctx, methodfacts.LoaderOptions{Paths: cfg.Libraries})
		if err != nil {
			return nil, fmt.Errorf("loading libraries: %w", err)
		}
		slog.Info("loaded library classes", "num", len(libs))
	}

	analyzer := methodfacts.NewAnalyzer(methodfacts.AnalyzerOptions{
		Libraries:   libs,
		NoCoreStubs: cfg.NoCoreStubs,
	})
	stats, err := analyzer.Analyze(ctx, classes)
	if err != nil {
		return nil, err
	}
	slog.Info("analysis completed", "dur", stats.Duration)

	return &Result{Methods: analyzer.Rows(cfg.All), Stats: stats}, nil
}

func writeResults(w io.Writer, result *Result, cfg *Config) error {
	format, err := outputFormat(cfg.Format, w)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, result, time.Now())
	}
	if cfg.Verbose {
		slog.Info("",
			"classes", result.Stats.Classes,
			"methods", result.Stats.Methods,
			"undecodable", result.Stats.Undecodable,
			"facts", result.Stats.Facts,
			"closure_passes", result.Stats.ClosurePasses,
			"analysis_duration", result.Stats.Duration.String())
	}
	_, err = io.WriteString(w, formatTable(result.Methods))
	return err
}

// outputFormat resolves "auto" to text when w is a terminal and json
// otherwise.
func outputFormat(format string, w io.Writer) (string, error) {
	switch format {
	case "text", "json":
		return format, nil
	case "auto":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return "text", nil
		}
		return "json", nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func writeJSON(w io.Writer, result *Result, now time.Time) error {
	methods := result.Methods
	if methods == nil {
		methods = []methodfacts.MethodRow{}
	}
	data, err := json.MarshalIndent(jOutput{
		Methods:   methods,
		Stats:     result.Stats,
		Version:   version,
		Timestamp: timefmt.Format(now.UTC(), "%Y-%m-%dT%H:%M:%SZ"),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

type jOutput struct {
	Methods   []methodfacts.MethodRow `json:"methods"`
	Stats     methodfacts.Stats       `json:"stats"`
	Version   string                  `json:"version"`
	Timestamp string                  `json:"timestamp"`
}

var tableHeader = []string{"METHOD", "SOURCE", "BYTES", "CALLS", "EXPOSURE", "MUTATES", "IMMUTABILITY", "FLAGS"}

// formatTable renders rows as space-aligned columns. Widths are measured in
// terminal cells so wide characters in names stay aligned.
func formatTable(rows []methodfacts.MethodRow) string {
	if len(rows) == 0 {
		return ""
	}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, tableHeader)
	for _, r := range rows {
		cells = append(cells, []string{
			r.Name,
			source(r),
			strconv.Itoa(r.NumBytes),
			strconv.Itoa(int(r.NumCalls)),
			r.Exposure.String(),
			strconv.FormatBool(r.ModifiesState),
			r.Immutability.String(),
			flags(r),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var b strings.Builder
	for _, row := range cells {
		for i, c := range row {
			if i == len(row)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString("  ")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func source(r methodfacts.MethodRow) string {
	switch {
	case r.File == "":
		return "-"
	case r.Line > 0:
		return r.File + ":" + strconv.Itoa(r.Line)
	}
	return r.File
}

func flags(r methodfacts.MethodRow) string {
	var fs []string
	if r.Derived {
		fs = append(fs, "derived")
	}
	if r.Shape != "" {
		fs = append(fs, r.Shape)
	}
	if len(fs) == 0 {
		return "-"
	}
	return strings.Join(fs, ",")
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.Format == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	cpuProfile = nil
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error { return e.err }
