// Command srcsearch builds a deduplicated line corpus from one or more
// snapshot trees and runs parallel regex queries over it.
//
//	srcsearch [flags] PATTERN REF=DIR [REF=DIR...]
//
// Each REF=DIR names a snapshot directory to ingest under ref REF; a bare
// DIR uses its basename as the ref.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dl/srcsearch/internal/chunk"
	"github.com/dl/srcsearch/internal/config"
	"github.com/dl/srcsearch/internal/corpus"
	"github.com/dl/srcsearch/internal/matcher"
	"github.com/dl/srcsearch/internal/output"
	"github.com/dl/srcsearch/internal/search"
	"github.com/dl/srcsearch/internal/walker"
)

type flags struct {
	configPath  string
	filePattern string
	ignoreCase  bool
	fixed       bool
	pcre        bool
	noIndex     bool
	noSearch    bool
	maxMatches  int
	timeout     int
	threads     int
	orderRoot   string
	noIgnore    bool
	hidden      bool
	globs       []string
	useMmap     bool
	jsonOut     bool
	color       string
	context     bool
	verbose     bool
}

func main() {
	var fl flags

	root := &cobra.Command{
		Use:           "srcsearch [flags] PATTERN REF=DIR [REF=DIR...]",
		Short:         "parallel regex search over deduplicated source trees",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fl, args[0], args[1:])
		},
	}

	f := root.Flags()
	f.StringVar(&fl.configPath, "config", "", "TOML config file")
	f.StringVar(&fl.filePattern, "file", "", "only search files whose path matches this regex")
	f.BoolVarP(&fl.ignoreCase, "ignore-case", "i", false, "case-insensitive matching")
	f.BoolVarP(&fl.fixed, "fixed", "F", false, "treat PATTERN as a literal string")
	f.BoolVarP(&fl.pcre, "pcre", "P", false, "PCRE2 matching (disables index filtering)")
	f.BoolVar(&fl.noIndex, "no-index", false, "disable suffix-array filtering")
	f.BoolVar(&fl.noSearch, "no-search", false, "build the corpus but do not search")
	f.IntVar(&fl.maxMatches, "max-matches", 50, "maximum results for a single query")
	f.IntVar(&fl.timeout, "timeout", 1, "seconds a query may run; <= 0 disables")
	f.IntVar(&fl.threads, "threads", 0, "worker pool size (0 = NumCPU)")
	f.StringVar(&fl.orderRoot, "order-root", "", "walk these top-level directories first")
	f.BoolVar(&fl.noIgnore, "no-ignore", false, "do not honor .gitignore files")
	f.BoolVar(&fl.hidden, "hidden", false, "ingest hidden files and directories")
	f.StringArrayVar(&fl.globs, "glob", nil, "only ingest paths matching this glob (repeatable)")
	f.BoolVar(&fl.useMmap, "mmap", false, "back chunks with anonymous mmap")
	f.BoolVar(&fl.jsonOut, "json", false, "JSON lines output")
	f.StringVar(&fl.color, "color", "auto", "color output: auto, always, never")
	f.BoolVarP(&fl.context, "context", "C", true, "print context lines")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "srcsearch:", err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, fl flags, pattern string, trees []string) error {
	level := log.WarnLevel
	if fl.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	cfg, err := loadConfig(cmd, fl)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var alloc chunk.Allocator
	if fl.useMmap {
		alloc = chunk.NewMmapAllocator(0)
	} else {
		alloc = chunk.NewMemAllocator(0)
	}
	corp := corpus.New(alloc)

	repo := walker.NewDirRepository(walker.Options{
		NoIgnore: cfg.NoIgnore,
		Hidden:   cfg.Hidden,
		Globs:    cfg.Globs,
	})

	buildStart := time.Now()
	for _, tree := range trees {
		ref, dir := splitTree(tree)
		repo.AddRef(ref, dir)
		if err := corp.WalkRef(repo, ref, cfg.OrderRootDirs()); err != nil {
			return err
		}
	}
	if err := corp.Finalize(); err != nil {
		return err
	}

	st := corp.Stats()
	logger.Info("corpus built",
		"took", time.Since(buildStart),
		"bytes", st.Bytes, "dedup_bytes", st.DedupBytes,
		"lines", st.Lines, "dedup_lines", st.DedupLines,
		"files", st.Files, "dedup_files", st.DedupFiles,
		"chunks", len(corp.Chunks()))

	if !cfg.Search {
		return nil
	}

	pool := search.NewPool(cfg.Threads)
	defer pool.Close()

	engine := search.NewEngine(corp, pool, search.Options{
		Index:      cfg.Index,
		Search:     cfg.Search,
		MaxMatches: cfg.MaxMatches,
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		Logger:     logger,
	})

	formatter := newFormatter(fl)
	w := output.NewWriter()

	var buf []byte
	matched := false
	stats, err := engine.Search(search.Query{
		Pattern:     pattern,
		FilePattern: fl.filePattern,
		Matcher: matcher.Options{
			Fixed:      fl.fixed,
			PCRE:       fl.pcre,
			IgnoreCase: fl.ignoreCase,
		},
	}, func(r *search.MatchResult) {
		matched = true
		buf = formatter.Format(buf[:0], r)
		w.Write(buf)
	})
	if err != nil {
		return err
	}

	logger.Debug("search stats",
		"matches", stats.Matches, "why", stats.Why,
		"analyze", stats.AnalyzeTime, "index", stats.IndexTime,
		"sort", stats.SortTime, "regex", stats.RegexTime,
		"resolve", stats.ResolveTime)
	if stats.Why != search.ExitNone {
		logger.Warn("query stopped early", "why", stats.Why)
	}

	if !matched {
		os.Exit(1)
	}
	return nil
}

// loadConfig reads the config file (if given) and lays changed flags
// over it.
func loadConfig(cmd *cobra.Command, fl flags) (config.Config, error) {
	cfg := config.Default()
	if fl.configPath != "" {
		var err error
		cfg, err = config.Load(fl.configPath)
		if err != nil {
			return cfg, err
		}
	}

	set := cmd.Flags().Changed
	if set("no-index") {
		cfg.Index = !fl.noIndex
	}
	if set("no-search") {
		cfg.Search = !fl.noSearch
	}
	if set("max-matches") {
		cfg.MaxMatches = fl.maxMatches
	}
	if set("timeout") {
		cfg.Timeout = fl.timeout
	}
	if set("threads") {
		cfg.Threads = fl.threads
	}
	if set("order-root") {
		cfg.OrderRoot = fl.orderRoot
	}
	if set("no-ignore") {
		cfg.NoIgnore = fl.noIgnore
	}
	if set("hidden") {
		cfg.Hidden = fl.hidden
	}
	if set("glob") {
		cfg.Globs = fl.globs
	}
	return cfg, nil
}

func splitTree(arg string) (ref, dir string) {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return filepath.Base(filepath.Clean(arg)), arg
}

func newFormatter(fl flags) output.Formatter {
	if fl.jsonOut {
		return output.NewJSONFormatter()
	}
	useColor := false
	switch fl.color {
	case "always":
		useColor = true
	case "never":
		useColor = false
	default:
		useColor = output.StdoutIsTerminal()
	}
	styles := output.NoStyles()
	if useColor {
		styles = output.NewStyles()
	}
	return output.NewTextFormatter(styles, fl.context)
}
