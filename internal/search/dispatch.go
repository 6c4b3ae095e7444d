package search

import (
	"fmt"
	"io"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dl/srcsearch/internal/chunk"
	"github.com/dl/srcsearch/internal/corpus"
	"github.com/dl/srcsearch/internal/index"
	"github.com/dl/srcsearch/internal/matcher"
)

// task pairs a query's searcher with one chunk to process.
type task struct {
	s *searcher
	c *chunk.Chunk
}

// Pool is a fixed set of worker goroutines that outlives individual
// queries. Each worker keeps a reusable candidate buffer sized to the
// chunks it sees, so filtered search allocates nothing per chunk.
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
}

// NewPool starts threads workers. threads <= 0 defaults to NumCPU.
func NewPool(threads int) *Pool {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan task)}
	for i := 0; i < threads; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	var scratch []uint32
	for t := range p.tasks {
		if need := cap(t.c.Data) / MinFilterRatio; cap(scratch) < need {
			scratch = make([]uint32, need)
		}
		t.s.searchChunk(t.c, scratch[:cap(t.c.Data)/MinFilterRatio])
		t.s.results <- nil
	}
}

// Close shuts the pool down; idle workers exit once running tasks drain.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// Options configures an Engine.
type Options struct {
	Index      bool // suffix-array filtering
	Search     bool // if false, queries return immediately (build-only mode)
	MaxMatches int
	Timeout    time.Duration // <= 0 disables the deadline
	Logger     *log.Logger
}

// Query is one search request.
type Query struct {
	Pattern     string
	FilePattern string // optional path regex
	Matcher     matcher.Options
}

// Engine runs queries over a finalized corpus using a shared worker pool.
type Engine struct {
	corp *corpus.Corpus
	pool *Pool
	opts Options
}

// NewEngine creates an Engine. The pool may be shared between engines
// and outlives every query.
func NewEngine(corp *corpus.Corpus, pool *Pool, opts Options) *Engine {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = 50
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Engine{corp: corp, pool: pool, opts: opts}
}

// Search runs one query, invoking cb for every match result. Results
// within a chunk arrive in ascending line offset; no order is guaranteed
// across chunks. Returns the query stats.
func (e *Engine) Search(q Query, cb func(*MatchResult)) (Stats, error) {
	if !e.corp.Finalized() {
		panic("search: corpus not finalized")
	}

	m, err := matcher.New(q.Pattern, q.Matcher)
	if err != nil {
		return Stats{}, fmt.Errorf("invalid pattern: %w", err)
	}

	var filePat *regexp.Regexp
	if q.FilePattern != "" {
		filePat, err = regexp.Compile(q.FilePattern)
		if err != nil {
			return Stats{}, fmt.Errorf("invalid file pattern: %w", err)
		}
	}

	s := &searcher{
		corp:       e.corp,
		m:          m,
		filePat:    filePat,
		indexed:    e.opts.Index,
		logger:     e.opts.Logger,
		maxMatches: e.opts.MaxMatches,
		results:    make(chan *MatchResult, 256),
		files:      make([]atomic.Int32, len(e.corp.Files())),
		density:    -1,
	}
	for i := range s.files {
		s.files[i].Store(-1)
	}
	if e.opts.Timeout > 0 {
		s.deadline = time.Now().Add(e.opts.Timeout)
	}

	start := time.Now()
	if ip := matcher.IndexPattern(q.Pattern, q.Matcher); ip != "" {
		// The pattern already compiled; a parse failure here only costs
		// the filter.
		s.key, _ = index.Analyze(ip)
	}
	s.analyzeTime.add(time.Since(start))

	qid := uuid.New()
	e.opts.Logger.Debug("query start",
		"id", qid, "pattern", q.Pattern, "file_pattern", q.FilePattern,
		"indexed", s.indexed && !s.key.NoFilter())

	stats := Stats{}
	if !e.opts.Search {
		return stats, nil
	}

	chunks := e.corp.Chunks()
	go func() {
		for _, c := range chunks {
			e.pool.tasks <- task{s: s, c: c}
		}
	}()

	pending := len(chunks)
	matches := 0
	for pending > 0 {
		r := <-s.results
		if r == nil {
			pending--
			continue
		}
		matches++
		cb(r)
	}

	// Classify a query that ran to completion exactly at the cap.
	s.exitEarly()

	stats.AnalyzeTime = s.analyzeTime.elapsed()
	stats.IndexTime = s.indexTime.elapsed()
	stats.SortTime = s.sortTime.elapsed()
	stats.RegexTime = s.regexTime.elapsed()
	stats.ResolveTime = s.resolveTime.elapsed()
	stats.Matches = matches
	stats.Why = s.exitReason()

	e.opts.Logger.Debug("query done",
		"id", qid, "matches", matches, "why", stats.Why,
		"analyze", stats.AnalyzeTime, "index", stats.IndexTime,
		"sort", stats.SortTime, "regex", stats.RegexTime,
		"resolve", stats.ResolveTime)

	return stats, nil
}
