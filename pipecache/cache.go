// Package pipecache keeps compiled shader stages in step with the pipeline
// the user is editing.
//
// A [Cache] mirrors the shader passes of a pipeline list. Every frame the
// renderer hands it the current list; the cache compiles passes that
// appeared, destroys the stages of passes that disappeared and moves the
// stages of passes that changed position, without recompiling anything that
// is still present. Identity is the item's pipeline.Handle, never its name
// or index.
//
// When the number of passes is unchanged the diff runs at most once per
// throttle interval. A reorder, or an edit that removes one pass and adds
// another in the same frame, therefore goes unnoticed until the interval
// has passed or the count changes; ForceReconcile runs the diff at once.
//
// Compile failures are reported to a diag.Sink keyed by the pass name and
// never returned as errors. A pass whose stage failed keeps drawing with the
// stage it compiled last.
package pipecache

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/shaded/diag"
	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/shader"
)

// DefaultThrottle is the minimum interval between two diffs while the pass
// count is unchanged.
const DefaultThrottle = 500 * time.Millisecond

// Diagnostic texts reported for compile failures.
const (
	MsgCompileFailed   = "Failed to compile the shader"
	MsgRecompileFailed = "Failed to compile the shader(s)"
)

// Source loads shader source text by project-relative path. Failures are
// reported as empty text.
type Source interface {
	LoadProjectFile(path string) string
}

// Entry is one cached shader pass and the stages compiled for it.
// The entry exclusively owns its stages.
type Entry struct {
	// Handle is the item's handle when the entry was created. An item
	// removed from its store and added again gets a new handle and so a new
	// entry.
	Handle pipeline.Handle

	Item   *pipeline.Item
	Vertex *shader.Program
	Pixel  *shader.Program
}

// Pass returns the entry's shader pass payload.
func (e *Entry) Pass() *pipeline.ShaderPass { return e.Item.Pass() }

// Stats counts cache work since creation or the last ResetStats.
type Stats struct {
	Creations       uint64
	Destructions    uint64
	Moves           uint64
	Compiles        uint64
	CompileFailures uint64
	Skipped         uint64
}

// Config configures a Cache. Device, Compiler and Source are required.
type Config struct {
	Device   gpucore.Device
	Compiler shader.Compiler
	Source   Source

	// Sink receives compile diagnostics. Nil discards them.
	Sink diag.Sink

	// Clock drives the throttle timer. Nil uses the system clock.
	Clock Clock

	// Throttle is the timer interval. Zero uses DefaultThrottle.
	Throttle time.Duration
}

// Cache mirrors the shader passes of a pipeline list.
//
// Cache is driven from the render goroutine only and is not safe for
// concurrent use.
type Cache struct {
	dev      gpucore.Device
	compiler shader.Compiler
	source   Source
	sink     diag.Sink

	throttle time.Duration
	timer    *Stopwatch

	entries []*Entry

	// scratch is the filtered pass list reused across calls.
	scratch []*pipeline.Item
	seen    map[pipeline.Handle]struct{}

	stats       Stats
	comparisons uint64
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	throttle := cfg.Throttle
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	sink := cfg.Sink
	if sink == nil {
		sink = discardSink{}
	}
	return &Cache{
		dev:      cfg.Device,
		compiler: cfg.Compiler,
		source:   cfg.Source,
		sink:     sink,
		throttle: throttle,
		timer:    NewStopwatch(cfg.Clock),
		seen:     make(map[pipeline.Handle]struct{}),
	}
}

// Reconcile brings the cache in line with current, the ordered top-level
// pipeline list. Items that are not shader passes are ignored, as are items
// never added to a pipeline.Store and repeated occurrences of the same item.
//
// If current holds as many passes as there are cached entries and the
// throttle interval has not elapsed since the last diff, the call returns
// after counting them: no identities are compared and repeated occurrences
// are not merged until the diff runs.
func (c *Cache) Reconcile(current []*pipeline.Item) {
	var passes []*pipeline.Item
	n := countPasses(current)
	if n != len(c.entries) {
		passes = c.collect(current)
		n = len(passes)
	}
	if n == len(c.entries) {
		if c.timer.Elapsed() <= c.throttle {
			c.stats.Skipped++
			return
		}
		c.timer.Restart()
	}
	if passes == nil {
		passes = c.collect(current)
	}
	c.diff(passes)
}

// countPasses counts the registered shader passes in current, repeats
// included.
func countPasses(current []*pipeline.Item) int {
	n := 0
	for _, it := range current {
		if isPass(it) {
			n++
		}
	}
	return n
}

func isPass(it *pipeline.Item) bool {
	return it != nil && it.Type == pipeline.ItemShaderPass && it.Pass() != nil && it.Handle().IsValid()
}

// ForceReconcile runs the full diff even when the pass count is unchanged.
func (c *Cache) ForceReconcile(current []*pipeline.Item) {
	c.diff(c.collect(current))
	c.timer.Restart()
}

// collect filters current down to distinct shader pass items.
func (c *Cache) collect(current []*pipeline.Item) []*pipeline.Item {
	clear(c.seen)
	passes := c.scratch[:0]
	for _, it := range current {
		if it == nil || it.Type != pipeline.ItemShaderPass || it.Pass() == nil {
			if it != nil {
				slogger().Debug("pipecache: skipping non-pass item", "name", it.Name, "type", it.Type)
			}
			continue
		}
		h := it.Handle()
		if !h.IsValid() {
			slogger().Debug("pipecache: skipping unregistered pass", "name", it.Name)
			continue
		}
		if _, dup := c.seen[h]; dup {
			continue
		}
		c.seen[h] = struct{}{}
		passes = append(passes, it)
	}
	c.scratch = passes
	return passes
}

func (c *Cache) diff(passes []*pipeline.Item) {
	// Added passes are inserted at their index in the current list.
	for i, it := range passes {
		if c.indexOfEntry(it.Handle()) >= 0 {
			continue
		}
		pos := min(i, len(c.entries))
		c.entries = slices.Insert(c.entries, pos, c.create(it))
	}

	// Removed passes release their stages.
	for i := 0; i < len(c.entries); {
		e := c.entries[i]
		if indexOfItem(passes, e.Handle, &c.comparisons) >= 0 {
			i++
			continue
		}
		c.destroy(e)
		c.entries = slices.Delete(c.entries, i, i+1)
		if !c.hasName(e.Item.Name) {
			c.sink.ClearGroup(e.Item.Name)
		}
	}

	// Moved passes.
	for i := range c.entries {
		c.comparisons++
		if c.entries[i].Handle == passes[i].Handle() {
			continue
		}
		j := indexOfItem(passes, c.entries[i].Handle, &c.comparisons)
		dest := j
		if j > i {
			dest = j - 1
		}
		c.move(i, dest)
	}

	// Several moves in one frame can defeat the single pass above; place
	// whatever is still out of order by direct lookup.
	if !c.inOrder(passes) {
		c.permute(passes)
	}
}

func (c *Cache) indexOfEntry(h pipeline.Handle) int {
	for i, e := range c.entries {
		c.comparisons++
		if e.Handle == h {
			return i
		}
	}
	return -1
}

func indexOfItem(items []*pipeline.Item, h pipeline.Handle, comparisons *uint64) int {
	for i, it := range items {
		*comparisons++
		if it.Handle() == h {
			return i
		}
	}
	return -1
}

// move relocates the entry at from to index to in one slice operation.
func (c *Cache) move(from, to int) {
	if from == to {
		return
	}
	e := c.entries[from]
	if from < to {
		copy(c.entries[from:to], c.entries[from+1:to+1])
	} else {
		copy(c.entries[to+1:from+1], c.entries[to:from])
	}
	c.entries[to] = e
	c.stats.Moves++
	slogger().Debug("pipecache: moved pass", "name", e.Item.Name, "from", from, "to", to)
}

func (c *Cache) inOrder(passes []*pipeline.Item) bool {
	for i, e := range c.entries {
		c.comparisons++
		if e.Handle != passes[i].Handle() {
			return false
		}
	}
	return true
}

func (c *Cache) permute(passes []*pipeline.Item) {
	byHandle := make(map[pipeline.Handle]*Entry, len(c.entries))
	for _, e := range c.entries {
		byHandle[e.Handle] = e
	}
	for i, it := range passes {
		e := byHandle[it.Handle()]
		if c.entries[i] != e {
			c.stats.Moves++
		}
		c.entries[i] = e
	}
}

// create builds and compiles the entry for a newly seen pass.
func (c *Cache) create(it *pipeline.Item) *Entry {
	pass := it.Pass()
	e := &Entry{
		Handle: it.Handle(),
		Item:   it,
		Vertex: shader.NewProgram(c.dev, c.compiler, gpucore.StageVertex, it.Name),
		Pixel:  shader.NewProgram(c.dev, c.compiler, gpucore.StagePixel, it.Name),
	}

	if layout := pass.VSInputLayout; layout != nil {
		layout.Reset()
	}
	if pass.VSInputLayout.Len() > 0 {
		e.Vertex.InputSignature = pass.VSInputLayout
	} else {
		e.Vertex.InputSignature = nil
	}

	c.stats.Creations++
	slogger().Debug("pipecache: inserted pass", "name", it.Name, "handle", it.Handle())
	c.compile(e, MsgCompileFailed)
	return e
}

// compile loads both stages from source and reports the outcome.
func (c *Cache) compile(e *Entry, failure string) bool {
	pass := e.Pass()
	vsOK := e.Vertex.LoadFromMemory(c.source.LoadProjectFile(pass.VSPath), pass.VSEntry)
	psOK := e.Pixel.LoadFromMemory(c.source.LoadProjectFile(pass.PSPath), pass.PSEntry)
	c.stats.Compiles += 2

	name := e.Item.Name
	if !vsOK || !psOK {
		c.stats.CompileFailures++
		c.sink.Add(diag.Error, name, failure)
		slogger().Warn("pipecache: shader compile failed",
			"name", name,
			"vs_error", e.Vertex.LastError(),
			"ps_error", e.Pixel.LastError(),
		)
		return false
	}
	c.sink.ClearGroup(name)
	return true
}

// destroy releases the GPU resources owned through an entry.
func (c *Cache) destroy(e *Entry) {
	e.Vertex.Destroy()
	e.Pixel.Destroy()
	if pass := e.Pass(); pass != nil && c.dev != nil {
		pass.VSVariables.Release(c.dev)
		pass.PSVariables.Release(c.dev)
	}
	c.stats.Destructions++
	slogger().Debug("pipecache: removed pass", "name", e.Item.Name, "handle", e.Handle)
}

// hasName reports whether a cached entry is named name.
func (c *Cache) hasName(name string) bool {
	return slices.ContainsFunc(c.entries, func(e *Entry) bool { return e.Item.Name == name })
}

// Recompile recompiles the first cached pass named name in place. It
// reports whether such a pass exists; compile failures go to the sink.
func (c *Cache) Recompile(name string) bool {
	for _, e := range c.entries {
		if e.Item.Name != name {
			continue
		}
		pass := e.Pass()
		if pass.VSInputLayout.Len() > 0 {
			e.Vertex.InputSignature = pass.VSInputLayout
			pass.VSInputLayout.Reset()
		} else {
			e.Vertex.InputSignature = nil
		}
		slogger().Debug("pipecache: recompiling pass", "name", name)
		c.compile(e, MsgRecompileFailed)
		return true
	}
	return false
}

// Flush destroys every entry and clears their diagnostics. Passes still in
// the pipeline report again when the next Reconcile compiles them.
func (c *Cache) Flush() {
	for _, e := range c.entries {
		c.destroy(e)
		c.sink.ClearGroup(e.Item.Name)
	}
	n := len(c.entries)
	c.entries = nil
	c.timer.Restart()
	if n > 0 {
		slogger().Info("pipecache: flushed", "entries", n)
	}
}

// Len returns the number of cached passes.
func (c *Cache) Len() int { return len(c.entries) }

// Entries returns the cached passes in order. The slice is a copy.
func (c *Cache) Entries() []*Entry { return slices.Clone(c.entries) }

// Items returns the mirrored pipeline items in cache order.
func (c *Cache) Items() []*pipeline.Item {
	out := make([]*pipeline.Item, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Item
	}
	return out
}

// VertexShaders returns the vertex stages in cache order.
func (c *Cache) VertexShaders() []*shader.Program {
	out := make([]*shader.Program, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Vertex
	}
	return out
}

// PixelShaders returns the pixel stages in cache order.
func (c *Cache) PixelShaders() []*shader.Program {
	out := make([]*shader.Program, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Pixel
	}
	return out
}

// Stats returns the work counters.
func (c *Cache) Stats() Stats { return c.stats }

// ResetStats zeroes the work counters and the comparison count.
func (c *Cache) ResetStats() {
	c.stats = Stats{}
	c.comparisons = 0
}

// Comparisons returns how many handle comparisons the cache has made.
func (c *Cache) Comparisons() uint64 { return c.comparisons }

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("creations", s.Creations),
		slog.Uint64("destructions", s.Destructions),
		slog.Uint64("moves", s.Moves),
		slog.Uint64("compiles", s.Compiles),
		slog.Uint64("compile_failures", s.CompileFailures),
		slog.Uint64("skipped", s.Skipped),
	)
}

type discardSink struct{}

func (discardSink) Add(diag.Severity, string, string) {}
func (discardSink) ClearGroup(string)                 {}
