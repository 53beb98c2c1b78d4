// Package diagnostics records per-frame command statistics for the render pipeline and
// logs them periodically alongside runtime memory statistics.
package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// WindowSize is the number of frame samples kept for windowed averages, about two seconds at 60 Hz.
const WindowSize = 120

// FrameSample is the record of one completed frame.
type FrameSample struct {
	FrameNumber   uint64
	TotalCommands int
	DeltaTimeMs   float64
}

// LayerStatistics are the lifetime counters for one layer name.
// AverageCommandsPerFrame is TotalCommandsProcessed / TotalFrames, where TotalFrames counts the
// frames the layer reported in. It is not windowed.
type LayerStatistics struct {
	Name                    string
	Order                   int
	CommandsThisFrame       int
	TotalCommandsProcessed  int
	TotalFrames             int
	PeakCommands            int
	AverageCommandsPerFrame float64
	Faults                  int
	LastFault               string

	reported bool
}

// Recorder accumulates frame and layer statistics. The frame thread writes through
// BeginFrame/Record*/EndFrame; readers on other goroutines use the getters.
type Recorder struct {
	mu sync.RWMutex

	ring  [WindowSize]FrameSample
	head  int
	count int

	frameCommands int
	average       float64
	fps           float64
	peak          int
	totalFrames   uint64

	layers map[string]*LayerStatistics
}

// NewRecorder creates an empty Recorder.
//
// Returns:
//   - *Recorder: the recorder
func NewRecorder() *Recorder {
	return &Recorder{
		layers: make(map[string]*LayerStatistics),
	}
}

// BeginFrame zeroes the per-frame counters of every tracked layer.
func (r *Recorder) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frameCommands = 0
	for _, s := range r.layers {
		s.CommandsThisFrame = 0
		s.reported = false
	}
}

// RecordLayerCommands adds count commands to the named layer's counters and to the frame total.
//
// Parameters:
//   - name: the layer name; statistics are created on first report
//   - order: the layer's priority ordinal
//   - count: the number of commands collected this call
func (r *Recorder) RecordLayerCommands(name string, order, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.layerLocked(name)
	s.Order = order
	s.CommandsThisFrame += count
	s.TotalCommandsProcessed += count
	s.PeakCommands = max(s.PeakCommands, s.CommandsThisFrame)
	if !s.reported {
		s.reported = true
		s.TotalFrames++
	}
	r.frameCommands += count
}

// RecordExternalCommands adds enqueued commands to the frame total without a layer entry.
func (r *Recorder) RecordExternalCommands(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameCommands += count
}

// RecordLayerFault notes an isolated layer failure.
//
// Parameters:
//   - name: the faulting layer
//   - err: the fault
func (r *Recorder) RecordLayerFault(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.layerLocked(name)
	s.Faults++
	if err != nil {
		s.LastFault = err.Error()
	}
}

// EndFrame appends the frame sample and recomputes every derived statistic.
//
// Parameters:
//   - deltaTimeMs: the frame's delta time in milliseconds
func (r *Recorder) EndFrame(deltaTimeMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalFrames++
	r.ring[r.head] = FrameSample{
		FrameNumber:   r.totalFrames,
		TotalCommands: r.frameCommands,
		DeltaTimeMs:   deltaTimeMs,
	}
	r.head = (r.head + 1) % WindowSize
	if r.count < WindowSize {
		r.count++
	}

	var commands int
	var delta float64
	for i := range r.count {
		commands += r.ring[i].TotalCommands
		delta += r.ring[i].DeltaTimeMs
	}
	r.average = float64(commands) / float64(r.count)
	if meanDelta := delta / float64(r.count); meanDelta > 0 {
		r.fps = 1000 / meanDelta
	} else {
		r.fps = 0
	}
	r.peak = max(r.peak, r.frameCommands)

	for _, s := range r.layers {
		if s.TotalFrames > 0 {
			s.AverageCommandsPerFrame = float64(s.TotalCommandsProcessed) / float64(s.TotalFrames)
		}
	}
}

// Reset clears every counter, the sample window and all layer statistics.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring = [WindowSize]FrameSample{}
	r.head, r.count = 0, 0
	r.frameCommands = 0
	r.average, r.fps = 0, 0
	r.peak = 0
	r.totalFrames = 0
	clear(r.layers)
}

// AverageCommandsPerFrame returns the mean command count over the sample window.
func (r *Recorder) AverageCommandsPerFrame() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.average
}

// PeakCommandsPerFrame returns the highest command count of any frame since the last Reset.
func (r *Recorder) PeakCommandsPerFrame() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peak
}

// CurrentFPS returns 1000 divided by the mean delta time over the sample window.
func (r *Recorder) CurrentFPS() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fps
}

// TotalFrames returns the number of completed frames since the last Reset.
func (r *Recorder) TotalFrames() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalFrames
}

// Samples returns the window contents, oldest first.
//
// Returns:
//   - []FrameSample: at most WindowSize samples
func (r *Recorder) Samples() []FrameSample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FrameSample, 0, r.count)
	start := 0
	if r.count == WindowSize {
		start = r.head
	}
	for i := range r.count {
		out = append(out, r.ring[(start+i)%WindowSize])
	}
	return out
}

// LayerStats returns copies of every layer's statistics sorted by order, then name.
func (r *Recorder) LayerStats() []LayerStatistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LayerStatistics, 0, len(r.layers))
	for _, s := range r.layers {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b LayerStatistics) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name))
	})
	return out
}

// Layer returns a copy of the named layer's statistics.
func (r *Recorder) Layer(name string) (LayerStatistics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.layers[name]
	if !ok {
		return LayerStatistics{}, false
	}
	return *s, true
}

// SummaryLines renders the snapshot one line per entry, frame totals first.
func (r *Recorder) SummaryLines() []string {
	stats := r.LayerStats()

	r.mu.RLock()
	lines := make([]string, 0, len(stats)+1)
	lines = append(lines, fmt.Sprintf("frames %d | fps %.1f | cmds avg %.1f peak %d",
		r.totalFrames, r.fps, r.average, r.peak))
	r.mu.RUnlock()

	for _, s := range stats {
		line := fmt.Sprintf("%-12s cmds %d avg %.1f peak %d", s.Name, s.CommandsThisFrame, s.AverageCommandsPerFrame, s.PeakCommands)
		if s.Faults > 0 {
			line += fmt.Sprintf(" faults %d", s.Faults)
		}
		lines = append(lines, line)
	}
	return lines
}

// Summary renders a human-readable snapshot.
func (r *Recorder) Summary() string {
	return strings.Join(r.SummaryLines(), "\n")
}

func (r *Recorder) layerLocked(name string) *LayerStatistics {
	s, ok := r.layers[name]
	if !ok {
		s = &LayerStatistics{Name: name}
		r.layers[name] = s
	}
	return s
}
