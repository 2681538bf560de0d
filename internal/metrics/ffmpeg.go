// Package metrics records Prometheus metrics for ffmpeg runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/ffrun/internal/events"
	"github.com/smazurov/ffrun/internal/ffmpeg"
)

const (
	namespace = "ffrun"
	subsystem = "ffmpeg"
)

// RunMetrics holds the current metric values of a run.
type RunMetrics struct {
	FPS             float64
	Speed           float64
	Completion      float64
	OutTimeSeconds  float64
	Frames          float64
	DroppedFrames   float64
	DuplicateFrames float64
	Warnings        int
	ErrorLines      int
	Outcome         string
}

// Recorder keeps run metrics in its own registry so they can be written to a
// node_exporter textfile without process-wide collectors.
type Recorder struct {
	registry *prometheus.Registry

	fps             *prometheus.GaugeVec
	speed           *prometheus.GaugeVec
	completion      *prometheus.GaugeVec
	outTime         *prometheus.GaugeVec
	frames          *prometheus.GaugeVec
	droppedFrames   *prometheus.GaugeVec
	duplicateFrames *prometheus.GaugeVec
	elapsed         *prometheus.GaugeVec
	warnings        *prometheus.CounterVec
	errorLines      *prometheus.CounterVec
	runs            *prometheus.CounterVec

	// Local cache for the run summary.
	cache   map[string]*RunMetrics
	cacheMu sync.RWMutex
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, []string{"run_id"})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Recorder{
		registry:        reg,
		fps:             gauge("fps", "Current FFmpeg encoding FPS"),
		speed:           gauge("processing_speed", "FFmpeg processing speed multiplier"),
		completion:      gauge("completion_ratio", "Output time divided by input duration"),
		outTime:         gauge("out_time_seconds", "Output timestamp reached"),
		frames:          gauge("frames", "Frames processed"),
		droppedFrames:   gauge("dropped_frames_total", "Total dropped frames"),
		duplicateFrames: gauge("duplicate_frames_total", "Total duplicate frames"),
		elapsed:         gauge("run_duration_seconds", "Wall time of the run"),
		warnings:        counter("warnings_total", "Warning lines on stderr", "run_id"),
		errorLines:      counter("error_lines_total", "Error lines on stderr", "run_id"),
		runs:            counter("runs_total", "Finished runs by outcome", "outcome"),
		cache:           make(map[string]*RunMetrics),
	}
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handle updates metrics from a run event. Subscribe it to an events.Bus.
func (r *Recorder) Handle(ev events.RunEvent) {
	switch ev.Kind {
	case events.KindProgress:
		if ev.Progress != nil {
			r.ObserveProgress(ev.RunID, *ev.Progress)
		}
	case events.KindWarning:
		r.warnings.WithLabelValues(ev.RunID).Add(float64(len(ev.Lines)))
		r.updateCache(ev.RunID, func(m *RunMetrics) { m.Warnings += len(ev.Lines) })
	case events.KindError:
		r.errorLines.WithLabelValues(ev.RunID).Add(float64(len(ev.Lines)))
		r.updateCache(ev.RunID, func(m *RunMetrics) { m.ErrorLines += len(ev.Lines) })
	case events.KindFinished:
		r.runs.WithLabelValues(ev.Outcome).Inc()
		r.elapsed.WithLabelValues(ev.RunID).Set(ev.Elapsed)
		r.updateCache(ev.RunID, func(m *RunMetrics) { m.Outcome = ev.Outcome })
	}
}

// ObserveProgress sets the gauges reported in a snapshot. Absent fields
// keep their previous value.
func (r *Recorder) ObserveProgress(runID string, p ffmpeg.Progress) {
	if p.FPS != nil {
		r.fps.WithLabelValues(runID).Set(*p.FPS)
	}
	if p.Speed != nil {
		r.speed.WithLabelValues(runID).Set(*p.Speed)
	}
	if p.Completion != nil {
		r.completion.WithLabelValues(runID).Set(*p.Completion)
	}
	if p.OutTimeMs != nil {
		r.outTime.WithLabelValues(runID).Set(float64(*p.OutTimeMs) / 1000)
	}
	if p.Frame != nil {
		r.frames.WithLabelValues(runID).Set(float64(*p.Frame))
	}
	if p.DropFrames != nil {
		r.droppedFrames.WithLabelValues(runID).Set(float64(*p.DropFrames))
	}
	if p.DupFrames != nil {
		r.duplicateFrames.WithLabelValues(runID).Set(float64(*p.DupFrames))
	}

	r.updateCache(runID, func(m *RunMetrics) {
		m.FPS = valueOr(p.FPS, m.FPS)
		m.Speed = valueOr(p.Speed, m.Speed)
		m.Completion = valueOr(p.Completion, m.Completion)
		if p.OutTimeMs != nil {
			m.OutTimeSeconds = float64(*p.OutTimeMs) / 1000
		}
		if p.Frame != nil {
			m.Frames = float64(*p.Frame)
		}
		if p.DropFrames != nil {
			m.DroppedFrames = float64(*p.DropFrames)
		}
		if p.DupFrames != nil {
			m.DuplicateFrames = float64(*p.DupFrames)
		}
	})
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// Get returns current metric values for a run.
func (r *Recorder) Get(runID string) *RunMetrics {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	if m, ok := r.cache[runID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// Delete removes all metrics for a run.
func (r *Recorder) Delete(runID string) {
	for _, g := range []*prometheus.GaugeVec{
		r.fps, r.speed, r.completion, r.outTime, r.frames, r.droppedFrames, r.duplicateFrames, r.elapsed,
	} {
		g.DeleteLabelValues(runID)
	}
	r.warnings.DeleteLabelValues(runID)
	r.errorLines.DeleteLabelValues(runID)

	r.cacheMu.Lock()
	delete(r.cache, runID)
	r.cacheMu.Unlock()
}

// WriteTextfile writes the metrics in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func (r *Recorder) updateCache(runID string, update func(*RunMetrics)) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	m, ok := r.cache[runID]
	if !ok {
		m = &RunMetrics{}
		r.cache[runID] = m
	}
	update(m)
}
