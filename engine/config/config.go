// Package config loads the declarative TOML description of an engine: frame pacing, pipeline
// behaviour and the ordered list of render layers to construct.
//
//	[engine]
//	frame_limit = 60.0
//	tick_rate   = 30.0
//	profiling   = true
//	workers     = 4
//	max_frames  = 0
//
//	[pipeline]
//	fault_isolation  = true
//	command_capacity = 512
//	optimizer        = "state"
//
//	[[layers]]
//	type     = "text"
//	priority = "ui"
//
//	[[layers]]
//	type    = "overlay"
//	enabled = false
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/layer"
	"github.com/Carmen-Shannon/oxy-render/engine/layers"
	"github.com/Carmen-Shannon/oxy-render/engine/render_pipeline"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for a file that decodes but describes an impossible setup.
var ErrInvalidConfig = errors.New("invalid config")

// Optimizer names accepted by [pipeline] optimizer.
const (
	OptimizerKind  = "kind"
	OptimizerState = "state"
)

// Config is the decoded file.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Layers   []LayerConfig  `toml:"layers"`
}

// EngineConfig maps onto engine builder options. Zero values keep the engine defaults.
type EngineConfig struct {
	FrameLimit float64 `toml:"frame_limit"`
	TickRate   float64 `toml:"tick_rate"`
	Profiling  bool    `toml:"profiling"`
	Workers    int     `toml:"workers"`
	MaxFrames  uint64  `toml:"max_frames"`
}

// PipelineConfig maps onto render pipeline builder options.
type PipelineConfig struct {
	FaultIsolation  bool   `toml:"fault_isolation"`
	CommandCapacity int    `toml:"command_capacity"`
	Optimizer       string `toml:"optimizer"`
}

// LayerConfig selects one registered layer type. Name and Priority override the layer's
// defaults when set; Enabled defaults to true.
type LayerConfig struct {
	Type     string `toml:"type"`
	Name     string `toml:"name,omitempty"`
	Priority string `toml:"priority,omitempty"`
	Enabled  *bool  `toml:"enabled,omitempty"`
}

// IsEnabled reports whether the layer should be constructed.
func (l LayerConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// Default returns a config with the kind optimizer and no layer list, which constructs every
// registered layer.
func Default() *Config {
	return &Config{Pipeline: PipelineConfig{Optimizer: OptimizerKind}}
}

// Load reads and parses the file at path.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - *Config: the validated config
//   - error: a read, decode or validation error
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("[Config] loaded %s with %d layer entries", path, len(cfg.Layers))
	return cfg, nil
}

// Parse decodes data on top of Default and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - *Config: the validated config
//   - error: a decode error or ErrInvalidConfig
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, derr.Error())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(serr.String()))
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).SetIndentTables(true).Encode(c)
}

// Validate checks value ranges, the optimizer name, every layer priority, and that no layer
// type is enabled twice.
//
// Returns:
//   - error: ErrInvalidConfig describing the first problem, or nil
func (c *Config) Validate() error {
	switch {
	case c.Engine.FrameLimit < 0:
		return fmt.Errorf("%w: engine.frame_limit must not be negative", ErrInvalidConfig)
	case c.Engine.TickRate < 0:
		return fmt.Errorf("%w: engine.tick_rate must not be negative", ErrInvalidConfig)
	case c.Engine.Workers < 0:
		return fmt.Errorf("%w: engine.workers must not be negative", ErrInvalidConfig)
	case c.Pipeline.CommandCapacity < 0:
		return fmt.Errorf("%w: pipeline.command_capacity must not be negative", ErrInvalidConfig)
	}
	if _, err := c.optimizer(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		if strings.TrimSpace(l.Type) == "" {
			return fmt.Errorf("%w: layers[%d] has no type", ErrInvalidConfig, i)
		}
		if l.Priority != "" {
			if _, err := layer.ParsePriority(l.Priority); err != nil {
				return fmt.Errorf("%w: layers[%d]: %w", ErrInvalidConfig, i, err)
			}
		}
		if !l.IsEnabled() {
			continue
		}
		if seen[l.Type] {
			return fmt.Errorf("%w: layer type %q enabled twice", ErrInvalidConfig, l.Type)
		}
		seen[l.Type] = true
	}
	return nil
}

// LayerTypes returns the enabled layer types in file order.
func (c *Config) LayerTypes() []string {
	types := make([]string, 0, len(c.Layers))
	for _, l := range c.Layers {
		if l.IsEnabled() {
			types = append(types, l.Type)
		}
	}
	return types
}

// LayerOptions returns the name and priority overrides of every enabled layer, keyed by type,
// in the shape layers.Dependencies.Options expects.
func (c *Config) LayerOptions() map[string][]layers.LayerBuilderOption {
	out := make(map[string][]layers.LayerBuilderOption)
	for _, l := range c.Layers {
		if !l.IsEnabled() {
			continue
		}
		var opts []layers.LayerBuilderOption
		if l.Name != "" {
			opts = append(opts, layers.WithName(l.Name))
		}
		if l.Priority != "" {
			if p, err := layer.ParsePriority(l.Priority); err == nil {
				opts = append(opts, layers.WithPriority(p))
			}
		}
		if len(opts) > 0 {
			out[l.Type] = opts
		}
	}
	return out
}

// PipelineOptions resolves the enabled layers against reg and returns the matching render
// pipeline options. With no [[layers]] entries every registration in reg is used; with
// entries that are all disabled the pipeline gets no registered layers.
//
// Parameters:
//   - reg: the registry holding a factory for every configured type
//
// Returns:
//   - []render_pipeline.RenderPipelineBuilderOption: the options
//   - error: layer.ErrUnknownLayerType for a type with no factory
func (c *Config) PipelineOptions(reg *layer.Registry) ([]render_pipeline.RenderPipelineBuilderOption, error) {
	opt, err := c.optimizer()
	if err != nil {
		return nil, err
	}
	opts := []render_pipeline.RenderPipelineBuilderOption{
		render_pipeline.WithOptimizer(opt),
		render_pipeline.WithFaultIsolation(c.Pipeline.FaultIsolation),
		render_pipeline.WithCommandCapacity(c.Pipeline.CommandCapacity),
	}

	if len(c.Layers) == 0 {
		return append(opts, render_pipeline.WithRegistry(reg)), nil
	}
	types := c.LayerTypes()
	if len(types) == 0 {
		return append(opts, render_pipeline.WithRegistrations()), nil
	}
	regs, err := reg.Resolve(types...)
	if err != nil {
		return nil, err
	}
	return append(opts, render_pipeline.WithRegistrations(regs...)), nil
}

// EngineOptions returns the engine options for the [engine] table. Unset values are omitted so
// the engine keeps its defaults.
func (c *Config) EngineOptions() []engine.EngineBuilderOption {
	opts := []engine.EngineBuilderOption{engine.WithProfiling(c.Engine.Profiling)}
	if c.Engine.FrameLimit > 0 {
		opts = append(opts, engine.WithRenderFrameLimit(c.Engine.FrameLimit))
	}
	if c.Engine.TickRate > 0 {
		opts = append(opts, engine.WithTickRate(c.Engine.TickRate))
	}
	if c.Engine.Workers > 0 {
		opts = append(opts, engine.WithWorkers(c.Engine.Workers))
	}
	if c.Engine.MaxFrames > 0 {
		opts = append(opts, engine.WithMaxFrames(c.Engine.MaxFrames))
	}
	return opts
}

func (c *Config) optimizer() (render_pipeline.Optimizer, error) {
	switch strings.ToLower(c.Pipeline.Optimizer) {
	case "", OptimizerKind:
		return render_pipeline.KindOptimizer{}, nil
	case OptimizerState:
		return render_pipeline.StateOptimizer{}, nil
	}
	return nil, fmt.Errorf("%w: unknown optimizer %q", ErrInvalidConfig, c.Pipeline.Optimizer)
}
