package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/fsm"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "kinetic.yaml"

	// DefaultMaxFlushPasses bounds effect re-runs within one flush.
	DefaultMaxFlushPasses = 32

	// DefaultTargetFPS is the frame rate of the host loop.
	DefaultTargetFPS = 60

	// DefaultMaxDtMs clamps frame gaps, so a stalled host does not make
	// animations jump.
	DefaultMaxDtMs = 100

	// DefaultNamespace prefixes every metric name.
	DefaultNamespace = "kinetic"

	// DefaultTracerName is the otel instrumentation name.
	DefaultTracerName = "github.com/vango-dev/kinetic"

	// DefaultInspectorAddr is where the inspector listens.
	DefaultInspectorAddr = "localhost:7070"

	// DefaultRecorderPath is the bbolt file used by the recorder.
	DefaultRecorderPath = "kinetic.db"
)

// Config is the content of kinetic.yaml.
type Config struct {
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Spring    SpringConfig     `yaml:"spring"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Log       LogConfig        `yaml:"log"`
	Inspector InspectorConfig  `yaml:"inspector"`
	Recorder  RecorderConfig   `yaml:"recorder"`
	Machines  []fsm.Definition `yaml:"machines,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// lines maps dotted keys to their line in the source file.
	lines map[string]int
}

// SchedulerConfig controls the frame clock and effect flushing.
type SchedulerConfig struct {
	// MaxFlushPasses caps effect re-runs within one flush.
	MaxFlushPasses int `yaml:"maxFlushPasses"`

	// TargetFPS is the rate of the host loop driven by the CLI.
	TargetFPS int `yaml:"targetFPS"`

	// MaxDtMs clamps the dt of a single tick.
	MaxDtMs float32 `yaml:"maxDtMs"`
}

// SpringConfig holds spring defaults and named presets.
type SpringConfig struct {
	// Epsilon is the settle threshold for springs created without one.
	Epsilon float32 `yaml:"epsilon"`

	// Presets adds or overrides named spring configurations.
	Presets map[string]anim.SpringConfig `yaml:"presets,omitempty"`
}

// MetricsConfig controls prometheus collectors.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls otel spans.
type TracingConfig struct {
	TracerName string `yaml:"tracerName"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// InspectorConfig controls the debug HTTP server.
type InspectorConfig struct {
	Addr string `yaml:"addr"`
}

// RecorderConfig selects where frame recordings go. When S3Bucket is set
// recordings are uploaded to S3, otherwise they are written to Path.
type RecorderConfig struct {
	Path     string `yaml:"path"`
	S3Bucket string `yaml:"s3Bucket,omitempty"`
	S3Prefix string `yaml:"s3Prefix,omitempty"`
	S3Region string `yaml:"s3Region,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxFlushPasses: DefaultMaxFlushPasses,
			TargetFPS:      DefaultTargetFPS,
			MaxDtMs:        DefaultMaxDtMs,
		},
		Spring: SpringConfig{
			Epsilon: anim.DefaultEpsilon,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Recorder: RecorderConfig{
			Path: DefaultRecorderPath,
		},
	}
}

// Load reads kinetic.yaml from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads, parses and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kerrors.New(kerrors.CodeInvalidConfig).
				WithSubject("%s", path).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'kinetic simulate' without --config to use the defaults")
		}
		return nil, kerrors.New(kerrors.CodeInvalidConfig).Wrap(err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. It does not validate.
func Parse(data []byte, file string) (*Config, error) {
	cfg := New()
	cfg.configPath = file
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, kerrors.New(kerrors.CodeInvalidConfig).
			WithSubject("%s", file).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that the file is valid YAML")
	}
	if err := root.Decode(cfg); err != nil {
		return nil, kerrors.New(kerrors.CodeInvalidConfig).
			WithSubject("%s", file).
			WithDetail(err.Error())
	}

	cfg.lines = make(map[string]int)
	if len(root.Content) > 0 {
		collectLines(root.Content[0], "", cfg.lines)
	}
	for i := range cfg.Machines {
		cfg.Machines[i].File = file
	}
	return cfg, nil
}

// collectLines records the line of every mapping key under n.
func collectLines(n *yaml.Node, prefix string, out map[string]int) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			path := key.Value
			if prefix != "" {
				path = prefix + "." + key.Value
			}
			out[path] = key.Line
			collectLines(n.Content[i+1], path, out)
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			out[path] = item.Line
			collectLines(item, path, out)
		}
	}
}

// Line returns the source line of a dotted key such as
// "scheduler.targetFPS", or 0 when unknown.
func (c *Config) Line(key string) int {
	return c.lines[key]
}

// Validate checks ranges and the machine definitions.
func (c *Config) Validate() error {
	switch {
	case c.Scheduler.MaxFlushPasses <= 0:
		return c.invalid("scheduler.maxFlushPasses", "must be positive, got %d", c.Scheduler.MaxFlushPasses)
	case c.Scheduler.TargetFPS <= 0:
		return c.invalid("scheduler.targetFPS", "must be positive, got %d", c.Scheduler.TargetFPS)
	case !(c.Scheduler.MaxDtMs > 0):
		return c.invalid("scheduler.maxDtMs", "must be positive, got %g", c.Scheduler.MaxDtMs)
	case !(c.Spring.Epsilon > 0):
		return c.invalid("spring.epsilon", "must be positive, got %g", c.Spring.Epsilon)
	}
	for name, p := range c.Spring.Presets {
		if err := p.Validate(); err != nil {
			return c.invalid("spring.presets."+name, "%v", err)
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return c.invalid("log.level", "%v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return c.invalid("log.format", "must be text or json, got %q", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Machines))
	for i := range c.Machines {
		m := &c.Machines[i]
		if m.Name == "" {
			return c.invalid(fmt.Sprintf("machines[%d]", i), "machine needs a name")
		}
		if seen[m.Name] {
			return c.invalid(fmt.Sprintf("machines[%d]", i), "duplicate machine %q", m.Name)
		}
		seen[m.Name] = true
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) invalid(key, format string, args ...any) error {
	e := kerrors.New(kerrors.CodeInvalidConfig).
		WithSubject("%s", key).
		WithDetail(fmt.Sprintf(format, args...))
	if line := c.Line(key); line > 0 && c.configPath != "" {
		e = e.WithLocation(c.configPath, line, 0)
	}
	return e
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(c.Log.Level))
	return l, err
}

// FrameInterval returns the tick period for TargetFPS.
func (c *Config) FrameInterval() time.Duration {
	if c.Scheduler.TargetFPS <= 0 {
		return time.Second / DefaultTargetFPS
	}
	return time.Second / time.Duration(c.Scheduler.TargetFPS)
}

// SpringPreset resolves a preset name, preferring entries from the file
// over the built-in presets. The configured epsilon fills in a zero one.
func (c *Config) SpringPreset(name string) (anim.SpringConfig, bool) {
	p, ok := c.Spring.Presets[name]
	if !ok {
		p, ok = anim.SpringPresets[name]
	}
	if !ok {
		return anim.SpringConfig{}, false
	}
	if p.Epsilon == 0 {
		p.Epsilon = c.Spring.Epsilon
	}
	return p, true
}

// Machine returns the definition with the given name.
func (c *Config) Machine(name string) (*fsm.Definition, bool) {
	for i := range c.Machines {
		if c.Machines[i].Name == name {
			return &c.Machines[i], true
		}
	}
	return nil, false
}

// SaveTo writes the configuration to path as YAML.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return kerrors.New(kerrors.CodeInvalidConfig).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return kerrors.New(kerrors.CodeInvalidConfig).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory holding
// kinetic.yaml.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", kerrors.New(kerrors.CodeInvalidConfig).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
