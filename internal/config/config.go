// internal/config/config.go
//
// This package handles the run configuration and the directory layout under
// the preparation root. Every root may carry an optional mtprep.yaml that
// tunes external tools, parallelism and export mappings.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the project config file looked up in the root.
	FileName = "mtprep.yaml"

	// LockFileName is the advisory lock guarding a root against concurrent runs.
	LockFileName = ".mtprep.lock"

	defaultNumJobs            = 4
	defaultMaxSegmentDuration = 30
	defaultLhotseBin          = "lhotse"
	defaultPythonBin          = "python"
	defaultScriptsDir         = "scripts"
)

const defaultProjectConfigYAML = `# mtprep project configuration
version: 1

# Worker count handed to external tools and STM conversion.
num_jobs: 4

# Windowed cut-sets split long recordings into segments of at most this many seconds.
max_segment_duration: 30

lhotse_bin: lhotse
python_bin: python
scripts_dir: scripts

# Per-command timeout; 0 disables it.
command_timeout: 0s

# Override the environment variable holding a dataset's access token.
tokens:
  notsofar-sdm: HF_TOKEN
  notsofar-mdm: HF_TOKEN

mixtures:
  per_split: 10000
  speakers: 3
  allowed_pause: 2
  seed: 1

# Replace the built-in supervision export map per category.
# exports:
#   single-mic:
#     - dataset: ami-sdm
#       split: test
#       dest: ami-sdm_test

# Write prometheus textfile metrics here at the end of a run.
# metrics_file: metrics/mtprep.prom

log:
  max_size_mb: 50
  max_backups: 5
  max_age_days: 30
  compress: true
`

// Error reports an invalid invocation or configuration. It is raised before
// any work begins.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// MixtureConfig tunes synthetic mixture generation.
type MixtureConfig struct {
	PerSplit     int     `yaml:"per_split"`
	Speakers     int     `yaml:"speakers"`
	AllowedPause float64 `yaml:"allowed_pause"`
	Seed         int64   `yaml:"seed"`
}

// ExportEntry maps one prepared supervision manifest to a benchmark name.
type ExportEntry struct {
	Dataset string `yaml:"dataset"`
	Split   string `yaml:"split"`
	Dest    string `yaml:"dest"`
}

// LogConfig controls rotation of the run log file.
type LogConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// ProjectConfig models <root>/mtprep.yaml.
type ProjectConfig struct {
	Version            int                      `yaml:"version"`
	NumJobs            int                      `yaml:"num_jobs"`
	MaxSegmentDuration int                      `yaml:"max_segment_duration"`
	LhotseBin          string                   `yaml:"lhotse_bin"`
	PythonBin          string                   `yaml:"python_bin"`
	ScriptsDir         string                   `yaml:"scripts_dir"`
	CommandTimeout     time.Duration            `yaml:"command_timeout"`
	Tokens             map[string]string        `yaml:"tokens,omitempty"`
	Mixtures           MixtureConfig            `yaml:"mixtures"`
	Exports            map[string][]ExportEntry `yaml:"exports,omitempty"`
	MetricsFile        string                   `yaml:"metrics_file,omitempty"`
	Log                LogConfig                `yaml:"log"`
}

// Options are the per-invocation switches supplied on the command line.
type Options struct {
	Verbose             bool
	ExtractSupervisions bool
}

// Config is the immutable run configuration threaded through every
// component. Nothing mutates it after New returns.
type Config struct {
	// Root is the absolute preparation root.
	Root string

	Verbose             bool
	ExtractSupervisions bool

	Project ProjectConfig
}

// New validates root, loads the optional project config and returns the run
// configuration. It never creates directories.
func New(root string, opts Options) (*Config, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, &Error{Field: "root", Reason: "root directory is required"}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("config: resolve root %s: %w", root, err)
	}
	cfg := &Config{
		Root:                abs,
		Verbose:             opts.Verbose,
		ExtractSupervisions: opts.ExtractSupervisions,
		Project:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureLayout creates the directories a run writes into.
//
// Structure created:
// <root>/
// ├── data/        <- raw corpora (external tool)
// ├── manifests/   <- per-family manifests
// └── logs/        <- rotating run log
func (c *Config) EnsureLayout() error {
	for _, dir := range []string{c.DataDir(), c.ManifestsDir(), c.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return nil
}

// DataDir returns <root>/data.
func (c *Config) DataDir() string {
	return filepath.Join(c.Root, "data")
}

// CorpusDir returns the raw data directory of one corpus.
func (c *Config) CorpusDir(corpus string) string {
	return filepath.Join(c.DataDir(), corpus)
}

// ManifestsDir returns <root>/manifests.
func (c *Config) ManifestsDir() string {
	return filepath.Join(c.Root, "manifests")
}

// ExportsDir returns the staging directory for one category.
func (c *Config) ExportsDir(category string) string {
	return filepath.Join(c.Root, "exports", category)
}

// STMDir returns the default output of the standalone STM conversion.
func (c *Config) STMDir() string {
	return filepath.Join(c.Root, "stms")
}

// LogsDir returns <root>/logs.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Root, "logs")
}

// LogPath returns the run log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "mtprep.log")
}

// LockPath returns the advisory lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Root, LockFileName)
}

// ProjectConfigPath returns the on-disk location of the project config.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.Root, FileName)
}

// ScriptPath resolves a helper script inside the scripts directory.
func (c *Config) ScriptPath(name string) string {
	return filepath.Join(c.Project.ScriptsDir, name)
}

// MetricsPath returns the textfile metrics destination, or "" when disabled.
func (c *Config) MetricsPath() string {
	return c.Project.MetricsFile
}

// TokenEnv returns the environment variable holding dataset's access token,
// honouring overrides from the project config.
func (c *Config) TokenEnv(dataset, fallback string) string {
	if env, ok := c.Project.Tokens[dataset]; ok && env != "" {
		return env
	}
	return fallback
}

// Exports returns the export override for category and whether one is set.
func (c *Config) Exports(category string) ([]ExportEntry, bool) {
	entries, ok := c.Project.Exports[category]
	if !ok {
		return nil, false
	}
	return append([]ExportEntry(nil), entries...), true
}

// WriteDefault writes a commented project config into root unless one exists.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(root, FileName)
	if err := ensureProjectConfig(path); err != nil {
		return "", fmt.Errorf("config: write default: %w", err)
	}
	return path, nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.Root)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.Root)
	if err := parsed.validate(); err != nil {
		return &Error{Field: FileName, Reason: err.Error()}
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:            1,
		NumJobs:            defaultNumJobs,
		MaxSegmentDuration: defaultMaxSegmentDuration,
		LhotseBin:          defaultLhotseBin,
		PythonBin:          defaultPythonBin,
		ScriptsDir:         defaultScriptsDir,
		Tokens:             map[string]string{},
		Mixtures: MixtureConfig{
			PerSplit:     10000,
			Speakers:     3,
			AllowedPause: 2,
			Seed:         1,
		},
		Log: LogConfig{MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30, Compress: true},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.NumJobs == 0 {
		pc.NumJobs = defaultNumJobs
	}
	if pc.MaxSegmentDuration == 0 {
		pc.MaxSegmentDuration = defaultMaxSegmentDuration
	}
	if pc.Tokens == nil {
		pc.Tokens = map[string]string{}
	}
	if pc.Mixtures.Speakers == 0 {
		pc.Mixtures.Speakers = 3
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.LhotseBin = strings.TrimSpace(pc.LhotseBin)
	if pc.LhotseBin == "" {
		pc.LhotseBin = defaultLhotseBin
	}
	pc.PythonBin = strings.TrimSpace(pc.PythonBin)
	if pc.PythonBin == "" {
		pc.PythonBin = defaultPythonBin
	}
	pc.ScriptsDir = resolvePath(base, pc.ScriptsDir)
	if pc.ScriptsDir == "" {
		pc.ScriptsDir = resolvePath(base, defaultScriptsDir)
	}
	pc.MetricsFile = resolvePath(base, pc.MetricsFile)
	for name, env := range pc.Tokens {
		pc.Tokens[name] = strings.TrimSpace(env)
	}
	for category, entries := range pc.Exports {
		for i := range entries {
			entries[i].Dataset = strings.TrimSpace(entries[i].Dataset)
			entries[i].Split = strings.TrimSpace(entries[i].Split)
			entries[i].Dest = strings.TrimSpace(entries[i].Dest)
		}
		pc.Exports[category] = entries
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.NumJobs < 1 {
		return fmt.Errorf("num_jobs must be >= 1")
	}
	if pc.MaxSegmentDuration < 1 {
		return fmt.Errorf("max_segment_duration must be >= 1")
	}
	if pc.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative")
	}
	if pc.Mixtures.PerSplit < 0 {
		return fmt.Errorf("mixtures.per_split must not be negative")
	}
	if pc.Mixtures.Speakers < 1 {
		return fmt.Errorf("mixtures.speakers must be >= 1")
	}
	if pc.Mixtures.AllowedPause < 0 {
		return fmt.Errorf("mixtures.allowed_pause must not be negative")
	}
	for category, entries := range pc.Exports {
		switch category {
		case "single-mic", "multi-mic":
		default:
			return fmt.Errorf("exports: unknown category %q", category)
		}
		seen := map[string]bool{}
		for i, entry := range entries {
			if entry.Dataset == "" || entry.Split == "" || entry.Dest == "" {
				return fmt.Errorf("exports[%s][%d]: dataset, split and dest are required", category, i)
			}
			if strings.ContainsAny(entry.Dest, `/\`) {
				return fmt.Errorf("exports[%s][%d]: dest %q must be a bare name", category, i, entry.Dest)
			}
			if seen[entry.Dest] {
				return fmt.Errorf("exports[%s]: duplicate dest %q", category, entry.Dest)
			}
			seen[entry.Dest] = true
		}
	}
	if pc.Log.MaxSizeMB < 0 || pc.Log.MaxBackups < 0 || pc.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation values must not be negative")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
