// Package config assembles the planner configuration from defaults, an
// optional YAML file, environment variables and command-line flags, in
// that order of increasing precedence.
package config

import (
	"flag"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/brensch/chainplan/evaluator"
	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/logging"
	"github.com/brensch/chainplan/search"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Trace struct {
	// ParquetDir receives one parquet file per BatchRows cycles. Empty
	// disables parquet output.
	ParquetDir string `yaml:"parquet_dir"`
	BatchRows  int    `yaml:"batch_rows"`
	// Listen is the address serving the websocket trace feed at /trace.
	Listen string `yaml:"listen"`
	Report string `yaml:"report"`
	Log    bool   `yaml:"log"`
}

type Log struct {
	Format logging.Format `yaml:"format"`
	Level  string         `yaml:"level"`
}

type Config struct {
	Search     search.Config     `yaml:"search"`
	Generators generator.Options `yaml:"generators"`
	Evaluator  evaluator.Config  `yaml:"evaluator"`
	Trace      Trace             `yaml:"trace"`
	Log        Log               `yaml:"log"`
}

func Default() Config {
	return Config{
		Search:     search.DefaultConfig(),
		Generators: generator.DefaultOptions(),
		Evaluator:  evaluator.DefaultConfig(),
		Trace:      Trace{BatchRows: 1000, Log: true},
		Log:        Log{Format: logging.FormatText, Level: "info"},
	}
}

// Load overlays the YAML file at path on the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Search.MaxChainLength < 1 {
		return errors.Wrapf(ErrInvalid, "max chain length %d, want >= 1", c.Search.MaxChainLength)
	}
	if l := c.Search.MaxEvaluateLimit; l == 0 || l < search.Unlimited {
		return errors.Wrapf(ErrInvalid, "evaluation limit %d, want > 0 or %d", l, search.Unlimited)
	}
	if c.Search.Deadline < 0 {
		return errors.Wrapf(ErrInvalid, "negative deadline %v", c.Search.Deadline)
	}
	if c.Search.Strategy != "" {
		if _, err := search.ParseStrategy(string(c.Search.Strategy)); err != nil {
			return errors.Wrap(ErrInvalid, err.Error())
		}
	}
	if c.Evaluator.Kind != "" {
		if _, err := evaluator.ParseKind(string(c.Evaluator.Kind)); err != nil {
			return errors.Wrap(ErrInvalid, err.Error())
		}
	}
	if c.Evaluator.Kind == evaluator.KindExpr && c.Evaluator.Expr == "" {
		return errors.Wrap(ErrInvalid, "expr evaluator without expression")
	}
	if c.Evaluator.Kind == evaluator.KindOnnx && c.Evaluator.Model == "" {
		return errors.Wrap(ErrInvalid, "onnx evaluator without model")
	}
	if _, err := logging.ParseFormat(string(c.Log.Format)); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}

// Logger builds the logger c.Log describes on stderr.
func (c Config) Logger() *slog.Logger {
	format, _ := logging.ParseFormat(string(c.Log.Format))
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.New(os.Stderr, format, level)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// ApplyEnv overrides c from CHAINPLAN_* variables.
func ApplyEnv(c *Config) {
	c.Log.Level = getEnvOrDefault("CHAINPLAN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = logging.Format(getEnvOrDefault("CHAINPLAN_LOG_FORMAT", string(c.Log.Format)))
	c.Search.MaxEvaluateLimit = getEnvIntOrDefault("CHAINPLAN_EVAL_LIMIT", c.Search.MaxEvaluateLimit)
	c.Evaluator.Model = getEnvOrDefault("CHAINPLAN_MODEL", c.Evaluator.Model)
}

// Parse registers the planner flags on fs, parses args and returns the
// merged configuration. The file comes from -config or CHAINPLAN_CONFIG.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	path := fs.String("config", getEnvOrDefault("CHAINPLAN_CONFIG", ""), "YAML configuration file")
	var flags Config
	copies := bind(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		var err error
		if cfg, err = Load(*path); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg)
	fs.Visit(func(f *flag.Flag) {
		if cp, ok := copies[f.Name]; ok {
			cp(&cfg, &flags)
		}
	})
	return cfg, cfg.Validate()
}

// bind registers one flag per overridable field, writing into f, and
// returns per flag name the copy from f into a merged config.
func bind(fs *flag.FlagSet, f *Config) map[string]func(dst, src *Config) {
	d := Default()
	fs.IntVar(&f.Search.MaxChainLength, "max-length", d.Search.MaxChainLength, "maximum actions per chain")
	fs.IntVar(&f.Search.MaxEvaluateLimit, "limit", d.Search.MaxEvaluateLimit, "evaluations per search, -1 for unlimited")
	fs.TextVar(&f.Search.Strategy, "strategy", d.Search.Strategy, "best-first, recursive or strict-improving")
	fs.DurationVar(&f.Search.Deadline, "deadline", d.Search.Deadline, "wall-clock limit per search, 0 for none")
	fs.TextVar(&f.Evaluator.Kind, "evaluator", d.Evaluator.Kind, "sample, expr or onnx")
	fs.StringVar(&f.Evaluator.Expr, "expr", "", "score expression for -evaluator=expr")
	fs.StringVar(&f.Evaluator.Model, "model", "", "ONNX model for -evaluator=onnx")
	fs.IntVar(&f.Evaluator.Sessions, "sessions", d.Evaluator.Sessions, "ONNX sessions")
	fs.BoolVar(&f.Generators.Clear, "clear", d.Generators.Clear, "generate clears")
	fs.BoolVar(&f.Generators.DirectPass, "direct-pass", d.Generators.DirectPass, "extend chains with simple direct passes")
	fs.BoolVar(&f.Generators.SimpleDribble, "simple-dribble", d.Generators.SimpleDribble, "extend chains with simple dribbles")
	fs.StringVar(&f.Trace.ParquetDir, "parquet", "", "directory for parquet plan traces")
	fs.StringVar(&f.Trace.Listen, "listen", "", "address for the websocket trace feed")
	fs.StringVar(&f.Trace.Report, "report", "", "HTML report path")
	fs.StringVar((*string)(&f.Log.Format), "log-format", string(d.Log.Format), "text, json or pretty")
	fs.StringVar(&f.Log.Level, "log-level", d.Log.Level, "debug, info, warn or error")

	return map[string]func(dst, src *Config){
		"max-length":     func(dst, src *Config) { dst.Search.MaxChainLength = src.Search.MaxChainLength },
		"limit":          func(dst, src *Config) { dst.Search.MaxEvaluateLimit = src.Search.MaxEvaluateLimit },
		"strategy":       func(dst, src *Config) { dst.Search.Strategy = src.Search.Strategy },
		"deadline":       func(dst, src *Config) { dst.Search.Deadline = src.Search.Deadline },
		"evaluator":      func(dst, src *Config) { dst.Evaluator.Kind = src.Evaluator.Kind },
		"expr":           func(dst, src *Config) { dst.Evaluator.Expr = src.Evaluator.Expr },
		"model":          func(dst, src *Config) { dst.Evaluator.Model = src.Evaluator.Model },
		"sessions":       func(dst, src *Config) { dst.Evaluator.Sessions = src.Evaluator.Sessions },
		"clear":          func(dst, src *Config) { dst.Generators.Clear = src.Generators.Clear },
		"direct-pass":    func(dst, src *Config) { dst.Generators.DirectPass = src.Generators.DirectPass },
		"simple-dribble": func(dst, src *Config) { dst.Generators.SimpleDribble = src.Generators.SimpleDribble },
		"parquet":        func(dst, src *Config) { dst.Trace.ParquetDir = src.Trace.ParquetDir },
		"listen":         func(dst, src *Config) { dst.Trace.Listen = src.Trace.Listen },
		"report":         func(dst, src *Config) { dst.Trace.Report = src.Trace.Report },
		"log-format":     func(dst, src *Config) { dst.Log.Format = src.Log.Format },
		"log-level":      func(dst, src *Config) { dst.Log.Level = src.Log.Level },
	}
}
