// Package app assembles an answer engine from configuration. The annactl,
// annad and anna-mcp binaries share it.
package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/config"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/fastpath"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	dtrace "github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

// Options override pieces of the assembled engine.
type Options struct {
	Logger   *zap.Logger
	Observer engine.Observer
	// Client replaces the OpenAI-compatible transport.
	Client llm.Client
	// Executor replaces the os/exec probe runner.
	Executor probe.Executor
}

// App is a ready-to-use engine with the resources it owns.
type App struct {
	Config  config.Config
	Engine  *engine.AnswerEngine
	Catalog *probe.Catalog
	trace   *dtrace.Writer
}

// New builds an App from cfg.
func New(cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, redactor, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		oc, err := llm.NewOpenAIClient(llm.Config{
			Endpoint:    cfg.LLM.Endpoint,
			APIKey:      cfg.LLM.APIKey,
			JuniorModel: cfg.LLM.JuniorModel,
			SeniorModel: cfg.LLM.SeniorModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, logger.Named("llm"))
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
		client = oc
	}

	exec := opts.Executor
	if exec == nil {
		ce := probe.NewCommandExecutor(logger.Named("probe"))
		ce.Concurrency = cfg.ProbeConcurrency
		ce.Timeout = cfg.ProbeTimeout.Std()
		if redactor != nil {
			ce.Redactor = redactor
		}
		exec = ce
	}

	a := &App{Config: cfg, Catalog: catalog}
	debug := engine.DebugConfig{Enabled: cfg.Debug.Enabled, Stream: cfg.Debug.Stream}
	if cfg.Debug.TraceFile != "" {
		w, err := dtrace.NewFileWriter(cfg.Debug.TraceFile)
		if err != nil {
			return nil, err
		}
		a.trace = w
		debug.Writer = w
	}

	var fp *fastpath.Matcher
	if cfg.FastPath {
		fp = fastpath.DefaultMatcher()
	}

	a.Engine = engine.New(client, exec, catalog, engine.Options{
		MaxLoops:   cfg.MaxLoops,
		Timeout:    cfg.OrchestrationTimeout.Std(),
		Thresholds: engine.Thresholds{Green: cfg.Thresholds.Green, Yellow: cfg.Thresholds.Yellow},
		FastPath:   fp,
		Observer:   opts.Observer,
		Debug:      debug,
		Logger:     logger.Named("engine"),
	})
	logger.Debug("engine ready",
		zap.Int("probes", catalog.Len()),
		zap.Int("max_loops", cfg.MaxLoops),
		zap.Bool("fast_path", cfg.FastPath),
		zap.String("endpoint", cfg.LLM.Endpoint),
	)
	return a, nil
}

// Close releases the trace file, if any.
func (a *App) Close() error {
	if a.trace == nil {
		return nil
	}
	return a.trace.Close()
}

// LoadCatalog returns the built-in catalog when path is empty, otherwise the
// catalog file at path and its redaction rules.
func LoadCatalog(path string) (*probe.Catalog, *probe.Redactor, error) {
	if path == "" {
		return probe.StandardCatalog(), nil, nil
	}
	c, r, err := probe.LoadCatalogFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, r, nil
}

// NewLogger builds the CLI logger: production JSON on stderr, debug level
// when verbose.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
