package application

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lk2023060901/coplay-garden-go/internal/backend/direct"
	"github.com/lk2023060901/coplay-garden-go/internal/backend/lobby"
	"github.com/lk2023060901/coplay-garden-go/internal/coplay"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	zlog "github.com/lk2023060901/coplay-garden-go/pkg/log"
	"github.com/lk2023060901/coplay-garden-go/pkg/metrics"
	zviper "github.com/lk2023060901/coplay-garden-go/pkg/util/viper"
)

// Application is the main runtime container for a Coplay service.
// It owns configuration and wires the online service client, the
// session manager and the notification webhook together.
type Application struct {
	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger

	identity *coplay.StaticIdentity
	client   *onlinesvc.Client
	manager  *coplay.Manager
	webhook  *onlinesvc.WebhookHandler
}

// onlineConfig mirrors the "online" section of the config file.
type onlineConfig struct {
	ProductID    string        `mapstructure:"product_id"`
	DeploymentID string        `mapstructure:"deployment_id"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// sessionConfig mirrors the "session" section of the config file.
type sessionConfig struct {
	BucketID         string        `mapstructure:"bucket_id"`
	MaxSearchResults int           `mapstructure:"max_search_results"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	PoolSize         int           `mapstructure:"pool_size"`
}

// webhookConfig mirrors the "webhook" section of the config file.
type webhookConfig struct {
	SigningSecret string        `mapstructure:"signing_secret"`
	MaxClockSkew  time.Duration `mapstructure:"max_clock_skew"`
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run is the entry of a Coplay application.
// It parses command-line arguments (os.Args) and loads configuration file
// using the following priority:
//  1. Default: ./config.yaml
//  2. Env: COPLAY_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	if err := a.initServices(); err != nil {
		return err
	}

	return nil
}

// Close releases the session manager and its worker pool.
func (a *Application) Close() error {
	if a.manager == nil {
		return nil
	}
	return a.manager.Close()
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Manager returns the session manager. Only valid after Run.
func (a *Application) Manager() *coplay.Manager {
	return a.manager
}

// Identity returns the local player identity store. Only valid after Run.
func (a *Application) Identity() *coplay.StaticIdentity {
	return a.identity
}

// Client returns the online service client. Only valid after Run.
func (a *Application) Client() *onlinesvc.Client {
	return a.client
}

// Handler returns an http.Handler exposing the notification webhook at
// /notifications and Prometheus metrics at /metrics.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	if a.webhook != nil {
		mux.Handle("/notifications", a.webhook)
	}
	if g, ok := metrics.GetRegisterer().(prometheus.Gatherer); ok {
		mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return &zlog.MLogger{Logger: zlog.L()}
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := "./config.yaml"

	if envPath := os.Getenv("COPLAY_CONFIG_FILE_PATH"); envPath != "" {
		configPath = envPath
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
			}
			continue
		}
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}

	return cfg, nil
}

var registerMetricsOnce sync.Once

// initServices builds the online service client, the backend strategies,
// the session manager and the webhook handler from configuration.
func (a *Application) initServices() error {
	registerMetricsOnce.Do(func() {
		metrics.Register(prometheus.DefaultRegisterer)
	})

	var oc onlineConfig
	if err := a.cfg.UnmarshalKey("online", &oc); err != nil {
		return fmt.Errorf("parse online config: %w", err)
	}

	var opts []onlinesvc.Option
	if oc.BaseURL != "" {
		opts = append(opts, onlinesvc.WithBaseURL(oc.BaseURL))
	}
	if oc.Timeout > 0 {
		opts = append(opts, onlinesvc.WithTimeout(oc.Timeout))
	}
	if oc.MaxRetries > 0 {
		opts = append(opts, onlinesvc.WithMaxRetries(oc.MaxRetries))
	}
	opts = append(opts, onlinesvc.WithLogger(a.Logger("online")))

	client, err := onlinesvc.NewClient(onlinesvc.Config{
		ProductID:    oc.ProductID,
		DeploymentID: oc.DeploymentID,
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
	}, opts...)
	if err != nil {
		return err
	}
	a.client = client

	var sc sessionConfig
	if err := a.cfg.UnmarshalKey("session", &sc); err != nil {
		return fmt.Errorf("parse session config: %w", err)
	}

	a.identity = coplay.NewStaticIdentity()
	a.manager = coplay.NewManager(coplay.Config{
		BucketID:         sc.BucketID,
		MaxSearchResults: sc.MaxSearchResults,
		OperationTimeout: sc.OperationTimeout,
		PoolSize:         sc.PoolSize,
	}, a.identity,
		direct.New(client, a.Logger("session")),
		lobby.New(client, a.Logger("session")),
		a.Logger("session"))

	var wc webhookConfig
	if err := a.cfg.UnmarshalKey("webhook", &wc); err != nil {
		return fmt.Errorf("parse webhook config: %w", err)
	}
	if wc.SigningSecret != "" {
		a.webhook = &onlinesvc.WebhookHandler{
			Verifier: onlinesvc.NewWebhookVerifier(onlinesvc.WebhookConfig{
				SigningSecret: wc.SigningSecret,
				MaxClockSkew:  wc.MaxClockSkew,
			}, a.Logger("online")),
			Handler: a.manager,
		}
	}

	return nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if err := a.initModuleLoggersFromConfig(); err != nil {
		return err
	}
	return nil
}

// initGlobalLoggerFromEnv configures the process-wide logger based on COPLAY_LOG_* env vars.
//
// Priority:
//   - COPLAY_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - COPLAY_LOG_LEVEL: log level (default "info").
//   - COPLAY_LOG_STDOUT: whether to log to stdout (default false).
//   - COPLAY_LOG_FILE_DIR: log directory.
//   - COPLAY_LOG_FILE: log file name (empty means no file).
//   - COPLAY_LOG_FORMAT: log format ("text" or "json", default "text").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("COPLAY_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:               getenvDefault("COPLAY_LOG_LEVEL", "info"),
		Format:              getenvDefault("COPLAY_LOG_FORMAT", "text"),
		DisableTimestamp:    false,
		Stdout:              getenvBool("COPLAY_LOG_STDOUT", false),
		DisableCaller:       false,
		DisableStacktrace:   false,
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("COPLAY_LOG_FILE_DIR", ""),
			Filename: getenvDefault("COPLAY_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from YAML config under "logging" key.
//
// Example:
//
//	logging:
//	  session:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: session.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	// Unmarshal "logging" section into a map[name]Config.
	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		// If the key doesn't exist, UnmarshalKey typically leaves raw empty without error.
		// Any real error should be returned.
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}

	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
