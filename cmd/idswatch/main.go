package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/idswatch/internal/adapters/api"
	"github.com/xoelrdgz/idswatch/internal/adapters/demo"
	"github.com/xoelrdgz/idswatch/internal/adapters/output"
	"github.com/xoelrdgz/idswatch/internal/app"
	"github.com/xoelrdgz/idswatch/internal/tui"
)

var (
	cfgFile     string
	baseURL     string
	noTUI       bool
	journalPath string
	follow      bool

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "idswatch",
	Short: "Terminal dashboard for an intrusion-detection backend",
	Long: `idswatch polls an intrusion-detection backend for its latest alert and
historical prediction logs, and lets an operator trigger a detection scan.

The backend API is three endpoints under a base URL:
  GET  /latest-alert       most recent alert (404 when none)
  GET  /logs               historical entries
  POST /trigger-detection  run one capture and prediction cycle`,
	SilenceUsage: true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Long: `Start polling the backend and render the dashboard.

Examples:
  idswatch watch --api http://127.0.0.1:5000
  idswatch watch --no-tui --journal ./alerts.jsonl`,
	RunE: runWatch,
}

var demoCmd = &cobra.Command{
	Use:   "demo-backend",
	Short: "Serve a synthetic detection backend",
	Long: `Serve the backend API with generated predictions so the dashboard can
be exercised without a capture host.

Examples:
  idswatch demo-backend --listen 127.0.0.1:8080
  idswatch demo-backend --failure-percent 30`,
	RunE: runDemo,
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the alert journal",
	Long: `Print every alert recorded in the journal, oldest first.

Examples:
  idswatch journal --path ./alerts.jsonl
  idswatch journal --follow`,
	RunE: runJournal,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("idswatch %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	watchCmd.Flags().StringVar(&baseURL, "api", "", "backend base URL")
	watchCmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable TUI, log to stderr")
	watchCmd.Flags().StringVar(&journalPath, "journal", "", "append new alerts to this JSON-lines file")
	watchCmd.Flags().Duration("interval", app.DefaultPollInterval, "poll interval")
	watchCmd.Flags().Bool("metrics", false, "serve Prometheus metrics and /ready")
	viper.BindPFlag("api.base_url", watchCmd.Flags().Lookup("api"))
	viper.BindPFlag("output.journal.path", watchCmd.Flags().Lookup("journal"))
	viper.BindPFlag("poll.interval", watchCmd.Flags().Lookup("interval"))
	viper.BindPFlag("output.metrics.enabled", watchCmd.Flags().Lookup("metrics"))

	demoCmd.Flags().String("listen", "127.0.0.1:8080", "listen address")
	demoCmd.Flags().Int("batch-size", 25, "predictions per capture")
	demoCmd.Flags().Int("anomaly-percent", 15, "share of suspicious traffic")
	demoCmd.Flags().Int("failure-percent", 0, "share of captures that fail")
	demoCmd.Flags().Duration("scan-delay", 2*time.Second, "simulated capture time")
	viper.BindPFlag("demo.listen", demoCmd.Flags().Lookup("listen"))
	viper.BindPFlag("demo.batch_size", demoCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("demo.anomaly_percent", demoCmd.Flags().Lookup("anomaly-percent"))
	viper.BindPFlag("demo.failure_percent", demoCmd.Flags().Lookup("failure-percent"))
	viper.BindPFlag("demo.scan_delay", demoCmd.Flags().Lookup("scan-delay"))

	journalCmd.Flags().String("path", "", "journal file (default: output.journal.path)")
	journalCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new alerts")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/idswatch")
	}

	app.SetDefaults(viper.GetViper())
	viper.SetDefault("tui.enabled", true)
	viper.SetDefault("output.metrics.enabled", false)
	viper.SetDefault("output.metrics.port", ":9090")
	viper.SetDefault("output.journal.path", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "idswatch.log")
	viper.SetDefault("demo.listen", "127.0.0.1:8080")
	viper.SetDefault("demo.batch_size", 25)
	viper.SetDefault("demo.anomaly_percent", 15)
	viper.SetDefault("demo.failure_percent", 0)
	viper.SetDefault("demo.scan_delay", "2s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("Error reading config file")
		}
	}

	viper.SetEnvPrefix("IDSWATCH")
	viper.AutomaticEnv()
}

// setupLogging routes logs to a console writer in headless mode. With the
// TUI up, logs go to a file so they do not tear the screen.
func setupLogging(console bool) (func(), error) {
	zerolog.TimeFieldFormat = time.RFC3339

	switch viper.GetString("logging.level") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
		return func() {}, nil
	}

	path := viper.GetString("logging.file")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { f.Close() }, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	headless := noTUI || !viper.GetBool("tui.enabled")
	closeLog, err := setupLogging(headless)
	if err != nil {
		return err
	}
	defer closeLog()

	settings := app.LoadSettings(viper.GetViper())
	if err := settings.Validate(); err != nil {
		return err
	}

	client, err := api.New(api.Config{
		BaseURL:   settings.BaseURL,
		Timeout:   settings.Timeout,
		UserAgent: "idswatch/" + Version,
	})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	log.Info().
		Str("api", client.BaseURL).
		Dur("interval", settings.PollInterval).
		Bool("tui", !headless).
		Msg("idswatch started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := app.NewController(client, settings.ControllerConfig())
	defer ctrl.Close()

	if path := viper.GetString("output.journal.path"); path != "" {
		journal, err := output.NewJSONJournal(output.JSONJournalConfig{FilePath: path})
		if err != nil {
			return err
		}
		defer journal.Close()
		ctrl.AddAlertSubscriber(journal)
		log.Debug().Str("path", path).Msg("Alert journal enabled")
	}

	if viper.GetBool("output.metrics.enabled") {
		metrics := output.NewPrometheusMetrics("idswatch")
		ctrl.SetObserver(metrics)
		ctrl.AddAlertSubscriber(metrics)

		health := output.NewHealthChecker(ctrl, output.DefaultHealthCheckerConfig())
		metricsConfig := output.DefaultMetricsConfig()
		metricsConfig.Port = viper.GetString("output.metrics.port")
		if err := metrics.StartServer(metricsConfig, health); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		}
		defer metrics.StopServer()
	}

	hotConfig := app.NewHotReloadConfig(viper.GetViper(), ctrl)
	if viper.ConfigFileUsed() != "" {
		hotConfig.StartWatching()
	}
	defer hotConfig.Stop()

	if headless {
		console := output.NewConsoleAlerter(log.Logger)
		ctrl.AddAlertSubscriber(console)
		ctrl.AddStateSubscriber(console)
		ctrl.Start()
		log.Info().Msg("Running in console mode, press Ctrl+C to stop")
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		return nil
	}

	tuiApp := tui.NewApp(ctx, ctrl)
	tuiApp.SetBackend(client.BaseURL)
	ctrl.AddStateSubscriber(tuiApp)
	ctrl.Start()

	var tuiErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("TUI panic recovered")
				tuiErr = errors.Newf("TUI panic: %v", r)
			}
		}()
		tuiErr = tuiApp.Run()
	}()

	log.Info().Msg("Shutting down...")
	if errors.Is(tuiErr, tea.ErrProgramKilled) || errors.Is(tuiErr, context.Canceled) {
		return nil
	}
	return tuiErr
}

func runDemo(cmd *cobra.Command, args []string) error {
	if _, err := setupLogging(true); err != nil {
		return err
	}

	config := demo.ServerConfig{
		Listen:         viper.GetString("demo.listen"),
		ScanDelay:      viper.GetDuration("demo.scan_delay"),
		FailurePercent: viper.GetInt("demo.failure_percent"),
		Generator: demo.GeneratorConfig{
			BatchSize:      viper.GetInt("demo.batch_size"),
			AnomalyPercent: viper.GetInt("demo.anomaly_percent"),
		},
	}
	server := demo.NewServer(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down demo backend...")
	return server.Shutdown(shutdownCtx)
}

func runJournal(cmd *cobra.Command, args []string) error {
	if _, err := setupLogging(true); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		path = viper.GetString("output.journal.path")
	}
	if path == "" {
		return errors.New("journal path required: use --path or output.journal.path")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := output.NewJournalReader(output.JournalReaderConfig{Path: path, Follow: follow})
	records, errs := reader.Start(ctx)
	defer reader.Stop()

	for rec := range records {
		a := rec.Alert
		fmt.Printf("%s  %-8s  %-16s  %-15s  %s  %s\n",
			rec.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			a.Severity.Label(),
			a.Type,
			a.SourceString(),
			a.ID,
			a.DetailsOr(""),
		)
	}
	for err := range errs {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
