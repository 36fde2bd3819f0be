package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agent-staffing/config"
	"agent-staffing/erlanga"
	"agent-staffing/erlangb"
	"agent-staffing/errors"
	"agent-staffing/formatter"
	"agent-staffing/metrics"
	"agent-staffing/models"
	"agent-staffing/parser"
	"agent-staffing/scheduler"
	"agent-staffing/staffing"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const usage = `Usage: agent-staffing <command> [flags]

Commands:
  schedule   hourly agent schedule from a CSV of call windows
  analyze    Erlang-A steady state of one queue
  staff      minimum agents for one service-level target
  blocking   Erlang-B loss probability and minimum servers for a load

Run "agent-staffing <command> -h" for the flags of a command.
`

// common holds the flags shared by every command.
type common struct {
	format      string
	logLevel    string
	metricsAddr string
	pushURL     string
	wait        bool

	model    string
	strategy string
}

func (c *common) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&c.format, "format", "text", "Output format: text|json|csv")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&c.metricsAddr, "metrics-addr", cfg.Server.MetricsAddr, "Address to expose Prometheus metrics (e.g., :9090)")
	fs.StringVar(&c.pushURL, "push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	fs.BoolVar(&c.wait, "wait", false, "Keep process running after completion to allow for metric scraping")

	fs.StringVar(&c.model, "model", string(cfg.Staffing.Model), "Queue model: erlang-a|erlang-c")
	fs.StringVar(&c.strategy, "strategy", string(cfg.Staffing.Strategy), "Staffing search: linear|bisection")
	fs.IntVar(&cfg.Staffing.MaxAgents, "max-agents", cfg.Staffing.MaxAgents, "Largest agent count the staffing search tries")
	fs.Float64Var(&cfg.Staffing.TargetServiceLevel, "target-sl", cfg.Staffing.TargetServiceLevel, "Target fraction of calls answered within -target-wait")
	fs.DurationVar(&cfg.Staffing.TargetWaitTime, "target-wait", cfg.Staffing.TargetWaitTime, "Service-level wait threshold")
	fs.DurationVar(&cfg.Staffing.DefaultPatience, "patience", cfg.Staffing.DefaultPatience, "Mean caller patience for Erlang-A when the input has none")
}

// apply folds the string flags into cfg and validates the result.
func (c *common) apply(cfg *config.Config) (formatter.Format, error) {
	setupLogger(c.logLevel)

	model, err := models.ParseQueueModel(c.model)
	if err != nil {
		return "", err
	}
	strategy, err := staffing.ParseStrategy(c.strategy)
	if err != nil {
		return "", err
	}
	cfg.Staffing.Model = model
	cfg.Staffing.Strategy = strategy
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	return formatter.ParseFormat(c.format)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05",
		}),
	))
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if strings.HasPrefix(cmd, "-") && cmd != "-h" && cmd != "-help" {
		// Bare flags keep the original single-command invocation working.
		cmd, args = "schedule", os.Args[1:]
	}

	cfg := config.DefaultConfig()
	var err error
	switch cmd {
	case "schedule":
		err = runSchedule(cfg, args)
	case "analyze":
		err = runAnalyze(cfg, args)
	case "staff":
		err = runStaff(cfg, args)
	case "blocking":
		err = runBlocking(cfg, args)
	case "help", "-h", "-help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("command failed", "command", cmd, "error", err, "kind", errors.Kind(err))
		os.Exit(1)
	}
}

func runSchedule(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	var c common
	c.register(fs, cfg)
	input := fs.String("input", "", "Input CSV file (required)")
	utilization := fs.Float64("utilization", 1.0, "Fraction of agent time spent on calls, in (0, 1]")
	capacity := fs.Int("capacity", 0, "Maximum agent capacity per hour (0 = unlimited)")
	sizing := fs.String("sizing", "erlang", "Agent sizing: erlang (queueing model) or workload (calls x AHT)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := c.apply(cfg)
	if err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("-input flag is required")
	}
	if *utilization <= 0 || *utilization > 1 {
		return fmt.Errorf("utilization must be in (0, 1], got %g", *utilization)
	}

	opts := scheduler.Options{
		Utilization:        *utilization,
		CapacityPerHour:    *capacity,
		Model:              cfg.Staffing.Model,
		TargetServiceLevel: cfg.Staffing.TargetServiceLevel,
		TargetWaitTime:     cfg.Staffing.TargetWaitTime,
		DefaultPatience:    cfg.Staffing.DefaultPatience,
		Logger:             slog.Default().With("command", "schedule"),
	}
	switch *sizing {
	case "erlang":
		opts.Solver = staffing.New(cfg.ToSolverConfig())
	case "workload":
	default:
		return fmt.Errorf("sizing must be erlang or workload, got %q", *sizing)
	}

	stop := serveMetrics(c.metricsAddr)
	defer stop()

	file, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer file.Close()

	data, err := parser.Parse(file)
	if err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	slog.Info("parsed call windows", "file", *input, "customers", len(data))

	schedule, err := scheduler.GenerateSchedule(data, opts)
	if err != nil {
		return err
	}
	fmt.Print(formatter.Schedule(schedule, format))

	finish(c)
	return nil
}

func runAnalyze(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var c common
	c.register(fs, cfg)
	var p models.QueueParameters
	agents := fs.Int("agents", 0, "Number of agents (required)")
	fs.Float64Var(&p.ArrivalRate, "arrival", 0, "Arrival rate, calls per time unit")
	fs.Float64Var(&p.ServiceRate, "service", 0, "Service rate per agent, calls per time unit")
	fs.Float64Var(&p.AbandonmentRate, "abandonment", 0, "Abandonment rate, 1 / mean patience in the same unit")
	positions := fs.Int("positions", 5, "Queue positions to list served/abandon probabilities for")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := c.apply(cfg)
	if err != nil {
		return err
	}
	p.Servers = float64(*agents)

	stop := serveMetrics(c.metricsAddr)
	defer stop()

	res, err := erlanga.New(cfg.ToErlangAConfig()).Solve(p)
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues(errors.Kind(err)).Inc()
		return err
	}
	slog.Debug("solved queue", "distribution_length", len(res.Distribution), "axy", res.AXY, "p_n", res.BusyNoWait)

	analysis, err := formatter.NewAnalysis(res, max(*positions, 0))
	if err != nil {
		return err
	}
	out, err := formatter.FormatAnalysis(analysis, format)
	if err != nil {
		return err
	}
	fmt.Print(out)

	finish(c)
	return nil
}

func runStaff(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("staff", flag.ContinueOnError)
	var c common
	c.register(fs, cfg)
	var q models.StaffingQuery
	fs.Float64Var(&q.CallsPerMinute, "calls-per-minute", 0, "Arrival rate in calls per minute")
	fs.DurationVar(&q.AvgHandleTime, "aht", 3*time.Minute, "Average handle time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := c.apply(cfg)
	if err != nil {
		return err
	}
	q.TargetServiceLevel = cfg.Staffing.TargetServiceLevel
	q.TargetWaitTime = cfg.Staffing.TargetWaitTime
	q.Patience = cfg.Staffing.DefaultPatience
	q.Model = cfg.Staffing.Model

	stop := serveMetrics(c.metricsAddr)
	defer stop()

	solver := staffing.New(cfg.ToSolverConfig())
	agents, err := solver.Solve(q)
	var sl float64
	if err == nil {
		sl, err = solver.ServiceLevel(q, agents)
	}
	metrics.ObserveSolve(string(q.Model), agents, sl, err)
	if stderrors.Is(err, errors.ErrNotFound) {
		fmt.Printf("exceeds capacity: more than %d agents needed\n", solver.MaxAgents())
		finish(c)
		return nil
	}
	if err != nil {
		return err
	}

	report, err := formatter.NewStaffingReport(q, agents, sl)
	if err != nil {
		return err
	}
	out, err := formatter.FormatStaffing(report, format)
	if err != nil {
		return err
	}
	fmt.Print(out)

	finish(c)
	return nil
}

func runBlocking(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("blocking", flag.ContinueOnError)
	var c common
	c.register(fs, cfg)
	servers := fs.Float64("servers", 0, "Number of servers; fractional counts use the incomplete gamma form")
	load := fs.Float64("load", 0, "Offered load in Erlangs")
	target := fs.Float64("target-blocking", 0, "Also report the fewest servers with blocking at or below this (0 = skip)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := c.apply(cfg)
	if err != nil {
		return err
	}

	stop := serveMetrics(c.metricsAddr)
	defer stop()

	calc := erlangb.New(cfg.ToErlangBConfig())
	report, err := formatter.NewBlockingReport(calc, *servers, *load, *target)
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues(errors.Kind(err)).Inc()
		return err
	}
	slog.Debug("evaluated loss model", "servers", *servers, "load", *load, "blocking", report.Blocking)

	out, err := formatter.FormatBlocking(report, format)
	if err != nil {
		return err
	}
	fmt.Print(out)

	finish(c)
	return nil
}

// serveMetrics exposes the registry on addr until the returned func is called.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics server listening", "url", addr+"/metrics")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// finish pushes metrics and optionally blocks for scraping.
func finish(c common) {
	if c.pushURL != "" {
		if err := push.New(c.pushURL, "agent_staffing").Gatherer(metrics.Registry).Push(); err != nil {
			slog.Error("pushing to Pushgateway", "url", c.pushURL, "error", err)
		} else {
			slog.Info("metrics pushed", "url", c.pushURL)
		}
	}

	if c.wait && c.metricsAddr != "" {
		slog.Info("process kept alive for metric scraping, press Ctrl+C to exit")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
	}
}
