// Command dispatchctl runs the priority-aware request dispatcher as a
// standalone service, exposing its operational surface (status, health,
// metrics) via statusapi; there is no remote submission API, and the
// submit subcommand runs its own local dispatcher. Command structure
// and config-file/.env layering follow the teacher pack's cobra-based
// CLIs.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kocayinsec/network-automation-sender/cache"
	"github.com/kocayinsec/network-automation-sender/dispatch"
	"github.com/kocayinsec/network-automation-sender/dispatchlog"
	"github.com/kocayinsec/network-automation-sender/dlq"
	"github.com/kocayinsec/network-automation-sender/internal/appconfig"
	"github.com/kocayinsec/network-automation-sender/model"
	"github.com/kocayinsec/network-automation-sender/monitor"
	"github.com/kocayinsec/network-automation-sender/statusapi"
)

var configPath string

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "dispatchctl",
		Short:   "Priority-aware, rate-limited, fault-tolerant HTTP request dispatcher",
		Version: "0.1.0",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "dispatchctl.yaml", "path to the YAML config file")
	root.AddCommand(buildRunCommand())
	root.AddCommand(buildSubmitCommand())
	return root
}

func buildRunCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the dispatcher and its status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override the status API listen address")
	return cmd
}

func buildSubmitCommand() *cobra.Command {
	var method, url, priority string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a single request to a local dispatcher and print its result",
		Long:  "submit is a thin convenience wrapper; it does not talk to a running process directly -- it starts a local dispatcher, submits one request, awaits the result, and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(method, url, priority)
		},
	}
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&url, "url", "", "target URL")
	cmd.Flags().StringVar(&priority, "priority", "NORMAL", "priority: CRITICAL, HIGH, NORMAL, LOW")
	cmd.MarkFlagRequired("url")
	return cmd
}

func loadFile() (appconfig.File, error) {
	_ = godotenv.Load()
	f, err := appconfig.Load(configPath)
	if err != nil {
		return f, err
	}
	appconfig.ApplyEnvOverrides(&f)
	return f, nil
}

func buildCoordinator(f appconfig.File) (*dispatch.Coordinator, error) {
	opts := []dispatch.Option{dispatch.WithLogger(dispatchlog.NewLogrus(nil))}

	if f.Cache.Backend == "redis" && f.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: f.Cache.RedisAddr})
		opts = append(opts, dispatch.WithCache(cache.NewRedis(rdb, "dispatch:")))
	}

	if f.DeadLetter.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := dlq.ConnectPostgres(ctx, f.DeadLetter.PostgresDSN, f.DeadLetter.Capacity, dispatchlog.NewLogrus(nil))
		if err != nil {
			return nil, fmt.Errorf("dispatchctl: connect dead-letter store: %w", err)
		}
		opts = append(opts, dispatch.WithDeadLetterSink(pg))
	}

	cfg := f.ToDispatchConfig()
	coordinator, err := dispatch.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("dispatchctl: build coordinator: %w", err)
	}

	registerDefaultThresholds(coordinator)
	return coordinator, nil
}

// registerDefaultThresholds wires the alerting thresholds an operator
// would want out of the box: sustained queue growth and any breaker
// tripped open.
func registerDefaultThresholds(c *dispatch.Coordinator) {
	c.Monitor().RegisterThreshold(monitor.Threshold{
		Metric:     "queue.size",
		Comparator: monitor.GreaterThan,
		Value:      1000,
		Severity:   model.SeverityHigh,
	})
	c.Monitor().RegisterThreshold(monitor.Threshold{
		Metric:     "breaker.open_count",
		Comparator: monitor.GreaterThan,
		Value:      0,
		Severity:   model.SeverityMedium,
	})
	c.Monitor().AddSink(func(alert model.Alert) {
		log.Printf("alert %s: %s observed=%.2f threshold=%.2f severity=%s", alert.Status, alert.Metric, alert.Observed, alert.Threshold, alert.Severity)
	})
}

func runServer(addrOverride string) error {
	f, err := loadFile()
	if err != nil {
		return err
	}
	if addrOverride != "" {
		f.Server.Addr = addrOverride
	}
	if f.Server.Addr == "" {
		f.Server.Addr = ":8080"
	}

	coordinator, err := buildCoordinator(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordinator.Start(ctx)

	engine := statusapi.New(coordinator)
	srv := &http.Server{Addr: f.Server.Addr, Handler: engine}

	go func() {
		log.Printf("dispatchctl listening on %s", f.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("status api error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	coordinator.Stop(f.ToDispatchConfig().DrainGrace)
	return nil
}

func runSubmit(method, url, priorityName string) error {
	f, err := loadFile()
	if err != nil {
		return err
	}

	priority, ok := model.ParsePriority(priorityName)
	if !ok {
		return fmt.Errorf("dispatchctl: unknown priority %q", priorityName)
	}

	coordinator, err := buildCoordinator(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordinator.Start(ctx)
	defer coordinator.Stop(2 * time.Second)

	id, err := coordinator.Submit(model.RequestDescriptor{
		Method: model.Method(method),
		URL:    url,
	}, priority)
	if err != nil {
		return fmt.Errorf("dispatchctl: submit: %w", err)
	}

	awaitCtx, awaitCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer awaitCancel()
	record, err := coordinator.Await(awaitCtx, id)
	if err != nil {
		return fmt.Errorf("dispatchctl: await %s: %w", id, err)
	}

	fmt.Printf("id=%s status=%d attempts=%d cache_hit=%v\n", id, record.StatusCode, record.Attempts, record.CacheHit)
	return nil
}
