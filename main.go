package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/mailforward/config"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/tracing"
	"github.com/customeros/mailforward/server"
	"github.com/customeros/mailforward/services"
)

func usage() {
	fmt.Println("Usage: mailforward [command]")
	fmt.Println("Commands:")
	fmt.Println("  run       Forward unseen messages once and exit (default)")
	fmt.Println("  schedule  Forward on a cron schedule and serve /health and /status")
}

func main() {
	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command != "run" && command != "schedule" {
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	defer appLogger.Sync()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	svcs := services.InitServices(cfg, appLogger)

	switch command {
	case "run":
		code := runOnce(svcs, closer)
		appLogger.Sync()
		os.Exit(code)

	case "schedule":
		srv := server.NewServer(cfg, appLogger, svcs, kubernetesClient(appLogger), closer)
		if err = srv.Run(); err != nil {
			log.Fatalf("Scheduler startup failed: %v", err)
		}
		appLogger.Info("Shutdown complete")
	}
}

// runOnce performs a single forwarding pass and returns the process exit code.
func runOnce(svcs *services.Services, tracerCloser io.Closer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer tracerCloser.Close()

	if _, err := svcs.Processor.Run(ctx); err != nil {
		return 1
	}
	return 0
}

// kubernetesClient returns nil outside a cluster, which puts the scheduler in local mode.
func kubernetesClient(appLogger logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		appLogger.Infof("Not running in a cluster, leader election disabled: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		appLogger.Warnf("Could not create kubernetes client, leader election disabled: %v", err)
		return nil
	}
	return client
}
