package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/storeward/storeward/cmd/storewardd/handlers"
	"github.com/storeward/storeward/pkg/configs"
	pgpool "github.com/storeward/storeward/pkg/conn/db/postgres/pool"
	"github.com/storeward/storeward/pkg/domain/store/db/postgres"
	"github.com/storeward/storeward/pkg/kubeutil"
	"github.com/storeward/storeward/pkg/provision"
	"github.com/storeward/storeward/pkg/utils/echoutil"
	"github.com/storeward/storeward/pkg/utils/filewatch"
	"github.com/storeward/storeward/pkg/workloads/helm"
	"github.com/storeward/storeward/pkg/workloads/k8s"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	loglevel := flag.String("loglevel", "", "log level. debug|info|warn|error|off (overrides config)")
	flag.Parse()

	conf, err := configs.Load(*configPath)
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}
	if *loglevel != "" {
		conf.LogLevel = *loglevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true
	echoutil.SetLevel(e, conf.LogLevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	if *configPath != "" {
		// restart (via the process supervisor) when the config changes.
		watchCtx, cancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		context.AfterFunc(watchCtx, func() {
			if ctx.Err() != nil {
				return // normal shutdown, not a config change
			}
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
	}

	pool, err := pgxpool.Connect(ctx, conf.DatabaseURL)
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer pool.Close()

	wrapped := pgpool.Wrap(pool)
	if err := postgres.Ensure(ctx, wrapped); err != nil {
		log.Fatalf("can not prepare database schema: %s", err)
	}
	dbStore := postgres.New(wrapped)

	helmExec, err := helm.NewCLI(ctx, conf.Helm)
	if err != nil {
		log.Fatalf("can not set up helm: %s", err)
	}

	clientset := kubeutil.ConnectToK8s(conf.Kubeconfig)
	probe := k8s.AttachProbe(k8s.WrapK8sClient(clientset))

	workerLogger := gommonlog.New("provision")
	workerLogger.SetLevel(echoutil.LevelOf(conf.LogLevel))
	worker := provision.New(
		dbStore, helmExec, probe,
		provision.Config{
			BaseDomain:   conf.BaseDomain,
			TLSEnabled:   conf.TLSEnabled,
			Timeout:      conf.Provisioning.Timeout(),
			PollInterval: conf.Provisioning.PollInterval(),
			MaxWorkers:   conf.Provisioning.MaxWorkers,
		},
		workerLogger,
	)
	worker.Start(ctx)

	// resume what a previous process left behind, before taking requests.
	if err := worker.Recover(ctx); err != nil {
		log.Fatalf("can not recover in-flight stores: %s", err)
	}

	{
		api := e.Group("/api/v1")

		api.GET("/health", handlers.HealthHandler(wrapped))

		storeId := "storeId"
		api.GET("/stores", handlers.ListStoresHandler(dbStore))
		api.POST("/stores", handlers.CreateStoreHandler(dbStore, worker))
		api.GET("/stores/:storeId", handlers.GetStoreHandler(dbStore, storeId))
		api.DELETE("/stores/:storeId", handlers.DeleteStoreHandler(dbStore, worker, storeId))
	}
	log.Println("registered routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	context.AfterFunc(ctx, func() {
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.Printf("error on shutdown: %s", err)
		}
	})

	if err := e.Start(fmt.Sprintf(":%d", conf.Port)); err != nil && err != http.ErrServerClosed {
		e.Logger.Error(err)
	}

	stop()
	worker.Wait()
}
