package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verdantlab/leafwise/cmd/leafd/handlers"
	"github.com/verdantlab/leafwise/pkg/configs/server"
	"github.com/verdantlab/leafwise/pkg/domain/acquire"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/domain/history"
	"github.com/verdantlab/leafwise/pkg/domain/model"
	"github.com/verdantlab/leafwise/pkg/domain/model/yolo"
	"github.com/verdantlab/leafwise/pkg/domain/registry"
	"github.com/verdantlab/leafwise/pkg/domain/split"
	"github.com/verdantlab/leafwise/pkg/domain/train"
	"github.com/verdantlab/leafwise/pkg/loop"
	"github.com/verdantlab/leafwise/pkg/utils/echoutil"
	"github.com/verdantlab/leafwise/pkg/utils/filewatch"
)

func main() {

	configPath := flag.String("config-path", "", "server config path")
	loglevel := flag.String("loglevel", "", "log level. debug|info|warn|error|off. overrides the config file")
	flag.Parse()

	conf, err := server.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	e := echo.New()

	// set log
	lv := conf.LogLevel
	if *loglevel != "" {
		lv = *loglevel
	}
	echoutil.SetLevel(e, lv)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(echoutil.LogHandlerFunc)
	e.Use(measureRequests)

	// restart (via the process supervisor) when the config changes
	ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *configPath)
	if err != nil {
		log.Fatalf("can not watch configration: %s", err)
	}
	defer cancel()
	context.AfterFunc(ctx, func() {
		log.Println("config file is updated. quit to restart server.")
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.Printf("error on shutdown by config update: %s", err)
		}
	})

	// storage
	reg, err := registry.Load(conf.Dataset.RegistryFile)
	if err != nil {
		log.Fatalf("can not load the label registry: %s", err)
	}
	store, err := dataset.New(conf.Dataset.Dir)
	if err != nil {
		log.Fatalf("can not open the dataset store: %s", err)
	}

	// model serving: prefer the last trained weights, fall back to the
	// base checkpoint so predict works from the first boot
	slot := &model.Slot{}
	for _, w := range []string{conf.Model.ServeWeights, conf.Model.BaseWeights} {
		if w == "" {
			continue
		}
		m, err := yolo.Load(conf.Model.Runtime, w)
		if err != nil {
			log.Printf("can not load weights %s: %s", w, err)
			continue
		}
		slot.Swap(m, w)
		log.Printf("serving model from %s", w)
		break
	}

	// training workflow
	searcher := acquire.NewWebSearcher(
		conf.Source.Endpoint, time.Duration(conf.Source.TimeoutSeconds)*time.Second,
	)
	fetcher := acquire.New(searcher, store)
	trainer := yolo.NewTrainer(conf.Model.Runtime, conf.Model.OutDir)
	loader := func(weights string) (model.Classifier, error) {
		return yolo.Load(conf.Model.Runtime, weights)
	}

	recorders := []train.Recorder{}
	var hist *history.Store
	if conf.Database != "" {
		h, err := history.New(ctx, conf.Database)
		if err != nil {
			log.Fatalf("can not open the training history database: %s", err)
		}
		defer h.Close()
		hist = h
		recorders = append(recorders, hist)
	}

	trainings := train.New(
		reg, store, fetcher, trainer, slot, loader,
		train.Config{
			WorkDir:     conf.Train.WorkDir,
			SplitRatio:  conf.Train.SplitRatio,
			MinImages:   conf.Train.MinImages,
			FetchTarget: conf.Train.FetchTarget,
			BaseWeights: conf.Model.BaseWeights,
		},
		log.Default(),
		recorders...,
	)

	// housekeeping: stale split workspaces survive crashes, purge them
	go loop.Start(ctx, struct{}{}, func(_ context.Context, v struct{}) (struct{}, loop.Next) {
		if n, err := split.PurgeStale(conf.Train.WorkDir, 24*time.Hour); err != nil {
			log.Printf("workspace purge: %s", err)
		} else if 0 < n {
			log.Printf("purged %d stale split workspace(s)", n)
		}
		return v, loop.Continue(time.Hour)
	})
	go loop.Start(ctx, struct{}{}, func(_ context.Context, v struct{}) (struct{}, loop.Next) {
		if trainings.Status().Status.InProgress() {
			trainingActive.Set(1)
		} else {
			trainingActive.Set(0)
		}
		return v, loop.Continue(3 * time.Second)
	})

	// handlers
	{
		e.POST("/predict", handlers.PredictHandler(slot, nil))
	}

	{
		e.POST("/train/start", handlers.StartTrainingHandler(trainings))
		e.GET("/train/status", handlers.GetTrainingStatusHandler(trainings))

		e.GET("/train/labels", handlers.GetLabelsHandler(reg))
		e.DELETE("/train/labels/:name", handlers.DeleteLabelHandler(reg, store))

		if hist != nil {
			e.GET("/train/history", handlers.GetTrainingHistoryHandler(hist))
		}

		e.POST("/train/upload", handlers.UploadImagesHandler(store))
		e.POST("/train/preview", handlers.PreviewImagesHandler(store, fetcher, conf.Train.FetchTarget))
		e.GET("/train/images/*", handlers.GetImageHandler(store))
	}

	{
		e.GET("/health", handlers.HealthHandler(slot, reg))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", conf.Port)))
}
