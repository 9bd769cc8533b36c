package main

import (
	"cartsync/internal/app"
	"cartsync/internal/database/psql"
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger"
	"cartsync/pkg/lib/logger/sl"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.SetupLogger(cfg.HTTP.Env)
	if err != nil {
		panic(err)
	}

	storage := psql.New(log, cfg.ConnectionString(), cfg.MigrationsPath)

	application := app.New(
		log,
		cfg,
		storage,
	)

	go func() {
		if err := application.Run(); err != nil {
			log.Error("Application failed to start", sl.Err(err))
			panic(err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGTERM, syscall.SIGINT)
	<-done

	log.Info("Closing database")
	storage.Close()
}
