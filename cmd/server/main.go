package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/backup"
	"asset-tracker-backend/internal/config"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var revoker auth.Revoker
	if cfg.RedisAddr != "" {
		revoker = auth.NewRedisRevoker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		log.Println("Token revocation: redis at", cfg.RedisAddr)
	} else {
		revoker = auth.NewMemoryRevoker()
		log.Println("Token revocation: in memory")
	}

	job := &backup.Job{
		DB:       database.DB,
		Interval: cfg.BackupInterval,
		Sinks:    []backup.Sink{&backup.FileSink{Dir: cfg.BackupDir, Keep: 14}},
	}
	if cfg.MongoBackupURI != "" {
		mongoSink, err := backup.NewMongoSink(ctx, cfg.MongoBackupURI, cfg.MongoBackupDB)
		if err != nil {
			log.Printf("Mongo backup sink disabled: %v", err)
		} else {
			defer mongoSink.Close()
			job.Sinks = append(job.Sinks, mongoSink)
		}
	}
	go job.Run(ctx)

	app := server.New(cfg, server.Deps{Revoker: revoker})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
