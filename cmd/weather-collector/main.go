package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Nazarious-ucu/weather-collector/internal/app"
	"github.com/Nazarious-ucu/weather-collector/internal/config"
	"github.com/Nazarious-ucu/weather-collector/internal/metrics"
	"github.com/Nazarious-ucu/weather-collector/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "weather-collector", cfg.LogLevel)
	if err != nil {
		log.Panicf("failed to create logger: %v", err)
	}

	m := metrics.NewMetrics("weather_collector")

	application := app.New(*cfg, l, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		l.Error().Err(err).Msg("weather collector stopped with error")
		stop()
		log.Panic(err)
	}
}
