package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fanwave/fanwave/cache"
	"github.com/fanwave/fanwave/client"
	"github.com/fanwave/fanwave/internal/config"
	"github.com/fanwave/fanwave/server"
	"github.com/fanwave/fanwave/session"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("server exited with error, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	setupLogging(cfg)
	displayAppname(cfg.AppName)

	sess, err := session.New(session.Config{
		BaseURL:      cfg.Auth.BaseURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		PublicKeyPEM: cfg.Auth.PublicKey,
		UserAgent:    cfg.API.UserAgent,
		Origin:       cfg.API.Origin,
		Referer:      cfg.API.Referer,
		Timeout:      cfg.API.Timeout,
	})
	if err != nil {
		return err
	}

	loginCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sess.Login(loginCtx, cfg.Auth.Email, cfg.Auth.Password); err != nil {
		return fmt.Errorf("initial platform login: %w", err)
	}

	store := cache.New(cfg.Cache.TTL)
	defer store.Close()

	remote, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Origin:    cfg.API.Origin,
		Referer:   cfg.API.Referer,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, sess, store)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(cfg, remote, sess, store),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
