package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/jointangle/internal/api"
	"github.com/banshee-data/jointangle/internal/config"
	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/publish"
	"github.com/banshee-data/jointangle/internal/session"
	"github.com/banshee-data/jointangle/internal/source"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

const (
	shutdownTimeout = 5 * time.Second
	reconnectDelay  = 2 * time.Second
)

// publisher is the optional MQTT sink; publish.Nop stands in when no broker
// is configured.
type publisher interface {
	session.Publisher
	Close() error
}

func newPublisher() (publisher, error) {
	if *mqttBroker == "" {
		return publish.Nop{}, nil
	}
	host, _ := os.Hostname()
	return publish.Dial(*mqttBroker, "jointangle-"+host, *mqttPrefix)
}

func runServe(ctx context.Context) error {
	if *listen == "" {
		return errors.New("listen address is required")
	}
	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	pub, err := newPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	hub := source.NewHub()
	defer hub.Close()

	// Mock analyses work without a source, so a bad source only disables
	// real ones.
	factory, err := sourceFactory(specFromFlags(), cfg)
	if err != nil {
		log.Printf("real analyses disabled: %v", err)
	}

	srv := api.NewServer(database, api.Options{
		RecordingsDir: *recordingsDir,
		Sources:       factory,
		Config:        cfg,
		Hub:           hub,
		Publisher:     pub,
	})
	mux := srv.ServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if *live && factory != nil {
		src, err := factory()
		if err != nil {
			return err
		}
		source.AttachAdminRoutes(mux, src)
		wg.Add(1)
		go func() {
			defer wg.Done()
			streamLive(ctx, src, cfg, hub, pub)
			log.Print("live routine terminated")
		}()
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.Handler(mux),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}

// streamLive keeps src connected and streams its angles to hub until ctx is
// done, reconnecting whenever Stream reports the link lost.
func streamLive(ctx context.Context, src source.Source, cfg *config.Config, hub *source.Hub, pub session.Publisher) {
	defer src.Close()
	clock := timeutil.RealClock{}
	for ctx.Err() == nil {
		if err := src.Connect(ctx); err != nil {
			log.Printf("live: connect %s: %v", src, err)
			if timeutil.Sleep(ctx, clock, reconnectDelay) != nil {
				return
			}
			continue
		}
		runner := &session.Runner{Source: src, Clock: clock, Config: cfg, Hub: hub, Publisher: pub}
		n, err := runner.Stream(ctx)
		log.Printf("live: streamed %d samples from %s: %v", n, src, err)
		if timeutil.Sleep(ctx, clock, reconnectDelay) != nil {
			return
		}
	}
}
