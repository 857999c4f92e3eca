package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cardio.report/internal/api"
	"github.com/banshee-data/cardio.report/internal/config"
	"github.com/banshee-data/cardio.report/internal/ecg/ecgsim"
	"github.com/banshee-data/cardio.report/internal/ecg/pipeline"
	"github.com/banshee-data/cardio.report/internal/monitoring"
	"github.com/banshee-data/cardio.report/internal/timeutil"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Path to tuning config JSON (defaults apply when empty)")
	simBPM     = flag.Float64("sim-bpm", 72, "Simulated heart rate (device transport is external)")
	simNoise   = flag.Float64("sim-noise", 0.02, "Simulated noise amplitude")
	batchMs    = flag.Int("batch-ms", 100, "Sample batch delivery period in milliseconds")
	verbose    = flag.Bool("verbose", false, "Enable per-pass debug logging")
)

// streamSamples delivers generator batches to the pipeline at the
// configured period until the context is cancelled. One batch carries the
// samples that elapsed since the previous tick.
func streamSamples(ctx context.Context, clock timeutil.Clock, p *pipeline.Pipeline, gen *ecgsim.Generator, period time.Duration) {
	ticks, stop := clock.Tick(period)
	defer stop()

	batchSize := int(p.SampleRate() * period.Seconds())
	if batchSize < 1 {
		batchSize = 1
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			p.Ingest(gen.Batch(batchSize))
			monitoring.Debugf("session %s: ingested %d samples", p.SessionID(), batchSize)
		}
	}
}

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	p, err := pipeline.New(pipeline.FromTuning(tuning))
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	log.Printf("pipeline session %s at %.0f Hz", p.SessionID(), p.SampleRate())

	gen := ecgsim.New(ecgsim.Config{
		SampleRate: p.SampleRate(),
		HeartRate:  *simBPM,
		Noise:      *simNoise,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		streamSamples(ctx, timeutil.RealClock{}, p, gen, time.Duration(*batchMs)*time.Millisecond)
	}()

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.NewServer(p, tuning).ServeMux()),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	wg.Wait()
}
