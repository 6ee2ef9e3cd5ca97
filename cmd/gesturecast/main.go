package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/satindergrewal/gesturecast/internal/audio"
	"github.com/satindergrewal/gesturecast/internal/config"
	"github.com/satindergrewal/gesturecast/internal/landmark"
	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/media"
	"github.com/satindergrewal/gesturecast/internal/metrics"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
	"github.com/satindergrewal/gesturecast/internal/stream"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("gesturecast stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	runID := uuid.NewString()
	pcfg, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	log.Info("gesturecast starting up", "run_id", runID, "profile", pcfg.Name)

	// Media: both load in the background; the start gate waits for them.
	video := media.NewVideo(cfg.CanvasWidth, cfg.CanvasHeight)
	player := audio.NewPlayer(cfg.FadeIn)
	go func() {
		if err := player.Load(ctx, cfg.SoundPath); err != nil {
			log.Error("sound load failed", "path", cfg.SoundPath, "error", err)
		}
	}()
	go func() {
		if err := video.Load(ctx, cfg.VideoPath); err != nil {
			log.Error("video load failed", "path", cfg.VideoPath, "error", err)
		}
	}()

	p, err := pipeline.New(pcfg, &media.Library{Video: video, Sound: player})
	if err != nil {
		return err
	}

	// Broadcasters: PCM frames to the audio streams, outputs to the browser feeds
	frames := stream.NewBroadcaster[[]int16](stream.FrameBuffer)
	controls := stream.NewBroadcaster[pipeline.Output](stream.ControlsBuffer)
	go player.Run(ctx)
	go frames.Run(ctx, player.Frames())

	viz := metrics.NewViz()
	viz.Publish("gesturecast")

	engine := pipeline.NewEngine(p, cfg.StaleAfter,
		player,
		video,
		viz,
		pipeline.SinkFunc(controls.Publish),
	)

	listener, err := landmark.Listen(cfg.LandmarkAddr, cfg.ReadBuffer)
	if err != nil {
		return err
	}
	listener.OnFrame = func(f landmark.Frame) {
		engine.Submit(frameSample(f, video))
	}
	listener.OnCommand = func(c landmark.Command) {
		if c != landmark.CommandStart {
			return
		}
		go func() {
			ok, err := engine.RequestStart(ctx)
			if err == nil && !ok {
				log.Warn("start requested while media still loading")
			}
		}()
	}
	viz.AddCounters(func() map[string]uint64 {
		st := listener.Stats()
		return map[string]uint64{
			"packets":      st.Packets,
			"frames":       st.Frames,
			"commands":     st.Commands,
			"parse_errors": st.ParseErrors,
			"dropped":      engine.Dropped(),
		}
	})

	go engine.Run(ctx)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error("landmark listener", "error", err)
		}
	}()

	srv := &server{
		runID:    runID,
		engine:   engine,
		video:    video,
		player:   player,
		frames:   frames,
		controls: controls,
		webrtc:   stream.NewWebRTCHandler(frames, controls),
		stats:    listener.Stats,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: srv.routes()}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		server.Close()
	}()

	log.Info("gesturecast live", "addr", addr, "landmarks", listener.Addr().String())
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
