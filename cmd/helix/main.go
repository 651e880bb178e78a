package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/helix/buffer"
	"github.com/zsiec/helix/es"
	"github.com/zsiec/helix/h264"
	"github.com/zsiec/helix/hls"
	"github.com/zsiec/helix/inputio"
	"github.com/zsiec/helix/metrics"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	config, err := Parse(envOr("HELIX_CONFIG", "helix.toml"), "/etc/helix.toml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		config.Ingest.URL = os.Args[1]
	}
	if config.Ingest.URL == "" {
		fmt.Fprintf(os.Stderr, "usage: %s <playlist url or path>\n", os.Args[0])
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	var input hls.Input
	if strings.HasPrefix(config.Ingest.URL, "http://") || strings.HasPrefix(config.Ingest.URL, "https://") {
		input = inputio.NewHTTPSource(nil, nil)
	} else {
		input = inputio.NewFileSource(nil)
	}

	videoBuf := buffer.New(config.Ingest.VideoBufferSize, buffer.Memory{})
	audioBuf := buffer.New(config.Ingest.AudioBufferSize, buffer.Memory{})
	stream := hls.NewStream(input, videoBuf, audioBuf, config.Ingest.URL, buffer.Memory{}, nil)

	slog.Info("helix starting",
		"version", version,
		"url", config.Ingest.URL,
		"output", config.Output.Dir,
	)

	g, ctx := errgroup.WithContext(ctx)

	var snapMu sync.Mutex
	snap := metrics.PipelineSnapshot{State: stream.State().String()}

	if config.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		stream.Demuxer().SetStats(metrics.NewDemuxStats(reg))
		reg.MustRegister(metrics.NewPipelineExporter(func() metrics.PipelineSnapshot {
			snapMu.Lock()
			defer snapMu.Unlock()
			return snap
		}))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: config.Metrics.Address, Handler: mux}

		g.Go(func() error {
			slog.Info("metrics server listening", "addr", config.Metrics.Address)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return runPipeline(ctx, stream, config.Output.Dir, func(s metrics.PipelineSnapshot) {
			snapMu.Lock()
			snap = s
			snapMu.Unlock()
		})
	})

	if err := g.Wait(); err != nil {
		slog.Error("ingest error", "error", err)
		os.Exit(1)
	}
}

// runPipeline pumps the state machine until the presentation finishes,
// writing framed access units to raw video.h264 and audio.aac files.
func runPipeline(ctx context.Context, stream *hls.Stream, outDir string, publish func(metrics.PipelineSnapshot)) error {
	defer stream.Close()

	videoOut, err := os.Create(filepath.Join(outDir, "video.h264"))
	if err != nil {
		return err
	}
	defer videoOut.Close()
	audioOut, err := os.Create(filepath.Join(outDir, "audio.aac"))
	if err != nil {
		return err
	}
	defer audioOut.Close()

	var vau, aau es.AccessUnit
	videoReported := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stream.Update()
		for {
			pulled := stream.PullAccessUnits(&vau, &aau)
			if pulled == 0 {
				break
			}
			if pulled&hls.PulledVideo != 0 {
				if !videoReported {
					videoReported = reportVideoStream(vau.Data)
				}
				if _, err := videoOut.Write(vau.Data); err != nil {
					return err
				}
			}
			if pulled&hls.PulledAudio != 0 {
				if _, err := audioOut.Write(aau.Data); err != nil {
					return err
				}
			}
		}

		publish(metrics.PipelineSnapshot{
			State:        stream.State().String(),
			SegmentIndex: stream.SegmentIndex(),
			PacketCount:  stream.Demuxer().PacketCount(),
			SkipCount:    stream.Demuxer().SkipCount(),
		})

		if stream.Finished() {
			slog.Info("presentation complete", "segments", stream.SegmentIndex())
			return nil
		}
		if state := stream.State(); state.Failed() {
			return fmt.Errorf("pipeline failed in state %q (demux: %v)", state, stream.DemuxResult())
		}

		time.Sleep(time.Millisecond)
	}
}

// reportVideoStream logs resolution and codec string from the first
// access unit that carries an SPS. Returns false until one is seen.
func reportVideoStream(au []byte) bool {
	info, err := h264.SPSFromAccessUnit(au)
	if err != nil {
		return false
	}
	slog.Info("video stream",
		"codec", info.CodecString(),
		"width", info.Width,
		"height", info.Height,
		"keyframe", h264.ContainsKeyframe(au),
	)
	return true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
