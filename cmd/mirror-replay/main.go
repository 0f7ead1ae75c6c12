// mirror-replay: streams a JSONL recording of landmark frames into a
// running mirrormind server and prints how the smoothed state evolved.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"

	"github.com/teslashibe/go-mirrormind/internal/config"
	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
	"github.com/teslashibe/go-mirrormind/pkg/replay"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "mirror-replay:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	cfg := config.Replay{
		Version: conf.Version{
			Build: version,
			Desc:  "Replay recorded landmark frames into MirrorMind",
		},
	}
	if err := config.Parse(&cfg); err != nil {
		return err
	}
	log.Init(cfg.Log.Level)

	frames, err := replay.LoadFrames(cfg.Frames)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := replay.New(replay.Config{
		URL:        cfg.URL,
		DetectorID: cfg.DetectorID,
		Interval:   cfg.Interval,
		Drain:      cfg.Drain,
	}, log.Component("replay"))

	last := affect.State(-1)
	client.OnResult = func(r protocol.ResultData) {
		if r.Result.State == last {
			return
		}
		last = r.Result.State
		fmt.Printf("frame %5d  %-5s  %s\n", r.FrameID, r.Result.State, r.Result.StateReason)
	}

	rep, err := client.Run(ctx, frames)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println()
	fmt.Printf("sent %d frames, %d results, %d errors in %s\n",
		rep.Sent, len(rep.Results), len(rep.Errors), rep.Elapsed.Round(time.Millisecond))

	counts := rep.StateCounts()
	for _, st := range []affect.State{affect.StateClear, affect.StateMixed, affect.StateLow} {
		fmt.Printf("  %-5s %d\n", st, counts[st])
	}

	if final, ok := rep.Final(); ok {
		fmt.Printf("final: %s (%s)\n", final.TopEmotion().Name, final.State)
		for _, e := range final.Expressions {
			fmt.Printf("  %-16s %3.0f  %s\n", e.Name, e.Strength, e.Evidence)
		}
	}
	return nil
}
