// Command voice-lite is a terminal client for live voice conversations:
// microphone in, synthesized speech out, with a rolling transcript that is
// archived when the session ends.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vango-go/voice-lite/internal/dotenv"
	"github.com/vango-go/voice-lite/pkg/core"
	"github.com/vango-go/voice-lite/pkg/live"
	"github.com/vango-go/voice-lite/pkg/media"
	"github.com/vango-go/voice-lite/pkg/store"
)

const defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

func main() {
	var (
		endpoint = flag.String("url", defaultEndpoint, "live service websocket endpoint")
		model    = flag.String("model", live.DefaultModel, "live model")
		voice    = flag.String("voice", live.DefaultVoice, "prebuilt voice name")
		camera   = flag.Bool("camera", false, "stream camera frames")
		facing   = flag.String("facing", "front", "camera facing: front or back")
		dbPath   = flag.String("db", "voice-lite.db", "transcript archive path")
		envFile  = flag.String("env", ".env", "dotenv file to load")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if err := run(*endpoint, *model, *voice, *camera, *facing, *dbPath, *envFile, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "voice-lite: %v\n", err)
		os.Exit(1)
	}
}

func run(endpoint, model, voice string, camera bool, facing, dbPath, envFile string, verbose bool) error {
	if err := dotenv.Load(envFile); err != nil {
		return err
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return errors.New("set GEMINI_API_KEY (or GOOGLE_API_KEY)")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	output, err := media.NewOtoOutput()
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}

	source := media.NewMalgoSource(&media.FFmpegCamera{})
	defer source.Close()

	archive, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	closed := make(chan struct{}, 1)
	engine, err := live.NewEngine(live.Options{
		Dialer: &live.WebsocketDialer{
			Endpoint: endpoint,
			APIKey:   apiKey,
			Logger:   logger,
		},
		Source:     source,
		NewSpeaker: output.NewSpeaker,
		Logger:     logger,
		Callbacks: live.Callbacks{
			OnTranscription: func(text string, role live.Role) {
				fmt.Printf("\r[%s] %s\n", role, text)
			},
			OnError: func(err error) {
				logger.Error("session error", "err", err)
			},
			OnClose: func() {
				select {
				case closed <- struct{}{}:
				default:
				}
			},
		},
	})
	if err != nil {
		return err
	}

	cfg := live.Config{
		Model:     model,
		VoiceName: voice,
		UseCamera: camera,
		Facing:    parseFacing(facing),
	}

	ctx := context.Background()
	if err := engine.Connect(ctx, cfg); err != nil {
		if errors.Is(err, core.ErrPermissionDenied) {
			return fmt.Errorf("microphone/camera access denied: %w", err)
		}
		return err
	}
	fmt.Println("connected, talk away (commands: cam on|off, flip, mute, unmute, quit)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	commands := readCommands()

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case <-closed:
			fmt.Println("remote closed the session")
			break loop
		case cmd, ok := <-commands:
			if !ok {
				break loop
			}
			if done := handleCommand(ctx, engine, cmd, logger); done {
				break loop
			}
		}
	}

	entries := engine.Disconnect()
	if len(entries) == 0 {
		fmt.Println("no transcript to archive")
		return nil
	}
	sess, err := archive.Save(ctx, entries)
	if err != nil {
		return fmt.Errorf("archive transcript: %w", err)
	}
	fmt.Printf("archived %d utterances as %q (%s)\n", len(entries), sess.Title, sess.ID)
	return nil
}

func handleCommand(ctx context.Context, engine *live.Engine, cmd string, logger *slog.Logger) bool {
	var err error
	switch cmd {
	case "cam on":
		err = engine.SetCamera(ctx, true)
	case "cam off":
		err = engine.SetCamera(ctx, false)
	case "flip":
		err = engine.SwitchFacing(ctx)
	case "mute":
		engine.SetMicEnabled(false)
	case "unmute":
		engine.SetMicEnabled(true)
	case "quit", "exit":
		return true
	case "":
	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
	if err != nil {
		logger.Error("command failed", "cmd", cmd, "err", err)
	}
	return false
}

func readCommands() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			out <- strings.TrimSpace(strings.ToLower(scanner.Text()))
		}
	}()
	return out
}

func parseFacing(s string) media.Facing {
	if strings.EqualFold(strings.TrimSpace(s), "back") {
		return media.FacingBack
	}
	return media.FacingFront
}
