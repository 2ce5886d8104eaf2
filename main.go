package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/config"
)

type runCmd struct {
	Driver string `arg:"--driver" help:"portaudio or sim, overrides the session file"`
	Listen string `arg:"--listen" help:"address for the websocket monitor, overrides the session file"`
	Script string `arg:"--script" help:"file with commands to run before the prompt"`
}

type bounceCmd struct {
	Out    string        `arg:"positional,required" help:"WAV file to write"`
	Hold   time.Duration `arg:"--hold" default:"1s" help:"how long the gate of every voice is held"`
	Length time.Duration `arg:"--length" default:"3s" help:"length of the rendered file"`
	Script string        `arg:"--script" help:"file with commands to run before rendering"`
}

type args struct {
	Config   string     `arg:"-c,--config" default:"adsr.yaml" help:"session file"`
	LogLevel string     `arg:"--log-level" help:"debug, info, warn or error, overrides the session file"`
	Verbose  bool       `arg:"-v,--verbose" help:"same as --log-level debug"`
	Run      *runCmd    `arg:"subcommand:run" help:"play voices from an interactive prompt (default)"`
	Bounce   *bounceCmd `arg:"subcommand:bounce" help:"render every voice to a WAV file"`
}

func (args) Description() string {
	return "adsr plays synthesizer voices shaped by attack-decay-sustain-release envelopes\n"
}

func main() {
	var a args
	arg.MustParse(&a)
	if a.Run == nil && a.Bounce == nil {
		a.Run = &runCmd{}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := loadConfig(a.Config)
	if err != nil {
		log.Fatal().Err(err).Str("path", a.Config).Msg("config load failed")
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	setLogLevel(cfg.LogLevel, a.Verbose)

	switch {
	case a.Run != nil:
		err = run(cfg, a.Config, a.Run)
	case a.Bounce != nil:
		err = bounce(cfg, a.Config, a.Bounce)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}

// loadConfig falls back to the default session when path doesn't exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("no session file, using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

func setLogLevel(level string, verbose bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func run(cfg *config.Config, configPath string, cmd *runCmd) error {
	if cmd.Driver != "" {
		cfg.Driver = cmd.Driver
	}
	if cmd.Listen != "" {
		cfg.Listen = cmd.Listen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := newSession(cfg, configPath)
	if err != nil {
		return err
	}

	driver, err := audio.NewDriver(cfg.Driver, s.sink, cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("driver init failed; falling back to sim")
		driver = audio.NewSimDriver(s.sink, cfg.SampleRate, cfg.BufferSize)
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.hub.Run(ctx)
	if cfg.Listen != "" {
		srv := &http.Server{
			Addr:         cfg.Listen,
			Handler:      s.hub.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Listen).Msg("monitor listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
		defer srv.Close()
	}

	if err := driver.Start(); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}
	log.Info().Str("driver", cfg.Driver).Float64("sample_rate", cfg.SampleRate).
		Int("buffer_size", cfg.BufferSize).Int("voices", len(s.voices)).Msg("audio started")

	if cmd.Script != "" {
		if err := runScript(ctx, s, cmd.Script); err != nil {
			return err
		}
	}
	return repl(ctx, s)
}

// bounce renders offline: nothing is driving the voices in real time, so
// gates are queued as notes before rendering.
func bounce(cfg *config.Config, configPath string, cmd *bounceCmd) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s, err := newSession(cfg, configPath)
	if err != nil {
		return err
	}
	if cmd.Script != "" {
		if err := runScript(context.Background(), s, cmd.Script); err != nil {
			return err
		}
	}
	hold := int(cmd.Hold.Seconds() * cfg.SampleRate)
	if hold <= 0 {
		hold = 1
	}
	for _, v := range s.voices {
		v.PlayNote(0, 0, hold)
	}

	f, err := os.Create(cmd.Out)
	if err != nil {
		return err
	}
	if err := audio.Bounce(f, s.sink, int(cfg.SampleRate), cfg.BufferSize, cmd.Length); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("file", cmd.Out).Dur("length", cmd.Length).Int("voices", len(s.voices)).Msg("bounced")
	return nil
}
