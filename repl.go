package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/mrdg/adsr/audio"
)

func repl(ctx context.Context, s *session) error {
	var names []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		names = append(names, readline.PcItem(cmd.name, readline.PcItemDynamic(func(string) []string {
			return s.deviceNames()
		})))
	}
	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(home, ".adsr_history"),
		AutoComplete:    readline.NewPrefixCompleter(names...),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err == io.EOF || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if result, err := s.eval(ctx, line); err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}

// runScript evaluates every non-empty line of file that doesn't start with
// '#'. It stops at the first error.
func runScript(ctx context.Context, s *session, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result, err := s.eval(ctx, line)
		if err != nil {
			if errors.Is(err, audio.ErrNotRunning) {
				log.Warn().Str("file", file).Int("line", lineNum).Msg("gate ignored, nothing is processing audio")
				continue
			}
			return fmt.Errorf("%s:%d: %w", file, lineNum, err)
		}
		if result != "" {
			log.Info().Str("file", file).Int("line", lineNum).Msg(result)
		}
	}
	return scanner.Err()
}
