// Command hotseat plays quantum battleships for two players sharing one terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/config"
	"github.com/pefman/quantum-battleships/internal/game"
	"github.com/pefman/quantum-battleships/internal/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hotseat:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.HotSeat
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}
	// The terminal belongs to the game; logs only go to LOG_FILE.
	cfg.Log.NoConsole = true
	log := logs.Init("hotseat", cfg.Log)
	defer logs.Sync()

	rules, err := config.LoadRules(cfg.RulesFile, log)
	if err != nil {
		return err
	}
	r := rules.Current()
	sampler, err := r.NewSampler()
	if err != nil {
		return err
	}
	sess, err := game.NewSession(r.Config, sampler, game.WithLogger(log))
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := play(ctx, screen, sess)
	screen.Fini()
	if errors.Is(err, errQuit) {
		logs.Info("quit before the end", zap.Int("round", sess.Round()))
		return nil
	}
	if err != nil {
		logs.Error("hot-seat game aborted", zap.Int("round", sess.Round()), zap.Error(err))
		return err
	}
	fmt.Println(out)
	return nil
}

// play runs sess to completion on screen.
func play(ctx context.Context, screen tcell.Screen, sess *game.Session) (game.Outcome, error) {
	t := newTerminal(screen, sess)
	return sess.Play(ctx, t, t)
}
