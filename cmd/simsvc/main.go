package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"autobattler/internal/combat"
	"autobattler/internal/config"
	"autobattler/internal/server"
	"autobattler/internal/util"
)

func main() {
	var cfgPath, out, serve, level string
	var seed int64
	var n, workers int
	flag.StringVar(&cfgPath, "config", "assets/arena.yaml", "arena file")
	flag.StringVar(&out, "out", "out.json", "replay file (single) or summary file (batch)")
	flag.Int64Var(&seed, "seed", 12345, "seed for batch placements")
	flag.IntVar(&n, "n", 1, "number of matches; above 1 placements are randomised")
	flag.IntVar(&workers, "workers", 8, "batch workers")
	flag.StringVar(&serve, "serve", "", "listen address; runs the HTTP API instead of simulating")
	flag.StringVar(&level, "log", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)

	if serve != "" {
		srv := server.New(log)
		defer srv.Close()
		log.Info("listening", "addr", serve)
		if err := http.ListenAndServe(serve, srv.Router()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	arena, err := config.Load(cfgPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	if n <= 1 {
		m, err := combat.NewMatchFromConfig(arena, nil, combat.BattleOptions{Logger: log})
		if err != nil {
			log.Error("build match", "err", err)
			os.Exit(1)
		}
		sum, err := m.Play()
		if err != nil {
			log.Error("play", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(out, combat.MarshalPretty(m.Replay()), 0644); err != nil {
			log.Error("write replay", "err", err)
			os.Exit(1)
		}
		fmt.Printf("Single match finished. Winner=%s, A=%d B=%d draws=%d -> %s\n", sum.Winner, sum.Wins[combat.TeamA], sum.Wins[combat.TeamB], sum.Draws, out)
		return
	}

	st := runBatch(arena, n, workers, seed, log)
	summary := map[string]any{
		"runs":       n,
		"failed":     st.Failed,
		"win_rate_a": float64(st.Wins[combat.TeamA]) / float64(n),
		"win_rate_b": float64(st.Wins[combat.TeamB]) / float64(n),
		"draw_rate":  float64(st.Draws) / float64(n),
		"avg_ticks":  float64(st.SumTicks) / float64(max(st.Rounds, 1)),
		"rounds":     st.Rounds,
	}
	if err := os.WriteFile(out, combat.MarshalPretty(summary), 0644); err != nil {
		log.Error("write summary", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Batch %d done -> %s\n", n, filepath.Base(out))
}

type stat struct {
	Wins     [2]int
	Draws    int
	Failed   int
	Rounds   int
	SumTicks int
}

// runBatch plays n matches with randomised placements across a worker pool.
// Matches share nothing but the arena, which is only read.
func runBatch(arena *config.Arena, n, workers int, seed int64, log *slog.Logger) stat {
	var st stat
	var mu sync.Mutex
	wg := sync.WaitGroup{}
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int, n)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				rng := util.New(seed + int64(workerID)*7919 + int64(i))
				m, err := randomMatch(arena, rng)
				var sum combat.Summary
				if err == nil {
					sum, err = m.Play()
				}

				mu.Lock()
				if err != nil {
					st.Failed++
					log.Warn("match failed", "run", i, "err", err)
					mu.Unlock()
					continue
				}
				switch sum.Winner {
				case "A":
					st.Wins[combat.TeamA]++
				case "B":
					st.Wins[combat.TeamB]++
				default:
					st.Draws++
				}
				for _, r := range m.Replay().Rounds {
					st.Rounds++
					st.SumTicks += len(r.History)
				}
				mu.Unlock()
			}
		}(w)
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return st
}

func randomMatch(arena *config.Arena, rng *rand.Rand) (*combat.Match, error) {
	m, err := combat.NewMatchFromConfig(arena, nil, combat.BattleOptions{})
	if err != nil {
		return nil, err
	}
	for _, t := range []combat.Team{combat.TeamA, combat.TeamB} {
		m.ClearPlacements(t)
		cells := util.Pick(rng, m.Grid().ZoneCells(t), m.Slots(t))
		for slot, p := range cells {
			if !m.Place(t, slot, p) {
				return nil, fmt.Errorf("team %s: place slot %d at %s", t, slot, p)
			}
		}
	}
	return m, nil
}
