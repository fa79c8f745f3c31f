// Package main - vitals-watch
// Remote view of a vitals server: prints cell updates as they arrive and,
// with -clients > 1, doubles as a fan-out load generator for the hub.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/vitals/internal/network"
)

// Config for the watcher
type Config struct {
	ServerURL       string
	NumClients      int
	RefreshInterval time.Duration
	Duration        time.Duration
	Quiet           bool
	ResultsFile     string
}

// Stats tracks what the watchers saw
type Stats struct {
	Snapshots    int64
	CellUpdates  int64
	StaleDropped int64
	Errors       int64
	maxTick      atomic.Int64
	mu           sync.Mutex
	lastByCell   map[string]int
	refreshDelay []time.Duration
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 1, "Number of concurrent views")
	refresh := flag.Duration("refresh", 0, "Request a full snapshot at this interval (0 disables)")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	quiet := flag.Bool("quiet", false, "Do not print individual updates")
	results := flag.String("results", "", "Write a JSON summary to this file")
	flag.Parse()

	config := Config{
		ServerURL:       *serverURL,
		NumClients:      *numClients,
		RefreshInterval: *refresh,
		Duration:        *duration,
		Quiet:           *quiet,
		ResultsFile:     *results,
	}
	if config.NumClients < 1 {
		config.NumClients = 1
	}

	fmt.Println("=========================================")
	fmt.Println("VITALS WATCH")
	fmt.Println("=========================================")
	fmt.Printf("Server:  %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Println("=========================================")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if config.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, config.Duration)
		defer cancelTimeout()
	}

	stats := runWatchers(ctx, config)
	printResults(stats, config)
}

func runWatchers(ctx context.Context, config Config) *Stats {
	stats := &Stats{lastByCell: make(map[string]int)}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			// Only the first view prints, the rest just count.
			runClient(ctx, clientID, config, stats, clientID == 0 && !config.Quiet)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats, verbose bool) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	var refreshSent atomic.Int64
	var snapshotSeq int64
	if config.RefreshInterval > 0 {
		go requestSnapshots(ctx, conn, config.RefreshInterval, &refreshSent, stats)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Client %d: read failed: %v", clientID, err)
				atomic.AddInt64(&stats.Errors, 1)
			}
			return
		}

		var msg network.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			atomic.AddInt64(&stats.Errors, 1)
			continue
		}
		stats.observeTick(msg.Tick)

		switch msg.Type {
		case network.MsgTypeSnapshot:
			atomic.AddInt64(&stats.Snapshots, 1)
			snapshotSeq = msg.Seq
			if sent := refreshSent.Swap(0); sent > 0 {
				stats.recordRefresh(time.Since(time.Unix(0, sent)))
			}
			if verbose && msg.Snapshot != nil {
				s := msg.Snapshot
				fmt.Printf("[tick %d] snapshot  HP %d/%d  MP %d/%d  SP %d/%d  LV %d  XP %d/%d\n",
					msg.Tick, s.Health.Current, s.Health.Max, s.Mana.Current, s.Mana.Max,
					s.Stamina.Current, s.Stamina.Max, s.Level, s.Experience, s.MaxExperience)
			}
		case network.MsgTypeCell:
			// Queued before the last snapshot was taken.
			if msg.Stale(snapshotSeq) {
				atomic.AddInt64(&stats.StaleDropped, 1)
				continue
			}
			atomic.AddInt64(&stats.CellUpdates, 1)
			stats.recordCell(msg.Cell, msg.Value)
			if verbose {
				fmt.Printf("[tick %d] %-24s %d\n", msg.Tick, msg.Cell, msg.Value)
			}
		}
	}
}

func requestSnapshots(ctx context.Context, conn *websocket.Conn, every time.Duration, sent *atomic.Int64, stats *Stats) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent.Store(time.Now().UnixNano())
			if err := conn.WriteJSON(network.ViewRequest{Type: network.MsgTypeSnapshot}); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
		}
	}
}

func (s *Stats) observeTick(tick int64) {
	for {
		cur := s.maxTick.Load()
		if tick <= cur || s.maxTick.CompareAndSwap(cur, tick) {
			return
		}
	}
}

func (s *Stats) recordCell(cell string, value int) {
	s.mu.Lock()
	s.lastByCell[cell] = value
	s.mu.Unlock()
}

func (s *Stats) recordRefresh(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = append(s.refreshDelay, d)
	s.mu.Unlock()
}

func printResults(stats *Stats, config Config) {
	snaps := atomic.LoadInt64(&stats.Snapshots)
	cells := atomic.LoadInt64(&stats.CellUpdates)
	errs := atomic.LoadInt64(&stats.Errors)
	stale := atomic.LoadInt64(&stats.StaleDropped)

	fmt.Println("\n=========================================")
	fmt.Println("WATCH SUMMARY")
	fmt.Println("=========================================")
	fmt.Printf("Snapshots:    %d\n", snaps)
	fmt.Printf("Cell updates: %d\n", cells)
	fmt.Printf("Stale drops:  %d\n", stale)
	fmt.Printf("Errors:       %d\n", errs)
	fmt.Printf("Last tick:    %d\n", stats.maxTick.Load())

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if len(stats.refreshDelay) > 0 {
		var total, worst time.Duration
		for _, d := range stats.refreshDelay {
			total += d
			if d > worst {
				worst = d
			}
		}
		fmt.Printf("\nSnapshot refresh:\n")
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.refreshDelay)))
		fmt.Printf("  Max: %v\n", worst)
	}

	if config.ResultsFile == "" {
		return
	}
	results := map[string]interface{}{
		"snapshots":    snaps,
		"cell_updates": cells,
		"stale_drops":  stale,
		"errors":       errs,
		"last_tick":    stats.maxTick.Load(),
		"last_values":  stats.lastByCell,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"refresh":  config.RefreshInterval.String(),
			"duration": config.Duration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsFile, jsonData, 0644); err != nil {
		log.Printf("Failed to write results: %v", err)
		return
	}
	fmt.Println("\nResults saved to " + config.ResultsFile)
}
