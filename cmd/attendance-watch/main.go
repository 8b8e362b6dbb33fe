// attendance-watch renders the live dashboard in a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dkeye/Attendance/internal/adapters/live"
	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
	"github.com/dkeye/Attendance/internal/view"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/api/ws", "dashboard websocket URL")
	retry := flag.Duration("retry", 5*time.Second, "delay between reconnect attempts")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		if err := watch(ctx, *url); err != nil {
			log.Error().Err(err).Str("url", *url).Msg("watch")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

func watch(ctx context.Context, url string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	var (
		snap   core.Snapshot
		status = domain.StatusDisconnected
	)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var env struct {
			Type   string            `json:"type"`
			Status domain.ConnStatus `json:"status"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("bad message")
			continue
		}
		switch env.Type {
		case live.TypeSnapshot:
			var msg live.SnapshotMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn().Err(err).Msg("bad snapshot")
				continue
			}
			snap = msg.Snapshot
		case live.TypeStatus:
			status = env.Status
		default:
			continue
		}
		fmt.Print("\033[H\033[2J")
		fmt.Println(view.Dashboard(snap, status, time.Now()))
	}
}
