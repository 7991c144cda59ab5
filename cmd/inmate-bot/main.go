package main

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"stockade/internal/config"
	"stockade/internal/logging"
	"stockade/internal/world"
	"stockade/internal/ws"
)

const stepInterval = time.Second

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	userID := cfg.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	hello, _ := json.Marshal(ws.HelloMessage{Type: "hello", UserID: userID, Name: cfg.UserName})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		log.Fatal().Err(err).Msg("send hello failed")
	}
	log.Info().Str("user_id", userID).Str("url", cfg.WSURL).Msg("connected")

	positions := make(chan world.Coordinate, 8)
	go readLoop(conn, positions, stop)

	var pos world.Coordinate
	ticker := time.NewTicker(stepInterval)
	defer ticker.Stop()
	for step := 0; cfg.Steps == 0 || step < cfg.Steps; {
		select {
		case <-ctx.Done():
			return
		case p := <-positions:
			pos = p
		case <-ticker.C:
			if pos.World == "" {
				continue
			}
			step++
			move, _ := json.Marshal(wander(pos))
			if err := conn.WriteMessage(websocket.TextMessage, move); err != nil {
				log.Error().Err(err).Msg("send move failed")
				return
			}
		}
	}
}

// wander picks a random step of up to 8 blocks on each horizontal axis.
func wander(from world.Coordinate) ws.MoveMessage {
	return ws.MoveMessage{
		Type:  "move",
		World: from.World,
		X:     from.X + float64(rand.IntN(17)-8),
		Y:     from.Y,
		Z:     from.Z + float64(rand.IntN(17)-8),
	}
}

func readLoop(conn *websocket.Conn, positions chan<- world.Coordinate, stop func()) {
	defer stop()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}
		switch base.Type {
		case "welcome":
			var msg ws.Welcome
			if json.Unmarshal(data, &msg) == nil {
				positions <- msg.Position
			}
		case "position":
			var msg ws.PositionUpdate
			if json.Unmarshal(data, &msg) == nil {
				log.Info().Stringer("at", msg.Position).Msg("teleported")
				positions <- msg.Position
			}
		case "move_result":
			var msg ws.MoveResult
			if json.Unmarshal(data, &msg) == nil {
				if !msg.Ok {
					log.Warn().Stringer("at", msg.Position).Msg("move denied")
				}
				positions <- msg.Position
			}
		case "notice":
			var msg ws.Notice
			if json.Unmarshal(data, &msg) == nil {
				log.Info().Str("message", msg.Message).Msg("notice")
			}
		case "error":
			var msg ws.ErrorMessage
			if json.Unmarshal(data, &msg) == nil {
				log.Warn().Str("code", msg.Error).Msg("server error")
			}
		}
	}
}
