package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"manacraft.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		actor    = flag.String("actor", "bot", "actor id")
		spells   = flag.String("spells", "mam:fireball,mam:mana_shield", "comma-separated spell ids to cycle through")
		every    = flag.Duration("every", 2*time.Second, "cast interval")
		ritualID = flag.String("ritual", "", "ritual to attempt once per minute (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ActorID:         *actor,
		ActorName:       *actor,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	ids := splitIDs(*spells)
	go readLoop(conn, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	castTick := time.NewTicker(*every)
	defer castTick.Stop()
	ritualTick := time.NewTicker(time.Minute)
	defer ritualTick.Stop()

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var seq int
	for {
		select {
		case <-stop:
			return
		case <-castTick.C:
			if len(ids) == 0 {
				continue
			}
			seq++
			msg := protocol.CastMsg{
				Type:            protocol.TypeCast,
				ProtocolVersion: protocol.Version,
				ReqID:           fmt.Sprintf("C_%d", seq),
				SpellID:         ids[r.Intn(len(ids))],
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Printf("send CAST: %v", err)
				return
			}
		case <-ritualTick.C:
			if *ritualID == "" {
				continue
			}
			seq++
			msg := protocol.RitualMsg{
				Type:            protocol.TypeRitual,
				ProtocolVersion: protocol.Version,
				ReqID:           fmt.Sprintf("R_%d", seq),
				RitualID:        *ritualID,
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Printf("send RITUAL: %v", err)
				return
			}
		}
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("connection closed: %v", err)
			os.Exit(0)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if json.Unmarshal(msg, &w) == nil {
				logger.Printf("WELCOME actor=%s session=%s spells=%d rituals=%d", w.ActorID, w.SessionID, w.Catalogs.SpellCount, w.Catalogs.RitualCount)
			}
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if json.Unmarshal(msg, &res) != nil {
				continue
			}
			if res.Accepted {
				logger.Printf("%s ok: %s cost=%.1f %s", res.ReqID, res.CastID, res.Cost, res.Kind)
			} else {
				logger.Printf("%s refused: %s %s", res.ReqID, res.Code, res.Message)
			}
		case protocol.TypeMana:
			var m protocol.ManaMsg
			if json.Unmarshal(msg, &m) == nil {
				logger.Printf("mana %s", formatPools(m.Pools))
			}
		case protocol.TypeEvents:
			var ev protocol.EventsMsg
			if json.Unmarshal(msg, &ev) == nil {
				for _, line := range ev.Lines {
					logger.Printf("> %s", line)
				}
			}
		}
	}
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func formatPools(pools []protocol.PoolObs) string {
	parts := make([]string, 0, len(pools))
	for _, p := range pools {
		parts = append(parts, fmt.Sprintf("%s=%.1f/%.0f", p.Kind, p.Current, p.Max))
	}
	return strings.Join(parts, " ")
}
