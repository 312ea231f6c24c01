package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"manacraft.ai/internal/protocol"
	"manacraft.ai/internal/sim/casting"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/ritual"
	"manacraft.ai/internal/sim/world"
)

// Engine is the part of arcana.Engine the transport drives.
type Engine interface {
	Join(actorID string) (mana.Snapshot, error)
	Leave(actorID string) error
	CastSpell(actorID, spellID string) (casting.Outcome, error)
	ExecuteRitual(actorID, ritualID string, origin mathx.Vec3i) (ritual.Outcome, error)
	Pools(actorID string) (mana.Snapshot, bool)
	Catalogs() *catalogs.Catalogs
	World() *world.World
}

// SpawnPoint is where a connecting actor is placed when it is not in the world yet.
var SpawnPoint = mathx.Vec3{X: 0.5, Y: 64, Z: 0.5}

const outQueue = 32

type Server struct {
	eng Engine
	log *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session // by actor id
}

type session struct {
	id    string
	actor string
	out   chan []byte
}

func NewServer(eng Engine, logger *log.Logger) *Server {
	return &Server{
		eng: eng,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.leave(sess)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			for _, reply := range s.handle(sess, msg) {
				select {
				case sess.out <- reply:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}
	actor := strings.TrimSpace(hello.ActorID)
	if actor == "" {
		closeWith(conn, "missing actor_id")
		return nil
	}

	sess := &session{id: uuid.NewString(), actor: actor, out: make(chan []byte, outQueue)}
	s.mu.Lock()
	if _, busy := s.sessions[actor]; busy {
		s.mu.Unlock()
		closeWith(conn, "actor already connected")
		return nil
	}
	s.sessions[actor] = sess
	s.mu.Unlock()

	w := s.eng.World()
	if _, ok := w.Entity(actor); !ok {
		w.Join(actor, SpawnPoint)
	}
	snap, err := s.eng.Join(actor)
	if err != nil {
		s.log.Printf("ws: join %s: %v", actor, err)
		s.drop(sess)
		w.Remove(actor)
		closeWith(conn, "join failed")
		return nil
	}

	cats := s.eng.Catalogs()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		ActorID:         actor,
		Pools:           poolObs(snap),
		Catalogs: protocol.CatalogDigests{
			SpellsDigest:  cats.Spells.Digest,
			SpellCount:    len(cats.Spells.ByID),
			RitualsDigest: cats.Rituals.Digest,
			RitualCount:   len(cats.Rituals.ByID),
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.leave(sess)
		return nil
	}
	s.log.Printf("ws: %s connected (session %s)", actor, sess.id)
	return sess
}

func (s *Server) leave(sess *session) {
	s.drop(sess)
	if err := s.eng.Leave(sess.actor); err != nil {
		s.log.Printf("ws: leave %s: %v", sess.actor, err)
	}
	s.eng.World().Remove(sess.actor)
}

func (s *Server) drop(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sess.actor]; ok && cur == sess {
		delete(s.sessions, sess.actor)
	}
}

// Sessions returns the number of connected actors.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// NotifyPoolChanged pushes a MANA message to the actor's session, if any.
// A full queue drops the push; the next periodic sync catches up.
func (s *Server) NotifyPoolChanged(actorID string, snap mana.Snapshot) {
	s.mu.Lock()
	sess, ok := s.sessions[actorID]
	s.mu.Unlock()
	if !ok {
		return
	}
	b, err := json.Marshal(manaMsg("", actorID, snap))
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

func (s *Server) handle(sess *session, msg []byte) [][]byte {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return reply(badRequest("", "malformed message"))
	}
	if base.ProtocolVersion != protocol.Version {
		return reply(badRequest("", "bad protocol_version"))
	}
	switch base.Type {
	case protocol.TypeCast:
		var m protocol.CastMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.SpellID == "" {
			return reply(badRequest(m.ReqID, "CAST needs spell_id"))
		}
		out, err := s.eng.CastSpell(sess.actor, m.SpellID)
		res := result(m.ReqID, err)
		res.CastID = out.CastID
		res.Kind = string(out.Kind)
		res.Cost = out.Cost
		return s.withEvents(sess, m.ReqID, res)

	case protocol.TypeRitual:
		var m protocol.RitualMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.RitualID == "" {
			return reply(badRequest(m.ReqID, "RITUAL needs ritual_id"))
		}
		origin := mathx.Vec3i{X: m.Origin[0], Y: m.Origin[1], Z: m.Origin[2]}
		out, err := s.eng.ExecuteRitual(sess.actor, m.RitualID, origin)
		res := result(m.ReqID, err)
		res.CastID = out.TxID
		if out.TxID != "" {
			res.Kind = string(ritual.Kind)
			res.Cost = out.Cost
		}
		return s.withEvents(sess, m.ReqID, res)

	case protocol.TypePools:
		var m protocol.PoolsMsg
		_ = json.Unmarshal(msg, &m)
		snap, ok := s.eng.Pools(sess.actor)
		if !ok {
			return reply(badRequest(m.ReqID, "no ledger for actor"))
		}
		return reply(manaMsg(m.ReqID, sess.actor, snap))

	default:
		return reply(badRequest("", "unknown message type "+base.Type))
	}
}

func (s *Server) withEvents(sess *session, reqID string, res protocol.ResultMsg) [][]byte {
	out := reply(res)
	if lines := s.eng.World().DrainMessages(sess.actor); len(lines) > 0 {
		out = append(out, reply(protocol.EventsMsg{
			Type:            protocol.TypeEvents,
			ProtocolVersion: protocol.Version,
			ReqID:           reqID,
			Lines:           lines,
		})...)
	}
	return out
}

func result(reqID string, err error) protocol.ResultMsg {
	m := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Accepted:        err == nil,
	}
	if err != nil {
		m.Code = failure.Code(err)
		m.Message = err.Error()
	}
	return m
}

func badRequest(reqID, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
	}
}

func manaMsg(reqID, actorID string, snap mana.Snapshot) protocol.ManaMsg {
	return protocol.ManaMsg{
		Type:            protocol.TypeMana,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		ActorID:         actorID,
		Pools:           poolObs(snap),
	}
}

func poolObs(snap mana.Snapshot) []protocol.PoolObs {
	out := make([]protocol.PoolObs, 0, len(snap.Pools))
	for _, k := range mana.Kinds {
		if st, ok := snap.Pools[k]; ok {
			out = append(out, protocol.PoolObs{Kind: string(k), Current: st.Current, Max: st.Max})
		}
	}
	return out
}

func reply(v any) [][]byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return [][]byte{b}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
