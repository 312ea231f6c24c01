// Package admin serves the operator HTTP endpoints: pools, cooldowns, the
// cast history, the definition catalogs and world setup.
package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"manacraft.ai/internal/protocol"
	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/world"
)

type Engine interface {
	CurrentTick() uint64
	Actors() []string
	Pools(actorID string) (mana.Snapshot, bool)
	RestoreAll(actorID string) bool
	SetPool(actorID string, kind mana.Kind, amount float64) (mana.PoolState, error)
	AddPool(actorID string, kind mana.Kind, amount float64) (mana.PoolState, error)
	RitualCooldown(actorID, ritualID string) (time.Duration, bool)
	ResetCooldown(actorID, ritualID string) bool

	Catalogs() *catalogs.Catalogs
	ReloadCatalogs() (*catalogs.Catalogs, error)
	BuildRitual(ritualID string, origin mathx.Vec3i) (int, error)
	World() *world.World
}

// History is the cast index, newest first.
type History interface {
	Casts(actorID string, limit int) ([]arcana.CastEntry, error)
}

type Config struct {
	Engine  Engine
	History History // optional
	Logger  *log.Logger

	// AllowRemote serves non-loopback callers too.
	AllowRemote bool
}

type Handler struct {
	eng         Engine
	history     History
	log         *log.Logger
	allowRemote bool
}

func New(cfg Config) *Handler {
	h := &Handler{eng: cfg.Engine, history: cfg.History, log: cfg.Logger, allowRemote: cfg.AllowRemote}
	if h.log == nil {
		h.log = log.New(io.Discard, "", 0)
	}
	return h
}

// Register mounts every route under /admin/.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/state", h.guard(http.MethodGet, h.state))
	mux.HandleFunc("/admin/pools", h.guard(http.MethodGet, h.pools))
	mux.HandleFunc("/admin/restore", h.guard(http.MethodPost, h.restore))
	mux.HandleFunc("/admin/pools/set", h.guard(http.MethodPost, h.editPool(h.eng.SetPool)))
	mux.HandleFunc("/admin/pools/add", h.guard(http.MethodPost, h.editPool(h.eng.AddPool)))
	mux.HandleFunc("/admin/cooldown", h.guard(http.MethodGet, h.cooldown))
	mux.HandleFunc("/admin/cooldown/reset", h.guard(http.MethodPost, h.resetCooldown))
	mux.HandleFunc("/admin/casts", h.guard(http.MethodGet, h.casts))

	mux.HandleFunc("/admin/spells", h.guard(http.MethodGet, h.spells))
	mux.HandleFunc("/admin/spells/info", h.guard(http.MethodGet, h.spellInfo))
	mux.HandleFunc("/admin/rituals", h.guard(http.MethodGet, h.rituals))
	mux.HandleFunc("/admin/rituals/info", h.guard(http.MethodGet, h.ritualInfo))
	mux.HandleFunc("/admin/reload", h.guard(http.MethodPost, h.reload))

	mux.HandleFunc("/admin/world/block", h.guard(http.MethodPost, h.setBlock))
	mux.HandleFunc("/admin/world/build", h.guard(http.MethodPost, h.build))
	mux.HandleFunc("/admin/actor/level", h.guard(http.MethodPost, h.setLevel))
	mux.HandleFunc("/admin/actor/give", h.guard(http.MethodPost, h.give))
}

func (h *Handler) guard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.allowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func (h *Handler) state(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"tick":   h.eng.CurrentTick(),
		"actors": h.eng.Actors(),
	})
}

func (h *Handler) pools(rw http.ResponseWriter, r *http.Request) {
	actor, ok := requireParam(rw, r, "actor")
	if !ok {
		return
	}
	snap, ok := h.eng.Pools(actor)
	if !ok {
		writeError(rw, http.StatusNotFound, "actor has no live ledger")
		return
	}
	writeJSON(rw, http.StatusOK, poolsResponse{Actor: actor, Pools: poolObs(snap), Total: snap.Total()})
}

func (h *Handler) restore(rw http.ResponseWriter, r *http.Request) {
	actor, ok := requireParam(rw, r, "actor")
	if !ok {
		return
	}
	if !h.eng.RestoreAll(actor) {
		writeError(rw, http.StatusNotFound, "actor has no live ledger")
		return
	}
	h.log.Printf("admin: restored pools of %s", actor)
	snap, _ := h.eng.Pools(actor)
	writeJSON(rw, http.StatusOK, poolsResponse{Actor: actor, Pools: poolObs(snap), Total: snap.Total()})
}

type poolEdit func(actorID string, kind mana.Kind, amount float64) (mana.PoolState, error)

// editPool serves ?actor=&kind=&amount= for one pool mutation.
func (h *Handler) editPool(edit poolEdit) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		actor, ok := requireParam(rw, r, "actor")
		if !ok {
			return
		}
		rawKind, ok := requireParam(rw, r, "kind")
		if !ok {
			return
		}
		kind, ok := mana.ParseKind(strings.ToLower(rawKind))
		if !ok {
			writeError(rw, http.StatusBadRequest, "unknown kind "+rawKind)
			return
		}
		rawAmount, ok := requireParam(rw, r, "amount")
		if !ok {
			return
		}
		amount, err := strconv.ParseFloat(rawAmount, 64)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "bad amount")
			return
		}
		st, err := edit(actor, kind, amount)
		switch {
		case errors.Is(err, arcana.ErrNoLedger):
			writeError(rw, http.StatusNotFound, err.Error())
		case err != nil:
			writeError(rw, http.StatusBadRequest, err.Error())
		default:
			writeJSON(rw, http.StatusOK, map[string]any{
				"actor": actor,
				"pool":  protocol.PoolObs{Kind: string(kind), Current: st.Current, Max: st.Max},
			})
		}
	}
}

func (h *Handler) cooldown(rw http.ResponseWriter, r *http.Request) {
	actor, ok := requireParam(rw, r, "actor")
	if !ok {
		return
	}
	ritual, ok := requireParam(rw, r, "ritual")
	if !ok {
		return
	}
	left, ok := h.eng.RitualCooldown(actor, ritual)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown ritual")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"actor":             actor,
		"ritual":            ritual,
		"remaining_seconds": left.Seconds(),
	})
}

func (h *Handler) resetCooldown(rw http.ResponseWriter, r *http.Request) {
	actor, ok := requireParam(rw, r, "actor")
	if !ok {
		return
	}
	ritual, ok := requireParam(rw, r, "ritual")
	if !ok {
		return
	}
	cleared := h.eng.ResetCooldown(actor, ritual)
	if cleared {
		h.log.Printf("admin: reset cooldown %s for %s", ritual, actor)
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "cleared": cleared})
}

func (h *Handler) casts(rw http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(rw, http.StatusNotImplemented, "cast index disabled")
		return
	}
	actor, ok := requireParam(rw, r, "actor")
	if !ok {
		return
	}
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(rw, http.StatusBadRequest, "bad limit")
			return
		}
		limit = min(n, 1000)
	}
	entries, err := h.history.Casts(actor, limit)
	if err != nil {
		h.log.Printf("admin: casts %s: %v", actor, err)
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []arcana.CastEntry{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"actor": actor, "casts": entries})
}

type poolsResponse struct {
	Actor string             `json:"actor"`
	Pools []protocol.PoolObs `json:"pools"`
	Total float64            `json:"total"`
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

func requireParam(rw http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		writeError(rw, http.StatusBadRequest, "missing "+name)
		return "", false
	}
	return v, true
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]any{"ok": false, "error": msg})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
