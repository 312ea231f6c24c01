package admin

import (
	"errors"
	"net/http"
	"strconv"

	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/world"
)

// position reads ?x=&y=&z= as block coordinates.
func position(rw http.ResponseWriter, r *http.Request) (mathx.Vec3i, bool) {
	var v [3]int
	for i, name := range []string{"x", "y", "z"} {
		raw, ok := requireParam(rw, r, name)
		if !ok {
			return mathx.Vec3i{}, false
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "bad "+name)
			return mathx.Vec3i{}, false
		}
		v[i] = n
	}
	return mathx.Vec3i{X: v[0], Y: v[1], Z: v[2]}, true
}

func coords(v mathx.Vec3i) [3]int { return [3]int{v.X, v.Y, v.Z} }

func (h *Handler) setBlock(rw http.ResponseWriter, r *http.Request) {
	pos, ok := position(rw, r)
	if !ok {
		return
	}
	block, ok := requireParam(rw, r, "block")
	if !ok {
		return
	}
	w := h.eng.World()
	w.SetBlock(pos, block)
	writeJSON(rw, http.StatusOK, map[string]any{"pos": coords(pos), "block": w.BlockAt(pos)})
}

// build places a ritual's full structure around the given origin.
func (h *Handler) build(rw http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(rw, r, "ritual")
	if !ok {
		return
	}
	origin, ok := position(rw, r)
	if !ok {
		return
	}
	n, err := h.eng.BuildRitual(id, origin)
	var unknown *failure.UnknownDefinitionError
	switch {
	case errors.As(err, &unknown):
		writeError(rw, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Printf("admin: built %s at %v", id, origin)
	writeJSON(rw, http.StatusOK, map[string]any{"ritual": id, "origin": coords(origin), "placed": n})
}

// actor resolves ?actor= to an entity standing in the world.
func (h *Handler) actor(rw http.ResponseWriter, r *http.Request) (string, *world.World, bool) {
	id, ok := requireParam(rw, r, "actor")
	if !ok {
		return "", nil, false
	}
	w := h.eng.World()
	if _, ok := w.Entity(id); !ok {
		writeError(rw, http.StatusNotFound, "actor not in world")
		return "", nil, false
	}
	return id, w, true
}

func (h *Handler) setLevel(rw http.ResponseWriter, r *http.Request) {
	id, w, ok := h.actor(rw, r)
	if !ok {
		return
	}
	raw, ok := requireParam(rw, r, "level")
	if !ok {
		return
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		writeError(rw, http.StatusBadRequest, "bad level")
		return
	}
	if err := w.SetLevel(id, level); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Printf("admin: set level of %s to %d", id, level)
	writeJSON(rw, http.StatusOK, map[string]any{"actor": id, "level": w.Level(id)})
}

func (h *Handler) give(rw http.ResponseWriter, r *http.Request) {
	id, w, ok := h.actor(rw, r)
	if !ok {
		return
	}
	item, ok := requireParam(rw, r, "item")
	if !ok {
		return
	}
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "bad count")
			return
		}
		count = n
	}
	if err := w.GiveItem(id, item, count); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	e, _ := w.Entity(id)
	item = world.NormalizeBlock(item)
	h.log.Printf("admin: gave %d %s to %s", count, item, id)
	writeJSON(rw, http.StatusOK, map[string]any{"actor": id, "item": item, "count": e.Inventory[item]})
}
