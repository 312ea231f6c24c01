package admin

import (
	"errors"
	"net/http"
	"strings"

	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/casting"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/ritual"
	"manacraft.ai/internal/sim/ritual/pattern"
)

type spellSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	School   string  `json:"school"`
	Pool     string  `json:"pool"`
	CastType string  `json:"cast_type"`
	Tier     int     `json:"tier"`
	ManaCost float64 `json:"mana_cost"`
}

func summarizeSpell(d catalogs.SpellDef) spellSummary {
	return spellSummary{
		ID:       d.ID,
		Name:     d.Name,
		School:   string(d.School),
		Pool:     string(casting.KindFor(d.School)),
		CastType: string(d.CastType),
		Tier:     d.Tier,
		ManaCost: d.ManaCost,
	}
}

type ritualSummary struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	ManaCost         float64 `json:"mana_cost"`
	CooldownSeconds  int     `json:"cooldown_seconds"`
	LevelRequirement int     `json:"level_requirement"`
}

func summarizeRitual(d catalogs.RitualDef) ritualSummary {
	return ritualSummary{
		ID:               d.ID,
		Name:             d.Name,
		Category:         string(d.Category),
		ManaCost:         d.ManaCost,
		CooldownSeconds:  d.CooldownSeconds,
		LevelRequirement: d.LevelRequirement,
	}
}

// spells lists every spell with per-school counts, or one school's spells
// with ?school=.
func (h *Handler) spells(rw http.ResponseWriter, r *http.Request) {
	cats := h.eng.Catalogs()
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("school")))
	if raw != "" {
		school, ok := catalogs.ParseSchool(raw)
		if !ok {
			writeError(rw, http.StatusBadRequest, "unknown school "+raw)
			return
		}
		list := cats.SpellsBySchool(school)
		out := make([]spellSummary, 0, len(list))
		for _, d := range list {
			out = append(out, summarizeSpell(d))
		}
		writeJSON(rw, http.StatusOK, map[string]any{"school": school, "spells": out})
		return
	}

	all := cats.AllSpells()
	out := make([]spellSummary, 0, len(all))
	bySchool := map[string]int{}
	for _, d := range all {
		out = append(out, summarizeSpell(d))
		bySchool[string(d.School)]++
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"count":     len(out),
		"by_school": bySchool,
		"spells":    out,
		"digest":    cats.Spells.Digest,
	})
}

func (h *Handler) spellInfo(rw http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(rw, r, "id")
	if !ok {
		return
	}
	d, ok := h.eng.Catalogs().Spell(id)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown spell "+id)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"spell": d,
		"pool":  casting.KindFor(d.School),
	})
}

func (h *Handler) rituals(rw http.ResponseWriter, r *http.Request) {
	cats := h.eng.Catalogs()
	all := cats.AllRituals()
	out := make([]ritualSummary, 0, len(all))
	for _, d := range all {
		out = append(out, summarizeRitual(d))
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"count":   len(out),
		"rituals": out,
		"digest":  cats.Rituals.Digest,
	})
}

type ringInfo struct {
	Material string `json:"material"`
	Radius   int    `json:"radius"`
	Height   int    `json:"height"`
	Count    int    `json:"count"`
	Required int    `json:"required"`
}

func (h *Handler) ritualInfo(rw http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(rw, r, "id")
	if !ok {
		return
	}
	d, ok := h.eng.Catalogs().Ritual(id)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown ritual "+id)
		return
	}
	rings := []ringInfo{}
	if d.Pattern != nil {
		for _, ring := range d.Pattern.Rings {
			rings = append(rings, ringInfo{
				Material: ring.Material,
				Radius:   ring.Radius,
				Height:   ring.Height,
				Count:    ring.Count,
				Required: pattern.Required(ring.Count),
			})
		}
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"ritual": d,
		"pool":   ritual.Kind,
		"rings":  rings,
	})
}

func (h *Handler) reload(rw http.ResponseWriter, r *http.Request) {
	cats, err := h.eng.ReloadCatalogs()
	switch {
	case errors.Is(err, arcana.ErrReloadDisabled):
		writeError(rw, http.StatusNotImplemented, err.Error())
		return
	case err != nil:
		h.log.Printf("admin: reload: %v", err)
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"ok":             true,
		"spells":         len(cats.Spells.ByID),
		"spells_digest":  cats.Spells.Digest,
		"rituals":        len(cats.Rituals.ByID),
		"rituals_digest": cats.Rituals.Digest,
		"unknown_tags":   cats.UnknownEffectTags,
	})
}
