package catalogs

import (
	"encoding/json"
	"fmt"
)

// The raw* types mirror the definition files; pointer fields tell an
// omitted key apart from an explicit zero so defaults can be applied.

type rawSpell struct {
	ID              string         `json:"id"`
	Name            *string        `json:"name"`
	School          string         `json:"school"`
	Description     string         `json:"description"`
	CastType        *string        `json:"castType"`
	ManaCost        *float64       `json:"manaCost"`
	CastTime        float64        `json:"castTime"`
	Cooldown        float64        `json:"cooldown"`
	Tier            *int           `json:"tier"`
	RequiredLevel   *int           `json:"requiredLevel"`
	Damage          float64        `json:"damage"`
	Range           *float64       `json:"range"`
	ProjectileSpeed *float64       `json:"projectileSpeed"`
	AoeRadius       float64        `json:"aoeRadius"`
	Sound           string         `json:"sound"`
	StatusEffects   []rawStatusEff `json:"statusEffects"`
}

type rawStatusEff struct {
	Effect    string `json:"effect"`
	Duration  *int   `json:"duration"`
	Amplifier int    `json:"amplifier"`
}

func decodeSpell(raw []byte) (SpellDef, error) {
	var r rawSpell
	if err := json.Unmarshal(raw, &r); err != nil {
		return SpellDef{}, err
	}
	school, ok := ParseSchool(r.School)
	if !ok {
		return SpellDef{}, fmt.Errorf("unknown school %q", r.School)
	}
	d := SpellDef{
		ID:              NormalizeID(r.ID),
		School:          school,
		Description:     r.Description,
		CastType:        CastUtility,
		ManaCost:        10,
		CastTime:        r.CastTime,
		Cooldown:        r.Cooldown,
		Tier:            1,
		RequiredLevel:   1,
		Damage:          r.Damage,
		Range:           10,
		ProjectileSpeed: 1,
		AoeRadius:       r.AoeRadius,
		Sound:           r.Sound,
	}
	d.Name = Path(d.ID)
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.CastType != nil {
		d.CastType = ParseCastType(*r.CastType)
	}
	if r.ManaCost != nil {
		d.ManaCost = *r.ManaCost
	}
	if r.Tier != nil {
		d.Tier = *r.Tier
	}
	if r.RequiredLevel != nil {
		d.RequiredLevel = *r.RequiredLevel
	}
	if r.Range != nil {
		d.Range = *r.Range
	}
	if r.ProjectileSpeed != nil {
		d.ProjectileSpeed = *r.ProjectileSpeed
	}
	for _, se := range r.StatusEffects {
		dur := 60
		if se.Duration != nil {
			dur = *se.Duration
		}
		d.StatusEffects = append(d.StatusEffects, StatusEffect{Effect: se.Effect, Duration: dur, Amplifier: se.Amplifier})
	}
	return d, nil
}

type rawRitual struct {
	ID               string          `json:"id"`
	Name             *string         `json:"name"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	Items            []string        `json:"ritual_items"`
	ManaCost         *float64        `json:"mana_cost"`
	DurationSeconds  *int            `json:"duration_seconds"`
	CooldownSeconds  *int            `json:"cooldown_seconds"`
	LevelRequirement *int            `json:"level_requirement"`
	Pattern          json.RawMessage `json:"pattern"`
	Effect           *rawEffect      `json:"effect"`
}

type rawPattern struct {
	Type        *string   `json:"type"`
	CenterBlock *string   `json:"center_block"`
	Rings       []rawRing `json:"rings"`
}

type rawRing struct {
	Material string `json:"material"`
	Count    *int   `json:"count"`
	Radius   *int   `json:"radius"`
	Height   int    `json:"height"`
}

type rawEffect struct {
	Type     *string  `json:"type"`
	Buffs    []string `json:"buffs"`
	Duration *int     `json:"duration"`
	Summon   string   `json:"summon"`
}

func decodeRitual(raw []byte) (RitualDef, error) {
	var r rawRitual
	if err := json.Unmarshal(raw, &r); err != nil {
		return RitualDef{}, err
	}
	d := RitualDef{
		ID:               NormalizeID(r.ID),
		Category:         Category(r.Category),
		Description:      r.Description,
		Items:            r.Items,
		ManaCost:         100,
		DurationSeconds:  60,
		CooldownSeconds:  300,
		LevelRequirement: 1,
	}
	d.Name = Path(d.ID)
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.ManaCost != nil {
		d.ManaCost = *r.ManaCost
	}
	if r.DurationSeconds != nil {
		d.DurationSeconds = *r.DurationSeconds
	}
	if r.CooldownSeconds != nil {
		d.CooldownSeconds = *r.CooldownSeconds
	}
	if r.LevelRequirement != nil {
		d.LevelRequirement = *r.LevelRequirement
	}
	if len(r.Pattern) > 0 && string(r.Pattern) != "null" {
		p, err := decodePattern(r.Pattern)
		if err != nil {
			return RitualDef{}, fmt.Errorf("pattern: %w", err)
		}
		d.Pattern = &p
	}
	if r.Effect != nil {
		e := Effect{Tag: TagBuff, Buffs: r.Effect.Buffs, DurationSeconds: 60, Summon: r.Effect.Summon}
		if r.Effect.Type != nil {
			e.Tag = EffectTag(*r.Effect.Type)
		}
		if r.Effect.Duration != nil {
			e.DurationSeconds = *r.Effect.Duration
		}
		d.Effect = &e
	}
	return d, nil
}

// decodePattern accepts a "rings" array as well as the legacy ring1..ring5
// keys; array rings come first.
func decodePattern(raw json.RawMessage) (Pattern, error) {
	var rp rawPattern
	if err := json.Unmarshal(raw, &rp); err != nil {
		return Pattern{}, err
	}
	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return Pattern{}, err
	}
	p := Pattern{Type: "circle", CenterBlock: "minecraft:gold_block"}
	if rp.Type != nil {
		p.Type = *rp.Type
	}
	if rp.CenterBlock != nil {
		p.CenterBlock = *rp.CenterBlock
	}
	rings := rp.Rings
	for i := 1; i <= 5; i++ {
		b, ok := legacy[fmt.Sprintf("ring%d", i)]
		if !ok {
			continue
		}
		var rr rawRing
		if err := json.Unmarshal(b, &rr); err != nil {
			return Pattern{}, fmt.Errorf("ring%d: %w", i, err)
		}
		rings = append(rings, rr)
	}
	for _, rr := range rings {
		ring := Ring{Material: rr.Material, Count: 8, Radius: 3, Height: rr.Height}
		if rr.Count != nil {
			ring.Count = *rr.Count
		}
		if rr.Radius != nil {
			ring.Radius = *rr.Radius
		}
		p.Rings = append(p.Rings, ring)
	}
	return p, nil
}
