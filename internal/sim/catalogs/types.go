package catalogs

import (
	"strings"
	"time"
)

// Namespace is prepended to definition ids that carry none.
const Namespace = "mam"

// NormalizeID returns id with a namespace, defaulting to Namespace.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, ":") {
		return id
	}
	return Namespace + ":" + id
}

// Path is the part of an id after the namespace.
func Path(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

type School string

const (
	SchoolAir     School = "air"
	SchoolArcane  School = "arcane"
	SchoolBlood   School = "blood"
	SchoolChaos   School = "chaos"
	SchoolDark    School = "dark"
	SchoolEarth   School = "earth"
	SchoolFire    School = "fire"
	SchoolIce     School = "ice"
	SchoolLight   School = "light"
	SchoolNature  School = "nature"
	SchoolThunder School = "thunder"
	SchoolVoid    School = "void"
	SchoolWater   School = "water"
)

var Schools = []School{
	SchoolAir, SchoolArcane, SchoolBlood, SchoolChaos, SchoolDark, SchoolEarth, SchoolFire,
	SchoolIce, SchoolLight, SchoolNature, SchoolThunder, SchoolVoid, SchoolWater,
}

func ParseSchool(s string) (School, bool) {
	for _, sc := range Schools {
		if string(sc) == s {
			return sc, true
		}
	}
	return "", false
}

type CastType string

const (
	CastProjectile CastType = "projectile"
	CastAOE        CastType = "aoe"
	CastUtility    CastType = "utility"
	CastRitual     CastType = "ritual"
	CastSynergy    CastType = "synergy"
)

// ParseCastType falls back to utility for unknown values.
func ParseCastType(s string) CastType {
	switch CastType(s) {
	case CastProjectile, CastAOE, CastUtility, CastRitual, CastSynergy:
		return CastType(s)
	default:
		return CastUtility
	}
}

type Category string

const (
	CategoryAscension      Category = "ascension"
	CategoryCircle         Category = "circle"
	CategoryCosmic         Category = "cosmic"
	CategoryElemental      Category = "elemental"
	CategoryFountain       Category = "fountain"
	CategoryPlanar         Category = "planar"
	CategoryReality        Category = "reality"
	CategoryResurrection   Category = "resurrection"
	CategorySacrifice      Category = "sacrifice"
	CategorySummoning      Category = "summoning"
	CategoryTemporal       Category = "temporal"
	CategoryTransformation Category = "transformation"
	CategoryVortex         Category = "vortex"
)

// EffectTag selects the ritual effect handler.
type EffectTag string

const (
	TagBuff             EffectTag = "buff"
	TagAscend           EffectTag = "ascend"
	TagChaos            EffectTag = "chaos"
	TagBind             EffectTag = "bind"
	TagCosmic           EffectTag = "cosmic"
	TagElementalBalance EffectTag = "elemental_balance"
	TagHeal             EffectTag = "heal"
	TagDistort          EffectTag = "distort"
	TagResurrect        EffectTag = "resurrect"
	TagSacrifice        EffectTag = "sacrifice"
	TagSummon           EffectTag = "summon"
	TagAccelerate       EffectTag = "accelerate"
	TagTransform        EffectTag = "transform"
	TagVoidEmbrace      EffectTag = "void_embrace"
	TagVortex           EffectTag = "vortex"
	TagNatureHeal       EffectTag = "nature_heal"
)

var EffectTags = []EffectTag{
	TagBuff, TagAscend, TagChaos, TagBind, TagCosmic, TagElementalBalance, TagHeal, TagDistort,
	TagResurrect, TagSacrifice, TagSummon, TagAccelerate, TagTransform, TagVoidEmbrace, TagVortex,
	TagNatureHeal,
}

func KnownEffectTag(t EffectTag) bool {
	for _, k := range EffectTags {
		if k == t {
			return true
		}
	}
	return false
}

type StatusEffect struct {
	Effect    string `json:"effect"`
	Duration  int    `json:"duration"` // ticks
	Amplifier int    `json:"amplifier"`
}

type SpellDef struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	School          School         `json:"school"`
	Description     string         `json:"description,omitempty"`
	CastType        CastType       `json:"castType"`
	ManaCost        float64        `json:"manaCost"`
	CastTime        float64        `json:"castTime"`
	Cooldown        float64        `json:"cooldown"`
	Tier            int            `json:"tier"`
	RequiredLevel   int            `json:"requiredLevel"`
	Damage          float64        `json:"damage"`
	Range           float64        `json:"range"`
	ProjectileSpeed float64        `json:"projectileSpeed"`
	AoeRadius       float64        `json:"aoeRadius"`
	StatusEffects   []StatusEffect `json:"statusEffects,omitempty"`
	Sound           string         `json:"sound,omitempty"`
}

type RitualDef struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         Category `json:"category"`
	Description      string   `json:"description,omitempty"`
	Items            []string `json:"ritual_items,omitempty"`
	ManaCost         float64  `json:"mana_cost"`
	DurationSeconds  int      `json:"duration_seconds"`
	CooldownSeconds  int      `json:"cooldown_seconds"`
	LevelRequirement int      `json:"level_requirement"`
	Pattern          *Pattern `json:"pattern,omitempty"`
	Effect           *Effect  `json:"effect,omitempty"`
}

func (r RitualDef) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// Pattern is the block structure a ritual needs around its origin.
type Pattern struct {
	Type        string `json:"type"`
	CenterBlock string `json:"center_block"`
	Rings       []Ring `json:"rings"`
}

type Ring struct {
	Material string `json:"material"`
	Count    int    `json:"count"`
	Radius   int    `json:"radius"`
	Height   int    `json:"height"`
}

type Effect struct {
	Tag             EffectTag `json:"type"`
	Buffs           []string  `json:"buffs,omitempty"`
	DurationSeconds int       `json:"duration"`
	Summon          string    `json:"summon,omitempty"`
}
