package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://manacraft.ai/schemas/"

// Catalogs is the read-only definition store. It is built once by Load and
// never mutated afterwards, so lookups need no locking.
type Catalogs struct {
	Spells  SpellCatalog
	Rituals RitualCatalog

	// UnknownEffectTags lists ritual ids whose effect tag has no dedicated
	// handler; they run through the generic buff handler.
	UnknownEffectTags []string
}

type SpellCatalog struct {
	ByID   map[string]SpellDef
	Digest string
}

type RitualCatalog struct {
	ByID   map[string]RitualDef
	Digest string
}

type schemas struct {
	spell  *jsonschema.Schema
	ritual *jsonschema.Schema
}

func compileSchemas() (schemas, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range []string{"spell.schema.json", "ritual.schema.json"} {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return schemas{}, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			return schemas{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	var (
		s   schemas
		err error
	)
	if s.spell, err = c.Compile(schemaBaseURL + "spell.schema.json"); err != nil {
		return schemas{}, err
	}
	if s.ritual, err = c.Compile(schemaBaseURL + "ritual.schema.json"); err != nil {
		return schemas{}, err
	}
	return s, nil
}

// Load reads <configDir>/spells/**/*.json and <configDir>/rituals/**/*.json.
// A missing directory yields an empty catalog; a malformed file fails the load.
func Load(configDir string) (*Catalogs, error) {
	sch, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}
	var c Catalogs
	if err := loadSpells(filepath.Join(configDir, "spells"), sch.spell, &c.Spells); err != nil {
		return nil, err
	}
	if err := loadRituals(filepath.Join(configDir, "rituals"), sch.ritual, &c.Rituals); err != nil {
		return nil, err
	}
	for id, r := range c.Rituals.ByID {
		if r.Effect != nil && !KnownEffectTag(r.Effect.Tag) {
			c.UnknownEffectTags = append(c.UnknownEffectTags, id)
		}
	}
	sort.Strings(c.UnknownEffectTags)
	return &c, nil
}

// New builds a catalog from in-memory definitions. Ids are normalised.
func New(spells []SpellDef, rituals []RitualDef) *Catalogs {
	c := &Catalogs{
		Spells:  SpellCatalog{ByID: map[string]SpellDef{}},
		Rituals: RitualCatalog{ByID: map[string]RitualDef{}},
	}
	for _, s := range spells {
		s.ID = NormalizeID(s.ID)
		c.Spells.ByID[s.ID] = s
	}
	for _, r := range rituals {
		r.ID = NormalizeID(r.ID)
		c.Rituals.ByID[r.ID] = r
	}
	c.Spells.Digest = digestOf(c.Spells.ByID)
	c.Rituals.Digest = digestOf(c.Rituals.ByID)
	return c
}

func (c *Catalogs) Spell(id string) (SpellDef, bool) {
	d, ok := c.Spells.ByID[NormalizeID(id)]
	return d, ok
}

func (c *Catalogs) Ritual(id string) (RitualDef, bool) {
	d, ok := c.Rituals.ByID[NormalizeID(id)]
	return d, ok
}

// AllSpells returns every spell sorted by id.
func (c *Catalogs) AllSpells() []SpellDef {
	out := make([]SpellDef, 0, len(c.Spells.ByID))
	for _, d := range c.Spells.ByID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllRituals returns every ritual sorted by id.
func (c *Catalogs) AllRituals() []RitualDef {
	out := make([]RitualDef, 0, len(c.Rituals.ByID))
	for _, d := range c.Rituals.ByID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SpellsBySchool returns the school's spells sorted by id.
func (c *Catalogs) SpellsBySchool(school School) []SpellDef {
	var out []SpellDef
	for _, d := range c.Spells.ByID {
		if d.School == school {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func loadSpells(dir string, sch *jsonschema.Schema, out *SpellCatalog) error {
	out.ByID = map[string]SpellDef{}
	err := walkJSON(dir, func(path string, raw []byte) error {
		if err := validate(sch, raw); err != nil {
			return err
		}
		d, err := decodeSpell(raw)
		if err != nil {
			return err
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("duplicate spell id %s", d.ID)
		}
		out.ByID[d.ID] = d
		return nil
	})
	if err != nil {
		return err
	}
	out.Digest = digestOf(out.ByID)
	return nil
}

func loadRituals(dir string, sch *jsonschema.Schema, out *RitualCatalog) error {
	out.ByID = map[string]RitualDef{}
	err := walkJSON(dir, func(path string, raw []byte) error {
		if err := validate(sch, raw); err != nil {
			return err
		}
		d, err := decodeRitual(raw)
		if err != nil {
			return err
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("duplicate ritual id %s", d.ID)
		}
		out.ByID[d.ID] = d
		return nil
	})
	if err != nil {
		return err
	}
	out.Digest = digestOf(out.ByID)
	return nil
}

func validate(sch *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return sch.Validate(v)
}

func walkJSON(dir string, fn func(path string, raw []byte) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := fn(p, raw); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// digestOf hashes the definitions in id order; encoding/json sorts map keys.
func digestOf[T any](byID map[string]T) string {
	b, _ := json.Marshal(byID)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
