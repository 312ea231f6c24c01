// Package pattern checks the block structure a ritual needs around its origin.
package pattern

import (
	"math"
	"strings"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mathx"
)

// Tolerance is the fraction of a ring's declared count that must be present.
const Tolerance = 0.7

type BlockReader interface {
	BlockAt(pos mathx.Vec3i) string
}

type BlockWriter interface {
	SetBlock(pos mathx.Vec3i, block string)
}

type RingReport struct {
	Material string
	Radius   int
	Height   int
	Required int
	Matched  int
}

func (r RingReport) OK() bool { return r.Matched >= r.Required }

// Report is the outcome of checking one pattern at one origin.
type Report struct {
	CenterWant string
	CenterGot  string
	Rings      []RingReport
}

func (r Report) CenterOK() bool { return r.CenterWant == r.CenterGot }

func (r Report) OK() bool {
	if !r.CenterOK() {
		return false
	}
	for _, ring := range r.Rings {
		if !ring.OK() {
			return false
		}
	}
	return true
}

// Validate reports whether the structure around origin satisfies p.
// A nil pattern always passes.
func Validate(w BlockReader, origin mathx.Vec3i, p *catalogs.Pattern) bool {
	if p == nil {
		return true
	}
	return Inspect(w, origin, p).OK()
}

// Inspect counts matches for every ring, even after a failing one.
func Inspect(w BlockReader, origin mathx.Vec3i, p *catalogs.Pattern) Report {
	if p == nil {
		return Report{}
	}
	rep := Report{
		CenterWant: normalize(p.CenterBlock),
		CenterGot:  normalize(w.BlockAt(origin)),
	}
	for _, ring := range p.Rings {
		rep.Rings = append(rep.Rings, inspectRing(w, origin, ring))
	}
	return rep
}

// Required is the number of matching blocks a ring of count needs.
func Required(count int) int {
	return int(math.Ceil(float64(count) * Tolerance))
}

// OnRing reports whether the column offset (dx, dz) lies on a ring of radius r.
func OnRing(dx, dz, r int) bool {
	return mathx.AbsInt(dx*dx+dz*dz-r*r) <= r
}

func inspectRing(w BlockReader, origin mathx.Vec3i, ring catalogs.Ring) RingReport {
	want := normalize(ring.Material)
	rep := RingReport{
		Material: want,
		Radius:   ring.Radius,
		Height:   ring.Height,
		Required: Required(ring.Count),
	}
	for _, pos := range Positions(origin, ring) {
		if normalize(w.BlockAt(pos)) == want {
			rep.Matched++
		}
	}
	return rep
}

func normalize(id string) string {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "minecraft:air"
	}
	if !strings.Contains(id, ":") {
		return "minecraft:" + id
	}
	return id
}

// Positions lists the on-ring block positions for a ring, in scan order.
func Positions(origin mathx.Vec3i, ring catalogs.Ring) []mathx.Vec3i {
	var out []mathx.Vec3i
	r := ring.Radius
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			if OnRing(dx, dz, r) {
				out = append(out, origin.Add(dx, ring.Height, dz))
			}
		}
	}
	return out
}

// Build places the center block and every ring position of p around origin
// and returns the number of blocks set.
func Build(w BlockWriter, origin mathx.Vec3i, p *catalogs.Pattern) int {
	if p == nil {
		return 0
	}
	w.SetBlock(origin, normalize(p.CenterBlock))
	n := 1
	for _, ring := range p.Rings {
		want := normalize(ring.Material)
		for _, pos := range Positions(origin, ring) {
			w.SetBlock(pos, want)
			n++
		}
	}
	return n
}
