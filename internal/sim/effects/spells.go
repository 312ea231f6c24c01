package effects

import (
	"fmt"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mathx"
)

const (
	projectileEntity = "mam:spell_projectile"
	defaultAoeRadius = 3.0
	chainTargets     = 3
	comboMultiplier  = 1.5
)

var spellHandlers = map[catalogs.CastType]SpellHandler{
	catalogs.CastProjectile: castProjectile,
	catalogs.CastAOE:        castAOE,
	catalogs.CastUtility:    castUtility,
	catalogs.CastRitual:     castRitual,
	catalogs.CastSynergy:    castSynergy,
}

func casterPos(ctx SpellContext) (mathx.Vec3, error) {
	pos, ok := ctx.World.PositionOf(ctx.Actor)
	if !ok {
		return mathx.Vec3{}, fmt.Errorf("caster %s is not in the world", ctx.Actor)
	}
	return pos, nil
}

func hit(ctx SpellContext, target string, damage float64) error {
	if damage > 0 {
		if err := ctx.World.Damage(target, damage); err != nil {
			return err
		}
	}
	return applyStatuses(ctx.World, target, ctx.Spell.StatusEffects)
}

// castProjectile strikes the nearest living target in range. With nothing in
// range the projectile is spawned and flies off.
func castProjectile(ctx SpellContext) error {
	pos, err := casterPos(ctx)
	if err != nil {
		return err
	}
	targets := ctx.World.LivingNear(pos, ctx.Spell.Range, ctx.Actor)
	if len(targets) == 0 {
		if _, err := ctx.World.Spawn(projectileEntity, pos.Add(mathx.Vec3{Y: 1.5}), ctx.Actor); err != nil {
			return err
		}
		ctx.World.Message(ctx.Actor, fmt.Sprintf("%s flies off into the distance.", ctx.Spell.Name))
		return nil
	}
	if err := hit(ctx, targets[0], ctx.Spell.Damage); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, fmt.Sprintf("%s hits its target!", ctx.Spell.Name))
	return nil
}

func castAOE(ctx SpellContext) error {
	pos, err := casterPos(ctx)
	if err != nil {
		return err
	}
	radius := ctx.Spell.AoeRadius
	if radius <= 0 {
		radius = defaultAoeRadius
	}
	targets := ctx.World.LivingNear(pos, radius, ctx.Actor)
	for _, id := range targets {
		if err := hit(ctx, id, ctx.Spell.Damage); err != nil {
			return err
		}
	}
	ctx.World.Message(ctx.Actor, fmt.Sprintf("%s strikes %d targets.", ctx.Spell.Name, len(targets)))
	return nil
}

func castUtility(ctx SpellContext) error {
	if _, err := casterPos(ctx); err != nil {
		return err
	}
	if err := applyStatuses(ctx.World, ctx.Actor, ctx.Spell.StatusEffects); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, fmt.Sprintf("%s takes hold.", ctx.Spell.Name))
	return nil
}

// castRitual readies the caster for a ritual sequence.
func castRitual(ctx SpellContext) error {
	if _, err := casterPos(ctx); err != nil {
		return err
	}
	if err := applyStatuses(ctx.World, ctx.Actor, ctx.Spell.StatusEffects); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, "Ritual energy gathers around you.")
	return nil
}

// castSynergy chains between the nearest targets; targets already under a
// status effect take combo damage.
func castSynergy(ctx SpellContext) error {
	pos, err := casterPos(ctx)
	if err != nil {
		return err
	}
	targets := ctx.World.LivingNear(pos, ctx.Spell.Range, ctx.Actor)
	if len(targets) > chainTargets {
		targets = targets[:chainTargets]
	}
	combos := 0
	for _, id := range targets {
		dmg := ctx.Spell.Damage
		if len(ctx.World.ActiveStatuses(id)) > 0 {
			dmg *= comboMultiplier
			combos++
		}
		if err := hit(ctx, id, dmg); err != nil {
			return err
		}
	}
	if combos > 0 {
		ctx.World.Message(ctx.Actor, fmt.Sprintf("Combo! %s resonates with %d afflicted targets.", ctx.Spell.Name, combos))
	}
	return nil
}
