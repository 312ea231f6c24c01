package effects

import (
	"fmt"
	"strings"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mathx"
)

var ritualHandlers = map[catalogs.EffectTag]RitualHandler{
	catalogs.TagBuff:             genericBuffs,
	catalogs.TagAscend:           buffsWith("You feel power surging through your body!"),
	catalogs.TagChaos:            ritualChaos,
	catalogs.TagBind:             ritualBind,
	catalogs.TagCosmic:           buffsWith("Cosmic energy surrounds you!"),
	catalogs.TagElementalBalance: buffsWith("Elements are in harmony!"),
	catalogs.TagHeal:             ritualHeal,
	catalogs.TagDistort:          buffsWith("Reality distorts around you!"),
	catalogs.TagResurrect:        ritualResurrect,
	catalogs.TagSacrifice:        ritualSacrifice,
	catalogs.TagSummon:           ritualSummon,
	catalogs.TagAccelerate:       buffsWith("Time accelerates around you!"),
	catalogs.TagTransform:        ritualTransform,
	catalogs.TagVoidEmbrace:      buffsWith("The void embraces you!"),
	catalogs.TagVortex:           ritualVortex,
	catalogs.TagNatureHeal:       ritualNatureHeal,
}

func (c RitualContext) durationTicks() int { return c.Effect.DurationSeconds * TicksPerSecond }

// applyBuffs gives the actor every listed buff at amplifier 0.
func applyBuffs(ctx RitualContext) error {
	for _, b := range ctx.Effect.Buffs {
		if err := ctx.World.ApplyStatus(ctx.Actor, b, ctx.durationTicks(), 0); err != nil {
			return fmt.Errorf("buff %s: %w", b, err)
		}
	}
	return nil
}

func genericBuffs(ctx RitualContext) error { return applyBuffs(ctx) }

func buffsWith(msg string) RitualHandler {
	return func(ctx RitualContext) error {
		if err := applyBuffs(ctx); err != nil {
			return err
		}
		ctx.World.Message(ctx.Actor, msg)
		return nil
	}
}

func ritualChaos(ctx RitualContext) error {
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	for _, id := range ctx.World.LivingNear(ctx.Origin.Center(), 4, ctx.Actor) {
		if err := ctx.World.Damage(id, 6); err != nil {
			return err
		}
		if err := ctx.World.Ignite(id, 4*TicksPerSecond); err != nil {
			return err
		}
	}
	ctx.World.Message(ctx.Actor, "Chaos erupts from the ritual!")
	return nil
}

func ritualBind(ctx RitualContext) error {
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ticks := ctx.durationTicks()
	for _, id := range ctx.World.LivingNear(ctx.Origin.Center(), 6, ctx.Actor) {
		if err := ctx.World.ApplyStatus(id, "minecraft:slowness", ticks, 4); err != nil {
			return err
		}
		if err := ctx.World.ApplyStatus(id, "minecraft:weakness", ticks, 1); err != nil {
			return err
		}
		if err := ctx.World.StopMotion(id); err != nil {
			return err
		}
	}
	ctx.World.Message(ctx.Actor, "Enemies are bound in place!")
	return nil
}

func ritualHeal(ctx RitualContext) error {
	amount := 20.0
	if len(ctx.Effect.Buffs) > 0 {
		amount = 10
	}
	if err := ctx.World.Heal(ctx.Actor, amount); err != nil {
		return err
	}
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, "You are healed!")
	return nil
}

func ritualResurrect(ctx RitualContext) error {
	if err := ctx.World.SetHealthFraction(ctx.Actor, 0.5); err != nil {
		return err
	}
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, "You are resurrected!")
	return nil
}

func ritualSacrifice(ctx RitualContext) error {
	if err := ctx.World.Damage(ctx.Actor, 5); err != nil {
		return err
	}
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, "You sacrifice your life force for power!")
	return nil
}

// ritualSummon spawns the named entity above the origin. An empty target is
// a no-op; an unknown one is a fault.
func ritualSummon(ctx RitualContext) error {
	target := strings.TrimSpace(ctx.Effect.Summon)
	if target == "" {
		return nil
	}
	pos := ctx.Origin.Center().Add(mathx.Vec3{Y: 0.5})
	if _, err := ctx.World.Spawn(catalogs.NormalizeID(target), pos, ctx.Actor); err != nil {
		return fmt.Errorf("summon %s: %w", target, err)
	}
	if catalogs.Path(target) == "fire_elemental" {
		ctx.World.Message(ctx.Actor, "A Fire Elemental has been summoned!")
	} else {
		ctx.World.Message(ctx.Actor, "A creature has been summoned!")
	}
	return nil
}

func ritualTransform(ctx RitualContext) error {
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ticks := ctx.durationTicks()
	for _, s := range []string{"minecraft:strength", "minecraft:resistance", "minecraft:speed"} {
		if err := ctx.World.ApplyStatus(ctx.Actor, s, ticks, 1); err != nil {
			return err
		}
	}
	ctx.World.Message(ctx.Actor, "Your form has transformed!")
	return nil
}

// ritualVortex pulls nearby entities toward the origin and damages them.
func ritualVortex(ctx RitualContext) error {
	center := ctx.Origin.Center()
	for _, id := range ctx.World.LivingNear(center, 6, ctx.Actor) {
		pos, ok := ctx.World.PositionOf(id)
		if !ok {
			continue
		}
		if err := ctx.World.Push(id, center.Sub(pos).Normalize().Scale(0.35)); err != nil {
			return err
		}
		if err := ctx.World.Damage(id, 4); err != nil {
			return err
		}
	}
	ctx.World.Message(ctx.Actor, "A vortex erupts from the ritual!")
	return nil
}

func ritualNatureHeal(ctx RitualContext) error {
	if err := ctx.World.Heal(ctx.Actor, 15); err != nil {
		return err
	}
	if err := applyBuffs(ctx); err != nil {
		return err
	}
	ctx.World.Message(ctx.Actor, "Nature's energy flows through you!")
	return nil
}
