package rules

import (
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/metrics"
	"github.com/urmzd/hearth/pkg/state"
)

// trigger says how a candidate is deduplicated across batches.
type trigger uint8

const (
	// always emit
	triggerNone trigger = iota
	// emit only when the believed state differs
	triggerLevel
	// emit at most once per cooldown
	triggerEdge
)

// candidate is a command before the policy gates.
type candidate struct {
	cmd     actuator.Command
	safety  bool
	trigger trigger
	alertID string

	// escalation lets the candidate replace an ordinary command for the
	// same actuator without bypassing a manual override.
	escalation bool
}

// rank orders candidates competing for one actuator within a batch.
func (c candidate) rank() int {
	switch {
	case c.safety:
		return 2
	case c.escalation:
		return 1
	}
	return 0
}

func (e *Engine) normal(d *decision, id, st, reason string) candidate {
	return candidate{cmd: e.command(d, id, st, reason)}
}

func (e *Engine) level(d *decision, id, st, reason string) candidate {
	return candidate{cmd: e.command(d, id, st, reason), trigger: triggerLevel}
}

func (e *Engine) safetyLevel(d *decision, id, st, reason string) candidate {
	return candidate{cmd: e.command(d, id, st, reason), safety: true, trigger: triggerLevel}
}

func (e *Engine) safetyEdge(d *decision, alertID, id, st, reason string) candidate {
	return candidate{cmd: e.command(d, id, st, reason), safety: true, trigger: triggerEdge, alertID: alertID}
}

func (e *Engine) edge(d *decision, alertID, id, st, reason string) candidate {
	return candidate{cmd: e.command(d, id, st, reason), trigger: triggerEdge, alertID: alertID}
}

func (c candidate) withValue(v int) candidate {
	c.cmd.Value = actuator.IntValue(v)
	return c
}

func (c candidate) escalated() candidate {
	c.escalation = true
	return c
}

// gate applies the policy gates in order: manual override, alert cooldown,
// then state comparison. Each actuator gets at most one command per batch:
// the first admitted candidate holds it, and a later one replaces it only
// when it outranks it.
type gate struct {
	e       *Engine
	tx      *state.Tx
	pending map[string]candidate
}

func newGate(e *Engine, tx *state.Tx) *gate {
	return &gate{e: e, tx: tx, pending: make(map[string]candidate)}
}

func (g *gate) apply(cands []candidate) []actuator.Command {
	var out []actuator.Command
	for _, c := range cands {
		id := c.cmd.ActuatorID
		if prev, ok := g.pending[id]; ok {
			if sameIntent(prev.cmd, c.cmd) {
				g.suppress(c, "duplicate")
				continue
			}
			if c.rank() <= prev.rank() {
				g.suppress(c, "superseded")
				continue
			}
			out = withdraw(out, id)
			delete(g.pending, id)
		}
		if g.admit(c) {
			g.pending[id] = c
			out = append(out, c.cmd)
		}
	}
	return out
}

func (g *gate) admit(c candidate) bool {
	id := c.cmd.ActuatorID

	if !c.safety && g.tx.OverrideActive(id) {
		return g.suppress(c, "override")
	}

	switch c.trigger {
	case triggerEdge:
		if !g.tx.CanFire(c.alertID, g.e.cooldown) {
			return g.suppress(c, "cooldown")
		}
	case triggerLevel:
		if g.tx.ActuatorState(id) == c.cmd.State {
			return g.suppress(c, "unchanged")
		}
	}
	return true
}

func withdraw(cmds []actuator.Command, id string) []actuator.Command {
	out := cmds[:0]
	for _, c := range cmds {
		if c.ActuatorID != id {
			out = append(out, c)
		}
	}
	return out
}

func (g *gate) suppress(c candidate, gateName string) bool {
	metrics.IncCommandSuppressed(gateName)
	log.Debug().
		Str("actuator_id", c.cmd.ActuatorID).
		Str("state", c.cmd.State).
		Str("gate", gateName).
		Msg("Command suppressed")
	return false
}

// merge admits advisory commands for actuators nothing else touched in this
// batch, that are not under manual control, and whose state would change.
// HVAC belongs to the climate policy: advice may only start it from off, and
// never in a batch the policy already judged.
func (g *gate) merge(d *decision, advice []actuator.Command) []actuator.Command {
	var out []actuator.Command
	for _, cmd := range advice {
		id := cmd.ActuatorID
		if _, ok := g.pending[id]; ok {
			continue
		}
		if id == HVAC && (d.climateJudged() || g.tx.ActuatorState(HVAC) != "off") {
			g.suppress(candidate{cmd: cmd}, "climate")
			continue
		}
		if g.tx.OverrideActive(id) {
			g.suppress(candidate{cmd: cmd}, "override")
			continue
		}
		if g.tx.ActuatorState(id) == cmd.State {
			continue
		}
		cmd.TriggeredBy = actuator.TriggeredByAdvisor
		cmd.Timestamp = g.tx.Now()
		if spec, ok := g.e.registry.Get(id); ok && cmd.ActuatorType == "" {
			cmd.ActuatorType = spec.Type
		}
		g.pending[id] = candidate{cmd: cmd}
		out = append(out, cmd)
	}
	return out
}

func sameIntent(a, b actuator.Command) bool {
	if a.State != b.State {
		return false
	}
	if (a.Value == nil) != (b.Value == nil) {
		return false
	}
	return a.Value == nil || *a.Value == *b.Value
}
