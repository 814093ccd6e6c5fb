package mutation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

// CreateAgent adds an agent; the email uniqueness pre-check runs against
// the cache, without a network call.
func (o *Ops) CreateAgent(ctx context.Context, agent entity.Agent) (entity.Agent, error) {
	if fe := entity.ValidateAgent(agent); !fe.Ok() {
		return entity.Agent{}, &ValidationError{Fields: fe}
	}

	for _, a := range cache.Collection[entity.Agent](o.Store, cache.Agents) {
		if strings.EqualFold(a.Email, agent.Email) {
			return entity.Agent{}, &ValidationError{Fields: entity.FieldErrors{
				"email": "Cet email est déjà utilisé",
			}}
		}
	}

	m := Begin(o.Store, cache.Agents)

	temp := tempID()
	optimistic := agent
	optimistic.ID = temp

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		return append([]entity.Agent{optimistic}, agents...)
	})

	created, err := o.Client.CreateAgent(ctx, agent)
	if err != nil {
		m.Rollback()
		return entity.Agent{}, err
	}

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		out := make([]entity.Agent, len(agents))
		for i, a := range agents {
			if a.ID == temp {
				a = created
			}

			out[i] = a
		}

		return out
	})
	m.Commit()

	o.Logger.Info("agent créé", slog.Int64("id", created.ID), slog.String("email", created.Email))

	return created, nil
}

// UpdateAgent patches an agent with the computed diff.
func (o *Ops) UpdateAgent(ctx context.Context, prior, next entity.Agent) (entity.Agent, error) {
	if fe := entity.ValidateAgent(next); !fe.Ok() {
		return entity.Agent{}, &ValidationError{Fields: fe}
	}

	for _, a := range cache.Collection[entity.Agent](o.Store, cache.Agents) {
		if a.ID != prior.ID && strings.EqualFold(a.Email, next.Email) {
			return entity.Agent{}, &ValidationError{Fields: entity.FieldErrors{
				"email": "Cet email est déjà utilisé",
			}}
		}
	}

	origMap, err := entity.AsMap(prior)
	if err != nil {
		return entity.Agent{}, err
	}

	nextMap, err := entity.AsMap(next)
	if err != nil {
		return entity.Agent{}, err
	}

	diff := entity.ModifiedValues(origMap, nextMap)
	if entity.IsNoop(diff) {
		return prior, ErrNoChanges
	}

	m := Begin(o.Store, cache.Agents)

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		out := make([]entity.Agent, len(agents))
		for i, a := range agents {
			if a.ID == prior.ID {
				a = next
			}

			out[i] = a
		}

		return out
	})

	updated, err := o.Client.UpdateAgent(ctx, prior.ID, diff)
	if err != nil {
		m.Rollback()
		return entity.Agent{}, err
	}

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		out := make([]entity.Agent, len(agents))
		for i, a := range agents {
			if a.ID == prior.ID {
				a = updated
			}

			out[i] = a
		}

		return out
	})
	m.Commit()

	o.Logger.Info("agent modifié", slog.Int64("id", updated.ID))

	return updated, nil
}

// DeleteAgent removes an agent and strips their ownership from cached
// devices and lines.
func (o *Ops) DeleteAgent(ctx context.Context, id int64) error {
	m := Begin(o.Store, cache.Agents, cache.Devices, cache.Lines)

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		out := make([]entity.Agent, 0, len(agents))
		for _, a := range agents {
			if a.ID != id {
				out = append(out, a)
			}
		}

		return out
	})

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, len(devices))
		for i, d := range devices {
			if d.AgentID != nil && *d.AgentID == id {
				d.AgentID = nil
			}

			out[i] = d
		}

		return out
	})

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, len(lines))
		for i, l := range lines {
			if l.AgentID != nil && *l.AgentID == id {
				l.AgentID = nil
			}

			out[i] = l
		}

		return out
	})

	if err := o.Client.DeleteAgent(ctx, id); err != nil {
		m.Rollback()
		return err
	}

	m.Commit()

	o.Logger.Info("agent supprimé", slog.Int64("id", id))

	return nil
}
