package mutation

import (
	"context"
	"log/slog"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

// CreateDevice adds a handset. The IMEI uniqueness pre-check runs against
// the cache and fails fast locally, without a network call.
func (o *Ops) CreateDevice(ctx context.Context, device entity.Device) (entity.Device, error) {
	if fe := entity.ValidateDevice(device); !fe.Ok() {
		return entity.Device{}, &ValidationError{Fields: fe}
	}

	for _, d := range cache.Collection[entity.Device](o.Store, cache.Devices) {
		if d.IMEI == device.IMEI {
			return entity.Device{}, &ValidationError{Fields: entity.FieldErrors{
				"imei": "Cet IMEI est déjà enregistré",
			}}
		}
	}

	m := Begin(o.Store, cache.Devices, cache.Agents)

	temp := tempID()
	optimistic := device
	optimistic.ID = temp

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		return append([]entity.Device{optimistic}, devices...)
	})

	if device.AgentID != nil {
		m.Stage(cache.Agents, func(cur any) any {
			agents, _ := cur.([]entity.Agent)

			return moveDeviceRef(agents, entity.DeviceRef{ID: temp, IMEI: device.IMEI}, nil, device.AgentID)
		})
	}

	created, err := o.Client.CreateDevice(ctx, device)
	if err != nil {
		m.Rollback()
		return entity.Device{}, err
	}

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, len(devices))
		for i, d := range devices {
			if d.ID == temp {
				d = created
			}

			out[i] = d
		}

		return out
	})

	if device.AgentID != nil {
		m.Stage(cache.Agents, func(cur any) any {
			agents, _ := cur.([]entity.Agent)

			out := make([]entity.Agent, len(agents))
			for i, a := range agents {
				refs := make([]entity.DeviceRef, len(a.Devices))
				for j, r := range a.Devices {
					if r.ID == temp {
						r.ID = created.ID
					}

					refs[j] = r
				}

				a.Devices = refs
				out[i] = a
			}

			return out
		})
	}

	m.Commit()

	o.Logger.Info("appareil créé", slog.Int64("id", created.ID), slog.String("imei", created.IMEI))

	return created, nil
}

// UpdateDevice patches a handset with the computed diff; an owner change
// is mirrored into the agents cache.
func (o *Ops) UpdateDevice(ctx context.Context, prior, next entity.Device) (entity.Device, error) {
	if fe := entity.ValidateDevice(next); !fe.Ok() {
		return entity.Device{}, &ValidationError{Fields: fe}
	}

	origMap, err := entity.AsMap(prior)
	if err != nil {
		return entity.Device{}, err
	}

	nextMap, err := entity.AsMap(next)
	if err != nil {
		return entity.Device{}, err
	}

	diff := entity.ModifiedValues(origMap, nextMap)
	if entity.IsNoop(diff) {
		return prior, ErrNoChanges
	}

	m := Begin(o.Store, cache.Devices, cache.Agents)

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, len(devices))
		for i, d := range devices {
			if d.ID == prior.ID {
				d = next
			}

			out[i] = d
		}

		return out
	})

	if !entity.SameAgent(prior.AgentID, next.AgentID) {
		m.Stage(cache.Agents, func(cur any) any {
			agents, _ := cur.([]entity.Agent)

			return moveDeviceRef(agents, entity.DeviceRef{ID: prior.ID, IMEI: next.IMEI}, prior.AgentID, next.AgentID)
		})
	}

	updated, err := o.Client.UpdateDevice(ctx, prior.ID, diff)
	if err != nil {
		m.Rollback()
		return entity.Device{}, err
	}

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, len(devices))
		for i, d := range devices {
			if d.ID == prior.ID {
				d = updated
			}

			out[i] = d
		}

		return out
	})
	m.Commit()

	o.Logger.Info("appareil modifié", slog.Int64("id", updated.ID))

	return updated, nil
}

// DeleteDevice removes a handset and clears every reference to it: the
// line holding it and the owning agent's device list.
func (o *Ops) DeleteDevice(ctx context.Context, id int64) error {
	m := Begin(o.Store, cache.Devices, cache.Agents, cache.Lines)

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, 0, len(devices))
		for _, d := range devices {
			if d.ID != id {
				out = append(out, d)
			}
		}

		return out
	})

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		out := make([]entity.Agent, len(agents))
		for i, a := range agents {
			refs := make([]entity.DeviceRef, 0, len(a.Devices))
			for _, r := range a.Devices {
				if r.ID != id {
					refs = append(refs, r)
				}
			}

			a.Devices = refs
			out[i] = a
		}

		return out
	})

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, len(lines))
		for i, l := range lines {
			if l.DeviceID != nil && *l.DeviceID == id {
				l.DeviceID = nil
			}

			out[i] = l
		}

		return out
	})

	if err := o.Client.DeleteDevice(ctx, id); err != nil {
		m.Rollback()
		return err
	}

	m.Commit()

	o.Logger.Info("appareil supprimé", slog.Int64("id", id))

	return nil
}
