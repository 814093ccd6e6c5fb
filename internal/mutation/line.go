package mutation

import (
	"context"
	"log/slog"

	"github.com/gestion-smac/smacctl/internal/api"
	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
	"github.com/gestion-smac/smacctl/internal/reconcile"
)

// Ops executes entity mutations against the store and the backend. The
// store is the only writer path for every cached collection.
type Ops struct {
	Store  *cache.Store
	Client *api.Client
	Logger *slog.Logger
}

// lineKeys are the caches a line mutation may touch: its own collection
// plus the ownership fields mirrored in devices and agents.
var lineKeys = []cache.Key{cache.Lines, cache.Devices, cache.Agents}

// CreateLine commits a reconciled line-creation plan: optimistic cache
// writes, the POST, the accompanying ownership writes, then reconciliation
// of the client-temporary ID with the server-assigned one.
func (o *Ops) CreateLine(ctx context.Context, plan reconcile.Plan) (entity.Line, error) {
	if fe := entity.ValidateLine(plan.Line); !fe.Ok() {
		return entity.Line{}, &ValidationError{Fields: fe}
	}

	m := Begin(o.Store, lineKeys...)

	temp := tempID()
	optimistic := plan.Line
	optimistic.ID = temp

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		return append([]entity.Line{optimistic}, detachDeviceFromLines(lines, optimistic)...)
	})
	o.stageOwnerWrite(m, plan.SetOwner)

	created, err := o.Client.CreateLine(ctx, plan.Line)
	if err != nil {
		m.Rollback()
		return entity.Line{}, err
	}

	if err := o.applyPlanWrites(ctx, plan); err != nil {
		m.Rollback()
		return entity.Line{}, err
	}

	// Reconcile: swap the placeholder for the server record.
	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, len(lines))
		for i, l := range lines {
			if l.ID == temp {
				l = created
			}

			out[i] = l
		}

		return out
	})
	m.Commit()

	o.Logger.Info("ligne créée", slog.Int64("id", created.ID), slog.String("number", created.Number))

	return created, nil
}

// UpdateLine commits a reconciled line update. The diff against the
// pre-edit row is computed here: an empty diff aborts with ErrNoChanges
// before any cache or network activity.
func (o *Ops) UpdateLine(ctx context.Context, prior entity.Line, plan reconcile.Plan) (entity.Line, error) {
	if fe := entity.ValidateLine(plan.Line); !fe.Ok() {
		return entity.Line{}, &ValidationError{Fields: fe}
	}

	origMap, err := entity.AsMap(prior)
	if err != nil {
		return entity.Line{}, err
	}

	nextMap, err := entity.AsMap(plan.Line)
	if err != nil {
		return entity.Line{}, err
	}

	diff := entity.ModifiedValues(origMap, nextMap)
	if entity.IsNoop(diff) {
		return prior, ErrNoChanges
	}

	m := Begin(o.Store, lineKeys...)

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, len(lines))
		for i, l := range lines {
			if l.ID == prior.ID {
				l = plan.Line
			}

			out[i] = l
		}

		return detachDeviceFromLines(out, plan.Line)
	})
	o.stageOwnerWrite(m, plan.SetOwner)

	updated, err := o.Client.UpdateLine(ctx, prior.ID, diff)
	if err != nil {
		m.Rollback()
		return entity.Line{}, err
	}

	if err := o.applyPlanWrites(ctx, plan); err != nil {
		m.Rollback()
		return entity.Line{}, err
	}

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, len(lines))
		for i, l := range lines {
			if l.ID == prior.ID {
				l = updated
			}

			out[i] = l
		}

		return out
	})
	m.Commit()

	o.Logger.Info("ligne modifiée", slog.Int64("id", updated.ID), slog.String("number", updated.Number))

	return updated, nil
}

// DeleteLine removes a line: optimistic filter-out, then the DELETE.
func (o *Ops) DeleteLine(ctx context.Context, id int64) error {
	m := Begin(o.Store, cache.Lines)

	m.Stage(cache.Lines, func(cur any) any {
		lines, _ := cur.([]entity.Line)

		out := make([]entity.Line, 0, len(lines))
		for _, l := range lines {
			if l.ID != id {
				out = append(out, l)
			}
		}

		return out
	})

	if err := o.Client.DeleteLine(ctx, id); err != nil {
		m.Rollback()
		return err
	}

	m.Commit()

	o.Logger.Info("ligne supprimée", slog.Int64("id", id))

	return nil
}

// applyPlanWrites performs the accompanying network writes of a plan: the
// other line losing the device, and the device's owner field. Any failure
// here rolls back the whole mutation, keeping all three caches consistent.
func (o *Ops) applyPlanWrites(ctx context.Context, plan reconcile.Plan) error {
	if plan.DetachLine != nil {
		diff := map[string]any{"id": *plan.DetachLine, "deviceId": nil}
		if _, err := o.Client.UpdateLine(ctx, *plan.DetachLine, diff); err != nil {
			return err
		}
	}

	if plan.SetOwner != nil {
		diff := map[string]any{"id": plan.SetOwner.DeviceID, "agentId": plan.SetOwner.AgentID}
		if _, err := o.Client.UpdateDevice(ctx, plan.SetOwner.DeviceID, diff); err != nil {
			return err
		}
	}

	return nil
}

// stageOwnerWrite mirrors a device-owner side effect into the devices and
// agents caches.
func (o *Ops) stageOwnerWrite(m *Mutation, w *reconcile.OwnerWrite) {
	if w == nil {
		return
	}

	var prevOwner *int64

	var imei string

	m.Stage(cache.Devices, func(cur any) any {
		devices, _ := cur.([]entity.Device)

		out := make([]entity.Device, len(devices))
		for i, d := range devices {
			if d.ID == w.DeviceID {
				prevOwner = d.AgentID
				imei = d.IMEI
				d.AgentID = w.AgentID
			}

			out[i] = d
		}

		return out
	})

	m.Stage(cache.Agents, func(cur any) any {
		agents, _ := cur.([]entity.Agent)

		return moveDeviceRef(agents, entity.DeviceRef{ID: w.DeviceID, IMEI: imei}, prevOwner, w.AgentID)
	})
}

// detachDeviceFromLines clears the device pointer on every line other than
// keep that references keep's device. At most one line may hold a device.
func detachDeviceFromLines(lines []entity.Line, keep entity.Line) []entity.Line {
	if keep.DeviceID == nil {
		return lines
	}

	out := make([]entity.Line, len(lines))
	for i, l := range lines {
		if l.ID != keep.ID && l.DeviceID != nil && *l.DeviceID == *keep.DeviceID {
			l.DeviceID = nil
		}

		out[i] = l
	}

	return out
}

// moveDeviceRef removes ref from the old owner's device list and appends
// it to the new owner's.
func moveDeviceRef(agents []entity.Agent, ref entity.DeviceRef, from, to *int64) []entity.Agent {
	out := make([]entity.Agent, len(agents))
	for i, a := range agents {
		switch {
		case from != nil && a.ID == *from:
			devices := make([]entity.DeviceRef, 0, len(a.Devices))
			for _, d := range a.Devices {
				if d.ID != ref.ID {
					devices = append(devices, d)
				}
			}

			a.Devices = devices
		case to != nil && a.ID == *to:
			devices := make([]entity.DeviceRef, len(a.Devices), len(a.Devices)+1)
			copy(devices, a.Devices)
			a.Devices = append(devices, ref)
		}

		out[i] = a
	}

	return out
}
