// Package reconcile decides what a line create or update implies for
// device and agent ownership. Given the current cached collections and a
// prospective line, it classifies the scenario and returns either an
// immediate commit or a confirmation prompt whose choices carry complete
// side-effect plans. Decisions are plain values: nothing here captures
// mutable state, performs I/O, or talks to the presenter.
package reconcile

import (
	"fmt"

	"github.com/gestion-smac/smacctl/internal/entity"
)

// Caches is the read-only view of the collections the engine inspects.
type Caches struct {
	Lines   []entity.Line
	Devices []entity.Device
	Agents  []entity.Agent
}

// OwnerWrite is a device-owner side effect accompanying a line mutation.
// A nil AgentID strips the owner.
type OwnerWrite struct {
	DeviceID int64
	AgentID  *int64
}

// Plan carries everything needed to complete a line mutation: the
// finalized payload (agent possibly auto-filled) and the accompanying
// cross-entity writes.
type Plan struct {
	Line       entity.Line
	SetOwner   *OwnerWrite
	DetachLine *int64 // other line whose deviceId must be cleared
}

// Choice is one selectable outcome of a prompt.
type Choice struct {
	Label string
	Plan  Plan
}

// Prompt is the scenario-specific confirmation to present. One choice
// means confirm-or-cancel; two choices are an explicit pick with no
// default. Cancel is always available and never part of Choices.
type Prompt struct {
	Title   string
	Message string
	Choices []Choice
}

// Decision is the engine's output: either commit Plan immediately
// (Prompt nil) or present Prompt and run the chosen plan.
type Decision struct {
	Plan   *Plan
	Prompt *Prompt
}

func immediate(p Plan) Decision {
	return Decision{Plan: &p}
}

func ask(prompt Prompt) Decision {
	return Decision{Prompt: &prompt}
}

func (c Caches) device(id int64) (entity.Device, bool) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, true
		}
	}

	return entity.Device{}, false
}

// lineUsingDevice returns the line currently referencing deviceID,
// excluding the line under edit.
func (c Caches) lineUsingDevice(deviceID, excludeLineID int64) (entity.Line, bool) {
	for _, l := range c.Lines {
		if l.ID == excludeLineID {
			continue
		}

		if l.DeviceID != nil && *l.DeviceID == deviceID {
			return l, true
		}
	}

	return entity.Line{}, false
}

// AgentName returns a display name for a nullable agent reference, used
// both in prompt copy and in list output.
func (c Caches) AgentName(id *int64) string {
	return c.agentName(id)
}

// agentName returns a display name for a nullable agent reference.
func (c Caches) agentName(id *int64) string {
	if id == nil {
		return "aucun"
	}

	for _, a := range c.Agents {
		if a.ID == *id {
			return a.FullName()
		}
	}

	return fmt.Sprintf("agent n°%d", *id)
}

// duplicateNumber reports whether another line already holds the number.
func (c Caches) duplicateNumber(number string, excludeLineID int64) bool {
	for _, l := range c.Lines {
		if l.ID != excludeLineID && l.Number == number {
			return true
		}
	}

	return false
}

// ClassifyCreate evaluates a prospective line creation. The returned field
// errors (duplicate number, unknown device) block submission with no
// prompt and no network call.
func ClassifyCreate(c Caches, line entity.Line) (Decision, entity.FieldErrors) {
	if c.duplicateNumber(line.Number, 0) {
		return Decision{}, entity.FieldErrors{"number": "Ce numéro est déjà utilisé par une autre ligne"}
	}

	// No device chosen: nothing to reconcile.
	if line.DeviceID == nil {
		return immediate(Plan{Line: line}), nil
	}

	dev, ok := c.device(*line.DeviceID)
	if !ok {
		return Decision{}, entity.FieldErrors{"deviceId": "Appareil introuvable"}
	}

	if other, used := c.lineUsingDevice(dev.ID, 0); used {
		return classifyDeviceConflict(c, line, dev, other), nil
	}

	return classifyOwnership(c, line, dev), nil
}

// ClassifyUpdate evaluates a line update against the pre-edit row. Device
// and agent references are compared to the line's own prior values rather
// than treating every change as a creation.
func ClassifyUpdate(c Caches, prior, next entity.Line) (Decision, entity.FieldErrors) {
	if c.duplicateNumber(next.Number, prior.ID) {
		return Decision{}, entity.FieldErrors{"number": "Ce numéro est déjà utilisé par une autre ligne"}
	}

	deviceUnchanged := sameDevice(prior.DeviceID, next.DeviceID)

	// Neither device nor owner changed: no-op short-circuit, no prompt.
	if deviceUnchanged && entity.SameAgent(prior.AgentID, next.AgentID) {
		return immediate(Plan{Line: next}), nil
	}

	if deviceUnchanged {
		// Ownership transfer only. Without a device there is nothing to
		// keep synchronized.
		if next.DeviceID == nil {
			return immediate(Plan{Line: next}), nil
		}

		dev, ok := c.device(*next.DeviceID)
		if !ok {
			return Decision{}, entity.FieldErrors{"deviceId": "Appareil introuvable"}
		}

		return classifyOwnership(c, next, dev), nil
	}

	// Device reference changed. Dropping the device is a plain detach;
	// choosing a new one re-evaluates the full conflict logic.
	if next.DeviceID == nil {
		return immediate(Plan{Line: next}), nil
	}

	dev, ok := c.device(*next.DeviceID)
	if !ok {
		return Decision{}, entity.FieldErrors{"deviceId": "Appareil introuvable"}
	}

	if other, used := c.lineUsingDevice(dev.ID, prior.ID); used {
		return classifyDeviceConflict(c, next, dev, other), nil
	}

	return classifyOwnership(c, next, dev), nil
}

// classifyOwnership handles a device not referenced by any other line:
// the only question is who owns it afterwards.
func classifyOwnership(c Caches, line entity.Line, dev entity.Device) Decision {
	switch {
	case line.AgentID == nil && dev.AgentID != nil:
		// Two explicit choices, no default: keep the device's owner on
		// the line, or leave the line ownerless and strip the device.
		owner := c.agentName(dev.AgentID)

		withOwner := line
		withOwner.AgentID = dev.AgentID

		return ask(Prompt{
			Title:   "Appareil déjà attribué",
			Message: fmt.Sprintf("L'appareil %s appartient à %s.", dev.IMEI, owner),
			Choices: []Choice{
				{
					Label: fmt.Sprintf("Attribuer la ligne à %s", owner),
					Plan:  Plan{Line: withOwner},
				},
				{
					Label: "Laisser la ligne sans propriétaire (l'appareil perdra son propriétaire)",
					Plan:  Plan{Line: line, SetOwner: &OwnerWrite{DeviceID: dev.ID, AgentID: nil}},
				},
			},
		})

	case line.AgentID != nil && dev.AgentID == nil:
		return ask(Prompt{
			Title:   "Attribution automatique",
			Message: fmt.Sprintf("L'appareil %s sera attribué à %s.", dev.IMEI, c.agentName(line.AgentID)),
			Choices: []Choice{{
				Label: "Confirmer l'attribution",
				Plan:  Plan{Line: line, SetOwner: &OwnerWrite{DeviceID: dev.ID, AgentID: line.AgentID}},
			}},
		})

	case line.AgentID != nil && dev.AgentID != nil && *line.AgentID != *dev.AgentID:
		return ask(Prompt{
			Title: "Réattribution de l'appareil",
			Message: fmt.Sprintf("L'appareil %s sera réattribué de %s à %s.",
				dev.IMEI, c.agentName(dev.AgentID), c.agentName(line.AgentID)),
			Choices: []Choice{{
				Label: "Confirmer la réattribution",
				Plan:  Plan{Line: line, SetOwner: &OwnerWrite{DeviceID: dev.ID, AgentID: line.AgentID}},
			}},
		})

	default:
		// Same owner on both sides, or no owner anywhere: commit as-is.
		return immediate(Plan{Line: line})
	}
}

// classifyDeviceConflict handles a device already referenced by another
// line: it must be detached from that line, and the owner question is
// settled in the same prompt.
func classifyDeviceConflict(c Caches, line entity.Line, dev entity.Device, other entity.Line) Decision {
	title := "Appareil déjà affecté à une autre ligne"
	if other.AgentID == nil {
		title = "Appareil déjà affecté à une autre ligne sans propriétaire"
	}

	base := fmt.Sprintf("L'appareil %s est déjà affecté à la ligne %s.", dev.IMEI, other.Number)
	detach := other.ID

	switch {
	case line.AgentID == nil && dev.AgentID != nil:
		// Offer to carry the device's owner onto the requesting line.
		owner := c.agentName(dev.AgentID)

		withOwner := line
		withOwner.AgentID = dev.AgentID

		return ask(Prompt{
			Title: title,
			Message: fmt.Sprintf("%s Il en sera détaché et son propriétaire %s sera attribué à la ligne %s.",
				base, owner, line.Number),
			Choices: []Choice{{
				Label: fmt.Sprintf("Détacher l'appareil et attribuer la ligne à %s", owner),
				Plan:  Plan{Line: withOwner, DetachLine: &detach},
			}},
		})

	case line.AgentID == nil && other.AgentID == nil:
		// Neither current nor new owner defined.
		return ask(Prompt{
			Title:   title,
			Message: fmt.Sprintf("%s Il en sera détaché et restera sans propriétaire.", base),
			Choices: []Choice{{
				Label: "Détacher l'appareil",
				Plan:  Plan{Line: line, DetachLine: &detach},
			}},
		})

	case line.AgentID != nil && entity.SameAgent(line.AgentID, other.AgentID):
		// Same owner on both lines: detach only, ownership unchanged.
		return ask(Prompt{
			Title: title,
			Message: fmt.Sprintf("%s Il en sera détaché ; son propriétaire %s est inchangé.",
				base, c.agentName(line.AgentID)),
			Choices: []Choice{{
				Label: fmt.Sprintf("Détacher l'appareil de la ligne %s", other.Number),
				Plan:  Plan{Line: line, DetachLine: &detach},
			}},
		})

	default:
		// Owner differs (possibly stripped): detach and update the
		// device's owner to the requested value.
		return ask(Prompt{
			Title: title,
			Message: fmt.Sprintf("%s Il en sera détaché et son propriétaire deviendra %s.",
				base, c.agentName(line.AgentID)),
			Choices: []Choice{{
				Label: fmt.Sprintf("Détacher l'appareil de la ligne %s", other.Number),
				Plan:  Plan{Line: line, DetachLine: &detach, SetOwner: &OwnerWrite{DeviceID: dev.ID, AgentID: line.AgentID}},
			}},
		})
	}
}

func sameDevice(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
