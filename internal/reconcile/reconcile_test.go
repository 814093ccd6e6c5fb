package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion-smac/smacctl/internal/entity"
)

func ptr(v int64) *int64 { return &v }

// testCaches builds a small world: two agents, two devices, one line
// already holding device 20.
func testCaches() Caches {
	return Caches{
		Agents: []entity.Agent{
			{ID: 1, FirstName: "Jean", LastName: "Dupont", Email: "jean.dupont@example.fr", ServiceID: 1},
			{ID: 2, FirstName: "Marie", LastName: "Curie", Email: "marie.curie@example.fr", ServiceID: 1},
		},
		Devices: []entity.Device{
			{ID: 10, IMEI: "111111111111111", Status: entity.DeviceInStock, ModelID: 1},
			{ID: 20, IMEI: "222222222222222", Status: entity.DeviceAssigned, ModelID: 1, AgentID: ptr(2)},
		},
		Lines: []entity.Line{
			{ID: 100, Number: "0611111111", Profile: "V", Status: entity.LineActive, DeviceID: ptr(20)},
		},
	}
}

func newLine(device, agent *int64) entity.Line {
	return entity.Line{Number: "5551234567", Profile: "VD", Status: entity.LineActive, DeviceID: device, AgentID: agent}
}

func TestClassifyCreate_DuplicateNumberBlocks(t *testing.T) {
	c := testCaches()

	line := newLine(nil, nil)
	line.Number = "0611111111"

	dec, fe := ClassifyCreate(c, line)
	require.Contains(t, fe, "number")
	assert.Nil(t, dec.Plan)
	assert.Nil(t, dec.Prompt)
}

func TestClassifyCreate_NoDevice_Immediate(t *testing.T) {
	dec, fe := ClassifyCreate(testCaches(), newLine(nil, ptr(1)))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Plan)
	assert.Nil(t, dec.Prompt)
	assert.Nil(t, dec.Plan.SetOwner)
	assert.Nil(t, dec.Plan.DetachLine)
}

func TestClassifyCreate_UnknownDevice_FieldError(t *testing.T) {
	_, fe := ClassifyCreate(testCaches(), newLine(ptr(999), nil))
	assert.Contains(t, fe, "deviceId")
}

func TestClassifyCreate_UnlinkedDevice_NoAgentChosen_OwnedDevice(t *testing.T) {
	// Device 10 is free of lines; give it an owner for this case.
	c := testCaches()
	c.Devices[0].AgentID = ptr(2)

	dec, fe := ClassifyCreate(c, newLine(ptr(10), nil))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)

	// Two explicit choices, no default.
	require.Len(t, dec.Prompt.Choices, 2)

	adopt := dec.Prompt.Choices[0].Plan
	require.NotNil(t, adopt.Line.AgentID)
	assert.Equal(t, int64(2), *adopt.Line.AgentID)
	assert.Nil(t, adopt.SetOwner)

	strip := dec.Prompt.Choices[1].Plan
	assert.Nil(t, strip.Line.AgentID)
	require.NotNil(t, strip.SetOwner)
	assert.Equal(t, int64(10), strip.SetOwner.DeviceID)
	assert.Nil(t, strip.SetOwner.AgentID)
}

func TestClassifyCreate_UnlinkedDevice_AgentChosen_OwnerlessDevice(t *testing.T) {
	dec, fe := ClassifyCreate(testCaches(), newLine(ptr(10), ptr(1)))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	require.Len(t, dec.Prompt.Choices, 1)

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.SetOwner)
	assert.Equal(t, int64(10), plan.SetOwner.DeviceID)
	assert.Equal(t, int64(1), *plan.SetOwner.AgentID)
}

func TestClassifyCreate_UnlinkedDevice_SameOwner_Immediate(t *testing.T) {
	// Attaching a device already owned by agent A to a line also
	// requesting owner A commits without any confirmation prompt.
	c := testCaches()
	c.Devices[0].AgentID = ptr(1)

	dec, fe := ClassifyCreate(c, newLine(ptr(10), ptr(1)))
	require.True(t, fe.Ok())
	assert.Nil(t, dec.Prompt)
	require.NotNil(t, dec.Plan)
	assert.Nil(t, dec.Plan.SetOwner)
}

func TestClassifyCreate_UnlinkedDevice_DifferentOwner_Reassign(t *testing.T) {
	c := testCaches()
	c.Devices[0].AgentID = ptr(2)

	dec, fe := ClassifyCreate(c, newLine(ptr(10), ptr(1)))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	assert.Contains(t, dec.Prompt.Message, "réattribué")

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.SetOwner)
	assert.Equal(t, int64(1), *plan.SetOwner.AgentID)
}

func TestClassifyCreate_UnlinkedDevice_NoOwners_Immediate(t *testing.T) {
	dec, fe := ClassifyCreate(testCaches(), newLine(ptr(10), nil))
	require.True(t, fe.Ok())
	assert.Nil(t, dec.Prompt)
	require.NotNil(t, dec.Plan)
}

func TestClassifyCreate_LinkedDevice_SameAgentAsOtherLine_DetachOnly(t *testing.T) {
	c := testCaches()
	c.Lines[0].AgentID = ptr(1)

	dec, fe := ClassifyCreate(c, newLine(ptr(20), ptr(1)))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.DetachLine)
	assert.Equal(t, int64(100), *plan.DetachLine)
	assert.Nil(t, plan.SetOwner, "ownership unchanged")
}

func TestClassifyCreate_LinkedDevice_DifferentAgent_DetachAndReassign(t *testing.T) {
	c := testCaches()
	c.Lines[0].AgentID = ptr(2)

	dec, fe := ClassifyCreate(c, newLine(ptr(20), ptr(1)))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.DetachLine)
	require.NotNil(t, plan.SetOwner)
	assert.Equal(t, int64(1), *plan.SetOwner.AgentID)
}

func TestClassifyCreate_LinkedDevice_NoAgentChosen_OwnerExists_AutoAssign(t *testing.T) {
	// Device 20 belongs to agent 2 via line 100, which itself has no
	// owner.
	c := testCaches()

	dec, fe := ClassifyCreate(c, newLine(ptr(20), nil))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	assert.Equal(t, "Appareil déjà affecté à une autre ligne sans propriétaire", dec.Prompt.Title)

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.Line.AgentID)
	assert.Equal(t, int64(2), *plan.Line.AgentID, "existing owner auto-assigned to the new line")
	require.NotNil(t, plan.DetachLine)
	assert.Equal(t, int64(100), *plan.DetachLine)
}

func TestClassifyCreate_LinkedDevice_NoOwnersAnywhere_DetachOwnerless(t *testing.T) {
	c := testCaches()
	c.Devices[1].AgentID = nil

	dec, fe := ClassifyCreate(c, newLine(ptr(20), nil))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	assert.Contains(t, dec.Prompt.Message, "restera sans propriétaire")

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.DetachLine)
	assert.Nil(t, plan.SetOwner)
	assert.Nil(t, plan.Line.AgentID)
}

func TestClassifyCreate_LinkedDevice_OtherLineHasOwner_TitleOmitsOwnerless(t *testing.T) {
	c := testCaches()
	c.Lines[0].AgentID = ptr(2)

	dec, fe := ClassifyCreate(c, newLine(ptr(20), nil))
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	assert.Equal(t, "Appareil déjà affecté à une autre ligne", dec.Prompt.Title)
}

func TestClassifyUpdate_DuplicateNumberExcludesSelf(t *testing.T) {
	c := testCaches()

	prior := c.Lines[0]
	next := prior
	next.Comments = "renewed"

	// Keeping its own number is not a duplicate.
	dec, fe := ClassifyUpdate(c, prior, next)
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Plan)

	// Taking another line's number is.
	c.Lines = append(c.Lines, entity.Line{ID: 101, Number: "0622222222"})
	next.Number = "0622222222"

	_, fe = ClassifyUpdate(c, prior, next)
	assert.Contains(t, fe, "number")
}

func TestClassifyUpdate_NothingChanged_Immediate(t *testing.T) {
	c := testCaches()
	prior := c.Lines[0]

	dec, fe := ClassifyUpdate(c, prior, prior)
	require.True(t, fe.Ok())
	assert.Nil(t, dec.Prompt)
	require.NotNil(t, dec.Plan)
}

func TestClassifyUpdate_AgentOnlyTransfer(t *testing.T) {
	c := testCaches()
	// Line 100 holds device 20 (owned by agent 2).
	prior := c.Lines[0]

	t.Run("new owner differs from device owner", func(t *testing.T) {
		next := prior
		next.AgentID = ptr(1)

		dec, fe := ClassifyUpdate(c, prior, next)
		require.True(t, fe.Ok())
		require.NotNil(t, dec.Prompt)

		plan := dec.Prompt.Choices[0].Plan
		require.NotNil(t, plan.SetOwner)
		assert.Equal(t, int64(1), *plan.SetOwner.AgentID)
	})

	t.Run("new owner equals device owner", func(t *testing.T) {
		next := prior
		next.AgentID = ptr(2)

		dec, fe := ClassifyUpdate(c, prior, next)
		require.True(t, fe.Ok())
		assert.Nil(t, dec.Prompt)
	})

	t.Run("owner cleared while device has one", func(t *testing.T) {
		withOwner := prior
		withOwner.AgentID = ptr(2)

		next := withOwner
		next.AgentID = nil

		dec, fe := ClassifyUpdate(c, withOwner, next)
		require.True(t, fe.Ok())
		require.NotNil(t, dec.Prompt)
		assert.Len(t, dec.Prompt.Choices, 2)
	})

	t.Run("agent change with no device", func(t *testing.T) {
		bare := entity.Line{ID: 200, Number: "0633333333", Profile: "D", Status: entity.LineActive}
		next := bare
		next.AgentID = ptr(1)

		cc := testCaches()
		cc.Lines = append(cc.Lines, bare)

		dec, fe := ClassifyUpdate(cc, bare, next)
		require.True(t, fe.Ok())
		assert.Nil(t, dec.Prompt)
	})
}

func TestClassifyUpdate_DeviceDropped_Immediate(t *testing.T) {
	c := testCaches()
	prior := c.Lines[0]

	next := prior
	next.DeviceID = nil

	dec, fe := ClassifyUpdate(c, prior, next)
	require.True(t, fe.Ok())
	assert.Nil(t, dec.Prompt)
	require.NotNil(t, dec.Plan)
}

func TestClassifyUpdate_DeviceChanged_FullReevaluation(t *testing.T) {
	c := testCaches()
	c.Lines = append(c.Lines, entity.Line{ID: 101, Number: "0644444444", Profile: "V", Status: entity.LineActive})

	prior := c.Lines[1]
	next := prior
	next.DeviceID = ptr(20) // already used by line 100, owned by agent 2

	dec, fe := ClassifyUpdate(c, prior, next)
	require.True(t, fe.Ok())
	require.NotNil(t, dec.Prompt)
	assert.Contains(t, dec.Prompt.Message, "0611111111", "prompt names the other line's number")

	plan := dec.Prompt.Choices[0].Plan
	require.NotNil(t, plan.DetachLine)
	assert.Equal(t, int64(100), *plan.DetachLine)
}

func TestClassifyUpdate_DeviceChanged_ExcludesOwnPriorLink(t *testing.T) {
	// The edited line itself holds the device; swapping to the same device
	// through an edit must not count the line as "another line".
	c := testCaches()
	prior := c.Lines[0]

	next := prior
	next.AgentID = ptr(2) // equals device owner, device unchanged

	dec, fe := ClassifyUpdate(c, prior, next)
	require.True(t, fe.Ok())
	assert.Nil(t, dec.Prompt)
}
