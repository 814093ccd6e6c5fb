package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLine(t *testing.T) {
	tests := []struct {
		name      string
		line      Line
		wantField string
	}{
		{"valid", Line{Number: "0612345678", Profile: "VD", Status: LineActive}, ""},
		{"missing number", Line{Profile: "V", Status: LineActive}, "number"},
		{"short number", Line{Number: "06123", Profile: "V", Status: LineActive}, "number"},
		{"non-digit number", Line{Number: "06123456ab", Profile: "V", Status: LineActive}, "number"},
		{"bad profile", Line{Number: "0612345678", Profile: "X", Status: LineActive}, "profile"},
		{"bad status", Line{Number: "0612345678", Profile: "D", Status: "Suspendue"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := ValidateLine(tt.line)
			if tt.wantField == "" {
				assert.True(t, fe.Ok(), "unexpected errors: %v", fe)
				return
			}

			assert.Contains(t, fe, tt.wantField)
		})
	}
}

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name      string
		device    Device
		wantField string
	}{
		{"valid", Device{IMEI: "123456789012345", Status: DeviceInStock, ModelID: 2}, ""},
		{"missing imei", Device{Status: DeviceInStock, ModelID: 2}, "imei"},
		{"short imei", Device{IMEI: "1234", Status: DeviceInStock, ModelID: 2}, "imei"},
		{"alpha imei", Device{IMEI: "12345678901234a", Status: DeviceInStock, ModelID: 2}, "imei"},
		{"bad status", Device{IMEI: "123456789012345", Status: "Perdu", ModelID: 2}, "status"},
		{"missing model", Device{IMEI: "123456789012345", Status: DeviceInStock}, "modelId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := ValidateDevice(tt.device)
			if tt.wantField == "" {
				assert.True(t, fe.Ok(), "unexpected errors: %v", fe)
				return
			}

			assert.Contains(t, fe, tt.wantField)
		})
	}
}

func TestValidateAgent(t *testing.T) {
	valid := Agent{Email: "jean.dupont@example.fr", FirstName: "Jean", LastName: "Dupont", ServiceID: 1}
	assert.True(t, ValidateAgent(valid).Ok())

	noEmail := valid
	noEmail.Email = ""
	assert.Contains(t, ValidateAgent(noEmail), "email")

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Contains(t, ValidateAgent(badEmail), "email")

	noService := valid
	noService.ServiceID = 0
	assert.Contains(t, ValidateAgent(noService), "serviceId")
}

func TestValidateSimpleEntities(t *testing.T) {
	assert.True(t, ValidateService(Service{Title: "DSI"}).Ok())
	assert.Contains(t, ValidateService(Service{}), "title")

	assert.True(t, ValidateModel(Model{Brand: "Apple", Reference: "iPhone 13", Storage: "128"}).Ok())
	assert.Contains(t, ValidateModel(Model{Brand: "Apple"}), "reference")

	assert.True(t, ValidateUser(User{Email: "admin@example.fr"}).Ok())
	assert.Contains(t, ValidateUser(User{Email: "nope"}), "email")
}

func TestSameAgent(t *testing.T) {
	a := int64(1)
	b := int64(1)
	c := int64(2)

	assert.True(t, SameAgent(nil, nil))
	assert.True(t, SameAgent(&a, &b))
	assert.False(t, SameAgent(&a, &c))
	assert.False(t, SameAgent(&a, nil))
	assert.False(t, SameAgent(nil, &a))
}
