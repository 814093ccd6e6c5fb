// Package entity defines the client-side records for the SMAC collections
// along with field validation and flat-diff helpers. It is a leaf package
// imported by api/, cache/, reconcile/ and mutation/ to avoid import cycles.
package entity

import "time"

// Line profiles.
const (
	ProfileVoice     = "V"
	ProfileData      = "D"
	ProfileVoiceData = "VD"
)

// Line statuses, as the backend spells them.
const (
	LineActive     = "Active"
	LineInProgress = "En cours"
	LineTerminated = "Résiliée"
)

// Device statuses, as the backend spells them.
const (
	DeviceAssigned        = "Attribué"
	DeviceInStock         = "En stock"
	DeviceOnLoan          = "En prêt"
	DeviceAwaitingReturn  = "En attente de restitution"
	DeviceReturned        = "Restitué"
	DeviceOutOfOrder      = "En panne"
	DeviceStolen          = "Volé"
)

// History operations written by the server on every mutation.
const (
	OpCreate = "Création"
	OpUpdate = "Modification"
	OpDelete = "Suppression"
)

// Line is a phone subscription record. AgentID is informational ownership,
// independent from device ownership; DeviceID may be referenced by at most
// one line at a time (enforced client-side by the reconcile package).
type Line struct {
	ID       int64  `json:"id"`
	Number   string `json:"number"`
	Profile  string `json:"profile"`
	Status   string `json:"status"`
	Comments string `json:"comments,omitempty"`
	AgentID  *int64 `json:"agentId"`
	DeviceID *int64 `json:"deviceId"`
}

// Device is a physical handset tracked by IMEI. AgentID denotes the
// current owner.
type Device struct {
	ID              int64  `json:"id"`
	IMEI            string `json:"imei"`
	PreparationDate string `json:"preparationDate,omitempty"`
	AttributionDate string `json:"attributionDate,omitempty"`
	Status          string `json:"status"`
	IsNew           bool   `json:"isNew"`
	Comments        string `json:"comments,omitempty"`
	ModelID         int64  `json:"modelId"`
	AgentID         *int64 `json:"agentId"`
}

// DeviceRef is the compact device reference embedded in Agent.
type DeviceRef struct {
	ID   int64  `json:"id"`
	IMEI string `json:"imei"`
}

// Agent is an organizational end-user who may own devices and be linked
// to lines.
type Agent struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	VIP       bool        `json:"vip"`
	ServiceID int64       `json:"serviceId"`
	Devices   []DeviceRef `json:"devices,omitempty"`
}

// Service is a reference entity with a unique title.
type Service struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Model is a handset model; brand+reference+storage form the natural key.
type Model struct {
	ID        int64  `json:"id"`
	Brand     string `json:"brand"`
	Reference string `json:"reference"`
	Storage   string `json:"storage"`
}

// User is an application account with a unique email.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

// History is an append-only audit entry, written server-side and read-only
// from this client.
type History struct {
	ID        int64     `json:"id"`
	Operation string    `json:"operation"`
	Table     string    `json:"table"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    int64     `json:"userId"`
}

// FullName returns "First Last" for display.
func (a Agent) FullName() string {
	return a.FirstName + " " + a.LastName
}

// SameAgent compares two nullable agent references.
func SameAgent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
