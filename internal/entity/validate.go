package entity

import (
	"regexp"
	"strings"
)

// FieldErrors maps a field name to its validation message. Expected
// validation failures are values, never panics: callers branch on Ok().
type FieldErrors map[string]string

// Ok reports whether validation passed.
func (fe FieldErrors) Ok() bool { return len(fe) == 0 }

// minLineNumberLen is the minimum length of a line number.
const minLineNumberLen = 10

// imeiLen is the exact length of an IMEI.
const imeiLen = 15

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	digitRe = regexp.MustCompile(`^[0-9]+$`)
)

var lineProfiles = map[string]bool{
	ProfileVoice:     true,
	ProfileData:      true,
	ProfileVoiceData: true,
}

var lineStatuses = map[string]bool{
	LineActive:     true,
	LineInProgress: true,
	LineTerminated: true,
}

var deviceStatuses = map[string]bool{
	DeviceAssigned:       true,
	DeviceInStock:        true,
	DeviceOnLoan:         true,
	DeviceAwaitingReturn: true,
	DeviceReturned:       true,
	DeviceOutOfOrder:     true,
	DeviceStolen:         true,
}

// ValidateLine checks a line payload before any network call.
func ValidateLine(l Line) FieldErrors {
	fe := FieldErrors{}

	number := strings.TrimSpace(l.Number)

	switch {
	case number == "":
		fe["number"] = "Le numéro est obligatoire"
	case len(number) < minLineNumberLen:
		fe["number"] = "Le numéro doit contenir au moins 10 caractères"
	case !digitRe.MatchString(number):
		fe["number"] = "Le numéro ne doit contenir que des chiffres"
	}

	if !lineProfiles[l.Profile] {
		fe["profile"] = "Profil invalide (V, D ou VD)"
	}

	if !lineStatuses[l.Status] {
		fe["status"] = "Statut invalide"
	}

	return fe
}

// ValidateDevice checks a device payload before any network call.
func ValidateDevice(d Device) FieldErrors {
	fe := FieldErrors{}

	switch {
	case d.IMEI == "":
		fe["imei"] = "L'IMEI est obligatoire"
	case len(d.IMEI) != imeiLen || !digitRe.MatchString(d.IMEI):
		fe["imei"] = "L'IMEI doit contenir exactement 15 chiffres"
	}

	if !deviceStatuses[d.Status] {
		fe["status"] = "Statut invalide"
	}

	if d.ModelID == 0 {
		fe["modelId"] = "Le modèle est obligatoire"
	}

	return fe
}

// ValidateAgent checks an agent payload before any network call.
func ValidateAgent(a Agent) FieldErrors {
	fe := FieldErrors{}

	validateEmail(fe, a.Email)

	if strings.TrimSpace(a.FirstName) == "" {
		fe["firstName"] = "Le prénom est obligatoire"
	}

	if strings.TrimSpace(a.LastName) == "" {
		fe["lastName"] = "Le nom est obligatoire"
	}

	if a.ServiceID == 0 {
		fe["serviceId"] = "Le service est obligatoire"
	}

	return fe
}

// ValidateService checks a service payload before any network call.
func ValidateService(s Service) FieldErrors {
	fe := FieldErrors{}

	if strings.TrimSpace(s.Title) == "" {
		fe["title"] = "Le titre est obligatoire"
	}

	return fe
}

// ValidateModel checks a model payload before any network call.
func ValidateModel(m Model) FieldErrors {
	fe := FieldErrors{}

	if strings.TrimSpace(m.Brand) == "" {
		fe["brand"] = "La marque est obligatoire"
	}

	if strings.TrimSpace(m.Reference) == "" {
		fe["reference"] = "La référence est obligatoire"
	}

	if strings.TrimSpace(m.Storage) == "" {
		fe["storage"] = "La capacité de stockage est obligatoire"
	}

	return fe
}

// ValidateUser checks a user payload before any network call.
func ValidateUser(u User) FieldErrors {
	fe := FieldErrors{}

	validateEmail(fe, u.Email)

	return fe
}

func validateEmail(fe FieldErrors, email string) {
	switch {
	case email == "":
		fe["email"] = "L'email est obligatoire"
	case !emailRe.MatchString(email):
		fe["email"] = "L'email est invalide"
	}
}
