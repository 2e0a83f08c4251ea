package records

import "errors"

var (
	ErrNotFound          = errors.New("document not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

const (
	Doctors       = "doctors"
	Patients      = "patients"
	Prescriptions = "prescriptions"
	Reviews       = "reviews"
	Profiles      = "profiles"
)

// Collections lists the document collections the server accepts.
var Collections = []string{Doctors, Patients, Prescriptions, Reviews, Profiles}

func knownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Document is a schemaless record stored as submitted. "_id" carries its id.
type Document map[string]interface{}

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}
