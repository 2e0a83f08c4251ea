package catalog

import "errors"

var ErrNotFound = errors.New("service not found")

// Service is a bookable treatment with its full, ordered slot menu.
type Service struct {
	ID    string   `json:"_id" bson:"_id"`
	Name  string   `json:"name" bson:"name"`
	Slots []string `json:"slots" bson:"slots"`
	Price float64  `json:"price" bson:"price"`
}

// ServiceName is the projection returned by the service listing.
type ServiceName struct {
	ID   string `json:"_id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// Reservation is the part of a booking that occupies a slot.
type Reservation struct {
	Treatment string
	Slot      string
}
