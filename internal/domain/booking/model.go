package booking

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrConflict means the dedup key is taken but the holder could not be read.
	ErrConflict = errors.New("booking already exists")
	// ErrDuplicateTransaction means a receipt with the transaction id exists.
	ErrDuplicateTransaction = errors.New("payment transaction already recorded")
)

// Booking reserves one slot of one treatment on one date for a patient.
// (Treatment, Date, Patient) is unique.
type Booking struct {
	ID            string    `json:"_id" bson:"_id"`
	Treatment     string    `json:"treatment" bson:"treatment"`
	Date          string    `json:"date" bson:"date"`
	Slot          string    `json:"slot" bson:"slot"`
	Patient       string    `json:"patient" bson:"patient"`
	PatientName   string    `json:"patientName,omitempty" bson:"patientName,omitempty"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Price         float64   `json:"price,omitempty" bson:"price,omitempty"`
	Doctor        string    `json:"doctor,omitempty" bson:"doctor,omitempty"`
	Status        string    `json:"status,omitempty" bson:"status,omitempty"`
	Paid          bool      `json:"paid" bson:"paid"`
	TransactionID string    `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// PaymentReceipt records one confirmed payment. It is never modified.
type PaymentReceipt struct {
	ID            string    `json:"_id" bson:"_id"`
	BookingID     string    `json:"booking" bson:"booking"`
	TransactionID string    `json:"transactionId" bson:"transactionId"`
	Amount        float64   `json:"price,omitempty" bson:"price,omitempty"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// PaymentRequest is the client payload confirming a payment.
type PaymentRequest struct {
	TransactionID string  `json:"transactionId"`
	Price         float64 `json:"price"`
	Email         string  `json:"email"`
}

// CreateResult is the outcome of a create request. Success is false when a
// booking with the same dedup key already existed; Booking is then that
// existing record.
type CreateResult struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking"`
}

// UpdateResult reports how many bookings an update touched. A zero
// MatchedCount means the id did not exist.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type IntentRequest struct {
	Price float64 `json:"price"`
}

type IntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}
