package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	bookingsCollection = "bookings"
	paymentsCollection = "payments"
)

type bookingRepoMongo struct {
	client   *mongo.Client
	bookings *mongo.Collection
	payments *mongo.Collection
}

// NewRepoMongo requires a replica set deployment; payment confirmation runs
// in a multi-document transaction.
func NewRepoMongo(database *mongo.Database) Repository {
	return &bookingRepoMongo{
		client:   database.Client(),
		bookings: database.Collection(bookingsCollection),
		payments: database.Collection(paymentsCollection),
	}
}

func (r *bookingRepoMongo) CreateIfAbsent(ctx context.Context, b *Booking) (*Booking, bool, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	key := bson.M{"treatment": b.Treatment, "date": b.Date, "patient": b.Patient}
	onInsert := bson.M{
		"_id":       b.ID,
		"slot":      b.Slot,
		"paid":      b.Paid,
		"createdAt": b.CreatedAt,
	}
	for field, v := range map[string]string{
		"patientName":   b.PatientName,
		"phone":         b.Phone,
		"doctor":        b.Doctor,
		"status":        b.Status,
		"transactionId": b.TransactionID,
	} {
		if v != "" {
			onInsert[field] = v
		}
	}
	if b.Price != 0 {
		onInsert["price"] = b.Price
	}

	var existing Booking
	err := r.bookings.FindOneAndUpdate(ctx, key, bson.M{"$setOnInsert": onInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return b, true, nil
	case err == nil:
		return &existing, false, nil
	case mongo.IsDuplicateKeyError(err):
		// A concurrent upsert inserted first.
		if err := r.bookings.FindOne(ctx, key).Decode(&existing); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, false, ErrConflict
			}
			return nil, false, err
		}
		return &existing, false, nil
	default:
		return nil, false, err
	}
}

func (r *bookingRepoMongo) GetByID(ctx context.Context, id string) (*Booking, error) {
	var b Booking
	if err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoMongo) ListByDate(ctx context.Context, date string) ([]*Booking, error) {
	return r.find(ctx, bson.M{"date": date})
}

func (r *bookingRepoMongo) ListByPatient(ctx context.Context, patient string) ([]*Booking, error) {
	return r.find(ctx, bson.M{"patient": patient})
}

func (r *bookingRepoMongo) ListByDoctor(ctx context.Context, doctor string) ([]*Booking, error) {
	return r.find(ctx, bson.M{"doctor": doctor})
}

func (r *bookingRepoMongo) ListAll(ctx context.Context) ([]*Booking, error) {
	return r.find(ctx, bson.M{})
}

func (r *bookingRepoMongo) find(ctx context.Context, filter bson.M) ([]*Booking, error) {
	cur, err := r.bookings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	items := []*Booking{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *bookingRepoMongo) SetStatus(ctx context.Context, id, status string) (*UpdateResult, error) {
	res, err := r.bookings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (r *bookingRepoMongo) ConfirmPayment(ctx context.Context, id string, receipt *PaymentReceipt) (*UpdateResult, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	receipt.BookingID = id

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		upd, err := r.bookings.UpdateOne(sc, bson.M{"_id": id}, bson.M{
			"$set": bson.M{"paid": true, "transactionId": receipt.TransactionID},
		})
		if err != nil {
			return nil, err
		}
		if upd.MatchedCount == 0 {
			return nil, errNoBooking
		}
		if _, err := r.payments.InsertOne(sc, receipt); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrDuplicateTransaction
			}
			return nil, err
		}
		return &UpdateResult{MatchedCount: upd.MatchedCount, ModifiedCount: upd.ModifiedCount}, nil
	})
	if errors.Is(err, errNoBooking) {
		return &UpdateResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out.(*UpdateResult), nil
}
