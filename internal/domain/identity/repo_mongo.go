package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type userRepoMongo struct{ coll *mongo.Collection }

func NewUserRepoMongo(database *mongo.Database) UserRepository {
	return &userRepoMongo{coll: database.Collection(usersCollection)}
}

func (r *userRepoMongo) Upsert(ctx context.Context, u *User) (*UpsertResult, error) {
	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	if u.Name != "" {
		set["name"] = u.Name
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       uuid.New().String(),
			"role":      string(RoleNone),
			"createdAt": now,
		},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"email": u.Email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}
	out := &UpsertResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if id, ok := res.UpsertedID.(string); ok {
		out.UpsertedID = id
		u.ID = id
	}
	return out, nil
}

func (r *userRepoMongo) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = ParseRole(string(u.Role))
	return &u, nil
}

func (r *userRepoMongo) List(ctx context.Context) ([]*User, error) {
	return r.find(ctx, bson.M{})
}

func (r *userRepoMongo) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	return r.find(ctx, bson.M{"role": string(role)})
}

func (r *userRepoMongo) find(ctx context.Context, filter bson.M) ([]*User, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	items := []*User{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, u := range items {
		u.Role = ParseRole(string(u.Role))
	}
	return items, nil
}

func (r *userRepoMongo) SetRole(ctx context.Context, email string, role Role) (*UpdateResult, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{"role": string(role), "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (r *userRepoMongo) DeleteByID(ctx context.Context, id string) (string, int64, error) {
	var doc struct {
		Email string `bson:"email"`
	}
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return doc.Email, 1, nil
}

func (r *userRepoMongo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
