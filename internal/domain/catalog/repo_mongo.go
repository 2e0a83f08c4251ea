package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const servicesCollection = "services"

type serviceRepoMongo struct{ coll *mongo.Collection }

func NewServiceRepoMongo(database *mongo.Database) ServiceRepository {
	return &serviceRepoMongo{coll: database.Collection(servicesCollection)}
}

func (r *serviceRepoMongo) List(ctx context.Context) ([]*Service, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	items := []*Service{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, s := range items {
		if s.Slots == nil {
			s.Slots = []string{}
		}
	}
	return items, nil
}

func (r *serviceRepoMongo) ListNames(ctx context.Context) ([]*ServiceName, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	items := []*ServiceName{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *serviceRepoMongo) Upsert(ctx context.Context, s *Service) error {
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	var stored Service
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"name": s.Name},
		bson.M{
			"$set":         bson.M{"slots": s.Slots, "price": s.Price},
			"$setOnInsert": bson.M{"_id": id},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return err
	}
	s.ID = stored.ID
	return nil
}
