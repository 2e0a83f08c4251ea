package records

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type documentRepoMongo struct{ database *mongo.Database }

func NewDocumentRepoMongo(database *mongo.Database) DocumentRepository {
	return &documentRepoMongo{database: database}
}

func (r *documentRepoMongo) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if _, err := r.database.Collection(collection).InsertOne(ctx, bson.M(doc)); err != nil {
		return "", err
	}
	id, _ := doc["_id"].(string)
	return id, nil
}

func (r *documentRepoMongo) List(ctx context.Context, collection string) ([]Document, error) {
	cur, err := r.database.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	items := make([]Document, 0, len(raw))
	for _, m := range raw {
		items = append(items, Document(m))
	}
	return items, nil
}

func (r *documentRepoMongo) Get(ctx context.Context, collection, id string) (Document, error) {
	var m bson.M
	if err := r.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Document(m), nil
}
