package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// Service stores and returns documents without interpreting them.
type Service struct {
	repo    DocumentRepository
	timeout time.Duration
}

func NewService(repo DocumentRepository, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

// Insert stores doc under a fresh id. A client-supplied "_id" is replaced.
func (s *Service) Insert(ctx context.Context, collection string, doc Document) (*InsertResult, error) {
	if !knownCollection(collection) {
		return nil, apperr.NotFound(ErrUnknownCollection.Error())
	}
	if doc == nil {
		doc = Document{}
	}
	doc["_id"] = uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.repo.Insert(ctx, collection, doc)
	if err != nil {
		return nil, apperr.Dependency("insert into "+collection, err)
	}
	return &InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (s *Service) List(ctx context.Context, collection string) ([]Document, error) {
	if !knownCollection(collection) {
		return nil, apperr.NotFound(ErrUnknownCollection.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	docs, err := s.repo.List(ctx, collection)
	if err != nil {
		return nil, apperr.Dependency("list "+collection, err)
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, collection, id string) (Document, error) {
	if !knownCollection(collection) {
		return nil, apperr.NotFound(ErrUnknownCollection.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	doc, err := s.repo.Get(ctx, collection, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("document not found")
	}
	if err != nil {
		return nil, apperr.Dependency("get from "+collection, err)
	}
	return doc, nil
}
