package errx

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by the document store when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// WrapMongo maps driver errors to AppError. Missing documents keep ErrNotFound
// in the chain so callers can branch with errors.Is.
func WrapMongo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, ErrNotFound) {
		return &AppError{Kind: KindStoreFailure, Err: ErrNotFound, Status: http.StatusNotFound, Message: MongoNotFoundMessage}
	}
	return &AppError{Kind: KindStoreFailure, Err: err, Status: http.StatusBadGateway, Message: MongoErrorMessage}
}
