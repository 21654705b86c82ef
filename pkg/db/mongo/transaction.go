package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// codeIllegalOperation is what a standalone mongod answers when asked to
// start a transaction.
const codeIllegalOperation = 20

// ErrNoReplicaSet means the server cannot run multi-document transactions.
// Item ids are allocated and stored in one transaction, so a replica set
// (a single node one is enough) is required.
var ErrNoReplicaSet = errors.New("mongodb transactions need a replica set")

// Atomic runs fn in a transaction on a new session. The driver retries fn on
// transient errors, so fn must be safe to run more than once. Errors from fn
// are returned as they are.
func Atomic(ctx context.Context, client *mongo.Client, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})
	if isNoReplicaSet(err) {
		return fmt.Errorf("%w: %v", ErrNoReplicaSet, err)
	}
	return err
}

// NextID increments the counter field of the document matching filter and
// returns the new value. mongo.ErrNoDocuments is returned untouched when
// nothing matches, so callers can map it to their own not-found error.
func NextID(ctx context.Context, coll *mongo.Collection, filter any, field string) (int64, error) {
	var doc bson.M
	err := coll.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$inc": bson.M{field: int64(1)}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{field: 1}),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}

	switch v := doc[field].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("counter %q has type %T", field, v)
	}
}

func isNoReplicaSet(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(codeIllegalOperation)
}
