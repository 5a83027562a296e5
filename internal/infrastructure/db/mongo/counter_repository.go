package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CounterRepository implements ports.SequenceGenerator with one document
// per sequence name in the counters collection.
type CounterRepository struct {
	col *mongo.Collection
}

func NewCounterRepository(db *mongo.Database) *CounterRepository {
	return &CounterRepository{col: db.Collection(collectionCounters)}
}

type counterDoc struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// Next atomically increments the named sequence, creating it at 1.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return doc.Seq, nil
}
