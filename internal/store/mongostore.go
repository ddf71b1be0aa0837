package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medibook-dev/medibook/pkg/schema"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore implements Store on top of a MongoDB database, one Mongo
// collection per record collection. This is the document-database variant;
// snapshots still live on disk with the Backup Manager either way.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore connects, pings and returns a store bound to dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &StorageError{Op: "mongo connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &StorageError{Op: "mongo ping", Err: err}
	}
	return &MongoStore{db: client.Database(dbName)}, nil
}

func (m *MongoStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mongoOpTimeout)
}

// toDoc flattens a record into a BSON document keyed by _id.
func toDoc(rec schema.Record) bson.M {
	doc := bson.M{}
	for k, v := range rec.Fields {
		doc[k] = v
	}
	doc["_id"] = rec.ID
	doc["createdAt"] = rec.CreatedAt
	return doc
}

// fromDoc is the inverse of toDoc.
func fromDoc(doc bson.M) schema.Record {
	rec := schema.Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_id":
			if s, ok := v.(string); ok {
				rec.ID = s
				continue
			}
		case "createdAt":
			switch ts := v.(type) {
			case primitive.DateTime:
				rec.CreatedAt = ts.Time().UTC()
				continue
			case time.Time:
				rec.CreatedAt = ts.UTC()
				continue
			}
		}
		rec.Fields[k] = v
	}
	return rec
}

func (m *MongoStore) Append(collection string, rec schema.Record) (schema.Record, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	rec = rec.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	// BSON datetimes carry millisecond precision; return what will actually
	// be durable.
	rec.CreatedAt = rec.CreatedAt.Truncate(time.Millisecond)

	if _, err := m.db.Collection(collection).InsertOne(ctx, toDoc(rec)); err != nil {
		return schema.Record{}, &StorageError{Op: "insert " + collection, Err: err}
	}
	return rec, nil
}

func (m *MongoStore) List(collection string) ([]schema.Record, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &StorageError{Op: "find " + collection, Err: err}
	}
	defer cursor.Close(ctx)

	recs := []schema.Record{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, &StorageError{Op: "decode " + collection, Err: err}
		}
		recs = append(recs, fromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, &StorageError{Op: "cursor " + collection, Err: err}
	}
	return recs, nil
}

func (m *MongoStore) ReplaceAll(collection string, recs []schema.Record) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	// Build the replacement in a staging collection and swap it in with a
	// server-side rename. Until the rename lands the old contents stay
	// readable; the rename itself is atomic, so the collection is never
	// observable holding neither the old nor the new contents.
	staging := collection + ".staging"
	stagingCol := m.db.Collection(staging)
	if err := stagingCol.Drop(ctx); err != nil {
		return &StorageError{Op: "drop staging " + collection, Err: err}
	}
	if err := m.db.CreateCollection(ctx, staging); err != nil {
		return &StorageError{Op: "create staging " + collection, Err: err}
	}
	if len(recs) > 0 {
		docs := make([]any, 0, len(recs))
		for _, r := range recs {
			docs = append(docs, toDoc(r))
		}
		if _, err := stagingCol.InsertMany(ctx, docs); err != nil {
			return &StorageError{Op: "stage " + collection, Err: err}
		}
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: m.db.Name() + "." + staging},
		{Key: "to", Value: m.db.Name() + "." + collection},
		{Key: "dropTarget", Value: true},
	}
	if err := m.db.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return &StorageError{Op: "swap " + collection, Err: err}
	}
	return nil
}

func (m *MongoStore) UpdateField(collection, id string, patch map[string]any) (schema.Record, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	set := bson.M{}
	for k, v := range patch {
		switch k {
		case "id", "_id":
			// Identity is never patchable.
		case "createdAt":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					set["createdAt"] = ts
				}
			}
		default:
			set[k] = v
		}
	}

	// Mongo rejects an empty $set, so a patch with nothing applicable
	// degrades to a plain lookup.
	var res *mongo.SingleResult
	if len(set) == 0 {
		res = m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id})
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		res = m.db.Collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts)
	}

	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return schema.Record{}, ErrNotFound
		}
		return schema.Record{}, &StorageError{Op: "update " + collection, Err: err}
	}
	return fromDoc(doc), nil
}

func (m *MongoStore) RemoveAll(collection string) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	if _, err := m.db.Collection(collection).DeleteMany(ctx, bson.M{}); err != nil {
		return &StorageError{Op: "clear " + collection, Err: err}
	}
	return nil
}
