package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each collection in a MongoDB collection of the same name.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	feed      *changeFeed
	streaming atomic.Bool
	stop      context.CancelFunc
	now       func() time.Time
}

// ConnectMongo connects, pings, and starts forwarding change-stream events.
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "spearmint"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Printf("Connected to MongoDB database %s", dbName)

	watchCtx, stop := context.WithCancel(context.Background())
	s := &MongoStore{
		client: client,
		db:     client.Database(dbName),
		feed:   newChangeFeed(),
		stop:   stop,
		now:    time.Now,
	}
	go s.forwardChangeStream(watchCtx)
	return s, nil
}

// forwardChangeStream publishes writes made by any client of the database.
// Standalone servers have no change streams; local writes are then published
// directly by each mutation.
func (s *MongoStore) forwardChangeStream(ctx context.Context) {
	stream, err := s.db.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Change streams unavailable, live updates limited to this process: %v", err)
		}
		return
	}
	defer stream.Close(context.Background())

	s.streaming.Store(true)
	defer s.streaming.Store(false)

	for stream.Next(ctx) {
		var event struct {
			OperationType string `bson:"operationType"`
			NS            struct {
				Coll string `bson:"coll"`
			} `bson:"ns"`
			DocumentKey struct {
				ID string `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := stream.Decode(&event); err != nil {
			log.Printf("Error decoding change event: %v", err)
			continue
		}
		kind := ChangeUpdate
		switch event.OperationType {
		case "insert":
			kind = ChangeInsert
		case "delete":
			kind = ChangeDelete
		}
		s.feed.Publish(Change{Collection: event.NS.Coll, ID: event.DocumentKey.ID, Kind: kind})
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Change stream ended: %v", err)
	}
}

func (s *MongoStore) publish(change Change) {
	if s.streaming.Load() {
		return
	}
	s.feed.Publish(change)
}

func (s *MongoStore) prepareInsert(doc any, stamp []string) (bson.M, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, "", fmt.Errorf("unmarshal document: %w", err)
	}
	id := NewID()
	m["_id"] = id
	now := s.now().UTC()
	for _, field := range stamp {
		if v, ok := m[field]; !ok || v == nil {
			m[field] = now
		}
	}
	return m, id, nil
}

// Insert adds a document and returns its generated id.
func (s *MongoStore) Insert(ctx context.Context, collection string, doc any, stamp ...string) (string, error) {
	m, id, err := s.prepareInsert(doc, stamp)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	s.publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

// InsertUnique upserts with $setOnInsert so the check and the write are one
// server-side operation. Without a unique index two upserts can still race.
func (s *MongoStore) InsertUnique(ctx context.Context, collection string, doc any, unique Query, stamp ...string) (string, error) {
	m, id, err := s.prepareInsert(doc, stamp)
	if err != nil {
		return "", err
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		mongoFilter(unique),
		bson.M{"$setOnInsert": m},
		options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("upsert into %s: %w", collection, err)
	}
	if res.UpsertedCount == 0 {
		return "", ErrConflict
	}
	s.publish(Change{Collection: collection, ID: id, Kind: ChangeInsert})
	return id, nil
}

// Get decodes the document with the given id into out.
func (s *MongoStore) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	return nil
}

// Find decodes every document matching q into out.
func (s *MongoStore) Find(ctx context.Context, collection string, q Query, out any) error {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: mongoField(q.OrderBy), Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Update applies fields with $set, and Increment values with $inc.
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	set, inc := bson.M{}, bson.M{}
	for field, value := range fields {
		if field == "id" || field == "_id" {
			return fmt.Errorf("cannot update document id")
		}
		switch v := value.(type) {
		case serverTimestamp:
			set[field] = s.now().UTC()
		case increment:
			inc[field] = v.by
		default:
			set[field] = value
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	s.publish(Change{Collection: collection, ID: id, Kind: ChangeUpdate})
	return nil
}

// Delete removes a document.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	s.publish(Change{Collection: collection, ID: id, Kind: ChangeDelete})
	return nil
}

// Changes subscribes to mutations of collection.
func (s *MongoStore) Changes(collection string) (<-chan Change, func()) {
	return s.feed.Subscribe(collection)
}

// Close stops the change stream and disconnects.
func (s *MongoStore) Close() error {
	s.stop()
	s.feed.closeAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func mongoFilter(q Query) bson.D {
	filter := bson.D{}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: mongoField(f.Field), Value: f.Value})
	}
	return filter
}
