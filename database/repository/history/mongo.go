package history

import (
	"context"
	"fmt"
	"time"

	"advisorbot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository archives transcripts in a "sessions" collection, one
// document per session with an embedded turns array.
type MongoRepository struct {
	coll *mongo.Collection
}

type sessionDoc struct {
	SessionID string        `bson:"session_id"`
	StartedAt time.Time     `bson:"started_at"`
	Turns     []models.Turn `bson:"turns"`
}

// NewMongoRepository connects to the configured Mongo deployment and
// returns the archival repository.
func NewMongoRepository(uri, dbName string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("history: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("history: mongo ping: %w", err)
	}
	return &MongoRepository{coll: client.Database(dbName).Collection("sessions")}, nil
}

func (r *MongoRepository) StartSession(ctx context.Context) (string, error) {
	now := time.Now()
	sessionID := "session_" + now.Format("20060102_150405")
	doc := sessionDoc{SessionID: sessionID, StartedAt: now, Turns: []models.Turn{}}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("history: start session: %w", err)
	}
	return sessionID, nil
}

func (r *MongoRepository) LogTurn(ctx context.Context, sessionID string, turn models.Turn) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"turns": turn}},
	)
	if err != nil {
		return fmt.Errorf("history: log turn: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("history: session %s not found", sessionID)
	}
	return nil
}

func (r *MongoRepository) GetSession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	var doc sessionDoc
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: get session: %w", err)
	}
	return doc.Turns, nil
}

func (r *MongoRepository) ListSessions(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetProjection(bson.M{"session_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var sessions []string
	for cur.Next(ctx) {
		var doc sessionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("history: decode session: %w", err)
		}
		sessions = append(sessions, doc.SessionID)
	}
	return sessions, cur.Err()
}
