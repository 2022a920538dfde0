package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mindcare/backend/internal/models"
)

// Mongo stores each record kind in its own collection, mirroring the
// document layout the web client was first built against.
type Mongo struct {
	client   *mongo.Client
	users    *mongo.Collection
	messages *mongo.Collection
	sessions *mongo.Collection
	moodLogs *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if database == "" {
		database = "mindcare"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	dbh := client.Database(database)
	s := &Mongo{
		client:   client,
		users:    dbh.Collection("users"),
		messages: dbh.Collection("messages"),
		sessions: dbh.Collection("sessions"),
		moodLogs: dbh.Collection("mood_logs"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	byUserTime := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}}
	for _, coll := range []*mongo.Collection{s.messages, s.sessions, s.moodLogs} {
		if _, err := coll.Indexes().CreateOne(ctx, byUserTime); err != nil {
			return fmt.Errorf("%s index: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Mongo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = stamp(user.CreatedAt)
	if user.LastActive.IsZero() {
		user.LastActive = user.CreatedAt
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, wrap("create user", err)
	}
	return user, nil
}

func (s *Mongo) findUser(ctx context.Context, op string, filter bson.M) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, wrap(op, err)
}

func (s *Mongo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, "user by email", bson.M{"email": NormalizeEmail(email)})
}

func (s *Mongo) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, "user by id", bson.M{"_id": id})
}

func (s *Mongo) updateUser(ctx context.Context, op, id string, set bson.M) (models.User, error) {
	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, wrap(op, err)
}

func (s *Mongo) UpdateProfile(ctx context.Context, id, name string) (models.User, error) {
	return s.updateUser(ctx, "update profile", id, bson.M{"name": name})
}

func (s *Mongo) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.User, error) {
	return s.updateUser(ctx, "update preferences", id, bson.M{"preferences": prefs})
}

func (s *Mongo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := s.updateUser(ctx, "touch last active", id, bson.M{"last_active": at})
	return err
}

func (s *Mongo) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = stamp(msg.Timestamp)
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, wrap("append message", err)
	}
	return msg, nil
}

func (s *Mongo) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.messages.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, wrap("list messages", err)
	}
	out := []models.Message{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrap("list messages", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Mongo) DeleteMessages(ctx context.Context, userID string) (int64, error) {
	res, err := s.messages.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, wrap("delete messages", err)
	}
	return res.DeletedCount, nil
}

func (s *Mongo) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Timestamp = stamp(session.Timestamp)
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return models.Session{}, wrap("create session", err)
	}
	return session, nil
}

func (s *Mongo) ListSessions(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.sessions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, wrap("list sessions", err)
	}
	out := []models.Session{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrap("list sessions", err)
	}
	return out, nil
}

func (s *Mongo) AppendMoodLog(ctx context.Context, log models.MoodLog) (models.MoodLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.Timestamp = stamp(log.Timestamp)
	if _, err := s.moodLogs.InsertOne(ctx, log); err != nil {
		return models.MoodLog{}, wrap("append mood log", err)
	}
	return log, nil
}

func (s *Mongo) ListMoodLogs(ctx context.Context, userID string, since time.Time) ([]models.MoodLog, error) {
	filter := bson.M{"user_id": userID, "timestamp": bson.M{"$gte": since}}
	cursor, err := s.moodLogs.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, wrap("list mood logs", err)
	}
	out := []models.MoodLog{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrap("list mood logs", err)
	}
	return out, nil
}

func (s *Mongo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"timestamp": bson.M{"$lt": cutoff}}
	var removed int64
	for _, coll := range []*mongo.Collection{s.messages, s.moodLogs} {
		res, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return removed, wrap("purge "+coll.Name(), err)
		}
		removed += res.DeletedCount
	}
	return removed, nil
}
