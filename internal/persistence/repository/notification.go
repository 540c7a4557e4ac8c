package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Sender       string             `bson:"sender"`
	UserID       int64              `bson:"user_id"`
	User         string             `bson:"user"`
	Notification string             `bson:"notification"`
	Relevance    string             `bson:"relevance"`
	Read         bool               `bson:"read"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d *notificationDocument) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Sender:       d.Sender,
		UserID:       d.UserID,
		User:         d.User,
		Notification: d.Notification,
		Relevance:    domain.Relevance(d.Relevance),
		Read:         d.Read,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// NotificationRepository is the MongoDB notification store.
type NotificationRepository struct {
	db  *mongo.Database
	now func() time.Time
}

func NewNotificationRepository(database *mongo.Database) *NotificationRepository {
	return &NotificationRepository{db: database, now: time.Now}
}

var _ domain.NotificationStore = (*NotificationRepository)(nil)

func (r *NotificationRepository) collection() *mongo.Collection {
	return r.db.Collection(db.NotificationsCollection)
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	now := r.now().UTC()
	doc := notificationDocument{
		Title:        n.Title,
		Sender:       n.Sender,
		UserID:       n.UserID,
		User:         n.User,
		Notification: n.Notification,
		Relevance:    string(n.Relevance),
		Read:         n.Read,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
	if doc.Relevance == "" {
		doc.Relevance = string(domain.RelevanceLow)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	res, err := r.collection().InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = id

	return doc.toDomain(), nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var doc notificationDocument
	if err := r.collection().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *NotificationRepository) FindAll(ctx context.Context, userID int64) ([]domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []notificationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Notification, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}

func (r *NotificationRepository) UpdateByID(ctx context.Context, id string, update domain.NotificationUpdate) (*domain.Notification, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": r.now().UTC()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Notification != nil {
		set["notification"] = *update.Notification
	}
	if update.Relevance != nil {
		set["relevance"] = string(*update.Relevance)
	}
	if update.Read != nil {
		set["read"] = *update.Read
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc notificationDocument
	if err := r.collection().FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *NotificationRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string) (*domain.Notification, error) {
	read := true
	return r.UpdateByID(ctx, id, domain.NotificationUpdate{Read: &read})
}

func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotificationNotFound
	}
	return err
}
