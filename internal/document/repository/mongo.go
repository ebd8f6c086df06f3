package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository on a MongoDB collection. The slug is the
// document _id. Update and Delete filter on author as well, so ownership is
// enforced by the store and not only by the caller.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) *MongoRepo {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, _ = col.Indexes().CreateMany(ctx, idx)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, slug string) (*models.Post, error) {
	var p models.Post
	err := m.col.FindOne(ctx, bson.M{"_id": slug}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) List(ctx context.Context, q Query) ([]*models.Post, error) {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Author != "" {
		filter["author"] = q.Author
	}
	if q.Search != "" {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}
	if q.FeaturedImage != "" {
		filter["featuredImage"] = q.FeaturedImage
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Post{}
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, slug, author string, f models.PostFields) (*models.Post, error) {
	set := bson.M{
		"title":     f.Title,
		"content":   f.Content,
		"status":    f.Status,
		"updatedAt": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if f.FeaturedImage != "" {
		set["featuredImage"] = f.FeaturedImage
	} else {
		update["$unset"] = bson.M{"featuredImage": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": slug, "author": author}, update, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, m.missOrNotOwner(ctx, slug)
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) Delete(ctx context.Context, slug, author string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": slug, "author": author})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return m.missOrNotOwner(ctx, slug)
	}
	return nil
}

func (m *MongoRepo) missOrNotOwner(ctx context.Context, slug string) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": slug})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrNotOwner
}

// legacyAuthorFields are author field names written by older clients.
var legacyAuthorFields = []string{"user", "userId"}

// MigrateAuthorField renames legacy author fields to "author" on documents
// that lack it. It returns the sum of modified counts over both passes.
func MigrateAuthorField(ctx context.Context, col *mongo.Collection) (int64, error) {
	var total int64
	for _, f := range legacyAuthorFields {
		filter := bson.M{"author": bson.M{"$exists": false}, f: bson.M{"$exists": true}}
		res, err := col.UpdateMany(ctx, filter, bson.M{"$rename": bson.M{f: "author"}})
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	// both legacy names present: author now set from the first, drop the rest
	for _, f := range legacyAuthorFields {
		res, err := col.UpdateMany(ctx, bson.M{f: bson.M{"$exists": true}}, bson.M{"$unset": bson.M{f: ""}})
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}
