package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/varoOP/vinime/internal/domain"
)

const mongoCollection = "catalog"

type catalogDocument struct {
	URL        string `bson:"url"`
	Title      string `bson:"title"`
	Cover      string `bson:"cover"`
	Position   int    `bson:"position"`
	Generation string `bson:"generation"`
}

// MongoRepository stores one document per catalog entry. Each Save stamps
// the documents it writes with a fresh generation and drops the rest.
type MongoRepository struct {
	log    zerolog.Logger
	client *mongo.Client
	col    *mongo.Collection
}

func NewMongoRepository(ctx context.Context, log zerolog.Logger, uri, database string) (*MongoRepository, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to mongo")
	}

	col := client.Database(database).Collection(mongoCollection)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "failed to create url index")
	}

	r := newMongoRepository(log, col)
	r.client = client
	return r, nil
}

func newMongoRepository(log zerolog.Logger, col *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		log: log.With().Str("module", "repository").Str("backend", "mongo").Logger(),
		col: col,
	}
}

var _ domain.CatalogRepository = (*MongoRepository)(nil)

func (r *MongoRepository) Load(ctx context.Context) ([]domain.CatalogEntry, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "position", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "error querying catalog")
	}
	defer cur.Close(ctx)

	entries := []domain.CatalogEntry{}
	for cur.Next(ctx) {
		var doc catalogDocument
		if err := cur.Decode(&doc); err != nil {
			r.log.Warn().Err(err).Msg("skipping undecodable catalog document")
			continue
		}
		entries = append(entries, domain.CatalogEntry{Title: doc.Title, URL: doc.URL, CoverURL: doc.Cover})
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating catalog")
	}

	if len(entries) == 0 {
		return nil, domain.ErrCatalogNotFound
	}
	return entries, nil
}

func (r *MongoRepository) Save(ctx context.Context, entries []domain.CatalogEntry) error {
	generation := uuid.NewString()

	if len(entries) > 0 {
		models := make([]mongo.WriteModel, 0, len(entries))
		for i, e := range entries {
			doc := catalogDocument{URL: e.URL, Title: e.Title, Cover: e.CoverURL, Position: i, Generation: generation}
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"url": e.URL}).
				SetUpdate(bson.M{"$set": doc}).
				SetUpsert(true))
		}

		if _, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			return errors.Wrap(err, "error writing catalog")
		}
	}

	res, err := r.col.DeleteMany(ctx, bson.M{"generation": bson.M{"$ne": generation}})
	if err != nil {
		return errors.Wrap(err, "error pruning catalog")
	}

	r.log.Debug().Int("count", len(entries)).Int64("pruned", res.DeletedCount).Msg("stored catalog")
	return nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}
