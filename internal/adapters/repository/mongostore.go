package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/logger"
)

// Server error codes the store tells apart.
const (
	codeNamespaceNotFound = 26
	codeBadValue          = 2
)

const (
	explainVerbosity = "executionStats"
	idIndexName      = "_id_"
)

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
	logger logger.Logger
}

// explainReport is the part of an explain reply the store decodes.
type explainReport struct {
	QueryPlanner struct {
		WinningPlan bson.Raw `bson:"winningPlan"`
	} `bson:"queryPlanner"`
	ExecutionStats model.ExecutionStats `bson:"executionStats"`
}

// indexDescription is one entry of a listIndexes cursor.
type indexDescription struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// NewMongoStore connects to MongoDB and pings the primary so that an
// unreachable server fails here rather than on the first query.
func NewMongoStore(ctx context.Context, opts ...Option) (*MongoStore, error) {
	settings := &mongoSettings{
		uri:        DefaultURI,
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(settings)
	}

	dbName, err := databaseName(settings)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		db:     db,
		coll:   db.Collection(settings.collection),
		logger: settings.logger,
	}
	if s.logger != nil {
		s.logger.Debug(ctx, "connected to mongodb",
			logger.String("database", dbName),
			logger.String("collection", settings.collection))
	}
	return s, nil
}

// databaseName picks the explicit database, then the one in the URI path,
// then the driver default.
func databaseName(settings *mongoSettings) (string, error) {
	if settings.database != "" {
		return settings.database, nil
	}
	cs, err := connstring.ParseAndValidate(settings.uri)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return DefaultDatabase, nil
}

// Drop implements Store.Drop. The drop command is issued directly so the
// NamespaceNotFound reply of older servers is visible instead of being
// swallowed by the driver.
func (s *MongoStore) Drop(ctx context.Context) (DropResult, error) {
	defer observe(opDrop, time.Now())

	err := s.db.RunCommand(ctx, bson.D{{Key: "drop", Value: s.coll.Name()}}).Err()
	switch {
	case err == nil:
		return Dropped, nil
	case isNamespaceNotFound(err):
		return NotFound, nil
	default:
		return NotFound, fmt.Errorf("drop %s: %w", s.coll.Name(), err)
	}
}

// InsertMany implements Store.InsertMany.
func (s *MongoStore) InsertMany(ctx context.Context, records []model.ScoreRecord) error {
	defer observe(opInsert, time.Now())

	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert into %s: %w", s.coll.Name(), err)
	}
	return nil
}

// CreateIndexes implements Store.CreateIndexes.
func (s *MongoStore) CreateIndexes(ctx context.Context, specs []model.IndexSpec) ([]string, error) {
	defer observe(opCreateIndexes, time.Now())

	models := make([]mongo.IndexModel, 0, len(specs))
	for _, spec := range specs {
		if len(spec.Keys) == 0 {
			return nil, fmt.Errorf("%w: index without keys", ErrInvalidQuery)
		}
		im := mongo.IndexModel{Keys: keysDoc(spec)}
		if spec.Unique {
			im.Options = options.Index().SetUnique(true)
		}
		models = append(models, im)
	}
	names, err := s.coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return nil, fmt.Errorf("create indexes on %s: %w", s.coll.Name(), err)
	}
	return names, nil
}

// ListIndexes implements Store.ListIndexes. The implicit _id index is left out.
func (s *MongoStore) ListIndexes(ctx context.Context) ([]model.IndexSpec, error) {
	cursor, err := s.coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes on %s: %w", s.coll.Name(), err)
	}
	var descs []indexDescription
	if err := cursor.All(ctx, &descs); err != nil {
		return nil, fmt.Errorf("decode indexes on %s: %w", s.coll.Name(), err)
	}

	specs := make([]model.IndexSpec, 0, len(descs))
	for _, d := range descs {
		if d.Name == idIndexName {
			continue
		}
		spec := model.IndexSpec{Unique: d.Unique}
		for _, e := range d.Key {
			spec.Keys = append(spec.Keys, model.IndexKey{Field: e.Key, Order: sortOrder(e.Value)})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// FindByUser implements Store.FindByUser.
func (s *MongoStore) FindByUser(ctx context.Context, userID string) (model.ScoreRecord, error) {
	defer observe(opFind, time.Now())

	var rec model.ScoreRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: model.FieldUserID, Value: userID}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ScoreRecord{}, ErrNotFound
	}
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("find %s: %w", userID, err)
	}
	return rec, nil
}

// CountDocuments implements Store.CountDocuments.
func (s *MongoStore) CountDocuments(ctx context.Context, filter model.Filter) (int64, error) {
	defer observe(opCount, time.Now())

	n, err := s.coll.CountDocuments(ctx, filterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.coll.Name(), err)
	}
	return n, nil
}

// Explain implements Store.Explain. It sends the explain command by hand
// because the driver offers no explain helper for find.
func (s *MongoStore) Explain(ctx context.Context, q model.HintedQuery) (model.ExecutionStats, error) {
	defer observe(opExplain, time.Now())

	if q.Limit < 0 {
		return model.ExecutionStats{}, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}

	filter := bson.D{}
	if q.ScoreLowerBound != nil {
		filter = append(filter, bson.E{Key: model.FieldScore, Value: bson.D{{Key: "$gte", Value: *q.ScoreLowerBound}}})
	}
	filter = append(filter, bson.E{Key: model.FieldUserID, Value: q.UserID})

	find := bson.D{
		{Key: "find", Value: s.coll.Name()},
		{Key: "filter", Value: filter},
		{Key: "projection", Value: projectionDoc(q.Projection)},
		{Key: "hint", Value: keysDoc(q.Hint)},
	}
	if q.Limit > 0 {
		find = append(find, bson.E{Key: "limit", Value: q.Limit})
	}
	cmd := bson.D{
		{Key: "explain", Value: find},
		{Key: "verbosity", Value: explainVerbosity},
	}

	var report explainReport
	if err := s.db.RunCommand(ctx, cmd).Decode(&report); err != nil {
		if isBadHint(err) {
			return model.ExecutionStats{}, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Hint.Name())
		}
		return model.ExecutionStats{}, fmt.Errorf("explain find on %s: %w", s.coll.Name(), err)
	}

	stats := report.ExecutionStats
	stats.WinningStage = winningStage(report.QueryPlanner.WinningPlan)
	return stats, nil
}

// Close implements Store.Close.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func keysDoc(spec model.IndexSpec) bson.D {
	doc := make(bson.D, 0, len(spec.Keys))
	for _, k := range spec.Keys {
		doc = append(doc, bson.E{Key: k.Field, Value: k.Order})
	}
	return doc
}

func projectionDoc(fields []string) bson.D {
	doc := bson.D{{Key: "_id", Value: 0}}
	for _, f := range fields {
		doc = append(doc, bson.E{Key: f, Value: 1})
	}
	return doc
}

func filterDoc(f model.Filter) bson.D {
	doc := bson.D{}
	if f.UserID != "" {
		doc = append(doc, bson.E{Key: model.FieldUserID, Value: f.UserID})
	}
	if f.ScoreAbove != nil {
		doc = append(doc, bson.E{Key: model.FieldScore, Value: bson.D{{Key: "$gt", Value: *f.ScoreAbove}}})
	}
	return doc
}

// sortOrder normalizes the numeric types a server uses for key directions.
func sortOrder(v interface{}) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// winningStage reads the root stage of a winning plan. Servers running the
// slot based engine nest it under queryPlan.
func winningStage(plan bson.Raw) string {
	if len(plan) == 0 {
		return ""
	}
	if stage, ok := plan.Lookup("stage").StringValueOK(); ok {
		return stage
	}
	if stage, ok := plan.Lookup("queryPlan", "stage").StringValueOK(); ok {
		return stage
	}
	return ""
}

func isNamespaceNotFound(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == codeNamespaceNotFound || ce.HasErrorMessage("ns not found")
}

func isBadHint(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == codeBadValue && ce.HasErrorMessage("hint provided does not correspond to an existing index")
}
