package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const mongoImage = "mongo:7"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// startMongo runs a throwaway server and returns a store bound to it.
func startMongo(t *testing.T) *repository.MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := mongodb.Run(ctx, mongoImage)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start mongodb container: %v", err)
	}
	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongodb connection string: %v", err)
	}

	store, err := repository.NewMongoStore(ctx,
		repository.WithURI(uri),
		repository.WithDatabase("rankbench_test"),
		repository.WithCollection("zrank"),
		repository.WithLogger(logger.Named("mongostore_test")),
	)
	if err != nil {
		t.Fatalf("connect to mongodb: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestMongoStoreIntegration(t *testing.T) {
	store := startMongo(t)

	Convey("Given a MongoDB store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		_, err := store.Drop(ctx)
		So(err, ShouldBeNil)

		records := make([]model.ScoreRecord, 20)
		for i := range records {
			records[i] = model.ScoreRecord{UserID: model.UserID(i), Score: (i * 7) % 10}
		}
		So(store.InsertMany(ctx, records), ShouldBeNil)
		names, err := store.CreateIndexes(ctx, model.LeaderboardIndexes())
		So(err, ShouldBeNil)
		So(names, ShouldResemble, []string{"s_-1_u_1", "u_1", "s_-1"})

		Convey("When dropping an existing collection", func() {
			res, err := store.Drop(ctx)

			Convey("Then it reports the drop", func() {
				So(err, ShouldBeNil)
				So(res, ShouldEqual, repository.Dropped)
			})
		})

		Convey("When listing indexes", func() {
			specs, err := store.ListIndexes(ctx)

			Convey("Then the leaderboard indexes are present", func() {
				So(err, ShouldBeNil)
				So(specs, ShouldHaveLength, 3)
				for _, want := range model.LeaderboardIndexes() {
					found := false
					for _, got := range specs {
						if got.SameKeys(want) && got.Unique == want.Unique {
							found = true
						}
					}
					So(found, ShouldBeTrue)
				}
			})
		})

		Convey("When inserting a duplicate user", func() {
			err := store.InsertMany(ctx, []model.ScoreRecord{{UserID: "u3", Score: 1}})

			Convey("Then the unique index rejects it", func() {
				So(errors.Is(err, repository.ErrDuplicateKey), ShouldBeTrue)
			})
		})

		Convey("When counting and finding", func() {
			total, err := store.CountDocuments(ctx, model.Filter{})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, int64(20))

			rec, err := store.FindByUser(ctx, "u3")
			So(err, ShouldBeNil)
			So(rec.Score, ShouldEqual, 1)

			above, err := store.CountDocuments(ctx, model.ScoreAbove(rec.Score))
			So(err, ShouldBeNil)
			So(above, ShouldEqual, int64(16))

			_, err = store.FindByUser(ctx, "u20")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When explaining a hinted rank query", func() {
			stats, err := store.Explain(ctx, model.HintedQuery{
				UserID:     "u0",
				Hint:       model.RankIndex(),
				Projection: []string{model.FieldScore, model.FieldUserID},
				Limit:      1,
			})

			Convey("Then the executionStats report is decoded", func() {
				So(err, ShouldBeNil)
				So(stats.NReturned, ShouldEqual, int64(1))
				So(stats.TotalKeysExamined, ShouldBeBetweenOrEqual, int64(1), int64(20))
				So(stats.WinningStage, ShouldNotBeEmpty)
			})
		})

		Convey("When explaining with a hint that does not exist", func() {
			_, err := store.Explain(ctx, model.HintedQuery{
				UserID: "u0",
				Hint:   model.IndexSpec{Keys: []model.IndexKey{{Field: "missing", Order: model.Ascending}}},
				Limit:  1,
			})

			Convey("Then it reports a missing index", func() {
				So(errors.Is(err, repository.ErrIndexNotFound), ShouldBeTrue)
			})
		})
	})
}
