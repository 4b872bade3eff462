package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/okian/rankbench/internal/domain/model"
)

func seedMemory(t *testing.T, records ...model.ScoreRecord) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.InsertMany(ctx, records); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if _, err := store.CreateIndexes(ctx, model.LeaderboardIndexes()); err != nil {
		t.Fatalf("unexpected index error: %v", err)
	}
	return store
}

func rankQuery(userID string) model.HintedQuery {
	return model.HintedQuery{
		UserID:     userID,
		Hint:       model.RankIndex(),
		Projection: []string{model.FieldScore, model.FieldUserID},
		Limit:      1,
	}
}

func TestMemoryStore_DropReportsMissingCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, err := store.Drop(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != NotFound {
		t.Errorf("expected %s, got %s", NotFound, res)
	}

	if err := store.InsertMany(ctx, []model.ScoreRecord{{UserID: "u0", Score: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err = store.Drop(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Dropped {
		t.Errorf("expected %s, got %s", Dropped, res)
	}

	n, err := store.CountDocuments(ctx, model.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store after drop, got %d", n)
	}
	indexes, _ := store.ListIndexes(ctx)
	if len(indexes) != 0 {
		t.Errorf("expected indexes to be dropped, got %d", len(indexes))
	}
}

func TestMemoryStore_InsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t, model.ScoreRecord{UserID: "u0", Score: 5})

	err := store.InsertMany(ctx, []model.ScoreRecord{{UserID: "u1", Score: 1}, {UserID: "u0", Score: 9}})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	// The rejected batch must not be partially applied.
	if _, err := store.FindByUser(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected u1 to be absent, got %v", err)
	}

	err = store.InsertMany(ctx, []model.ScoreRecord{{UserID: "u7", Score: 1}, {UserID: "u7", Score: 2}})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey within a batch, got %v", err)
	}
}

func TestMemoryStore_CreateIndexesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t)

	names, err := store.CreateIndexes(ctx, model.LeaderboardIndexes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 3 || names[0] != "s_-1_u_1" {
		t.Errorf("unexpected index names %v", names)
	}
	indexes, err := store.ListIndexes(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indexes) != 3 {
		t.Errorf("expected 3 indexes, got %d", len(indexes))
	}

	if _, err := store.CreateIndexes(ctx, []model.IndexSpec{{}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for empty spec, got %v", err)
	}
}

func TestMemoryStore_FindAndCount(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t,
		model.ScoreRecord{UserID: "u0", Score: 10},
		model.ScoreRecord{UserID: "u1", Score: 30},
		model.ScoreRecord{UserID: "u2", Score: 20},
		model.ScoreRecord{UserID: "u3", Score: 20},
	)

	rec, err := store.FindByUser(ctx, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Score != 20 {
		t.Errorf("expected score 20, got %d", rec.Score)
	}
	if _, err := store.FindByUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	cases := []struct {
		filter model.Filter
		want   int64
	}{
		{model.Filter{}, 4},
		{model.ScoreAbove(30), 0},
		{model.ScoreAbove(20), 1},
		{model.ScoreAbove(19), 3},
		{model.ScoreAbove(-1), 4},
		{model.Filter{UserID: "u1"}, 1},
		{model.Filter{UserID: "nobody"}, 0},
	}
	for i, tc := range cases {
		got, err := store.CountDocuments(ctx, tc.filter)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got != tc.want {
			t.Errorf("case %d: expected %d, got %d", i, tc.want, got)
		}
	}
}

func TestMemoryStore_ExplainCountsKeysToMatch(t *testing.T) {
	ctx := context.Background()
	// Index order: u1(30) u2(20) u3(20) u0(10)
	store := seedMemory(t,
		model.ScoreRecord{UserID: "u0", Score: 10},
		model.ScoreRecord{UserID: "u1", Score: 30},
		model.ScoreRecord{UserID: "u2", Score: 20},
		model.ScoreRecord{UserID: "u3", Score: 20},
	)

	want := map[string]int64{"u1": 1, "u2": 2, "u3": 3, "u0": 4}
	for id, keys := range want {
		stats, err := store.Explain(ctx, rankQuery(id))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", id, err)
		}
		if stats.TotalKeysExamined != keys {
			t.Errorf("%s: expected %d keys examined, got %d", id, keys, stats.TotalKeysExamined)
		}
		if stats.NReturned != 1 {
			t.Errorf("%s: expected one document returned, got %d", id, stats.NReturned)
		}
		if stats.TotalDocsExamined != 1 {
			t.Errorf("%s: expected the match to be fetched, got %d docs", id, stats.TotalDocsExamined)
		}
		if stats.WinningStage != stageProjection {
			t.Errorf("%s: unexpected stage %q", id, stats.WinningStage)
		}
	}

	miss, err := store.Explain(ctx, rankQuery("nobody"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if miss.NReturned != 0 || miss.TotalKeysExamined != 4 {
		t.Errorf("expected a full scan on miss, got %+v", miss)
	}
}

func TestMemoryStore_ExplainCoveredWithLowerBound(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t,
		model.ScoreRecord{UserID: "u0", Score: 0},
		model.ScoreRecord{UserID: "u1", Score: 7},
		model.ScoreRecord{UserID: "u2", Score: 3},
	)

	q := rankQuery("u2")
	zero := 0
	q.ScoreLowerBound = &zero
	stats, err := store.Explain(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.Covered() {
		t.Errorf("expected a covered plan, got %+v", stats)
	}
	if stats.WinningStage != stageCovered {
		t.Errorf("expected stage %s, got %s", stageCovered, stats.WinningStage)
	}
	if stats.TotalKeysExamined != 2 {
		t.Errorf("expected 2 keys examined, got %d", stats.TotalKeysExamined)
	}

	// A user below the bound is out of range.
	five := 5
	q = rankQuery("u2")
	q.ScoreLowerBound = &five
	stats, err = store.Explain(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.NReturned != 0 || stats.TotalKeysExamined != 1 {
		t.Errorf("expected only the in-bounds key to be scanned, got %+v", stats)
	}
}

func TestMemoryStore_ExplainCoveredCountsLikePlain(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t,
		model.ScoreRecord{UserID: "u0", Score: 4},
		model.ScoreRecord{UserID: "u1", Score: 9},
		model.ScoreRecord{UserID: "u2", Score: 4},
	)

	plain, err := store.Explain(ctx, rankQuery("u2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := rankQuery("u2")
	zero := 0
	q.ScoreLowerBound = &zero
	covered, err := store.Explain(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the plan shape differs; the count is the position in index order.
	if plain.TotalKeysExamined != 3 || covered.TotalKeysExamined != plain.TotalKeysExamined {
		t.Errorf("expected both counts to be 3, got plain %d covered %d",
			plain.TotalKeysExamined, covered.TotalKeysExamined)
	}
	if plain.Covered() || !covered.Covered() {
		t.Errorf("expected only the bounded query to be covered")
	}
}

func TestMemoryStore_ExplainOtherHints(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t,
		model.ScoreRecord{UserID: "u0", Score: 1},
		model.ScoreRecord{UserID: "u1", Score: 2},
	)

	q := rankQuery("u0")
	q.Hint = model.UserIndex()
	stats, err := store.Explain(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalKeysExamined != 1 || stats.NReturned != 1 {
		t.Errorf("expected a point lookup, got %+v", stats)
	}

	q = rankQuery("u0")
	q.Hint = model.ScoreIndex()
	stats, err = store.Explain(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalKeysExamined != 2 || stats.TotalDocsExamined != 2 {
		t.Errorf("expected every scanned key to be fetched, got %+v", stats)
	}
}

func TestMemoryStore_ExplainErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.InsertMany(ctx, []model.ScoreRecord{{UserID: "u0", Score: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Explain(ctx, rankQuery("u0")); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound before indexes exist, got %v", err)
	}

	q := rankQuery("u0")
	q.Limit = -1
	if _, err := store.Explain(ctx, q); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestMemoryStore_CloseBehavior(t *testing.T) {
	ctx := context.Background()
	store := seedMemory(t, model.ScoreRecord{UserID: "u0", Score: 1})
	if err := store.Close(ctx); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if _, err := store.Drop(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Drop: expected ErrStoreClosed, got %v", err)
	}
	if err := store.InsertMany(ctx, nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("InsertMany: expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.FindByUser(ctx, "u0"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("FindByUser: expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.CountDocuments(ctx, model.Filter{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("CountDocuments: expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.Explain(ctx, rankQuery("u0")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Explain: expected ErrStoreClosed, got %v", err)
	}
}

// TestMemoryStore_RankCorrectnessUnderLoad checks the treap against a sorted
// slice for both the strictly-greater count and the scan position.
func TestMemoryStore_RankCorrectnessUnderLoad(t *testing.T) {
	ctx := context.Background()
	const total = 2000
	rng := rand.New(rand.NewPCG(1, 2))

	records := make([]model.ScoreRecord, total)
	for i := range records {
		records[i] = model.ScoreRecord{UserID: model.UserID(i), Score: rng.IntN(100)}
	}
	store := seedMemory(t, records...)

	sorted := append([]model.ScoreRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i].Score, sorted[i].UserID, sorted[j].Score, sorted[j].UserID)
	})

	for pos, rec := range sorted {
		if pos%97 != 0 {
			continue
		}
		stats, err := store.Explain(ctx, rankQuery(rec.UserID))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.TotalKeysExamined != int64(pos+1) {
			t.Errorf("%s: expected %d keys, got %d", rec.UserID, pos+1, stats.TotalKeysExamined)
		}

		var above int64
		for _, other := range records {
			if other.Score > rec.Score {
				above++
			}
		}
		got, err := store.CountDocuments(ctx, model.ScoreAbove(rec.Score))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != above {
			t.Errorf("%s: expected %d above, got %d", rec.UserID, above, got)
		}
	}
}

func TestDropResultString(t *testing.T) {
	for res, want := range map[DropResult]string{Dropped: "dropped", NotFound: "not_found", DropResult(9): "unknown"} {
		if got := fmt.Sprint(res); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, KindMemory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}

	if _, err := Open(ctx, "redis"); !errors.Is(err, ErrUnknownStore) {
		t.Errorf("expected ErrUnknownStore, got %v", err)
	}
}

func BenchmarkMemoryStore_Explain(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore()
	const total = 100_000
	records := make([]model.ScoreRecord, total)
	for i := range records {
		records[i] = model.ScoreRecord{UserID: model.UserID(i), Score: rand.IntN(10_000)}
	}
	if err := store.InsertMany(ctx, records); err != nil {
		b.Fatal(err)
	}
	if _, err := store.CreateIndexes(ctx, model.LeaderboardIndexes()); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Explain(ctx, rankQuery(model.UserID(rand.IntN(total)))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoryStore_CountAbove(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore()
	const total = 100_000
	records := make([]model.ScoreRecord, total)
	for i := range records {
		records[i] = model.ScoreRecord{UserID: model.UserID(i), Score: rand.IntN(10_000)}
	}
	if err := store.InsertMany(ctx, records); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.CountDocuments(ctx, model.ScoreAbove(rand.IntN(10_000))); err != nil {
			b.Fatal(err)
		}
	}
}
