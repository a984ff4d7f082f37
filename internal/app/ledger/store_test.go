package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"howdybot/internal/app/db"
)

// testStore connects to the database named by TEST_DATABASE_URL, or skips.
func testStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping ledger integration tests")
	}

	pool, err := db.NewPool(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return New(pool)
}

// newUserID yields a fresh id so tests never collide across runs.
func newUserID() string {
	return "test-" + uuid.NewString()
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUpsertCreatesWithDefaults(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "alice"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rec, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Handle != "alice" {
		t.Fatalf("handle = %q", rec.Handle)
	}
	if rec.Currency != 500 {
		t.Fatalf("starting balance = %d, want 500", rec.Currency)
	}
	if rec.PermanentScore != 0 {
		t.Fatalf("starting score = %d, want 0", rec.PermanentScore)
	}

	// Upsert again with a new handle: record survives, handle refreshes.
	if err := store.Upsert(ctx, userID, "alice_renamed"); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	rec, err = store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Handle != "alice_renamed" || rec.Currency != 500 {
		t.Fatalf("after re-upsert: %+v", rec)
	}
}

func TestUpsertRejectsEmptyKeys(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)

	if err := store.Upsert(ctx, "", "alice"); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := store.Upsert(ctx, newUserID(), ""); err == nil {
		t.Fatal("expected error for empty handle")
	}
}

func TestAdjustCurrency(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "bob"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	balance, err := store.AdjustCurrency(ctx, userID, 250)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 750 {
		t.Fatalf("balance = %d, want 750", balance)
	}

	balance, err = store.AdjustCurrency(ctx, userID, -750)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestAdjustCurrencyInsufficientFunds(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "carol"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	balance, err := store.AdjustCurrency(ctx, userID, -501)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if balance != 500 {
		t.Fatalf("reported balance = %d, want the unchanged 500", balance)
	}

	rec, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Currency != 500 {
		t.Fatalf("stored balance = %d, rejected debit must have no effect", rec.Currency)
	}
}

func TestAdjustCurrencyUnknownUser(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)

	if _, err := store.AdjustCurrency(ctx, newUserID(), 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAdjustCurrencyConcurrentConservation(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "dave"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// 20 concurrent +10 credits and 20 concurrent -10 debits must leave the
	// balance exactly where it started.
	const workers = 20
	var wg sync.WaitGroup
	errc := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := store.AdjustCurrency(ctx, userID, 10); err != nil {
				errc <- fmt.Errorf("credit: %w", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := store.AdjustCurrency(ctx, userID, -10); err != nil {
				errc <- fmt.Errorf("debit: %w", err)
			}
		}()
	}
	wg.Wait()
	close(errc)
	// The balance can never drop below 500 - workers*10 = 300, so no debit
	// may fail either.
	for err := range errc {
		t.Fatalf("concurrent adjust: %v", err)
	}

	rec, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Currency != 500 {
		t.Fatalf("balance = %d after balanced concurrent adjustments, want 500", rec.Currency)
	}
}

func TestAddScore(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "erin"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.AddScore(ctx, userID, 7); err != nil {
		t.Fatalf("AddScore: %v", err)
	}
	if err := store.AddScore(ctx, userID, 3); err != nil {
		t.Fatalf("AddScore: %v", err)
	}

	rec, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.PermanentScore != 10 {
		t.Fatalf("score = %d, want 10", rec.PermanentScore)
	}

	if err := store.AddScore(ctx, userID, -1); !errors.Is(err, ErrNegativeScore) {
		t.Fatalf("err = %v, want ErrNegativeScore", err)
	}
	if err := store.AddScore(ctx, newUserID(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMergeFeatureDataIsolatesFeatures(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)
	userID := newUserID()

	if err := store.Upsert(ctx, userID, "frank"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.MergeFeatureData(ctx, userID, "quiz", map[string]any{"score": 5}); err != nil {
		t.Fatalf("merge quiz: %v", err)
	}
	if err := store.MergeFeatureData(ctx, userID, "economy", map[string]any{"wins": 1}); err != nil {
		t.Fatalf("merge economy: %v", err)
	}
	// Merging into quiz again must leave economy untouched and only update
	// the keys provided.
	if err := store.MergeFeatureData(ctx, userID, "quiz", map[string]any{"streak": 2}); err != nil {
		t.Fatalf("re-merge quiz: %v", err)
	}

	rec, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var blob map[string]map[string]float64
	if err := json.Unmarshal(rec.FeatureData, &blob); err != nil {
		t.Fatalf("decode feature data %s: %v", rec.FeatureData, err)
	}
	if blob["quiz"]["score"] != 5 || blob["quiz"]["streak"] != 2 {
		t.Fatalf("quiz blob = %v", blob["quiz"])
	}
	if blob["economy"]["wins"] != 1 {
		t.Fatalf("economy blob = %v", blob["economy"])
	}

	if err := store.MergeFeatureData(ctx, userID, "", nil); err == nil {
		t.Fatal("expected error for empty feature key")
	}
	if err := store.MergeFeatureData(ctx, newUserID(), "quiz", map[string]any{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetUnknownUser(t *testing.T) {
	store := testStore(t)
	ctx := testCtx(t)

	if _, err := store.Get(ctx, newUserID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
