package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/postgres"
	"github.com/shopspring/decimal"
)

// Runs only against a real database: BOOKSWAP_TEST_POSTGRES_DSN=postgres://...
func testEngine(t *testing.T) (*orders.Engine, *orders.Repo) {
	t.Helper()
	dsn := os.Getenv("BOOKSWAP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BOOKSWAP_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := &orders.Repo{DB: db}
	return orders.NewEngine(repo), repo
}

// uniqueID keeps runs against a shared database apart.
func uniqueID() int64 { return time.Now().UnixNano() / 1000 }

func TestRepoLifecycle(t *testing.T) {
	eng, repo := testEngine(t)
	ctx := context.Background()
	seller, buyer := uniqueID(), uniqueID()+1

	b, err := eng.CreateListing(ctx, seller, orders.NewListing{Title: "Dune", Price: decimal.RequireFromString("12.30")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetBook(ctx, b.ID)
	if err != nil || !got.Price.Equal(decimal.RequireFromString("12.30")) {
		t.Fatalf("get book: %+v %v", got, err)
	}

	res, err := eng.Checkout(ctx, buyer, []int64{b.ID}, orders.TypeBuy)
	if err != nil || len(res.OrderIDs) != 1 {
		t.Fatalf("checkout: %+v %v", res, err)
	}
	v, err := repo.GetOrder(ctx, res.OrderIDs[0])
	if err != nil || len(v.BookIDs) != 1 || v.BookIDs[0] != b.ID {
		t.Fatalf("order view: %+v %v", v, err)
	}

	if err := eng.Fulfill(ctx, seller, v.ID, orders.StatusCompleted); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if got, _ := repo.GetBook(ctx, b.ID); got.Status != orders.BookSold {
		t.Fatalf("book status %s", got.Status)
	}
	if err := eng.Cancel(ctx, buyer, v.ID); !errors.Is(err, orders.ErrNotCancellable) {
		t.Fatalf("want ErrNotCancellable, got %v", err)
	}

	list, err := repo.ListOrdersByBuyer(ctx, buyer)
	if err != nil || len(list) != 1 || list[0].Status != orders.StatusCompleted {
		t.Fatalf("buyer orders: %+v %v", list, err)
	}
	if _, err := repo.GetOrder(ctx, -1); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestRepoConcurrentCheckout(t *testing.T) {
	eng, repo := testEngine(t)
	ctx := context.Background()
	seller := uniqueID()

	b, err := eng.CreateListing(ctx, seller, orders.NewListing{Title: "First edition"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		buyer := seller + int64(i) + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Checkout(ctx, buyer, []int64{b.ID}, orders.TypeBuy)
			if err != nil {
				t.Errorf("buyer %d: %v", buyer, err)
				return
			}
			mu.Lock()
			wins += len(res.OrderIDs)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("want one order, got %d", wins)
	}
	if got, _ := repo.GetBook(ctx, b.ID); got.Status != orders.BookReserved {
		t.Fatalf("book status %s", got.Status)
	}
}
