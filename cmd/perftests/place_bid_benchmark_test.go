package perftests

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// Benchmark 1: PlaceBid - Isolated Listings (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	for _, tc := range []struct {
		name  string
		setup func(testing.TB, int, int) *fixture
	}{
		{"memory", newMemoryFixture},
		{"sqlite", newSQLiteFixture},
	} {
		b.Run(tc.name, func(b *testing.B) {
			f := tc.setup(b, 10, 100)
			ctx := context.Background()
			prices := make([]int64, len(f.listings))
			for i := range prices {
				prices[i] = 100
			}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				idx := i % len(f.listings)
				prices[idx]++
				bidder := f.bidders[i%len(f.bidders)]
				if _, err := f.svc.PlaceBid(ctx, bidder, f.listings[idx], amount(prices[idx])); err != nil {
					b.Fatalf("failed to place bid: %v", err)
				}
			}
		})
	}
}

// Benchmark 2: PlaceBid - Shared Listing (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedListing(b *testing.B) {
	f := newMemoryFixture(b, 50, 1)
	ctx := context.Background()
	listing := f.listings[0]

	var lastBid int64 = 100
	var accepted, rejected int64

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			bidder := f.bidders[rnd.Intn(len(f.bidders))]
			next := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			if _, err := f.svc.PlaceBid(ctx, bidder, listing, amount(next)); err != nil {
				atomic.AddInt64(&rejected, 1)
			} else {
				atomic.AddInt64(&accepted, 1)
			}
		}
	})

	b.ReportMetric(float64(accepted), "accepted")
	b.ReportMetric(float64(rejected), "rejected")
}

// Benchmark 3: GetListingDetail - Concurrent readers on a listing with history
func Benchmark_GetListingDetail_ConcurrentSharedListing(b *testing.B) {
	f := newMemoryFixture(b, 20, 1)
	ctx := context.Background()
	listing := f.listings[0]

	for j := 0; j < 100; j++ {
		if _, err := f.svc.PlaceBid(ctx, f.bidders[j%len(f.bidders)], listing, amount(int64(200+j))); err != nil {
			b.Fatalf("failed to seed bid: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := f.svc.GetListingDetail(ctx, f.bidders[0], listing); err != nil {
				b.Fatalf("failed to get listing: %v", err)
			}
		}
	})
}

// Benchmark 4: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedListing(b *testing.B) {
	f := newMemoryFixture(b, 50, 1)
	ctx := context.Background()
	listing := f.listings[0]

	var lastBid int64 = 100

	b.ReportAllocs()
	b.ResetTimer()

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				next := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
				_, _ = f.svc.PlaceBid(ctx, f.bidders[rnd.Intn(len(f.bidders))], listing, amount(next))
				continue
			}
			if _, err := f.svc.CurrentPrice(ctx, listing); err != nil {
				b.Fatalf("failed to read price: %v", err)
			}
		}
	})
}

// TestConcurrentBidsKeepPriceMonotonic checks that racing bidders never lower the price
func TestConcurrentBidsKeepPriceMonotonic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	f := newMemoryFixture(t, 20, 1)
	ctx := context.Background()
	listing := f.listings[0]

	var lastBid int64 = 100
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			rnd := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < 200; i++ {
				next := atomic.AddInt64(&lastBid, int64(rnd.Intn(3)))
				_, _ = f.svc.PlaceBid(ctx, f.bidders[rnd.Intn(len(f.bidders))], listing, amount(next))
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}

	bids, err := f.svc.ListBids(ctx, listing)
	if err != nil {
		t.Fatalf("failed to list bids: %v", err)
	}
	// Newest first: every accepted bid is strictly below its successor.
	for i := 1; i < len(bids); i++ {
		if bids[i].Amount >= bids[i-1].Amount {
			t.Fatalf("bid %d (%s) is not below newer bid %d (%s)", bids[i].ID, bids[i].Amount, bids[i-1].ID, bids[i-1].Amount)
		}
	}
}
