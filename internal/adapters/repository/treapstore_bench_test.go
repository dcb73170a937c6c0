package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/crowdex/vigil/internal/adapters/repository"
)

func seededStore(b *testing.B, n int) *repository.TreapStore {
	b.Helper()
	store := repository.NewTreapStore(repository.WithPrioritySeed(99))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("a-%06d", i)
		if _, err := store.UpdateBest(ctx, id, rng.Float64()*100); err != nil {
			b.Fatalf("UpdateBest: %v", err)
		}
	}
	return store
}

func BenchmarkUpdateBest(b *testing.B) {
	store := seededStore(b, 10000)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("a-%06d", rng.Intn(10000))
		if _, err := store.UpdateBest(ctx, id, rng.Float64()*100); err != nil {
			b.Fatalf("UpdateBest: %v", err)
		}
	}
}

func BenchmarkTopN(b *testing.B) {
	for _, limit := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("limit-%d", limit), func(b *testing.B) {
			store := seededStore(b, 10000)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := store.TopN(ctx, limit); err != nil {
					b.Fatalf("TopN: %v", err)
				}
			}
		})
	}
}

func BenchmarkRank(b *testing.B) {
	store := seededStore(b, 10000)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("a-%06d", rng.Intn(10000))
		if _, err := store.Rank(ctx, id); err != nil {
			b.Fatalf("Rank: %v", err)
		}
	}
}
