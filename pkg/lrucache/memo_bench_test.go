package lrucache

import (
	"context"
	"strconv"
	"testing"
)

func benchKeyFn(k int) string { return strconv.Itoa(k) }

func BenchmarkMemoGetHit(b *testing.B) {
	memo, err := New[int, string](1024, func(_ context.Context, k int) (string, error) {
		return strconv.Itoa(k), nil
	}, benchKeyFn)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 1024; i++ {
		if _, err := memo.Get(ctx, i); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := memo.Get(ctx, i%1024); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoGetHitParallel(b *testing.B) {
	memo, err := New[int, string](1024, func(_ context.Context, k int) (string, error) {
		return strconv.Itoa(k), nil
	}, benchKeyFn)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 1024; i++ {
		if _, err := memo.Get(ctx, i); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := memo.Get(ctx, i%1024); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func BenchmarkMemoGetMissEvict(b *testing.B) {
	memo, err := New[int, string](128, func(_ context.Context, k int) (string, error) {
		return strconv.Itoa(k), nil
	}, benchKeyFn)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := memo.Get(ctx, i); err != nil {
			b.Fatal(err)
		}
	}
}
