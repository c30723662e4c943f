package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	m := New[string, int]()
	if len(m.shards) != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", len(m.shards), DefaultShardCount)
	}
	if m.shardMask != DefaultShardCount-1 {
		t.Errorf("shard mask = %d, want %d", m.shardMask, DefaultShardCount-1)
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}

	m.Delete("a")
	m.Delete("missing")
	if _, ok := m.Get("a"); ok {
		t.Error("a should be gone after Delete")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestUpsert(t *testing.T) {
	m := New[string, int]()
	keepHigher := func(v int) func(int, bool) (int, bool) {
		return func(cur int, loaded bool) (int, bool) {
			return v, !loaded || v > cur
		}
	}

	if _, loaded, stored := m.Upsert("k", keepHigher(2)); loaded || !stored {
		t.Errorf("first Upsert = (loaded %v, stored %v), want (false, true)", loaded, stored)
	}
	prev, loaded, stored := m.Upsert("k", keepHigher(1))
	if !loaded || prev != 2 || stored {
		t.Errorf("Upsert lower = (%d, %v, %v), want (2, true, false)", prev, loaded, stored)
	}
	if v, _ := m.Get("k"); v != 2 {
		t.Errorf("Get = %d, want 2", v)
	}
	prev, _, stored = m.Upsert("k", keepHigher(3))
	if prev != 2 || !stored {
		t.Errorf("Upsert higher = (%d, %v), want (2, true)", prev, stored)
	}
	if v, _ := m.Get("k"); v != 3 {
		t.Errorf("Get = %d, want 3", v)
	}
}

func TestUpsert_Concurrent(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			m.Upsert("k", func(cur int, loaded bool) (int, bool) {
				return v, !loaded || v > cur
			})
		}(i)
	}
	wg.Wait()

	if v, _ := m.Get("k"); v != 100 {
		t.Errorf("Get = %d, want 100", v)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	v, ok := m.Pop("k")
	if !ok || v != 7 {
		t.Errorf("Pop = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Error("second Pop should report false")
	}
}

func TestPop_ExactlyOneWinner(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 1)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.Pop("k"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestPopFunc(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 20; i++ {
		m.Set(i, i*10)
	}

	removed := m.PopFunc(func(k, _ int) bool { return k%2 == 0 })
	if len(removed) != 10 {
		t.Errorf("removed %d values, want 10", len(removed))
	}
	if m.Count() != 10 {
		t.Errorf("Count = %d, want 10", m.Count())
	}
	if _, ok := m.Get(4); ok {
		t.Error("even keys should be removed")
	}
	if _, ok := m.Get(5); !ok {
		t.Error("odd keys should remain")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i)
				m.Set(key, i)
				m.Get(key)
				if i%2 == 0 {
					m.Pop(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if m.Count() != 8*100 {
		t.Errorf("Count = %d, want %d", m.Count(), 8*100)
	}
}

func BenchmarkSetPop(b *testing.B) {
	m := New[string, int]()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprint(i)
			m.Set(key, i)
			m.Pop(key)
			i++
		}
	})
}
