// Package cmap provides a concurrent map split into independently locked
// shards.
//
// It suits tables that many goroutines touch at once with short critical
// sections, such as outstanding calls keyed by correlation id:
//
//	m := cmap.New[string, *call]()
//	m.Set(id, c)
//	if c, ok := m.Pop(id); ok {
//		c.complete(reply)
//	}
//
// Pop removes and returns in one step, so exactly one caller wins a key.
// PopFunc locks one shard at a time and is not a consistent snapshot.
package cmap
