package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/lightningex/matchingengine/domain"
)

// shardedIndex groups open price levels into fixed-size buckets (price /
// bucketSize) ordered by a red-black tree, with each bucket addressing its
// levels by a bit-masked array index. Scales better than hashMapIndex once
// a symbol has many simultaneously open price levels, at the cost of an
// O(log m) bucket lookup (m = number of open buckets, not open price
// levels) instead of O(1).
//
// bucketSize must be a power of two so "price & mask" is equivalent to
// "price % bucketSize" but 5-10x cheaper.
type shardedIndex struct {
	buckets    *rbt.Tree[int64, *bucket]
	bestBucket *bucket
	best       *level
	descending bool
	bucketSize int64
}

var _ index = (*shardedIndex)(nil)

const shardedBucketSize = 128

func newShardedIndex(descending bool) *shardedIndex {
	var cmp func(a, b int64) int
	if descending {
		cmp = func(a, b int64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}
	} else {
		cmp = func(a, b int64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}

	return &shardedIndex{
		buckets:    rbt.NewWith[int64, *bucket](cmp),
		descending: descending,
		bucketSize: shardedBucketSize,
	}
}

// bucket is one price-range shard: a fixed-size array of levels addressed
// by a bit-masked index, threaded into a doubly linked list in price order
// exactly like hashMapIndex does for the whole book.
type bucket struct {
	id         int64
	levels     [shardedBucketSize]*level
	best       *level
	size       int
	descending bool
	mask       int64
}

func newBucket(id int64, descending bool, bucketSize int64) *bucket {
	return &bucket{id: id, descending: descending, mask: bucketSize - 1}
}

func (ix *shardedIndex) insert(order *domain.Order) {
	bucketID := order.Price / ix.bucketSize
	b, found := ix.buckets.Get(bucketID)
	if !found {
		b = newBucket(bucketID, ix.descending, ix.bucketSize)
		ix.buckets.Put(bucketID, b)
	}

	idx := order.Price & b.mask
	lvl := b.levels[idx]
	if lvl == nil {
		lvl = newLevel(order.Price)
		b.linkLevel(lvl)
		b.levels[idx] = lvl
		b.size++
	}

	elem := lvl.Orders.PushBack(order)
	order.SetElem(elem)
	lvl.Volume += order.Qty

	ix.promote(b)
}

func (ix *shardedIndex) remove(order *domain.Order) {
	bucketID := order.Price / ix.bucketSize
	b, found := ix.buckets.Get(bucketID)
	if !found {
		return
	}

	idx := order.Price & b.mask
	lvl := b.levels[idx]
	if lvl == nil {
		return
	}

	if elem := order.Elem(); elem != nil {
		lvl.Orders.Remove(elem)
		order.SetElem(nil)
		lvl.Volume -= order.Qty
	}

	if lvl.Orders.Len() != 0 {
		return
	}

	b.levels[idx] = nil
	b.size--
	b.unlinkLevel(lvl)

	if b.size == 0 {
		ix.buckets.Remove(bucketID)
		if ix.bestBucket == b {
			ix.bestBucket = nil
			ix.best = nil
			ix.refreshBest()
		}
		return
	}

	if ix.best != nil && ix.best.Price == lvl.Price {
		ix.refreshBest()
	}
}

func (ix *shardedIndex) bestLevel() *level { return ix.best }

func (ix *shardedIndex) levelAt(price int64) *level {
	b, found := ix.buckets.Get(price / ix.bucketSize)
	if !found {
		return nil
	}
	return b.levels[price&b.mask]
}

func (ix *shardedIndex) depth(maxLevels int) []level {
	if maxLevels <= 0 || ix.buckets.Empty() {
		return nil
	}

	out := make([]level, 0, maxLevels)
	it := ix.buckets.Iterator()
	for it.Next() && len(out) < maxLevels {
		b := it.Value()
		for cur := b.best; cur != nil && len(out) < maxLevels; cur = cur.next {
			out = append(out, *cur)
		}
	}
	return out
}

func (ix *shardedIndex) isEmpty() bool { return ix.buckets.Empty() }

func (ix *shardedIndex) size() int {
	total := 0
	it := ix.buckets.Iterator()
	for it.Next() {
		total += it.Value().size
	}
	return total
}

// promote updates the index-wide best pointer after an insert that may
// have created a new, better bucket or a new, better level in the current
// best bucket.
func (ix *shardedIndex) promote(b *bucket) {
	switch {
	case ix.bestBucket == nil:
		ix.bestBucket = b
		ix.best = b.best
	case ix.isBetterBucket(b.id, ix.bestBucket.id):
		ix.bestBucket = b
		ix.best = b.best
	case b == ix.bestBucket:
		ix.best = b.best
	}
}

// refreshBest re-derives the best bucket/level from the tree after the
// previous best bucket was emptied and removed.
func (ix *shardedIndex) refreshBest() {
	if ix.buckets.Empty() {
		ix.bestBucket = nil
		ix.best = nil
		return
	}
	node := ix.buckets.Left()
	if node == nil {
		return
	}
	ix.bestBucket = node.Value
	ix.best = node.Value.best
}

func (ix *shardedIndex) isBetterBucket(a, b int64) bool {
	if ix.descending {
		return a > b
	}
	return a < b
}

// linkLevel inserts a newly created level into the bucket's price-ordered
// list. Buckets are bounded to bucketSize price points, so this is O(n)
// against a small, fixed n rather than the whole book.
func (b *bucket) linkLevel(lvl *level) {
	if b.best == nil {
		b.best = lvl
		return
	}

	if b.isBetterPrice(lvl.Price, b.best.Price) {
		lvl.next = b.best
		b.best.prev = lvl
		b.best = lvl
		return
	}

	cur := b.best
	for cur.next != nil && !b.isBetterPrice(lvl.Price, cur.next.Price) {
		cur = cur.next
	}
	lvl.next = cur.next
	lvl.prev = cur
	if cur.next != nil {
		cur.next.prev = lvl
	}
	cur.next = lvl
}

func (b *bucket) unlinkLevel(lvl *level) {
	if lvl.prev != nil {
		lvl.prev.next = lvl.next
	} else {
		b.best = lvl.next
	}
	if lvl.next != nil {
		lvl.next.prev = lvl.prev
	}
	lvl.next = nil
	lvl.prev = nil
}

func (b *bucket) isBetterPrice(newPrice, existing int64) bool {
	if b.descending {
		return newPrice > existing
	}
	return newPrice < existing
}
