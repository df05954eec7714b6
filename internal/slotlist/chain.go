package slotlist

import "github.com/Voskan/expmap/internal/rwspin"

// Chain is a single shard: a doubly-linked list of slots protected by one
// reader-writer spinlock, plus a non-atomic size counter. This is the Go
// counterpart of libzrvan's ExpSlotList instance owned by each segment of
// ExpMap.
//
// Size() intentionally reads the counter without taking the lock — per
// spec, global/shard size is eventually consistent and exact size under
// contention is explicitly out of scope. Callers that need a point-in-time
// exact count must coordinate externally.
type Chain[V any] struct {
	lock *rwspin.Lock

	head *slot[V]
	size int
}

// New constructs an empty chain. lockFactory lets callers configure the
// chain's rwspin.Lock (the lock type itself is fixed); pass nil to use the
// default strong-writer rwspin.Lock.
func New[V any](lockFactory func() *rwspin.Lock) *Chain[V] {
	var l *rwspin.Lock
	if lockFactory != nil {
		l = lockFactory()
	} else {
		l = rwspin.New()
	}
	return &Chain[V]{lock: l}
}

func (c *Chain[V]) addToChain(s *slot[V]) {
	if c.head != nil {
		s.next = c.head
		c.head.prev = s
	}
	c.head = s
}

func (c *Chain[V]) removeFromChain(s *slot[V]) {
	if s.next != nil {
		s.next.prev = s.prev
	}
	if s.prev != nil {
		s.prev.next = s.next
	}
	if c.head == s {
		c.head = s.next
	}
	s.next, s.prev = nil, nil
}

func (c *Chain[V]) addNewSlot() *slot[V] {
	s := &slot[V]{}
	c.addToChain(s)
	return s
}

func (c *Chain[V]) addLocked(key uint64, value V, lifeTime uint32, now uint32) {
	if c.head != nil && !c.head.full() && c.head.add(key, value, lifeTime, now) {
		return
	}
	s := c.addNewSlot()
	s.add(key, value, lifeTime, now)
}

func (c *Chain[V]) findLocked(key uint64, pred Predicate[V], extendOnAccess bool, now uint32) bool {
	for s := c.head; s != nil; s = s.next {
		if s.find(key, pred, extendOnAccess, now) {
			return true
		}
	}
	return false
}

func (c *Chain[V]) removeLocked(key uint64, pred Predicate[V]) bool {
	for s := c.head; s != nil; s = s.next {
		if !s.remove(key, pred) {
			continue
		}
		if s.empty() {
			c.removeFromChain(s)
		}
		return true
	}
	return false
}

// Add inserts a new (key, value, ttl) triple, always into the head slot
// when it has room, otherwise into a freshly prepended slot. Add cannot
// fail short of a native allocation failure, per spec §9's open question on
// the (infallible-except-OOM) counter semantics.
func (c *Chain[V]) Add(key uint64, value V, lifeTime uint32, now uint32) {
	c.lock.Lock()
	c.addLocked(key, value, lifeTime, now)
	c.size++
	c.lock.Unlock()
}

// Remove deletes the first entry matching key and pred. If the owning slot
// becomes empty it is unlinked and freed before Remove returns.
func (c *Chain[V]) Remove(key uint64, pred Predicate[V]) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	ok := c.removeLocked(key, pred)
	if ok {
		c.size--
	}
	return ok
}

// FindR looks up key under the shared lock. With extendOnAccess enabled this
// refreshes accessTime while holding only the shared lock — a deliberate,
// documented trade (spec §5's "known subtle point").
func (c *Chain[V]) FindR(key uint64, pred Predicate[V], extendOnAccess bool, now uint32) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.findLocked(key, pred, extendOnAccess, now)
}

// FindW looks up key under the exclusive lock.
func (c *Chain[V]) FindW(key uint64, pred Predicate[V], extendOnAccess bool, now uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.findLocked(key, pred, extendOnAccess, now)
}

// ForEach invokes fn on every live value under the shared lock and returns
// the count visited. fn's return value, if any, is ignored: iteration is
// always unconditional "visit all" (spec §9's duplicate-key open question).
func (c *Chain[V]) ForEach(fn func(*V)) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	total := 0
	for s := c.head; s != nil; s = s.next {
		total += s.forEach(fn)
	}
	return total
}

// ExpireCheck is non-blocking: if the exclusive lock cannot be taken
// immediately it returns 0, since expiration sweeping is low priority and
// must never stall a caller. Slots that become empty during the sweep are
// unlinked eagerly.
func (c *Chain[V]) ExpireCheck(now uint32, pred Predicate[V]) (count int, acquired bool) {
	if !c.lock.TryLock() {
		return 0, false
	}
	defer c.lock.Unlock()

	s := c.head
	for s != nil {
		next := s.next
		count += s.expireCheck(now, pred)
		if s.empty() {
			c.removeFromChain(s)
		}
		s = next
	}
	c.size -= count
	return count, true
}

// Flush invokes fn (if non-nil) once per live value, then discards every
// slot in the chain and resets the size counter to zero.
func (c *Chain[V]) Flush(fn func(*V)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for s := c.head; s != nil; {
		next := s.next
		s.forEach(fn)
		s = next
	}
	c.head = nil
	c.size = 0
}

// PreLoad allocates one empty slot up front if the chain has none, trading
// a small amount of memory for avoiding the first-insert allocation.
func (c *Chain[V]) PreLoad() {
	if c.head != nil {
		return
	}
	c.lock.Lock()
	if c.head == nil {
		c.addNewSlot()
	}
	c.lock.Unlock()
}

// Size returns the last-published entry count without taking the lock; it
// may be stale during concurrent mutation (see type doc).
func (c *Chain[V]) Size() int {
	return c.size
}

// Drain atomically detaches the whole slot chain, resetting the chain to
// empty, and returns the detached head plus the count it held. This is the
// Go counterpart of libzrvan's move-constructor swap (ExpSlotList::swapI),
// offered so tests and diagnostics can inspect a chain's structure without
// racing live traffic.
func (c *Chain[V]) Drain() (head *slot[V], count int) {
	c.lock.Lock()
	head = c.head
	c.head = nil
	count = c.size
	c.size = 0
	c.lock.Unlock()
	return head, count
}

// CountSlots walks a detached chain (as returned by Drain) and returns how
// many slots it contains. Exposed for tests asserting the "removal of the
// last entry in a slot removes the slot from the chain" invariant.
func CountSlots[V any](head *slot[V]) int {
	n := 0
	for s := head; s != nil; s = s.next {
		n++
	}
	return n
}
