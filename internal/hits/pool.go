package hits

// Pool is a free list of records owned by one worker. It is not safe for
// concurrent use; each worker keeps its own.
type Pool struct {
	free     []*Record
	capacity int

	gets, reuses int
}

// NewPool creates a pool that keeps at most capacity idle records.
func NewPool(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{capacity: capacity, free: make([]*Record, 0, capacity)}
}

// Get returns an idle record, or a new one when the pool is empty.
func (p *Pool) Get() *Record {
	p.gets++
	if n := len(p.free); n > 0 {
		r := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.reuses++
		return r
	}
	return &Record{}
}

// Put returns a record to the pool. Records beyond capacity are dropped.
func (p *Pool) Put(r *Record) {
	if r == nil || len(p.free) >= p.capacity {
		return
	}
	r.reset()
	p.free = append(p.free, r)
}

// Idle returns the number of records waiting for reuse.
func (p *Pool) Idle() int { return len(p.free) }

// Stats returns how many records were requested and how many of those
// were recycled.
func (p *Pool) Stats() (gets, reuses int) { return p.gets, p.reuses }
