package store

import (
	"cmp"
	"slices"
)

// job is one submitted stream. It is owned by exactly one of the Storeman's pending,
// blocked or done collections, or by the worker currently processing it.
type job struct {
	name    string
	payload []byte
	ticket  uint64
}

// jobQueue is a FIFO of pending jobs.
type jobQueue struct {
	jobs []*job
	head int
}

func (q *jobQueue) push(j *job) {
	q.jobs = append(q.jobs, j)
}

func (q *jobQueue) pop() (*job, bool) {
	if q.head == len(q.jobs) {
		return nil, false
	}

	j := q.jobs[q.head]
	q.jobs[q.head] = nil
	q.head++
	if q.head == len(q.jobs) {
		q.jobs, q.head = q.jobs[:0], 0
	}

	return j, true
}

func (q *jobQueue) len() int {
	return len(q.jobs) - q.head
}

// doneList holds processed jobs sorted by ticket.
type doneList struct {
	jobs []*job
}

// insert places j at its ticket position. Tickets are unique.
func (d *doneList) insert(j *job) {
	i, _ := slices.BinarySearchFunc(d.jobs, j.ticket, func(e *job, t uint64) int {
		return cmp.Compare(e.ticket, t)
	})
	d.jobs = slices.Insert(d.jobs, i, j)
}

// popIf removes and returns the lowest ticket job if its ticket equals ticket.
func (d *doneList) popIf(ticket uint64) (*job, bool) {
	if len(d.jobs) == 0 || d.jobs[0].ticket != ticket {
		return nil, false
	}

	j := d.jobs[0]
	d.jobs[0] = nil
	d.jobs = d.jobs[1:]

	return j, true
}

func (d *doneList) len() int {
	return len(d.jobs)
}

// blockedSet holds jobs waiting for a config that another worker is deriving.
type blockedSet struct {
	jobs []*job
	// configs holds the canonical config name of every blocked job, index aligned.
	configs []string
}

func (b *blockedSet) add(j *job, config string) {
	b.jobs = append(b.jobs, j)
	b.configs = append(b.configs, config)
}

// release removes every job waiting for config and returns them in ticket order.
func (b *blockedSet) release(config string) []*job {
	var released []*job

	kept := 0
	for i, j := range b.jobs {
		if b.configs[i] == config {
			released = append(released, j)
			continue
		}
		b.jobs[kept], b.configs[kept] = j, b.configs[i]
		kept++
	}
	clear(b.jobs[kept:])
	b.jobs, b.configs = b.jobs[:kept], b.configs[:kept]

	slices.SortFunc(released, func(a, c *job) int { return cmp.Compare(a.ticket, c.ticket) })

	return released
}

func (b *blockedSet) len() int {
	return len(b.jobs)
}
