package search

import (
	"context"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"

	"ilmhub/internal/ilm"
)

// ErrQueueClosed is returned when a job is submitted after Shutdown.
var ErrQueueClosed = errors.New("index queue closed")

type jobKind int

const (
	jobIndex jobKind = iota
	jobRemove
)

type job struct {
	kind   jobKind
	node   *ilm.Node
	nodeID string
}

func (j job) key() string {
	if j.node != nil {
		return j.node.ID
	}
	return j.nodeID
}

// Queue is an ilm.Indexer that hands index writes to a pool of workers so a
// slow search backend never delays a commit. Each node id maps to one worker,
// so writes for a node reach the backend in submission order. Searches go
// straight to the backend.
type Queue struct {
	backend ilm.Indexer
	logger  ilm.Logger
	shards  []chan job
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ilm.Indexer = (*Queue)(nil)

// NewQueue creates a queue in front of backend. queueSize is split across the
// workers. Call Start before use.
func NewQueue(backend ilm.Indexer, logger ilm.Logger, workers, queueSize int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = ilm.NewNopLogger()
	}
	perShard := (queueSize + workers - 1) / workers
	shards := make([]chan job, workers)
	for i := range shards {
		shards[i] = make(chan job, perShard)
	}
	return &Queue{
		backend: backend,
		logger:  logger,
		shards:  shards,
	}
}

// Start launches one worker per shard.
func (q *Queue) Start() {
	for i := range q.shards {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Debug("index queue started", "workers", len(q.shards))
}

func (q *Queue) shard(key string) chan job {
	return q.shards[xxhash.Sum64String(key)%uint64(len(q.shards))]
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for j := range q.shards[id] {
		var err error
		switch j.kind {
		case jobIndex:
			err = q.backend.IndexNode(ctx, j.node)
		case jobRemove:
			err = q.backend.RemoveNode(ctx, j.nodeID)
		}
		if err != nil {
			q.logger.Warn("index job failed", "worker", id, "error", err)
		}
	}
}

// submit blocks while the queue is full, until ctx is done.
func (q *Queue) submit(ctx context.Context, j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.shard(j.key()) <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IndexNode queues a snapshot of node for indexing.
func (q *Queue) IndexNode(ctx context.Context, node *ilm.Node) error {
	snapshot := *node
	snapshot.LiveContent = ilm.CloneBlocks(node.LiveContent)
	return q.submit(ctx, job{kind: jobIndex, node: &snapshot})
}

// RemoveNode queues a removal.
func (q *Queue) RemoveNode(ctx context.Context, nodeID string) error {
	return q.submit(ctx, job{kind: jobRemove, nodeID: nodeID})
}

// Search queries the backend directly.
func (q *Queue) Search(ctx context.Context, query string, limit int) ([]ilm.SearchHit, error) {
	return q.backend.Search(ctx, query, limit)
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int {
	n := 0
	for _, ch := range q.shards {
		n += len(ch)
	}
	return n
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Debug("index queue drained")
}
