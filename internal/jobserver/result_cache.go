package jobserver

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
)

const (
	defaultMaxResults   = 1000
	defaultResultMaxAge = 10 * time.Minute
)

type storedResult struct {
	uid     string
	result  types.JobResult
	written time.Time
}

// ResultCache holds job results by job UID. A result expires maxAge after
// its last write; past maxSize the least recently written result goes first.
type ResultCache struct {
	mu      sync.Mutex
	byUID   map[string]*list.Element
	written *list.List // of *storedResult, least recently written first
	maxSize int
	maxAge  time.Duration
	now     func() time.Time
}

func NewResultCache(maxSize int, maxAge time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = defaultMaxResults
	}
	if maxAge <= 0 {
		maxAge = defaultResultMaxAge
	}
	return &ResultCache{
		byUID:   map[string]*list.Element{},
		written: list.New(),
		maxSize: maxSize,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (rc *ResultCache) SetClock(now func() time.Time) {
	rc.mu.Lock()
	rc.now = now
	rc.mu.Unlock()
}

func (rc *ResultCache) Set(uid string, result types.JobResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if el, ok := rc.byUID[uid]; ok {
		sr := el.Value.(*storedResult)
		sr.result, sr.written = result, rc.now()
		rc.written.MoveToBack(el)
		return
	}
	rc.byUID[uid] = rc.written.PushBack(&storedResult{uid: uid, result: result, written: rc.now()})
	for rc.written.Len() > rc.maxSize {
		rc.drop(rc.written.Front())
	}
}

func (rc *ResultCache) Get(uid string) (types.JobResult, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	el, ok := rc.byUID[uid]
	if !ok {
		return types.JobResult{}, false
	}
	sr := el.Value.(*storedResult)
	if rc.expired(sr, rc.now()) {
		rc.drop(el)
		return types.JobResult{}, false
	}
	return sr.result, true
}

func (rc *ResultCache) Delete(uid string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if el, ok := rc.byUID[uid]; ok {
		rc.drop(el)
	}
}

func (rc *ResultCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.written.Len()
}

// Prune drops every expired result and returns how many it dropped. The
// list is ordered by write time, so it stops at the first live result.
func (rc *ResultCache) Prune() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := rc.now()
	n := 0
	for el := rc.written.Front(); el != nil && rc.expired(el.Value.(*storedResult), now); el = rc.written.Front() {
		rc.drop(el)
		n++
	}
	return n
}

// RunJanitor prunes every half maxAge until ctx is cancelled.
func (rc *ResultCache) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(rc.maxAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rc.Prune(); n > 0 {
				logrus.Debugf("Pruned %d expired job results", n)
			}
		}
	}
}

func (rc *ResultCache) expired(sr *storedResult, now time.Time) bool {
	return now.Sub(sr.written) > rc.maxAge
}

func (rc *ResultCache) drop(el *list.Element) {
	delete(rc.byUID, el.Value.(*storedResult).uid)
	rc.written.Remove(el)
}
