package realtime

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Update types accepted by the buffer.
const (
	UpdateSocial           = "social_update"
	UpdateKeywordAlert     = "keyword_alert"
	UpdateSentiment        = "sentiment_update"
	UpdatePlatformActivity = "platform_activity"
)

// Flush offsets in minutes within one buffer cycle. Staggering keeps the four
// types from all flushing in the same tick.
var flushOffsets = map[string]int{
	UpdateSocial:           0,
	UpdateKeywordAlert:     5,
	UpdateSentiment:        10,
	UpdatePlatformActivity: 12,
}

// Broadcaster delivers a message to connected clients. The Hub implements it.
type Broadcaster interface {
	Broadcast(topic string, message interface{}) int
}

// BufferedUpdate is one queued event awaiting a flush.
type BufferedUpdate struct {
	Payload    interface{} `json:"payload"`
	BufferedAt time.Time   `json:"buffered_at"`
}

// BatchMessage is the wire format of one flushed queue.
type BatchMessage struct {
	Type      string           `json:"type"`
	Data      []BufferedUpdate `json:"data"`
	Count     int              `json:"count"`
	Timestamp time.Time        `json:"timestamp"`
}

// UpdateBuffer collects discrete update events into per-type queues and
// flushes each queue to all clients on its own staggered schedule, so bursts
// of activity do not become a storm of individual broadcasts. Queues are
// bounded only by process memory; there is no backpressure policy.
type UpdateBuffer struct {
	broadcaster Broadcaster
	cycle       time.Duration
	minDelay    time.Duration

	mu     sync.Mutex
	queues map[string][]BufferedUpdate

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewUpdateBuffer creates a buffer flushing through broadcaster. cycle is the
// full stagger window; minDelay floors every computed flush delay so a
// just-passed slot can never fire in a tight loop.
func NewUpdateBuffer(broadcaster Broadcaster, cycle, minDelay time.Duration) *UpdateBuffer {
	queues := make(map[string][]BufferedUpdate, len(flushOffsets))
	for updateType := range flushOffsets {
		queues[updateType] = nil
	}

	return &UpdateBuffer{
		broadcaster: broadcaster,
		cycle:       cycle,
		minDelay:    minDelay,
		queues:      queues,
		stop:        make(chan struct{}),
	}
}

// Enqueue appends an event to its type's queue. It never blocks and never
// triggers a flush by itself.
func (b *UpdateBuffer) Enqueue(updateType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[updateType]; !ok {
		logrus.Warnf("Dropping update with unknown type %q", updateType)
		return
	}

	b.queues[updateType] = append(b.queues[updateType], BufferedUpdate{
		Payload:    payload,
		BufferedAt: time.Now(),
	})
	logrus.Debugf("Buffered %s update (queue size: %d)", updateType, len(b.queues[updateType]))
}

// QueueLen returns the current queue length for a type.
func (b *UpdateBuffer) QueueLen(updateType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[updateType])
}

// Start launches one flush loop per update type.
func (b *UpdateBuffer) Start() {
	for updateType := range flushOffsets {
		b.wg.Add(1)
		go b.flushLoop(updateType)
	}
	logrus.Infof("Update buffer started with a %v flush cycle", b.cycle)
}

// Stop halts all flush loops. Queued updates are discarded.
func (b *UpdateBuffer) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
}

func (b *UpdateBuffer) flushLoop(updateType string) {
	defer b.wg.Done()

	for {
		delay := b.nextFlushDelay(updateType, time.Now())
		logrus.Debugf("Scheduled %s buffer broadcast in %v", updateType, delay)

		timer := time.NewTimer(delay)
		select {
		case <-b.stop:
			timer.Stop()
			return
		case <-timer.C:
			b.Flush(updateType)
		}
	}
}

// nextFlushDelay computes the wall-clock delay until the type's next slot in
// the cycle, floored at minDelay.
func (b *UpdateBuffer) nextFlushDelay(updateType string, now time.Time) time.Duration {
	cycleMinutes := int(b.cycle.Minutes())
	if cycleMinutes < 1 {
		cycleMinutes = 1
	}

	offset := flushOffsets[updateType] % cycleMinutes
	minute := now.Minute() % cycleMinutes

	ahead := ((offset-minute)%cycleMinutes + cycleMinutes) % cycleMinutes
	if ahead == 0 {
		ahead = cycleMinutes
	}

	next := now.Truncate(time.Minute).Add(time.Duration(ahead) * time.Minute)
	delay := next.Sub(now)
	if delay < b.minDelay {
		delay = b.minDelay
	}
	return delay
}

// Flush broadcasts the type's queue as one batch message and clears it. An
// empty queue is a no-op; a failed broadcast does not re-queue.
func (b *UpdateBuffer) Flush(updateType string) {
	b.mu.Lock()
	queue := b.queues[updateType]
	b.queues[updateType] = nil
	b.mu.Unlock()

	if len(queue) == 0 {
		logrus.Debugf("No %s updates to broadcast in this cycle", updateType)
		return
	}

	message := &BatchMessage{
		Type:      updateType + "_batch",
		Data:      queue,
		Count:     len(queue),
		Timestamp: time.Now(),
	}

	delivered := b.broadcaster.Broadcast("", message)
	logrus.Infof("Sent %d buffered %s updates to %d clients", len(queue), updateType, delivered)
}
