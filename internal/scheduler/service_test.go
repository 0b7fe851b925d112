package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/models"
)

// fakeChecker counts runs and can detect overlapping invocations
type fakeChecker struct {
	runs     int32
	inFlight int32
	overlap  int32
	delay    time.Duration
	result   models.RunResult
}

func (f *fakeChecker) CheckForAlerts(ctx context.Context) models.RunResult {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.runs, 1)
	return f.result
}

// fakeArchive records stored snapshots
type fakeArchive struct {
	mu    sync.Mutex
	files []string
}

func (f *fakeArchive) Store(filename string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, filename)
	return nil
}

func schedulerConfig() *config.Config {
	return &config.Config{CheckIntervalMinutes: 30}
}

func TestRunOnceReturnsCheckerResult(t *testing.T) {
	checker := &fakeChecker{result: models.RunResult{KeywordAlerts: 3, SentimentAlerts: 1}}
	service := NewService(schedulerConfig(), checker, nil)

	result := service.RunOnce(context.Background())

	assert.Equal(t, 3, result.KeywordAlerts)
	assert.Equal(t, 1, result.SentimentAlerts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&checker.runs))
}

func TestRunOnceSerializesOverlappingRuns(t *testing.T) {
	checker := &fakeChecker{delay: 20 * time.Millisecond}
	service := NewService(schedulerConfig(), checker, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			service.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), atomic.LoadInt32(&checker.runs))
	assert.Equal(t, int32(0), atomic.LoadInt32(&checker.overlap), "runs must never overlap")
}

func TestStartIsIdempotent(t *testing.T) {
	service := NewService(schedulerConfig(), &fakeChecker{}, nil)

	require.NoError(t, service.Start())
	first := service.cron
	require.NotNil(t, first)

	// Starting again replaces the schedule instead of stacking a second timer
	require.NoError(t, service.Start())
	second := service.cron
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Len(t, second.Entries(), 1)

	service.Stop()
	assert.Nil(t, service.cron)
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	service := NewService(schedulerConfig(), &fakeChecker{}, nil)
	service.Stop()
	service.Stop()
}

func TestRunOnceArchivesProductiveRuns(t *testing.T) {
	archive := &fakeArchive{}
	checker := &fakeChecker{result: models.RunResult{KeywordAlerts: 2}}
	service := NewService(schedulerConfig(), checker, archive)

	service.RunOnce(context.Background())

	archive.mu.Lock()
	defer archive.mu.Unlock()
	require.Len(t, archive.files, 1)
	assert.Contains(t, archive.files[0], "alert-run-")
}

func TestRunOnceSkipsArchiveForQuietRuns(t *testing.T) {
	archive := &fakeArchive{}
	service := NewService(schedulerConfig(), &fakeChecker{}, archive)

	service.RunOnce(context.Background())

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.Empty(t, archive.files)
}
