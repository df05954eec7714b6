package rwspin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryLockFailsUnderExclusiveHolder(t *testing.T) {
	l := New()
	l.Lock()
	defer l.Unlock()

	require.False(t, l.TryLock())
	require.False(t, l.TryRLock())
}

func TestTryLockSharedAllowsMultipleReaders(t *testing.T) {
	l := New()
	require.True(t, l.TryRLock())
	require.True(t, l.TryRLock())
	require.False(t, l.TryLock())

	l.RUnlock()
	l.RUnlock()
	require.True(t, l.TryLock())
	l.Unlock()
}

func TestConcurrentReadersDoNotBlockEachOther(t *testing.T) {
	l := New()
	const readers = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			<-start
			l.RLock()
			time.Sleep(time.Millisecond)
			l.RUnlock()
		}()
	}
	close(start)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readers appear to have serialised against each other")
	}
}

func TestStrongWriterEventuallyProceedsUnderReaderPressure(t *testing.T) {
	l := New()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				l.RLock()
				l.RUnlock()
			}
		}()
	}

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer starved under continuous reader pressure")
	}
	close(stop)
	wg.Wait()
}

func TestWeakWriterStillExcludesReaders(t *testing.T) {
	l := New(WithWeakWriter())
	l.Lock()
	require.False(t, l.TryRLock())
	l.Unlock()
}
