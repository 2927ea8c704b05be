package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreReturnsSameSession(t *testing.T) {
	s := NewStore(16)

	sess, release := s.Acquire(1)
	sess.UTMSource = "ads1"
	release()

	sess, release = s.Acquire(1)
	defer release()
	require.Equal(t, "ads1", sess.UTMSource)
	require.Equal(t, 1, s.Len())
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore(2)

	sess, release := s.Acquire(1)
	sess.UTMSource = "ads1"
	release()

	_, release = s.Acquire(2)
	release()
	_, release = s.Acquire(3)
	release()

	require.Equal(t, 2, s.Len())

	// chat 1 was evicted; its session starts over
	sess, release = s.Acquire(1)
	defer release()
	require.Empty(t, sess.UTMSource)
}

func TestStoreSkipsInUseEntries(t *testing.T) {
	s := NewStore(1)

	sess1, release1 := s.Acquire(1)
	sess1.UTMSource = "ads1"

	// chat 1 is held, so inserting chat 2 cannot evict it
	_, release := s.Acquire(2)
	release()
	require.Equal(t, 2, s.Len())

	release1()

	// the next insert evicts down to capacity again
	_, release = s.Acquire(3)
	release()
	require.Equal(t, 1, s.Len())
}

func TestStoreSerializesPerChat(t *testing.T) {
	s := NewStore(16)
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := s.Acquire(7)
			sess.Draft.PeriodMonths++
			release()
		}()
	}
	wg.Wait()

	sess, release := s.Acquire(7)
	defer release()
	require.Equal(t, workers, sess.Draft.PeriodMonths)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := NewStore(16)

	_, release := s.Acquire(1)
	release()
	release()

	_, release = s.Acquire(1)
	release()
}
