package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_LeaderRunsOnce(t *testing.T) {
	var g SingleFlight
	var runs int32
	var shared int32

	const followers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(followers)

	for i := 0; i < followers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, wasShared := g.Do("introspect:token-abc", func() (any, error) {
				atomic.AddInt32(&runs, 1)
				time.Sleep(20 * time.Millisecond)
				return "principal", nil
			})
			if err != nil {
				t.Errorf("flight failed: %v", err)
			}
			if val != "principal" {
				t.Errorf("unexpected value: %v", val)
			}
			if wasShared {
				atomic.AddInt32(&shared, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected one execution, got %d", got)
	}
	if got := atomic.LoadInt32(&shared); got != followers-1 {
		t.Fatalf("expected %d shared results, got %d", followers-1, got)
	}
}

func TestSingleFlight_ErrorReachesFollowers(t *testing.T) {
	var g SingleFlight
	boom := errors.New("upstream down")

	_, err, _ := g.Do("introspect:token-bad", func() (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the leader error, got %v", err)
	}

	// The key is released after completion; the next call runs fresh.
	val, err, wasShared := g.Do("introspect:token-bad", func() (any, error) {
		return "ok", nil
	})
	if err != nil || val != "ok" || wasShared {
		t.Fatalf("expected a fresh run, got val=%v err=%v shared=%v", val, err, wasShared)
	}
}
