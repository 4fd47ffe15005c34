package roomlock

import (
	"sync"
	"testing"
)

func TestRegistry_SerializesSameRoom(t *testing.T) {
	reg := NewRegistry()

	const iterations = 200
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_ = reg.Do("room-1", func() error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	if counter != 4*iterations {
		t.Fatalf("lost updates under same-room lock: got %d want %d", counter, 4*iterations)
	}
}

func TestRegistry_IndependentRooms(t *testing.T) {
	reg := NewRegistry()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = reg.Do("room-a", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan struct{})
	go func() {
		_ = reg.Do("room-b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-release:
		t.Fatal("unreachable")
	}
	close(release)
}
