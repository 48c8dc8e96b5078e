package keylock

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("s1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if l.Len() != 0 {
		t.Fatalf("expected idle keys to be released, got %d", l.Len())
	}
}

func TestLockDifferentKeysIndependent(t *testing.T) {
	l := New()

	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLockManyHeldKeysDoNotCollide(t *testing.T) {
	l := New()

	const held = 512
	for i := 0; i < held; i++ {
		unlock := l.Lock(fmt.Sprintf("session-%d", i))
		defer unlock()
	}
	if l.Len() != held {
		t.Fatalf("Len = %d, want %d", l.Len(), held)
	}

	done := make(chan struct{})
	go func() {
		l.Lock("session-new")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a fresh key waited on one of the held keys")
	}
}
