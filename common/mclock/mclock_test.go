package mclock

import (
	"sync"
	"testing"
	"time"
)

func TestSimulated(t *testing.T) {
	var c Simulated
	if now := c.Now(); now != 0 {
		t.Fatalf("zero clock reports %d", now)
	}
	c.Set(1000)
	c.Run(65)
	if now := c.Now(); now != 1065 {
		t.Fatalf("have %d, want %d", now, 1065)
	}
}

func TestSimulatedConcurrentRun(t *testing.T) {
	var (
		c  Simulated
		wg sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(2)
		}()
	}
	wg.Wait()
	if now := c.Now(); now != 100 {
		t.Fatalf("have %d, want %d", now, 100)
	}
}

func TestUnifiedOffset(t *testing.T) {
	var u Unified
	u.Adjust(3600)
	u.Adjust(-600)
	if off := u.Offset(); off != 3000 {
		t.Fatalf("offset: have %d, want %d", off, 3000)
	}
	want := uint64(time.Now().Unix() + 3000)
	if now := u.Now(); now < want-1 || now > want+1 {
		t.Fatalf("unified time %d too far from %d", now, want)
	}
}

func TestUnifiedClampsAtZero(t *testing.T) {
	var u Unified
	u.Adjust(-(time.Now().Unix() + 100))
	if now := u.Now(); now != 0 {
		t.Fatalf("negative unified time not clamped: %d", now)
	}
}
