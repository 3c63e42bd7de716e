package service

import (
	"errors"
	"testing"
	"time"

	"github.com/pairstats/analytics-backend/internal/config"
)

func TestAccountCache_RefreshOnStaleRead(t *testing.T) {
	loads := 0
	clock := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := &AccountCache{
		path: "x",
		ttl:  time.Minute,
		loader: func(string) (*config.Registry, error) {
			loads++
			return &config.Registry{Accounts: []config.Account{{Name: "alpha"}}}, nil
		},
		now: func() time.Time { return clock },
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Registry(); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if loads != 1 {
		t.Fatalf("fresh reads must not reload, got %d loads", loads)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := c.Registry(); err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if loads != 2 {
		t.Fatalf("stale read must reload, got %d loads", loads)
	}
}

func TestAccountCache_ServesStaleCopyWhenReloadFails(t *testing.T) {
	loads := 0
	clock := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := &AccountCache{
		path: "x",
		ttl:  time.Minute,
		loader: func(string) (*config.Registry, error) {
			loads++
			if loads > 1 {
				return nil, errors.New("file vanished")
			}
			return &config.Registry{Accounts: []config.Account{{Name: "alpha"}}}, nil
		},
		now: func() time.Time { return clock },
	}

	if _, err := c.Registry(); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	reg, err := c.Registry()
	if err != nil {
		t.Fatalf("stale copy should be served on reload failure: %v", err)
	}
	if reg.Lookup("alpha") == nil {
		t.Fatal("stale copy lost its contents")
	}
}

func TestAccountCache_ErrorWithNoCopy(t *testing.T) {
	c := &AccountCache{
		path:   "x",
		ttl:    time.Minute,
		loader: func(string) (*config.Registry, error) { return nil, errors.New("no such file") },
		now:    time.Now,
	}
	if _, err := c.Registry(); err == nil {
		t.Fatal("first load failure must surface")
	}
}

func TestAccountCache_Invalidate(t *testing.T) {
	loads := 0
	c := &AccountCache{
		path: "x",
		ttl:  time.Hour,
		loader: func(string) (*config.Registry, error) {
			loads++
			return &config.Registry{Accounts: []config.Account{{Name: "alpha"}}}, nil
		},
		now: time.Now,
	}
	if _, err := c.Registry(); err != nil {
		t.Fatalf("load: %v", err)
	}
	c.Invalidate()
	if _, err := c.Registry(); err != nil {
		t.Fatalf("load after invalidate: %v", err)
	}
	if loads != 2 {
		t.Fatalf("invalidate must force a reload, got %d loads", loads)
	}
}
