package config

import (
	"reflect"
	"sync"
	"testing"
)

func TestStore_SetMergesOverrides(t *testing.T) {
	store := NewStore(nil)

	store.Set(Config{"listener": map[string]any{"port": 9999}})

	cfg := store.Get()
	if port, _ := cfg.Lookup("listener.port"); port != 9999 {
		t.Errorf("Expected port 9999, got %v", port)
	}

	// Every other default must survive the merge
	expected := Default()
	listener, _ := expected.Section("listener")
	listener["port"] = 9999
	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf("Expected %v, got %v", expected, cfg)
	}
}

func TestStore_SetIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	overrides := Config{"listener": map[string]any{"endpoint": "/hooks/github"}, "extra": []any{1, 2}}

	store.Set(overrides)
	first := store.Get().Clone()
	store.Set(overrides)

	if !reflect.DeepEqual(first, store.Get()) {
		t.Errorf("Expected identical config after repeated Set, got %v and %v", first, store.Get())
	}
}

func TestStore_InitRestoresDefaults(t *testing.T) {
	store := NewStore(nil)
	store.Set(Config{"listener": map[string]any{"port": 1234}})
	store.Set(Config{"custom": "value"})

	store.Init()

	if !reflect.DeepEqual(store.Get(), Default()) {
		t.Errorf("Expected defaults after Init, got %v", store.Get())
	}
}

func TestStore_CustomDefaults(t *testing.T) {
	defaults := Config{"listener": map[string]any{"port": 8081, "endpoint": "/in"}}
	store := NewStore(defaults)

	// Mutating the caller's map must not leak into the store
	listener, _ := defaults.Section("listener")
	listener["port"] = 1

	store.Set(Config{"listener": map[string]any{"port": 2}})
	store.Init()

	if port, _ := store.Get().Lookup("listener.port"); port != 8081 {
		t.Errorf("Expected custom default port 8081, got %v", port)
	}
	if !reflect.DeepEqual(store.Defaults(), Config{"listener": map[string]any{"port": 8081, "endpoint": "/in"}}) {
		t.Errorf("Unexpected defaults: %v", store.Defaults())
	}
}

func TestStore_ReplaceFillsDefaults(t *testing.T) {
	store := NewStore(nil)

	store.Replace(Config{"listener": map[string]any{"endpoint": "/x"}})

	cfg := store.Get()
	if got := cfg.String("listener.endpoint"); got != "/x" {
		t.Errorf("Expected endpoint /x, got %q", got)
	}
	if port, _ := cfg.Lookup("listener.port"); port != DefaultPort {
		t.Errorf("Expected default port, got %v", port)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(port int) {
			defer wg.Done()
			store.Set(Config{"listener": map[string]any{"port": port}})
		}(4000 + i)
		go func() {
			defer wg.Done()
			_ = store.Get().String("listener.endpoint")
		}()
	}
	wg.Wait()

	if got := store.Get().String("listener.endpoint"); got != DefaultEndpoint {
		t.Errorf("Expected endpoint to survive concurrent writes, got %q", got)
	}
}
