package scrapers

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct{ name string }

func (s *stubFetcher) Store() string { return s.name }

func (s *stubFetcher) Fetch(context.Context) ([]RawListing, error) {
	return nil, nil
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zara", "amazon", "mango"} {
		if err := r.Register(&stubFetcher{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	stores := r.Stores()
	want := []string{"zara", "amazon", "mango"}
	for i, name := range want {
		if stores[i] != name {
			t.Fatalf("stores[%d] = %s, want %s", i, stores[i], name)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubFetcher{name: "zara"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&stubFetcher{name: "zara"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubFetcher{name: "zara"})

	if _, ok := r.Get("zara"); !ok {
		t.Error("registered store not found")
	}
	if _, ok := r.Get("amazon"); ok {
		t.Error("unregistered store found")
	}
}

func TestFetchErrorUnwraps(t *testing.T) {
	cause := errors.New("page unreachable")
	err := &FetchError{Store: "zara", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("FetchError must unwrap to its cause")
	}
}
