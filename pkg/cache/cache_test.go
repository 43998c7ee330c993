package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/Sternrassler/pagestream/internal/testutil"
	"github.com/Sternrassler/pagestream/pkg/source"
)

// drain reads c from index 0 until the end, checking the window bound after
// every call.
func drain(t *testing.T, c *Cache[string]) []string {
	t.Helper()

	var got []string
	for i := 0; ; i++ {
		el, ok, err := c.Get(context.Background(), i)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
		if resident := len(c.Resident()); resident > c.Config().WindowSize {
			t.Fatalf("Get(%d) left %d resident pages, window is %d", i, resident, c.Config().WindowSize)
		}
		if !ok {
			break
		}
		if el.Index != i {
			t.Errorf("Get(%d).Index = %d", i, el.Index)
		}
		got = append(got, el.Value)
		if !el.HasNext {
			break
		}
	}
	return got
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		src     source.Source[string]
		cfg     Config
		wantErr error
	}{
		{name: "default config", src: testutil.NewNumberedSource("A", 1), cfg: DefaultConfig()},
		{name: "prefetch config", src: testutil.NewNumberedSource("A", 1), cfg: PrefetchConfig(10, 4)},
		{name: "nil source", src: nil, cfg: DefaultConfig(), wantErr: ErrNilSource},
		{name: "zero page size", src: testutil.NewNumberedSource("A", 1), cfg: Config{PageSize: 0, WindowSize: 2, Concurrency: 1}, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.src, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c == nil {
				t.Fatal("New() returned nil cache")
			}
			if tt.wantErr != nil && c != nil {
				t.Error("New() returned a cache together with an error")
			}
		})
	}
}

func TestCache_SequentialRead(t *testing.T) {
	pageSizes := []int{1, 2, 3, 7, 10, 100}
	counts := []int{0, 1, 2, 9, 10, 11, 101}

	for _, pageSize := range pageSizes {
		for _, count := range counts {
			t.Run(fmt.Sprintf("page_size=%d/count=%d", pageSize, count), func(t *testing.T) {
				src := testutil.NewNumberedSource("A", count)
				cfg := DefaultConfig()
				cfg.PageSize = pageSize

				c, err := New[string](src, cfg)
				if err != nil {
					t.Fatal(err)
				}

				got := drain(t, c)
				if want := src.Data(); !reflect.DeepEqual(got, want) && (len(got) != 0 || len(want) != 0) {
					t.Errorf("read %v, want %v", got, want)
				}

				if got := src.BeforeCalls(); got != 1 {
					t.Errorf("BeforeCalls() = %d, want 1", got)
				}
				afters := src.AfterCalls()
				if len(afters) != 1 {
					t.Fatalf("AfterCalls() = %v, want exactly one", afters)
				}
				if afters[0].Count != count {
					t.Errorf("after-last-read count = %d, want %d", afters[0].Count, count)
				}
				if afters[0].PageSize != pageSize {
					t.Errorf("after-last-read page size = %d, want %d", afters[0].PageSize, pageSize)
				}
				if c.State() != StateExhausted {
					t.Errorf("State() = %v, want %v", c.State(), StateExhausted)
				}
				if c.Delivered() != count {
					t.Errorf("Delivered() = %d, want %d", c.Delivered(), count)
				}

				fetches := src.Fetches()
				for i := 1; i < len(fetches); i++ {
					if fetches[i] != fetches[i-1]+1 {
						t.Errorf("Fetches() = %v, want consecutive pages fetched once", fetches)
						break
					}
				}
			})
		}
	}
}

func TestCache_EmptySource(t *testing.T) {
	src := testutil.NewNumberedSource("A", 0)
	c, err := New[string](src, Config{PageSize: 10, WindowSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	if c.State() != StateUnstarted {
		t.Errorf("State() before Get = %v, want %v", c.State(), StateUnstarted)
	}

	_, ok, err := c.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get(0) error = %v", err)
	}
	if ok {
		t.Error("Get(0) on empty source returned an element")
	}

	if got := src.BeforeCalls(); got != 1 {
		t.Errorf("BeforeCalls() = %d, want 1", got)
	}
	want := []testutil.AfterCall{{PageNumber: 1, PageSize: 10, Count: 0}}
	if got := src.AfterCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("AfterCalls() = %v, want %v", got, want)
	}

	// Exhausted caches never call the source again.
	if _, ok, _ := c.Get(context.Background(), 0); ok {
		t.Error("second Get(0) returned an element")
	}
	if got := src.Fetches(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Fetches() = %v, want [1]", got)
	}
	if got := len(src.AfterCalls()); got != 1 {
		t.Errorf("after-last-read fired %d times, want 1", got)
	}
}

func TestCache_NotificationOrder(t *testing.T) {
	src := testutil.NewNumberedSource("A", 12)
	c, err := New[string](src, Config{PageSize: 5, WindowSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	drain(t, c)

	want := []string{"before", "fetch:1", "fetch:2", "fetch:3", "after"}
	if got := src.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Events() = %v, want %v", got, want)
	}
}

func TestCache_Lookahead(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		pageSize    int
		wantFetches []int
	}{
		{name: "short last page ends the source", count: 15, pageSize: 10, wantFetches: []int{1, 2}},
		{name: "full last page needs an empty page", count: 20, pageSize: 10, wantFetches: []int{1, 2, 3}},
		{name: "single short page", count: 3, pageSize: 10, wantFetches: []int{1}},
		{name: "page size one", count: 2, pageSize: 1, wantFetches: []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewNumberedSource("A", tt.count)
			c, err := New[string](src, Config{PageSize: tt.pageSize, WindowSize: 2, Concurrency: 1})
			if err != nil {
				t.Fatal(err)
			}

			if got := drain(t, c); len(got) != tt.count {
				t.Errorf("read %d elements, want %d", len(got), tt.count)
			}
			if got := src.Fetches(); !reflect.DeepEqual(got, tt.wantFetches) {
				t.Errorf("Fetches() = %v, want %v", got, tt.wantFetches)
			}
		})
	}
}

func TestCache_HasNextAtPageBoundary(t *testing.T) {
	src := testutil.NewNumberedSource("A", 11)
	c, err := New[string](src, Config{PageSize: 10, WindowSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		if _, _, err := c.Get(ctx, i); err != nil {
			t.Fatal(err)
		}
	}

	el, ok, err := c.Get(ctx, 9)
	if err != nil || !ok {
		t.Fatalf("Get(9) = %v, %v, %v", el, ok, err)
	}
	if !el.HasNext {
		t.Error("Get(9).HasNext = false, want true (page 2 holds one element)")
	}

	el, ok, err = c.Get(ctx, 10)
	if err != nil || !ok {
		t.Fatalf("Get(10) = %v, %v, %v", el, ok, err)
	}
	if el.Value != "10A" || el.HasNext {
		t.Errorf("Get(10) = %+v, want value 10A without next", el)
	}
}

func TestCache_EvictionFIFO(t *testing.T) {
	src := testutil.NewNumberedSource("A", 45)
	c, err := New[string](src, Config{PageSize: 10, WindowSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	want := map[int][]int{
		0:  {1},
		8:  {1},
		9:  {1, 2}, // lookahead loads page 2
		10: {1, 2},
		19: {2, 3},
		29: {3, 4},
		39: {4, 5},
	}

	for i := 0; i < 40; i++ {
		if _, _, err := c.Get(ctx, i); err != nil {
			t.Fatal(err)
		}
		if pages, ok := want[i]; ok {
			if got := c.Resident(); !reflect.DeepEqual(got, pages) {
				t.Errorf("after Get(%d) Resident() = %v, want %v", i, got, pages)
			}
		}
	}
}

func TestCache_WindowOfOne(t *testing.T) {
	src := testutil.NewNumberedSource("A", 25)
	c, err := New[string](src, Config{PageSize: 10, WindowSize: 1, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	if got := drain(t, c); !reflect.DeepEqual(got, src.Data()) {
		t.Errorf("read %v, want %v", got, src.Data())
	}
	if got := src.Fetches(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Fetches() = %v, want [1 2 3]", got)
	}
}

func TestCache_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := testutil.NewNumberedSource("A", 30)
	src.FailPage(2, boom)

	c, err := New[string](src, Config{PageSize: 10, WindowSize: 2, Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		if _, _, err := c.Get(ctx, i); err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
	}

	// Index 9 is the last of page 1, its lookahead needs page 2.
	_, ok, err := c.Get(ctx, 9)
	if err != boom {
		t.Errorf("Get(9) error = %v, want the source error unchanged", err)
	}
	if ok {
		t.Error("Get(9) returned an element together with an error")
	}
}

func TestCache_NotificationErrors(t *testing.T) {
	boom := errors.New("hook failed")

	t.Run("before first read", func(t *testing.T) {
		src := testutil.NewNumberedSource("A", 3)
		src.FailHooks(boom)
		c, _ := New[string](src, DefaultConfig())

		if _, _, err := c.Get(context.Background(), 0); !errors.Is(err, boom) {
			t.Errorf("Get(0) error = %v, want %v", err, boom)
		}
		if got := src.Fetches(); len(got) != 0 {
			t.Errorf("Fetches() = %v, want none after failed notification", got)
		}
	})

	t.Run("after last read", func(t *testing.T) {
		c, _ := New[string](source.WithHooks[string](source.Slice[string]{}, nil,
			func(context.Context, int, int, int) error { return boom }), DefaultConfig())

		if _, _, err := c.Get(context.Background(), 0); !errors.Is(err, boom) {
			t.Errorf("Get(0) error = %v, want %v", err, boom)
		}
		if c.State() != StateExhausted {
			t.Errorf("State() = %v, want %v", c.State(), StateExhausted)
		}
	})

	t.Run("last element withheld", func(t *testing.T) {
		c, _ := New[string](source.WithHooks[string](source.Slice[string]{"a", "b"}, nil,
			func(context.Context, int, int, int) error { return boom }), DefaultConfig())

		ctx := context.Background()
		if el, ok, err := c.Get(ctx, 0); err != nil || !ok || el.Value != "a" {
			t.Fatalf("Get(0) = %v, %v, %v, want a", el, ok, err)
		}
		el, ok, err := c.Get(ctx, 1)
		if !errors.Is(err, boom) {
			t.Errorf("Get(1) error = %v, want %v", err, boom)
		}
		if ok || el != (Element[string]{}) {
			t.Errorf("Get(1) = %v, %v, want the zero element", el, ok)
		}
	})
}

func TestCache_NegativeIndex(t *testing.T) {
	src := testutil.NewNumberedSource("A", 3)
	c, _ := New[string](src, DefaultConfig())

	if _, _, err := c.Get(context.Background(), -1); !errors.Is(err, ErrNegativeIndex) {
		t.Errorf("Get(-1) error = %v, want ErrNegativeIndex", err)
	}
	if c.State() != StateUnstarted {
		t.Errorf("State() = %v, want %v", c.State(), StateUnstarted)
	}
}

func TestCache_Prefetch(t *testing.T) {
	src := testutil.NewNumberedSource("A", 95)
	cfg := PrefetchConfig(10, 3)

	c, err := New[string](src, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := c.Get(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	first := src.Fetches()
	sort.Ints(first)
	if !reflect.DeepEqual(first, []int{1, 2, 3}) {
		t.Errorf("first miss fetched %v, want [1 2 3]", first)
	}
	if got := c.Resident(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Resident() = %v, want [1 2 3]", got)
	}

	c2, err := New[string](testutil.NewNumberedSource("A", 95), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, c2); !reflect.DeepEqual(got, src.Data()) {
		t.Errorf("prefetching read %v, want %v", got, src.Data())
	}
}

func TestCache_PrefetchStopsAtEnd(t *testing.T) {
	src := testutil.NewNumberedSource("A", 25)
	c, err := New[string](src, PrefetchConfig(10, 4))
	if err != nil {
		t.Fatal(err)
	}

	if got := drain(t, c); len(got) != 25 {
		t.Fatalf("read %d elements, want 25", len(got))
	}

	// One run covers pages 1-4; page 3 is short, so no second run happens.
	fetches := src.Fetches()
	sort.Ints(fetches)
	if !reflect.DeepEqual(fetches, []int{1, 2, 3, 4}) {
		t.Errorf("Fetches() = %v, want [1 2 3 4]", fetches)
	}
	if got := src.PeakInFlight(); got > 4 {
		t.Errorf("PeakInFlight() = %d, want at most 4", got)
	}
	if afters := src.AfterCalls(); len(afters) != 1 || afters[0].Count != 25 || afters[0].PageNumber != 3 {
		t.Errorf("AfterCalls() = %v, want one call for page 3 with count 25", afters)
	}
}

func TestCache_PrefetchErrorInstallsNothing(t *testing.T) {
	boom := errors.New("boom")
	src := testutil.NewNumberedSource("A", 100)
	src.FailPage(2, boom)

	c, err := New[string](src, PrefetchConfig(10, 3))
	if err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Get(context.Background(), 0)
	if ok {
		t.Error("Get(0) returned an element together with an error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Get(0) error = %v, want wrapping %v", err, boom)
	}

	var prefetchErr *PrefetchError
	if !errors.As(err, &prefetchErr) {
		t.Fatalf("Get(0) error = %T, want *PrefetchError", err)
	}
	if prefetchErr.FirstPage != 1 || prefetchErr.Pages != 3 {
		t.Errorf("PrefetchError = %+v, want pages 1-3", prefetchErr)
	}
	if got := c.Resident(); len(got) != 0 {
		t.Errorf("Resident() = %v, want no pages after failed run", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnstarted, "unstarted"},
		{StateStreaming, "streaming"},
		{StateExhausted, "exhausted"},
		{State(7), "state(7)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
