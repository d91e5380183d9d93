package browse

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Sternrassler/dino-catalog/internal/testutil"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

func loadedSession(t *testing.T, mem *testutil.MemoryCatalog, cfg Config) *Session {
	t.Helper()

	s := NewSession(mem, cfg)
	t.Cleanup(s.Close)

	s.Load()
	s.Wait()
	if s.View().TotalPages == 0 {
		t.Fatal("initial load returned no pages")
	}
	return s
}

func TestSession_FilterChangeResetsPage(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	cfg := DefaultConfig()
	cfg.Debounce = time.Hour
	s := loadedSession(t, mem, cfg)

	searches := []string{"", "saurus", "raptor", "a"}
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 200; step++ {
		before := s.State()

		switch rng.Intn(6) {
		case 0:
			s.SetSearch(searches[rng.Intn(len(searches))])
		case 1:
			s.SetDiet(append([]string{""}, catalog.Diets...)[rng.Intn(len(catalog.Diets)+1)])
		case 2:
			s.SetLocomotion(append([]string{""}, catalog.LocomotionTypes...)[rng.Intn(len(catalog.LocomotionTypes)+1)])
		case 3:
			s.SetEra(append([]string{""}, catalog.Eras...)[rng.Intn(len(catalog.Eras)+1)])
		case 4:
			s.SetPage(rng.Intn(6))
		case 5:
			s.Flush()
			s.Wait()
		}

		after := s.State()
		if !after.SameFilters(before) && after.Page != 1 {
			t.Fatalf("step %d: filters changed to %+v but page is %d", step, after.Filters, after.Page)
		}

		if rng.Intn(4) == 0 {
			s.Flush()
			s.Wait()

			view, state := s.View(), s.State()
			if view.Filters != state.Filters.Normalize() {
				t.Fatalf("step %d: settled view filters %+v, state %+v", step, view.Filters, state.Filters)
			}
			if view.Page != state.Page {
				t.Fatalf("step %d: settled view page %d, state page %d", step, view.Page, state.Page)
			}
			if maxPage := max(1, view.TotalPages); state.Page > maxPage {
				t.Fatalf("step %d: page %d outside [1, %d]", step, state.Page, maxPage)
			}
		}
	}
}

func TestSession_CarnivoreFilterFromPage3(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	cfg := noPrefetch()
	cfg.Debounce = time.Hour
	s := loadedSession(t, mem, cfg)

	if !s.SetPage(3) {
		t.Fatal("SetPage(3) should change the page")
	}
	s.Wait()
	if s.View().Page != 3 {
		t.Fatalf("view page = %d, want 3", s.View().Page)
	}
	if s.Coordinator().Cache().Len() == 0 {
		t.Fatal("expected cached pages before the filter change")
	}
	mem.ResetCalls()

	s.SetDiet(catalog.DietCarnivore)

	if got := s.State().Page; got != 1 {
		t.Errorf("page = %d after filter change, want 1", got)
	}
	if n := s.Coordinator().Cache().Len(); n != 0 {
		t.Errorf("cache holds %d pages after filter change, want 0", n)
	}
	if s.View().Phase != PhaseDebouncing {
		t.Errorf("Phase = %v, want debouncing", s.View().Phase)
	}

	s.Flush()
	s.Wait()

	calls := mem.Calls()
	want := query(1, catalog.Filters{Diet: catalog.DietCarnivore})
	if len(calls) != 1 || calls[0] != want {
		t.Fatalf("calls = %+v, want exactly %+v", calls, want)
	}

	view := s.View()
	if view.TotalCount != testutil.Carnivores || view.TotalPages != 2 {
		t.Errorf("TotalCount/TotalPages = %d/%d, want %d/2", view.TotalCount, view.TotalPages, testutil.Carnivores)
	}
	for _, d := range view.Items {
		if d.Diet != catalog.DietCarnivore {
			t.Errorf("%s is a %s", d.Name, d.Diet)
		}
	}
}

func TestSession_PageIsClamped(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	s := loadedSession(t, mem, DefaultConfig())

	view := s.View()
	if view.TotalCount != testutil.TotalDinosaurs || view.TotalPages != 4 {
		t.Fatalf("TotalCount/TotalPages = %d/%d, want 37/4", view.TotalCount, view.TotalPages)
	}

	s.SetPage(5)
	s.Wait()

	if got := s.State().Page; got != 4 {
		t.Errorf("page = %d, want 4", got)
	}
	if got := s.View().Page; got != 4 {
		t.Errorf("view page = %d, want 4", got)
	}
	for _, q := range mem.Calls() {
		if q.Page > 4 {
			t.Errorf("page %d was requested", q.Page)
		}
	}

	if s.SetPage(0); s.State().Page != 1 {
		t.Errorf("page = %d after SetPage(0), want 1", s.State().Page)
	}
}

func TestSession_TypingIsDebounced(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.Started = make(chan catalog.Query, 8)

	s := NewSession(mem, DefaultConfig())
	defer s.Close()

	for _, text := range []string{"t", "ty", "tyr"} {
		s.SetSearch(text)
		time.Sleep(50 * time.Millisecond)
	}

	q := waitStarted(t, mem.Started)
	if q.Filters.Search != "tyr" {
		t.Errorf("fetched search %q, want tyr", q.Filters.Search)
	}
	s.Wait()

	// nothing else may fire
	time.Sleep(DefaultDebounce + 100*time.Millisecond)
	s.Wait()

	if n := mem.CallCount(); n != 1 {
		t.Errorf("fetches = %d, want 1 (calls %+v)", n, mem.Calls())
	}
	want := []string{"Styracosaurus", "Tyrannosaurus"}
	if got := names(s.View().Items); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("items = %v, want %v", got, want)
	}
}

type recordingScroll struct {
	offset   int
	restored []int
}

func (r *recordingScroll) ScrollOffset() int {
	return r.offset
}

func (r *recordingScroll) RestoreScroll(offset int) {
	r.restored = append(r.restored, offset)
}

func TestSession_SetPageKeepsScroll(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	s := loadedSession(t, mem, DefaultConfig())

	scroll := &recordingScroll{offset: 840}
	s.SetScrollKeeper(scroll)

	if !s.SetPage(2) {
		t.Fatal("SetPage(2) should change the page")
	}
	if len(scroll.restored) != 1 || scroll.restored[0] != 840 {
		t.Errorf("restored = %v, want [840]", scroll.restored)
	}

	if s.SetPage(2) {
		t.Error("SetPage to the current page should be a no-op")
	}
	if len(scroll.restored) != 1 {
		t.Errorf("no-op SetPage touched the scroll offset: %v", scroll.restored)
	}
}

func TestSession_NextPrev(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	s := loadedSession(t, mem, DefaultConfig())

	if s.PrevPage() {
		t.Error("PrevPage on page 1 should be a no-op")
	}
	if !s.NextPage() || s.State().Page != 2 {
		t.Errorf("NextPage moved to page %d, want 2", s.State().Page)
	}
	s.Wait()
	if !s.PrevPage() || s.State().Page != 1 {
		t.Errorf("PrevPage moved to page %d, want 1", s.State().Page)
	}
}

func TestSession_SameValueIsNoEdit(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	s := loadedSession(t, mem, DefaultConfig())
	s.SetPage(2)
	s.Wait()

	s.SetDiet("")

	if s.State().Page != 2 {
		t.Errorf("unchanged filter reset the page to %d", s.State().Page)
	}
	if s.Coordinator().Cache().Len() == 0 {
		t.Error("unchanged filter cleared the cache")
	}
}

func TestSession_RefreshAfterError(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.FailNext(1)

	s := NewSession(mem, noPrefetch())
	defer s.Close()

	s.Load()
	s.Wait()
	if view := s.View(); view.Phase != PhaseError || view.Err == "" {
		t.Fatalf("view = %+v, want error", view)
	}

	s.Refresh()
	s.Wait()
	if view := s.View(); view.Phase != PhaseIdle || len(view.Items) != catalog.DefaultPageSize {
		t.Errorf("after refresh: phase %v, %d items", view.Phase, len(view.Items))
	}
}

func TestSession_WaitWhileDebounceFires(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	cfg := DefaultConfig()
	cfg.Debounce = time.Microsecond

	for i := 0; i < 200; i++ {
		s := NewSession(mem, cfg)
		s.Load()
		s.SetSearch("a")
		s.Wait()
		s.SetSearch("")
		s.Wait()
		s.Close()
	}
}
