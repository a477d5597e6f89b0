package period

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeStore struct {
	resets  []Period
	failFor map[Period]bool
	drifts  []StarDrift
}

func (f *fakeStore) ResetPeriod(ctx context.Context, p Period) (int64, error) {
	if f.failFor[p] {
		return 0, errors.New("storage unavailable")
	}
	f.resets = append(f.resets, p)
	return 3, nil
}

func (f *fakeStore) ListStarDrift(ctx context.Context) ([]StarDrift, error) {
	return f.drifts, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunResetTargetsOnePeriod(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, testLogger())

	if err := s.RunReset(context.Background(), Daily); err != nil {
		t.Fatalf("run reset: %v", err)
	}
	if len(store.resets) != 1 || store.resets[0] != Daily {
		t.Errorf("resets = %v, want [daily]", store.resets)
	}
}

func TestRunResetUnknownPeriod(t *testing.T) {
	s := NewScheduler(&fakeStore{}, testLogger())

	err := s.RunReset(context.Background(), Period("hourly"))
	if !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("err = %v, want ErrUnknownPeriod", err)
	}
}

// One period's failure must not prevent the other periods from resetting.
func TestResetFailuresAreIsolated(t *testing.T) {
	store := &fakeStore{failFor: map[Period]bool{Weekly: true}}
	s := NewScheduler(store, testLogger())
	ctx := context.Background()

	if err := s.RunReset(ctx, Weekly); err == nil {
		t.Fatal("expected weekly reset to fail")
	}
	for _, p := range []Period{Daily, Monthly, Yearly} {
		if err := s.RunReset(ctx, p); err != nil {
			t.Errorf("reset %s after weekly failure: %v", p, err)
		}
	}
	if len(store.resets) != 3 {
		t.Errorf("resets = %v, want the three healthy periods", store.resets)
	}
}

func TestStartRegistersAllJobs(t *testing.T) {
	s := NewScheduler(&fakeStore{}, testLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	// Four period resets plus the reconciliation check.
	if got := len(s.cron.Entries()); got != 5 {
		t.Errorf("cron entries = %d, want 5", got)
	}
}

func TestRunReconcileReportsDrift(t *testing.T) {
	store := &fakeStore{drifts: []StarDrift{{FamilyID: 7, TotalStars: 100, MemberSum: 90}}}
	s := NewScheduler(store, testLogger())

	if err := s.RunReconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
}

func TestRunResetInvokesCallback(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, testLogger())

	var gotPeriod Period
	var gotFamilies int64
	s.OnReset(func(p Period, families int64) {
		gotPeriod = p
		gotFamilies = families
	})

	if err := s.RunReset(context.Background(), Weekly); err != nil {
		t.Fatalf("run reset: %v", err)
	}
	if gotPeriod != Weekly {
		t.Errorf("callback period = %q, want weekly", gotPeriod)
	}
	if gotFamilies != 3 {
		t.Errorf("callback families = %d, want 3", gotFamilies)
	}
}

func TestRunResetFailureSkipsCallback(t *testing.T) {
	store := &fakeStore{failFor: map[Period]bool{Daily: true}}
	s := NewScheduler(store, testLogger())

	called := false
	s.OnReset(func(Period, int64) { called = true })

	if err := s.RunReset(context.Background(), Daily); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("callback fired for a failed reset")
	}
}
