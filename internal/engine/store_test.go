package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreSetGetRoundTrip(t *testing.T) {
	store := seededStore(t, StrategyRequestOnly, testRoster(2), nil, november2023())
	d := mustDate(t, "2023-11-15")

	for _, code := range DefaultCatalog().Codes() {
		a, err := store.Set("U001", d, code)
		require.NoError(t, err)
		require.Equal(t, code, a.ShiftCode)

		got, ok := store.Get("U001", d)
		require.True(t, ok)
		require.Equal(t, code, got.ShiftCode)
		require.Equal(t, "U001-2023-11-15", got.ID)
	}
}

func TestStoreSetFailureLeavesStateUnchanged(t *testing.T) {
	store := seededStore(t, StrategyRequestOnly, testRoster(2), nil, november2023())
	d := mustDate(t, "2023-11-15")
	before, _ := store.Get("U001", d)
	version := store.Version()

	_, err := store.Set("U001", d, "S9")
	require.ErrorIs(t, err, ErrUnknownShiftType)

	_, err = store.Set("U001", mustDate(t, "2023-12-01"), "S1")
	require.ErrorIs(t, err, ErrDateOutOfMonth)

	after, _ := store.Get("U001", d)
	require.Equal(t, before, after)
	require.Equal(t, version, store.Version())
	require.Equal(t, 60, store.Len())
}

func TestStoreSetInsertsMissingCell(t *testing.T) {
	store := NewStore(DefaultCatalog(), november2023())
	d := mustDate(t, "2023-11-01")
	_, ok := store.Get("U009", d)
	require.False(t, ok)

	_, err := store.Set("U009", d, "S4")
	require.NoError(t, err)
	require.Equal(t, 1, store.Count(d, "S4"))
	require.Equal(t, []string{"U009"}, store.Staff())
}

func TestStoreRegenerateReplaces(t *testing.T) {
	month := november2023()
	store := seededStore(t, StrategyRequestOnly, testRoster(3), nil, month)
	d := mustDate(t, "2023-11-05")
	_, err := store.Set("U001", d, "S4")
	require.NoError(t, err)

	res, err := newTestGenerator(t, StrategyRequestOnly).Generate(context.Background(), testRoster(2), nil, month)
	require.NoError(t, err)
	require.NoError(t, store.Seed(res.Grid))

	a, _ := store.Get("U001", d)
	require.Equal(t, "S2", a.ShiftCode, "重新生成后人工调整应被覆盖")
	_, ok := store.Get("U003", d)
	require.False(t, ok, "重新生成后旧职员的单元格应消失")
	require.Equal(t, 60, store.Len())
	require.Equal(t, []string{"U001", "U002"}, store.Staff())
}

func TestStoreSeedRejectsOtherMonth(t *testing.T) {
	store := NewStore(DefaultCatalog(), november2023())
	res, err := newTestGenerator(t, StrategyRequestOnly).Generate(context.Background(), testRoster(1), nil, NewMonth(2023, 12))
	require.NoError(t, err)
	require.ErrorIs(t, store.Seed(res.Grid), ErrDateOutOfMonth)
	require.False(t, store.Seeded())
}

func TestStoreSnapshotIsIndependent(t *testing.T) {
	store := seededStore(t, StrategyRequestOnly, testRoster(2), nil, november2023())
	snap := store.Snapshot()
	require.Equal(t, 60, snap.Len())
	require.Equal(t, "U001", snap.Assignments[0].StaffID)
	require.Equal(t, 1, snap.Assignments[0].Date.Day)

	_, err := store.Set("U001", mustDate(t, "2023-11-01"), "S4")
	require.NoError(t, err)
	a, _ := snap.Lookup("U001", mustDate(t, "2023-11-01"))
	require.Equal(t, "S2", a.ShiftCode)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := seededStore(t, StrategyRequestOnly, testRoster(4), nil, november2023())
	codes := DefaultCatalog().Codes()
	dates := november2023().Dates()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i, d := range dates {
				if w%2 == 0 {
					if _, err := store.Set("U001", d, codes[(i+w)%len(codes)]); err != nil {
						t.Error(err)
					}
				} else {
					_, _ = store.Get("U001", d)
					_ = store.CountsOn(d)
				}
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, 120, store.Len())
}

func TestStoreSnapshotWithVersionConsistent(t *testing.T) {
	store := seededStore(t, StrategyRequestOnly, testRoster(2), nil, november2023())
	d := mustDate(t, "2023-11-01")
	base := store.Version()

	// 第 n 次写入后版本为 base+n；奇数次写 S4，偶数次写 S2
	const writes = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= writes; i++ {
			code := "S2"
			if i%2 == 1 {
				code = "S4"
			}
			if _, err := store.Set("U001", d, code); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for {
		snap, version := store.SnapshotWithVersion()
		a, ok := snap.Lookup("U001", d)
		require.True(t, ok)
		want := "S2"
		if (version-base)%2 == 1 {
			want = "S4"
		}
		require.Equal(t, want, a.ShiftCode, "版本 %d 与网格不一致", version)
		select {
		case <-done:
			snap, version = store.SnapshotWithVersion()
			require.Equal(t, base+writes, version)
			a, _ = snap.Lookup("U001", d)
			require.Equal(t, "S2", a.ShiftCode)
			return
		default:
		}
	}
}

func TestBoard(t *testing.T) {
	b := NewBoard(DefaultCatalog())
	_, ok := b.Get(november2023())
	require.False(t, ok)

	s1 := b.Ensure(november2023())
	s2 := b.Ensure(november2023())
	require.Same(t, s1, s2)
	b.Ensure(NewMonth(2023, 1))
	require.Equal(t, []Month{NewMonth(2023, 1), november2023()}, b.Months())

	b.Drop(november2023())
	_, ok = b.Get(november2023())
	require.False(t, ok)
}
