package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ── 测试辅助 ──

func testRoster(n int) []StaffMember {
	roster := make([]StaffMember, 0, n)
	for i := 1; i <= n; i++ {
		roster = append(roster, StaffMember{
			ID:         fmt.Sprintf("U%03d", i),
			Name:       fmt.Sprintf("职员%d", i),
			Groups:     NewGroupSet("1"),
			Qualified:  true,
			Employment: EmploymentFullTime,
		})
	}
	return roster
}

func november2023() Month { return NewMonth(2023, 11) }

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func newTestGenerator(t *testing.T, kind StrategyKind) *Generator {
	t.Helper()
	catalog := DefaultCatalog()
	strategy, err := NewStrategy(kind, catalog, StrategyOptions{Seed: 42})
	require.NoError(t, err)
	return NewGenerator(catalog, strategy)
}

func seededStore(t *testing.T, kind StrategyKind, roster []StaffMember, requests []ShiftRequest, month Month) *Store {
	t.Helper()
	gen := newTestGenerator(t, kind)
	res, err := gen.Generate(context.Background(), roster, requests, month)
	require.NoError(t, err)
	store := NewStore(DefaultCatalog(), month)
	require.NoError(t, store.Seed(res.Grid))
	return store
}

// ── Date / Month ──

func TestMonthDays(t *testing.T) {
	tests := []struct {
		month Month
		want  int
	}{
		{NewMonth(2024, 2), 29},
		{NewMonth(2023, 2), 28},
		{NewMonth(2000, 2), 29},
		{NewMonth(2100, 2), 28},
		{NewMonth(2023, 11), 30},
		{NewMonth(2023, 12), 31},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.month.Days())
			require.Len(t, tt.month.Dates(), tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-11-10")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2023, Month: time.November, Day: 10}, d)
	require.Equal(t, "2023-11-10", d.String())

	_, err = ParseDate("2023/11/10")
	require.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("2023-02-30")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateAddDaysCrossesMonth(t *testing.T) {
	d := Date{Year: 2023, Month: time.December, Day: 31}
	require.Equal(t, Date{Year: 2024, Month: time.January, Day: 1}, d.AddDays(1))
	require.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, Date{Year: 2024, Month: time.March, Day: 1}.AddDays(-1))
}

func TestDateTextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2024-02-29")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", string(b))
}

// ── Catalog ──

func TestCatalogDefaultOrder(t *testing.T) {
	c := DefaultCatalog()
	require.Equal(t, []string{"S1", "S2", "S3", "S4", "S5", "S6"}, c.Codes())

	working := c.Working()
	require.Len(t, working, 4)
	for _, st := range working {
		require.True(t, st.Working())
	}

	off, err := c.Lookup("S5")
	require.NoError(t, err)
	require.False(t, off.Working())
	require.Equal(t, NoTime, off.StartTime)
	require.Equal(t, NoTime, off.EndTime)

	require.Equal(t, "S5", c.DefaultOff().Code)
	require.Equal(t, "S2", c.DefaultWorking().Code)
}

func TestCatalogLookupUnknown(t *testing.T) {
	_, err := DefaultCatalog().Lookup("S9")
	require.ErrorIs(t, err, ErrUnknownShiftType)
	require.ErrorIs(t, DefaultCatalog().Validate(""), ErrUnknownShiftType)
}

func TestNewCatalogRejectsInvalid(t *testing.T) {
	_, err := NewCatalog([]ShiftType{
		{Code: "A", Category: CategoryDay},
		{Code: "A", Category: CategoryOff},
	})
	require.ErrorIs(t, err, ErrDuplicateShiftType)

	_, err = NewCatalog([]ShiftType{{Code: "A", Category: CategoryDay}})
	require.Error(t, err, "缺少休息班次应报错")

	_, err = NewCatalog([]ShiftType{{Code: "A", Category: "bogus"}, {Code: "B", Category: CategoryOff}})
	require.Error(t, err)

	_, err = NewCatalog([]ShiftType{{Code: "", Category: CategoryDay}, {Code: "B", Category: CategoryOff}})
	require.Error(t, err)
}

func TestCatalogResolve(t *testing.T) {
	c := DefaultCatalog()
	code, ok := c.Resolve("s4")
	require.True(t, ok)
	require.Equal(t, "S4", code)
	_, ok = c.Resolve("s9")
	require.False(t, ok)
}

func TestCatalogAllReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	all[0].Code = "XX"
	require.Equal(t, "S1", c.All()[0].Code)
}

// ── GroupSet / Employment ──

func TestGroupSet(t *testing.T) {
	s := ParseGroupSet(" 2, 1,,3 ")
	require.Equal(t, []string{"1", "2", "3"}, s.Strings())
	require.True(t, s.Has("2"))
	require.False(t, s.Has("4"))
	require.True(t, s.Intersects(NewGroupSet("3", "9")))
	require.False(t, s.Intersects(NewGroupSet("9")))

	s.Remove("2")
	require.Equal(t, 2, s.Len())
}

func TestParseEmploymentType(t *testing.T) {
	for in, want := range map[string]EmploymentType{
		"full_time": EmploymentFullTime,
		"常勤":        EmploymentFullTime,
		"派遣":        EmploymentDispatched,
		"パート":       EmploymentPartTime,
		"part_time": EmploymentPartTime,
	} {
		got, err := ParseEmploymentType(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseEmploymentType("contract")
	require.ErrorIs(t, err, ErrInvalidEmployment)
}
