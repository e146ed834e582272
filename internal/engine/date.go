package engine

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date 日历日（无时区），文本形式 yyyy-MM-dd
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate 解析 yyyy-MM-dd
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf 取 t 所在的日历日
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time 返回当日 00:00 UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays 按日历日偏移（可跨月跨年）
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

func (d Date) IsZero() bool { return d == Date{} }

// Weekday 星期
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// MonthOf 返回日期所属月份
func (d Date) MonthOf() Month { return Month{Year: d.Year, Month: d.Month} }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Month 排班目标年月
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth 由整数年月构造；不做范围校验（由 Generator 负责）
func NewMonth(year, month int) Month {
	return Month{Year: year, Month: time.Month(month)}
}

// Valid 月份字段是否在 1..12
func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December
}

// Days 当月天数，闰年二月为 29
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Date 返回当月第 day 天
func (m Month) Date(day int) Date {
	return Date{Year: m.Year, Month: m.Month, Day: day}
}

// Dates 当月全部日期（升序）
func (m Month) Dates() []Date {
	n := m.Days()
	dates := make([]Date, 0, n)
	for day := 1; day <= n; day++ {
		dates = append(dates, m.Date(day))
	}
	return dates
}

// Contains 判断日期是否落在当月
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month && d.Day >= 1 && d.Day <= m.Days()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
