package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为设施行事列表。
//
//   - 每个行事按日展开，一天一条记录
//   - 全天事件的 DTEND 为不含日，带时间的事件含结束当日
//   - RRULE 仅支持 DAILY / WEEKLY（INTERVAL / COUNT / UNTIL / BYDAY），EXDATE 排除
//   - ExternalUID = "<UID>#<yyyy-MM-dd>"，重复导入时据此更新而非新增
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize    = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout   = 30 * time.Second
	icsMaxSpanDays    = 31
	icsMaxOccurrences = 366
	facilityTimezone  = "Asia/Tokyo"
)

var (
	ErrICSInvalid = errors.New("ICS 格式解析失败")
	ErrICSFetch   = errors.New("获取 ICS 失败")
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrICSFetch, resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseEventsICS 解析 ICS 内容并转为 FacilityEvent 列表（按日期、标题排序）
func ParseEventsICS(reader io.Reader, groups []string) ([]model.FacilityEvent, []string, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}

	loc, err := time.LoadLocation(facilityTimezone)
	if err != nil {
		loc = time.UTC
	}

	var (
		result   []model.FacilityEvent
		warnings []string
	)
	for i, comp := range cal.Events() {
		evts, err := expandVEvent(comp, groups, loc)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("第 %d 个事件: %v", i+1, err))
			continue
		}
		result = append(result, evts...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Title < result[j].Title
	})
	return result, warnings, nil
}

// expandVEvent 解析单个 VEVENT 并按日展开
func expandVEvent(evt *ics.VEvent, groups []string, loc *time.Location) ([]model.FacilityEvent, error) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return nil, fmt.Errorf("缺少 SUMMARY")
	}
	title := strings.TrimSpace(summary.Value)

	var description string
	if p := evt.GetProperty(ics.ComponentPropertyDescription); p != nil {
		description = strings.TrimSpace(p.Value)
	}
	uid := evt.Id()

	dtStart, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil, err
	}
	span := 1
	if dtEnd, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil {
		span = spanDays(dtStart, dtEnd, allDay)
	}

	starts := occurrences(evt, dtStart, loc)
	seen := make(map[string]bool)
	var out []model.FacilityEvent
	for _, st := range starts {
		first := engine.DateOf(st)
		for i := 0; i < span; i++ {
			d := first.AddDays(i).String()
			if seen[d] {
				continue
			}
			seen[d] = true
			e := model.FacilityEvent{
				Date:        d,
				Title:       title,
				Description: description,
				Groups:      model.GroupList(groups).Normalize(),
			}
			if uid != "" {
				e.ExternalUID = uid + "#" + d
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// spanDays 事件覆盖的天数（至少 1 天，至多 icsMaxSpanDays）
func spanDays(start, end time.Time, allDay bool) int {
	s, e := engine.DateOf(start), engine.DateOf(end)
	days := int(e.Time().Sub(s.Time()).Hours() / 24)
	if !allDay && (end.Hour() != 0 || end.Minute() != 0 || end.Second() != 0) {
		days++
	}
	if days < 1 {
		days = 1
	}
	if days > icsMaxSpanDays {
		days = icsMaxSpanDays
	}
	return days
}

// ── RRULE ──

type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
	byDay    map[time.Weekday]bool
}

var icsWeekdays = map[string]time.Weekday{
	"SU": time.Sunday, "MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday,
	"TH": time.Thursday, "FR": time.Friday, "SA": time.Saturday,
}

func parseRRule(value string, loc *time.Location) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.count = n
			}
		case "UNTIL":
			if t, ok := parseICSValue(kv[1], loc); ok {
				r.until = t
			}
		case "BYDAY":
			r.byDay = make(map[time.Weekday]bool)
			for _, d := range strings.Split(kv[1], ",") {
				d = strings.ToUpper(strings.TrimSpace(d))
				if len(d) > 2 {
					d = d[len(d)-2:] // 去掉 "1MO" 之类的序号前缀
				}
				if wd, ok := icsWeekdays[d]; ok {
					r.byDay[wd] = true
				}
			}
		}
	}
	return r
}

// occurrences 返回事件的全部开始时间（含首次），受 icsMaxOccurrences 限制
func occurrences(evt *ics.VEvent, dtStart time.Time, loc *time.Location) []time.Time {
	prop := evt.GetProperty(ics.ComponentPropertyRrule)
	if prop == nil {
		return []time.Time{dtStart}
	}
	rule := parseRRule(prop.Value, loc)
	exDates := parseExDates(evt, loc)

	var step func(time.Time) time.Time
	switch rule.freq {
	case "DAILY":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, rule.interval) }
	case "WEEKLY":
		if len(rule.byDay) > 0 {
			// 按日推进，跨周时跳过 interval-1 周
			step = func(t time.Time) time.Time {
				next := t.AddDate(0, 0, 1)
				if next.Weekday() == time.Monday && rule.interval > 1 {
					next = next.AddDate(0, 0, 7*(rule.interval-1))
				}
				return next
			}
		} else {
			step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7*rule.interval) }
		}
	default:
		return []time.Time{dtStart}
	}

	var out []time.Time
	emitted := 0
	for cur, i := dtStart, 0; i < icsMaxOccurrences*7; cur, i = step(cur), i+1 {
		if !rule.until.IsZero() && engine.DateOf(rule.until).Before(engine.DateOf(cur)) {
			break
		}
		if rule.count > 0 && emitted >= rule.count {
			break
		}
		if len(rule.byDay) > 0 && rule.freq == "WEEKLY" && !rule.byDay[cur.Weekday()] {
			continue
		}
		emitted++
		if exDates[engine.DateOf(cur).String()] {
			continue
		}
		out = append(out, cur)
		if len(out) >= icsMaxOccurrences {
			break
		}
	}
	return out
}

func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	out := make(map[string]bool)
	for _, p := range evt.Properties {
		if p.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(p.Value, ",") {
			if t, ok := parseICSValue(strings.TrimSpace(v), loc); ok {
				out[engine.DateOf(t).String()] = true
			}
		}
	}
	return out
}

// parseICSValue 解析 UNTIL / EXDATE 中的日期值
func parseICSValue(v string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse("20060102T150405Z", v); err == nil {
		return t.In(loc), true
	}
	for _, f := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(f, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseICSDateTime 解析 DTSTART/DTEND，allDay 表示 DATE 值
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("缺少 %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		zone := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				zone = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone).In(loc), false, nil
	}
	if t, err := time.Parse("20060102", val); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
