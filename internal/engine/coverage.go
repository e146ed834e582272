package engine

import (
	"fmt"
)

// Rules 班次代码 → 每日最低人数
type Rules map[string]int

// DefaultRules 早出至少 2 人、夜勤至少 1 人
func DefaultRules(catalog *Catalog) Rules {
	rules := Rules{}
	if t, ok := catalog.ByCategory(CategoryEarly); ok {
		rules[t.Code] = 2
	}
	if t, ok := catalog.ByCategory(CategoryNight); ok {
		rules[t.Code] = 1
	}
	return rules
}

// Validate 代码必须在注册表中、下限不可为负
func (r Rules) Validate(catalog *Catalog) error {
	for code, min := range r {
		if err := catalog.Validate(code); err != nil {
			return err
		}
		if min < 0 {
			return fmt.Errorf("%w: %s 下限为负数 %d", ErrInvalidRule, code, min)
		}
	}
	return nil
}

// Clone 副本
func (r Rules) Clone() Rules {
	out := make(Rules, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Verdict 某日某班次的人数判定（派生数据，不持久化）
type Verdict struct {
	ShiftCode    string `json:"shift_code"`
	Count        int    `json:"count"`
	Minimum      int    `json:"minimum"`
	HasMinimum   bool   `json:"has_minimum"`
	MeetsMinimum bool   `json:"meets_minimum"`
}

// DayCoverage 某日全部判定
type DayCoverage struct {
	Date     Date      `json:"date"`
	Verdicts []Verdict `json:"verdicts"`
	OK       bool      `json:"ok"`
}

// CountSource 可按日统计各班次人数的数据源（Store、Grid 均实现）
type CountSource interface {
	CountsOn(d Date) map[string]int
}

// Validator 人数下限校验器；只报告，不修改也不拒绝排班
type Validator struct {
	catalog *Catalog
	rules   Rules
	codes   []string
}

// NewValidator 创建校验器
func NewValidator(catalog *Catalog, rules Rules) (*Validator, error) {
	if err := rules.Validate(catalog); err != nil {
		return nil, err
	}
	v := &Validator{catalog: catalog, rules: rules.Clone()}
	// 判定范围：全部出勤班次 + 配置了下限的非出勤班次，保持注册表顺序
	for _, t := range catalog.All() {
		if _, ruled := v.rules[t.Code]; t.Working() || ruled {
			v.codes = append(v.codes, t.Code)
		}
	}
	return v, nil
}

// Rules 当前规则副本
func (v *Validator) Rules() Rules { return v.rules.Clone() }

// Evaluate 对某日逐班次计数并判定；每次调用都重新统计
func (v *Validator) Evaluate(src CountSource, d Date) []Verdict {
	counts := src.CountsOn(d)
	verdicts := make([]Verdict, 0, len(v.codes))
	for _, code := range v.codes {
		min, has := v.rules[code]
		n := counts[code]
		verdicts = append(verdicts, Verdict{
			ShiftCode:    code,
			Count:        n,
			Minimum:      min,
			HasMinimum:   has,
			MeetsMinimum: !has || n >= min,
		})
	}
	return verdicts
}

// EvaluateDay 同 Evaluate，附带整日结论
func (v *Validator) EvaluateDay(src CountSource, d Date) DayCoverage {
	verdicts := v.Evaluate(src, d)
	ok := true
	for _, vd := range verdicts {
		if !vd.MeetsMinimum {
			ok = false
			break
		}
	}
	return DayCoverage{Date: d, Verdicts: verdicts, OK: ok}
}

// EvaluateMonth 当月逐日判定
func (v *Validator) EvaluateMonth(src CountSource, m Month) []DayCoverage {
	days := make([]DayCoverage, 0, m.Days())
	for _, d := range m.Dates() {
		days = append(days, v.EvaluateDay(src, d))
	}
	return days
}

// Shortfalls 仅保留未满足下限的日期
func Shortfalls(days []DayCoverage) []DayCoverage {
	var out []DayCoverage
	for _, d := range days {
		if !d.OK {
			out = append(out, d)
		}
	}
	return out
}
