// Package engine 实现月度排班的生成、人工调整与人数下限校验。
//
// 组件（由叶到根）：
//   - Catalog：班次类型注册表
//   - Reconciler：合并职员提交的希望休
//   - Strategy / Generator：按职员 × 日期生成整月排班
//   - Store / Board：可变的当月排班网格
//   - Validator：按日、按班次统计人数并判定是否满足下限
package engine

import (
	"fmt"
	"strings"
)

// NoTime 休息类班次的起止时间占位
const NoTime = "-"

// Category 班次大类，策略据此识别早班/夜班等
type Category string

const (
	CategoryEarly Category = "early" // 早出
	CategoryDay   Category = "day"   // 日勤
	CategoryLate  Category = "late"  // 遅出
	CategoryNight Category = "night" // 夜勤
	CategoryOff   Category = "off"   // 休み
	CategoryLeave Category = "leave" // 有給
)

// Working 该大类是否计为出勤
func (c Category) Working() bool {
	switch c {
	case CategoryEarly, CategoryDay, CategoryLate, CategoryNight:
		return true
	}
	return false
}

// ShiftType 班次类型（启动时创建，不可变）
type ShiftType struct {
	Code      string   `json:"code"        mapstructure:"code"`
	Name      string   `json:"name"        mapstructure:"name"`
	Category  Category `json:"category"    mapstructure:"category"`
	StartTime string   `json:"start_time"  mapstructure:"start_time"`
	EndTime   string   `json:"end_time"    mapstructure:"end_time"`
	Color     string   `json:"color"       mapstructure:"color"`
	TextColor string   `json:"text_color"  mapstructure:"text_color"`
}

// Working 是否为出勤班次
func (t ShiftType) Working() bool { return t.Category.Working() }

// DefaultShiftTypes 默认班次表：早出、日勤、遅出、夜勤、休み、有給
func DefaultShiftTypes() []ShiftType {
	return []ShiftType{
		{Code: "S1", Name: "早出", Category: CategoryEarly, StartTime: "07:00", EndTime: "16:00", Color: "bg-orange-100", TextColor: "text-orange-800"},
		{Code: "S2", Name: "日勤", Category: CategoryDay, StartTime: "09:00", EndTime: "18:00", Color: "bg-blue-100", TextColor: "text-blue-800"},
		{Code: "S3", Name: "遅出", Category: CategoryLate, StartTime: "11:00", EndTime: "20:00", Color: "bg-green-100", TextColor: "text-green-800"},
		{Code: "S4", Name: "夜勤", Category: CategoryNight, StartTime: "16:30", EndTime: "09:30", Color: "bg-purple-100", TextColor: "text-purple-800"},
		{Code: "S5", Name: "休み", Category: CategoryOff, StartTime: NoTime, EndTime: NoTime, Color: "bg-slate-100", TextColor: "text-slate-500"},
		{Code: "S6", Name: "有給", Category: CategoryLeave, StartTime: NoTime, EndTime: NoTime, Color: "bg-pink-100", TextColor: "text-pink-700"},
	}
}

// Catalog 班次类型注册表，顺序即配置顺序
type Catalog struct {
	types []ShiftType
	index map[string]int
}

// NewCatalog 校验并创建注册表：代码非空且唯一、大类合法、至少一个出勤与一个休息班次
func NewCatalog(types []ShiftType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("班次类型列表为空")
	}
	c := &Catalog{
		types: make([]ShiftType, 0, len(types)),
		index: make(map[string]int, len(types)),
	}
	var working, off bool
	for _, t := range types {
		if t.Code == "" {
			return nil, fmt.Errorf("班次代码不能为空 (name=%s)", t.Name)
		}
		if _, dup := c.index[t.Code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateShiftType, t.Code)
		}
		switch t.Category {
		case CategoryEarly, CategoryDay, CategoryLate, CategoryNight:
			working = true
		case CategoryOff, CategoryLeave:
			off = off || t.Category == CategoryOff
			if t.StartTime == "" {
				t.StartTime = NoTime
			}
			if t.EndTime == "" {
				t.EndTime = NoTime
			}
		default:
			return nil, fmt.Errorf("班次 %s 的大类无效: %q", t.Code, t.Category)
		}
		c.index[t.Code] = len(c.types)
		c.types = append(c.types, t)
	}
	if !working {
		return nil, fmt.Errorf("班次类型中缺少出勤班次")
	}
	if !off {
		return nil, fmt.Errorf("班次类型中缺少休息班次")
	}
	return c, nil
}

// DefaultCatalog 使用默认班次表
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultShiftTypes())
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup 按代码查找
func (c *Catalog) Lookup(code string) (ShiftType, error) {
	i, ok := c.index[code]
	if !ok {
		return ShiftType{}, fmt.Errorf("%w: %q", ErrUnknownShiftType, code)
	}
	return c.types[i], nil
}

// Validate 代码不在注册表中时返回 ErrUnknownShiftType
func (c *Catalog) Validate(code string) error {
	_, err := c.Lookup(code)
	return err
}

// Resolve 精确匹配失败时按大小写不敏感匹配（配置键会被转为小写）
func (c *Catalog) Resolve(code string) (string, bool) {
	if _, ok := c.index[code]; ok {
		return code, true
	}
	for _, t := range c.types {
		if strings.EqualFold(t.Code, code) {
			return t.Code, true
		}
	}
	return "", false
}

func (c *Catalog) Has(code string) bool {
	_, ok := c.index[code]
	return ok
}

// All 全部班次（配置顺序，返回副本）
func (c *Catalog) All() []ShiftType {
	out := make([]ShiftType, len(c.types))
	copy(out, c.types)
	return out
}

// Working 出勤班次（配置顺序）
func (c *Catalog) Working() []ShiftType {
	out := make([]ShiftType, 0, len(c.types))
	for _, t := range c.types {
		if t.Working() {
			out = append(out, t)
		}
	}
	return out
}

// Codes 全部代码（配置顺序）
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.types))
	for i, t := range c.types {
		out[i] = t.Code
	}
	return out
}

// ByCategory 返回该大类的第一个班次
func (c *Catalog) ByCategory(cat Category) (ShiftType, bool) {
	for _, t := range c.types {
		if t.Category == cat {
			return t, true
		}
	}
	return ShiftType{}, false
}

// DefaultOff 默认休息班次（希望休未指定班次时使用）
func (c *Catalog) DefaultOff() ShiftType {
	t, _ := c.ByCategory(CategoryOff)
	return t
}

// DefaultWorking 默认出勤班次：日勤，没有日勤时取第一个出勤班次
func (c *Catalog) DefaultWorking() ShiftType {
	if t, ok := c.ByCategory(CategoryDay); ok {
		return t
	}
	return c.Working()[0]
}

// IsWorking 未知代码按非出勤处理
func (c *Catalog) IsWorking(code string) bool {
	i, ok := c.index[code]
	return ok && c.types[i].Working()
}

func (c *Catalog) isCategory(code string, cat Category) bool {
	t, err := c.Lookup(code)
	return err == nil && t.Category == cat
}
