package engine

import (
	"fmt"
	"sort"
	"strings"
)

// GroupID 职员所属小组标识
type GroupID string

// GroupSet 小组集合；零值不可写，使用 NewGroupSet 创建
type GroupSet map[GroupID]struct{}

// NewGroupSet 创建小组集合，忽略空白标识
func NewGroupSet(ids ...GroupID) GroupSet {
	s := make(GroupSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// ParseGroupSet 解析逗号分隔的小组列表（如 "1,2,3"）
func ParseGroupSet(csv string) GroupSet {
	s := make(GroupSet)
	for _, part := range strings.Split(csv, ",") {
		s.Add(GroupID(part))
	}
	return s
}

func (s GroupSet) Add(id GroupID) {
	id = GroupID(strings.TrimSpace(string(id)))
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

func (s GroupSet) Remove(id GroupID) { delete(s, id) }

func (s GroupSet) Has(id GroupID) bool {
	_, ok := s[id]
	return ok
}

func (s GroupSet) Len() int { return len(s) }

// Intersects 两个集合是否有共同小组
func (s GroupSet) Intersects(o GroupSet) bool {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Slice 升序返回
func (s GroupSet) Slice() []GroupID {
	out := make([]GroupID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings 升序返回字符串形式
func (s GroupSet) Strings() []string {
	ids := s.Slice()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// EmploymentType 雇佣类别（封闭枚举）
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"  // 常勤
	EmploymentDispatched EmploymentType = "dispatched" // 派遣
	EmploymentPartTime   EmploymentType = "part_time"  // パート
)

// ParseEmploymentType 同时接受英文代码与日文原称
func ParseEmploymentType(s string) (EmploymentType, error) {
	switch strings.TrimSpace(s) {
	case string(EmploymentFullTime), "常勤":
		return EmploymentFullTime, nil
	case string(EmploymentDispatched), "派遣":
		return EmploymentDispatched, nil
	case string(EmploymentPartTime), "パート":
		return EmploymentPartTime, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEmployment, s)
}

// StaffMember 职员（只读视图，由名单提供方持有）
type StaffMember struct {
	ID         string
	Name       string
	Groups     GroupSet
	Unit       string
	Role       string
	Qualified  bool // 喀痰吸引资格
	Employment EmploymentType
	IsAdmin    bool
}

// InGroup 是否属于某小组
func (m StaffMember) InGroup(id GroupID) bool {
	return m.Groups.Has(id)
}
