package engine

import "errors"

// ── 引擎错误 ──

var (
	ErrUnknownShiftType   = errors.New("未知的班次类型")
	ErrDuplicateShiftType = errors.New("班次代码重复")
	ErrInvalidMonth       = errors.New("目标年月超出允许范围")
	ErrInvalidDate        = errors.New("日期格式无效")
	ErrDateOutOfMonth     = errors.New("日期不在排班月份内")
	ErrEmptyRoster        = errors.New("职员名单为空")
	ErrDuplicateStaff     = errors.New("职员名单中存在重复 ID")
	ErrUnknownStrategy    = errors.New("未知的排班策略")
	ErrInvalidRule        = errors.New("人数下限规则无效")
	ErrInvalidEmployment  = errors.New("雇佣类别无效")
)
