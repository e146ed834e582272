package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/engine"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
	pkgerrors "shiftcare/backend/pkg/errors"
)

// ── 职员模块业务错误 ──

var (
	ErrStaffNotFound     = errors.New("职员不存在")
	ErrStaffExists       = errors.New("职员编号已存在")
	ErrStaffSelfDelete   = errors.New("不能删除自己")
	ErrStaffSelfDemote   = errors.New("不能取消自己的管理员权限")
	ErrInvalidEmployment = errors.New("雇佣类别无效（full_time / dispatched / part_time）")
	ErrInvalidStaffID    = errors.New("职员编号不能包含空白字符")
)

// StaffService 职员名单业务接口
type StaffService interface {
	Create(ctx context.Context, req *dto.CreateStaffRequest) (*dto.StaffResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StaffResponse, error)
	List(ctx context.Context, req *dto.StaffListRequest) ([]dto.StaffResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateStaffRequest, callerID string) (*dto.StaffResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// Roster 按排班表行顺序返回引擎名单
	Roster(ctx context.Context) ([]engine.StaffMember, error)
	ParseImportFile(reader io.Reader) ([]ImportStaffRow, error)
	ImportStaff(ctx context.Context, rows []ImportStaffRow) (*dto.ImportStaffResponse, error)
}

// ImportStaffRow Excel 导入解析后的单行数据
type ImportStaffRow struct {
	Row        int
	StaffID    string
	Name       string
	Groups     string
	Unit       string
	Role       string
	Employment string
	Qualified  string
	IsAdmin    string
	SortOrder  string
}

type staffService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStaffService 创建 StaffService 实例
func NewStaffService(repo *repository.Repository, logger *zap.Logger) StaffService {
	return &staffService{repo: repo, logger: logger}
}

func (s *staffService) Create(ctx context.Context, req *dto.CreateStaffRequest) (*dto.StaffResponse, error) {
	id := strings.TrimSpace(req.StaffID)
	if strings.ContainsAny(id, " \t\r\n") {
		return nil, ErrInvalidStaffID
	}
	employment, err := normalizeEmployment(req.Employment)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Staff.GetByID(ctx, id); err == nil {
		return nil, ErrStaffExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询职员失败", zap.Error(err))
		return nil, err
	}

	staff := &model.Staff{
		StaffID:    id,
		Name:       strings.TrimSpace(req.Name),
		Groups:     model.GroupList(req.Groups).Normalize(),
		Unit:       req.Unit,
		Role:       req.Role,
		Qualified:  req.Qualified,
		Employment: employment,
		IsAdmin:    req.IsAdmin,
		SortOrder:  req.SortOrder,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		staff.PasswordHash = string(hash)
	}

	if err := s.repo.Staff.Create(ctx, staff); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrStaffExists
		}
		s.logger.Error("创建职员失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("职员已创建", zap.String("staff_id", staff.StaffID))
	resp := toStaffResponse(staff)
	return &resp, nil
}

func (s *staffService) GetByID(ctx context.Context, id string) (*dto.StaffResponse, error) {
	staff, err := s.repo.Staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	resp := toStaffResponse(staff)
	return &resp, nil
}

func (s *staffService) List(ctx context.Context, req *dto.StaffListRequest) ([]dto.StaffResponse, int64, error) {
	list, err := s.repo.Staff.List(ctx, &repository.StaffListFilters{
		Group:   req.Group,
		Keyword: req.Keyword,
	})
	if err != nil {
		s.logger.Error("查询职员列表失败", zap.Error(err))
		return nil, 0, err
	}

	total := int64(len(list))
	start := req.GetOffset()
	if start > len(list) {
		start = len(list)
	}
	end := start + req.GetPageSize()
	if end > len(list) {
		end = len(list)
	}

	items := make([]dto.StaffResponse, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, toStaffResponse(&list[i]))
	}
	return items, total, nil
}

func (s *staffService) Update(ctx context.Context, id string, req *dto.UpdateStaffRequest, callerID string) (*dto.StaffResponse, error) {
	staff, err := s.repo.Staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		staff.Name = strings.TrimSpace(*req.Name)
	}
	if req.Groups != nil {
		staff.Groups = model.GroupList(*req.Groups).Normalize()
	}
	if req.Unit != nil {
		staff.Unit = *req.Unit
	}
	if req.Role != nil {
		staff.Role = *req.Role
	}
	if req.Qualified != nil {
		staff.Qualified = *req.Qualified
	}
	if req.Employment != nil {
		employment, err := normalizeEmployment(*req.Employment)
		if err != nil {
			return nil, err
		}
		staff.Employment = employment
	}
	if req.IsAdmin != nil {
		if id == callerID && !*req.IsAdmin {
			return nil, ErrStaffSelfDemote
		}
		staff.IsAdmin = *req.IsAdmin
	}
	if req.SortOrder != nil {
		staff.SortOrder = *req.SortOrder
	}
	if req.Password != nil {
		if *req.Password == "" {
			staff.PasswordHash = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				s.logger.Error("密码哈希失败", zap.Error(err))
				return nil, err
			}
			staff.PasswordHash = string(hash)
		}
	}

	if err := s.repo.Staff.Update(ctx, staff); err != nil {
		s.logger.Error("更新职员失败", zap.String("staff_id", id), zap.Error(err))
		return nil, err
	}
	resp := toStaffResponse(staff)
	return &resp, nil
}

func (s *staffService) Delete(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrStaffSelfDelete
	}
	if _, err := s.repo.Staff.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStaffNotFound
		}
		return err
	}
	if err := s.repo.Staff.Delete(ctx, id); err != nil {
		s.logger.Error("删除职员失败", zap.String("staff_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("职员已删除", zap.String("staff_id", id))
	return nil
}

func (s *staffService) Roster(ctx context.Context) ([]engine.StaffMember, error) {
	list, err := s.repo.Staff.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	roster := make([]engine.StaffMember, 0, len(list))
	for i := range list {
		roster = append(roster, toStaffMember(&list[i], s.logger))
	}
	return roster, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（职员编号/姓名）")
)

// ParseImportFile 解析名单 Excel 文件，返回解析后的行数据
func (s *staffService) ParseImportFile(reader io.Reader) ([]ImportStaffRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["staff_id"] < 0 || colIndex["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportStaffRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportStaffRow{
			Row:        i + 1,
			StaffID:    cell(row, "staff_id"),
			Name:       cell(row, "name"),
			Groups:     cell(row, "groups"),
			Unit:       cell(row, "unit"),
			Role:       cell(row, "role"),
			Employment: cell(row, "employment"),
			Qualified:  cell(row, "qualified"),
			IsAdmin:    cell(row, "is_admin"),
			SortOrder:  cell(row, "sort_order"),
		}

		// 跳过全空行
		if item.StaffID == "" && item.Name == "" && item.Groups == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"staff_id":   -1,
		"name":       -1,
		"groups":     -1,
		"unit":       -1,
		"role":       -1,
		"employment": -1,
		"qualified":  -1,
		"is_admin":   -1,
		"sort_order": -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "职员编号", "職員id", "職員番号", "staff_id", "id":
			idx["staff_id"] = i
		case "姓名", "氏名", "name":
			idx["name"] = i
		case "小组", "グループ", "groups", "group":
			idx["groups"] = i
		case "单元", "ユニット", "unit":
			idx["unit"] = i
		case "职务", "役職", "role":
			idx["role"] = i
		case "雇佣类别", "雇用形態", "employment":
			idx["employment"] = i
		case "资格", "喀痰吸引", "資格", "qualified":
			idx["qualified"] = i
		case "管理员", "管理者", "is_admin", "admin":
			idx["is_admin"] = i
		case "排序", "並び順", "sort_order":
			idx["sort_order"] = i
		}
	}
	return idx
}

// parseFlag 解析表格中的是/否单元格
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "是", "有", "○", "◯", "〇", "あり":
		return true
	}
	return false
}

// ────────────────────── ImportStaff ──────────────────────

// ImportStaff 导入名单：已存在的职员更新属性（保留密码），不存在的新建
func (s *staffService) ImportStaff(ctx context.Context, rows []ImportStaffRow) (*dto.ImportStaffResponse, error) {
	resp := &dto.ImportStaffResponse{Total: len(rows)}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row    ImportStaffRow
		staff  *model.Staff
		exists bool
	}
	var validRows []validatedRow
	seen := make(map[string]int)

	for _, row := range rows {
		fail := func(reason string) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportStaffError{Row: row.Row, Reason: reason})
		}

		if row.StaffID == "" || row.Name == "" {
			fail("必填字段为空")
			continue
		}
		if strings.ContainsAny(row.StaffID, " \t\r\n") {
			fail(ErrInvalidStaffID.Error())
			continue
		}
		if first, dup := seen[row.StaffID]; dup {
			fail(fmt.Sprintf("职员编号与第 %d 行重复: %s", first, row.StaffID))
			continue
		}

		employment, err := normalizeEmployment(row.Employment)
		if err != nil {
			fail(fmt.Sprintf("雇佣类别无效: %s", row.Employment))
			continue
		}
		sortOrder := 0
		if row.SortOrder != "" {
			if sortOrder, err = strconv.Atoi(row.SortOrder); err != nil {
				fail(fmt.Sprintf("排序必须为整数: %s", row.SortOrder))
				continue
			}
		}

		existing, err := s.repo.Staff.GetByID(ctx, row.StaffID)
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询职员失败", zap.Error(err))
			return nil, err
		}

		staff := existing
		if !exists {
			staff = &model.Staff{StaffID: row.StaffID}
		}
		staff.Name = row.Name
		staff.Groups = model.ParseGroupList(row.Groups)
		staff.Unit = row.Unit
		staff.Role = row.Role
		staff.Employment = employment
		staff.Qualified = parseFlag(row.Qualified)
		staff.IsAdmin = parseFlag(row.IsAdmin)
		staff.SortOrder = sortOrder

		seen[row.StaffID] = row.Row
		validRows = append(validRows, validatedRow{row: row, staff: staff, exists: exists})
	}

	// 第二阶段：在事务中写入所有通过校验的职员
	if len(validRows) > 0 {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			for _, vr := range validRows {
				var err error
				if vr.exists {
					err = tx.Staff.Update(ctx, vr.staff)
				} else {
					err = tx.Staff.Create(ctx, vr.staff)
				}
				if err != nil {
					// 事务中任一写入失败则全部回滚
					s.logger.Error("导入职员写入失败，事务回滚",
						zap.Int("row", vr.row.Row), zap.Error(err))
					return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, vr := range validRows {
			if vr.exists {
				resp.Updated++
			} else {
				resp.Created++
			}
		}
	}

	s.logger.Info("名单导入完成",
		zap.Int("total", resp.Total), zap.Int("created", resp.Created),
		zap.Int("updated", resp.Updated), zap.Int("failed", resp.Failed))
	return resp, nil
}

// normalizeEmployment 空值视为常勤，其余按雇佣类别解析
func normalizeEmployment(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return model.EmploymentFullTime, nil
	}
	emp, err := engine.ParseEmploymentType(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidEmployment
	}
	return string(emp), nil
}
