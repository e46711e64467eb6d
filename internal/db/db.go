package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codewithmide/token-creator/internal/models"
)

var ErrUnsupportedDriver = errors.New("unsupported db driver")

// Open 连接数据库并迁移表结构；driver 为 mysql 或 sqlite
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := conn.AutoMigrate(&models.OperationRecord{}); err != nil {
		return nil, fmt.Errorf("表迁移失败: %w", err)
	}
	return conn, nil
}

// Store 操作历史，实现 services.HistoryStore
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

// SaveOperation 保存操作记录
func (s *Store) SaveOperation(ctx context.Context, rec *models.OperationRecord) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

// UpdateOperation 更新状态、签名和失败原因
func (s *Store) UpdateOperation(ctx context.Context, operationID, status, signature, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.OperationRecord{}).
		Where("operation_id = ?", operationID).
		Updates(map[string]interface{}{
			"status":       status,
			"tx_signature": signature,
			"reason":       truncate(reason, 512),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByOperationID 根据操作 ID 查询
func (s *Store) GetByOperationID(ctx context.Context, operationID string) (*models.OperationRecord, error) {
	var rec models.OperationRecord
	err := s.db.WithContext(ctx).Where("operation_id = ?", operationID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByOwner 查询钱包的操作历史，按时间倒序
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int) ([]models.OperationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var recs []models.OperationRecord
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
