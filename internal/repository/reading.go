package repository

import (
	"context"
	"time"

	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/model"
)

const readingColumns = `device_id, read_time, total_reading,
	remainingBalance AS remaining_balance, equipmentStatus AS equipment_status`

type ReadingRepository interface {
	Latest(ctx context.Context, deviceID string) (*model.Reading, error)
	ListRecent(ctx context.Context, deviceID string, limit int) ([]model.Reading, error)
	Exists(ctx context.Context, deviceID string, readTime time.Time) (bool, error)
	Create(ctx context.Context, params model.CreateReadingParams) error
}

type readingRepo struct {
	db database.Queryer
}

func NewReadingRepository(db database.Queryer) ReadingRepository {
	return &readingRepo{db: db}
}

func (r *readingRepo) Latest(ctx context.Context, deviceID string) (*model.Reading, error) {
	var reading model.Reading
	err := r.db.GetContext(ctx, &reading, r.db.Rebind(`
		SELECT `+readingColumns+` FROM data
		WHERE device_id = ?
		ORDER BY read_time DESC
		LIMIT 1
	`), deviceID)
	return HandleNotFound(&reading, err)
}

func (r *readingRepo) ListRecent(ctx context.Context, deviceID string, limit int) ([]model.Reading, error) {
	var readings []model.Reading
	err := r.db.SelectContext(ctx, &readings, r.db.Rebind(`
		SELECT `+readingColumns+` FROM data
		WHERE device_id = ?
		ORDER BY read_time DESC
		LIMIT ?
	`), deviceID, limit)
	return readings, err
}

func (r *readingRepo) Exists(ctx context.Context, deviceID string, readTime time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM data WHERE device_id = ? AND read_time = ?
	`), deviceID, readTime)
	return count > 0, err
}

func (r *readingRepo) Create(ctx context.Context, p model.CreateReadingParams) error {
	unstandard := 0
	if p.Unstandard {
		unstandard = 1
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO data (device_id, read_time, total_reading, remainingBalance,
			equipmentStatus, created_at, unStandard)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), p.DeviceID, p.ReadTime, p.TotalReading, p.RemainingBalance, p.EquipmentStatus, p.Now, unstandard)
	return err
}
