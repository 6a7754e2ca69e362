package repository

import (
	"context"

	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/model"
)

const deviceColumns = `id, addr, equipmentName AS equipment_name, installationSite AS installation_site,
	equipmentType AS equipment_type, ratio, rate, acctId AS acct_id, status, updated_at`

var deviceUpsertColumns = []string{
	"id", "addr", "equipmentName", "installationSite", "equipmentType",
	"ratio", "rate", "acctId", "status", "created_at", "updated_at",
}

var deviceUpdateColumns = []string{
	"addr", "equipmentName", "installationSite", "equipmentType",
	"ratio", "rate", "acctId", "status", "updated_at",
}

type DeviceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Device, error)
	RandomIDs(ctx context.Context, limit int) ([]string, error)
	Search(ctx context.Context, keyword string) ([]model.Device, error)
	Upsert(ctx context.Context, params model.UpsertDeviceParams) error
}

type deviceRepo struct {
	db database.Queryer
}

func NewDeviceRepository(db database.Queryer) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) FindByID(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, r.db.Rebind(`
		SELECT `+deviceColumns+` FROM device WHERE id = ?
	`), id)
	return HandleNotFound(&d, err)
}

func (r *deviceRepo) RandomIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
		SELECT id FROM device ORDER BY `+database.RandomFunc(r.db.DriverName())+` LIMIT ?
	`), limit)
	return ids, err
}

func (r *deviceRepo) Search(ctx context.Context, keyword string) ([]model.Device, error) {
	var devices []model.Device
	term := "%" + keyword + "%"
	err := r.db.SelectContext(ctx, &devices, r.db.Rebind(`
		SELECT `+deviceColumns+` FROM device
		WHERE equipmentName LIKE ? OR installationSite LIKE ?
	`), term, term)
	return devices, err
}

func (r *deviceRepo) Upsert(ctx context.Context, p model.UpsertDeviceParams) error {
	query := database.Upsert(r.db.DriverName(), "device", "id", deviceUpsertColumns, deviceUpdateColumns)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		p.ID, p.Addr, p.EquipmentName, p.InstallationSite, p.EquipmentType,
		p.Ratio, p.Rate, p.AcctID, p.Status, p.Now, p.Now,
	)
	return err
}
