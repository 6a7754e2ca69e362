package repository

import (
	"context"
	"time"

	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/model"
)

const subscriptionColumns = `id, uuid, email, device_id, equipment_type, verifi_code, verifi_statu,
	verifi_end_time, change_code, change_device_statu, life_end_time, alarm_num,
	ip_address, created_time, updated_time`

type SubscriptionRepository interface {
	CountByEmail(ctx context.Context, email string) (int, error)
	CountByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) (int, error)
	FindByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) ([]model.Subscription, error)
	Create(ctx context.Context, params model.CreateSubscriptionParams) (int64, error)
	FindPendingByEmail(ctx context.Context, email string, now time.Time) ([]model.Subscription, error)
	MarkVerified(ctx context.Context, id int64, now time.Time) (bool, error)
	FindActive(ctx context.Context, key model.SubscriptionKey, now time.Time) (*model.Subscription, error)
	TouchUpdated(ctx context.Context, id int64, now time.Time) error
	MarkUnbound(ctx context.Context, id int64, now time.Time) (bool, error)
	FindLatestVerified(ctx context.Context, email string) (*model.Subscription, error)
	ListActive(ctx context.Context, now time.Time) ([]model.ActiveSubscription, error)
}

type subscriptionRepo struct {
	db database.Queryer
}

func NewSubscriptionRepository(db database.Queryer) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM email WHERE email = ?
	`), email)
	return count, err
}

func (r *subscriptionRepo) CountByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM email WHERE email = ? AND equipment_type = ?
	`), email, equipmentType)
	return count, err
}

func (r *subscriptionRepo) FindByEmailAndType(ctx context.Context, email string, equipmentType model.EquipmentType) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.SelectContext(ctx, &subs, r.db.Rebind(`
		SELECT `+subscriptionColumns+` FROM email
		WHERE email = ? AND equipment_type = ?
		ORDER BY created_time DESC
	`), email, equipmentType)
	return subs, err
}

func (r *subscriptionRepo) Create(ctx context.Context, params model.CreateSubscriptionParams) (int64, error) {
	query := `
		INSERT INTO email (
			uuid, email, device_id, equipment_type, verifi_code, verifi_statu, verifi_end_time,
			change_code, change_device_statu, life_end_time, alarm_num, ip_address,
			created_time, updated_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		params.UUID, params.Email, params.DeviceID, params.EquipmentType,
		params.VerificationCode, model.VerificationPending, params.VerificationExpiry,
		params.UnbindCode, model.BindBound, params.LifeEnd, params.AlarmNum, params.IPAddress,
		params.Now, params.Now,
	}

	if r.db.DriverName() == "postgres" {
		var id int64
		err := r.db.GetContext(ctx, &id, r.db.Rebind(query+" RETURNING id"), args...)
		return id, err
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *subscriptionRepo) FindPendingByEmail(ctx context.Context, email string, now time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.SelectContext(ctx, &subs, r.db.Rebind(`
		SELECT `+subscriptionColumns+` FROM email
		WHERE email = ? AND verifi_statu = ? AND verifi_end_time > ?
		ORDER BY verifi_end_time DESC
	`), email, model.VerificationPending, now)
	return subs, err
}

// MarkVerified flips a pending, unexpired record to verified. It reports false
// when another request already consumed the code or it expired meanwhile.
func (r *subscriptionRepo) MarkVerified(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE email SET verifi_statu = ?, updated_time = ?
		WHERE id = ? AND verifi_statu = ? AND verifi_end_time > ?
	`), model.VerificationVerified, now, id, model.VerificationPending, now)
	return affectedOne(result, err)
}

func (r *subscriptionRepo) FindActive(ctx context.Context, key model.SubscriptionKey, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, r.db.Rebind(`
		SELECT `+subscriptionColumns+` FROM email
		WHERE email = ? AND device_id = ? AND equipment_type = ?
		AND verifi_statu = ? AND change_device_statu = ? AND life_end_time > ?
		ORDER BY created_time DESC
		LIMIT 1
	`), key.Email, key.DeviceID, key.EquipmentType, model.VerificationVerified, model.BindBound, now)
	return HandleNotFound(&sub, err)
}

func (r *subscriptionRepo) TouchUpdated(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE email SET updated_time = ? WHERE id = ?
	`), now, id)
	return err
}

// MarkUnbound reports false when the record was already unbound.
func (r *subscriptionRepo) MarkUnbound(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE email SET change_device_statu = ?, updated_time = ?
		WHERE id = ? AND change_device_statu = ?
	`), model.BindUnbound, now, id, model.BindBound)
	return affectedOne(result, err)
}

func (r *subscriptionRepo) FindLatestVerified(ctx context.Context, email string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, r.db.Rebind(`
		SELECT `+subscriptionColumns+` FROM email
		WHERE email = ? AND verifi_statu = ?
		ORDER BY created_time DESC
		LIMIT 1
	`), email, model.VerificationVerified)
	return HandleNotFound(&sub, err)
}

func (r *subscriptionRepo) ListActive(ctx context.Context, now time.Time) ([]model.ActiveSubscription, error) {
	var subs []model.ActiveSubscription
	err := r.db.SelectContext(ctx, &subs, r.db.Rebind(`
		SELECT e.email, e.device_id, e.alarm_num, e.equipment_type,
			d.equipmentName AS equipment_name, d.installationSite AS installation_site
		FROM email e
		LEFT JOIN device d ON e.device_id = d.id
		WHERE e.verifi_statu = ? AND e.change_device_statu = ? AND e.life_end_time > ?
	`), model.VerificationVerified, model.BindBound, now)
	return subs, err
}
