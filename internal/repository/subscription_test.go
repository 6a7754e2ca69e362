package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/model"
)

func setupMockDB(t *testing.T, driver string) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, driver), mock
}

var subscriptionCols = []string{
	"id", "uuid", "email", "device_id", "equipment_type", "verifi_code", "verifi_statu",
	"verifi_end_time", "change_code", "change_device_statu", "life_end_time", "alarm_num",
	"ip_address", "created_time", "updated_time",
}

func subscriptionRow(rows *sqlmock.Rows, id int64, status model.VerificationStatus, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "uuid-1", "a@x.com", "42", 0, "123456", int(status),
		now.Add(time.Minute), "654321", 0, now.Add(24*time.Hour), 10.0,
		"127.0.0.1", now.Add(-time.Minute), now.Add(-time.Minute),
	)
}

func TestSubscriptionRepository_Counts(t *testing.T) {
	db, mock := setupMockDB(t, "mysql")
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email WHERE email = \?$`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email WHERE email = \? AND equipment_type = \?`).
		WithArgs("a@x.com", model.EquipmentWater).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	total, err := repo.CountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	byType, err := repo.CountByEmailAndType(ctx, "a@x.com", model.EquipmentWater)
	require.NoError(t, err)
	assert.Equal(t, 1, byType)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_Create(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	params := model.CreateSubscriptionParams{
		UUID: "uuid-1", Email: "a@x.com", DeviceID: "42", EquipmentType: model.EquipmentElectric,
		VerificationCode: "123456", VerificationExpiry: now.Add(300 * time.Second),
		UnbindCode: "654321", LifeEnd: now.Add(365 * 24 * time.Hour),
		AlarmNum: 10, IPAddress: "10.0.0.1", Now: now,
	}

	t.Run("mysql uses last insert id", func(t *testing.T) {
		db, mock := setupMockDB(t, "mysql")
		repo := NewSubscriptionRepository(db)

		mock.ExpectExec("INSERT INTO email").
			WithArgs("uuid-1", "a@x.com", "42", model.EquipmentElectric, "123456", model.VerificationPending,
				params.VerificationExpiry, "654321", model.BindBound, params.LifeEnd, 10, "10.0.0.1", now, now).
			WillReturnResult(sqlmock.NewResult(17, 1))

		id, err := repo.Create(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, int64(17), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres uses returning", func(t *testing.T) {
		db, mock := setupMockDB(t, "postgres")
		repo := NewSubscriptionRepository(db)

		mock.ExpectQuery(`INSERT INTO email .* VALUES \(\$1, .*\$14\) RETURNING id`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

		id, err := repo.Create(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, int64(9), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionRepository_CreateColumns(t *testing.T) {
	insertCols := []string{
		"uuid", "email", "device_id", "equipment_type", "verifi_code", "verifi_statu", "verifi_end_time",
		"change_code", "change_device_statu", "life_end_time", "alarm_num", "ip_address",
		"created_time", "updated_time",
	}

	db, mock := setupMockDB(t, "mysql")
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(`INSERT INTO email \(\s*` + strings.Join(insertCols, `,\s*`) + `\s*\) VALUES`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := repo.Create(context.Background(), model.CreateSubscriptionParams{Now: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	for _, driver := range []string{"mysql", "postgres"} {
		ddl, err := database.Schema(driver)
		require.NoError(t, err)
		for _, col := range insertCols {
			assert.Regexp(t, `(?m)^\s+`+col+`\s`, ddl, "%s schema lacks %s", driver, col)
		}
	}
}

func TestSubscriptionRepository_FindPendingByEmail(t *testing.T) {
	db, mock := setupMockDB(t, "mysql")
	repo := NewSubscriptionRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(subscriptionCols)
	subscriptionRow(rows, 2, model.VerificationPending, now)
	subscriptionRow(rows, 1, model.VerificationPending, now)

	mock.ExpectQuery(`FROM email WHERE email = \? AND verifi_statu = \? AND verifi_end_time > \? ORDER BY verifi_end_time DESC`).
		WithArgs("a@x.com", model.VerificationPending, now).
		WillReturnRows(rows)

	subs, err := repo.FindPendingByEmail(context.Background(), "a@x.com", now)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(2), subs[0].ID)
	assert.Equal(t, "123456", subs[0].VerificationCode)
	assert.Equal(t, "654321", subs[0].UnbindCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_MarkVerified(t *testing.T) {
	now := time.Now()

	t.Run("reports success when the row was still pending", func(t *testing.T) {
		db, mock := setupMockDB(t, "mysql")
		repo := NewSubscriptionRepository(db)

		mock.ExpectExec(`UPDATE email SET verifi_statu = \?, updated_time = \? WHERE id = \? AND verifi_statu = \? AND verifi_end_time > \?`).
			WithArgs(model.VerificationVerified, now, int64(5), model.VerificationPending, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkVerified(context.Background(), 5, now)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports false when another request won", func(t *testing.T) {
		db, mock := setupMockDB(t, "mysql")
		repo := NewSubscriptionRepository(db)

		mock.ExpectExec("UPDATE email SET verifi_statu").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkVerified(context.Background(), 5, now)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSubscriptionRepository_FindActive(t *testing.T) {
	now := time.Now()
	key := model.SubscriptionKey{Email: "a@x.com", DeviceID: "42", EquipmentType: model.EquipmentElectric}

	t.Run("returns the newest active record", func(t *testing.T) {
		db, mock := setupMockDB(t, "mysql")
		repo := NewSubscriptionRepository(db)

		rows := subscriptionRow(sqlmock.NewRows(subscriptionCols), 3, model.VerificationVerified, now)
		mock.ExpectQuery(`AND verifi_statu = \? AND change_device_statu = \? AND life_end_time > \? ORDER BY created_time DESC LIMIT 1`).
			WithArgs("a@x.com", "42", model.EquipmentElectric, model.VerificationVerified, model.BindBound, now).
			WillReturnRows(rows)

		sub, err := repo.FindActive(context.Background(), key, now)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, int64(3), sub.ID)
		assert.True(t, sub.IsActive(now))
	})

	t.Run("returns nil when absent", func(t *testing.T) {
		db, mock := setupMockDB(t, "mysql")
		repo := NewSubscriptionRepository(db)

		mock.ExpectQuery("FROM email").WillReturnError(sql.ErrNoRows)

		sub, err := repo.FindActive(context.Background(), key, now)
		require.NoError(t, err)
		assert.Nil(t, sub)
	})
}

func TestSubscriptionRepository_MarkUnbound(t *testing.T) {
	db, mock := setupMockDB(t, "mysql")
	repo := NewSubscriptionRepository(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE email SET change_device_statu = \?, updated_time = \? WHERE id = \? AND change_device_statu = \?`).
		WithArgs(model.BindUnbound, now, int64(3), model.BindBound).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkUnbound(context.Background(), 3, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_ListActive(t *testing.T) {
	db, mock := setupMockDB(t, "mysql")
	repo := NewSubscriptionRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"email", "device_id", "alarm_num", "equipment_type", "equipment_name", "installation_site"}).
		AddRow("a@x.com", "42", 20.0, 0, "1栋101", "一号楼").
		AddRow("b@x.com", "43", 5.0, 1, nil, nil)

	mock.ExpectQuery("LEFT JOIN device d ON e.device_id = d.id").
		WithArgs(model.VerificationVerified, model.BindBound, now).
		WillReturnRows(rows)

	subs, err := repo.ListActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "1栋101", *subs[0].EquipmentName)
	assert.Nil(t, subs[1].EquipmentName)
	assert.Equal(t, model.EquipmentWater, subs[1].EquipmentType)
}
