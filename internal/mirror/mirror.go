// Package mirror copies the portal device listing into the device and data tables.
package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/metrics"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/portal"
	"github.com/meterwatch/alert-server-go/internal/repository"
)

const readTimeLayout = "2006-01-02 15:04:05"

type Fetcher interface {
	ListAllDevices(ctx context.Context, appUserID, roleKey string, pageSize int) ([]portal.DeviceRow, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type Result struct {
	Fetched  int
	Devices  int
	Readings int
	Skipped  int
}

type Mirror struct {
	fetcher Fetcher
	db      TxRunner
	now     func() time.Time
}

func New(fetcher Fetcher, db TxRunner) *Mirror {
	return &Mirror{fetcher: fetcher, db: db, now: time.Now}
}

// Run fetches every device page and writes devices and new readings in one transaction.
func (m *Mirror) Run(ctx context.Context, appUserID, roleKey string, pageSize int) (*Result, error) {
	rows, err := m.fetcher.ListAllDevices(ctx, appUserID, roleKey, pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}

	result := &Result{Fetched: len(rows)}
	if len(rows) == 0 {
		return result, nil
	}

	now := m.now()
	err = m.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		devices := repository.NewDeviceRepository(tx)
		readings := repository.NewReadingRepository(tx)

		for _, row := range rows {
			id := strings.TrimSpace(row.ID.String())
			if id == "" {
				result.Skipped++
				continue
			}

			if err := devices.Upsert(ctx, deviceParams(id, row, now)); err != nil {
				return fmt.Errorf("upsert device %s: %w", id, err)
			}
			result.Devices++

			reading := readingParams(id, row, now)
			exists, err := readings.Exists(ctx, id, reading.ReadTime)
			if err != nil {
				return fmt.Errorf("check reading %s: %w", id, err)
			}
			if exists {
				continue
			}
			if err := readings.Create(ctx, reading); err != nil {
				return fmt.Errorf("insert reading %s: %w", id, err)
			}
			result.Readings++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMirrorRows("device", result.Devices)
	metrics.RecordMirrorRows("data", result.Readings)
	log.Info().
		Int("fetched", result.Fetched).
		Int("devices", result.Devices).
		Int("readings", result.Readings).
		Int("skipped", result.Skipped).
		Msg("mirror run completed")

	return result, nil
}

func deviceParams(id string, row portal.DeviceRow, now time.Time) model.UpsertDeviceParams {
	return model.UpsertDeviceParams{
		ID:               id,
		Addr:             row.Addr.StringPtr(),
		EquipmentName:    row.EquipmentName.StringPtr(),
		InstallationSite: row.InstallationSite.StringPtr(),
		EquipmentType:    row.EquipmentType.IntPtr(),
		Ratio:            row.Ratio.FloatPtr(),
		Rate:             row.Rate.FloatPtr(),
		AcctID:           row.AcctID.StringPtr(),
		Status:           row.Status(),
		Now:              now,
	}
}

// readingParams stamps rows without a parseable deal date with now and flags them unstandard.
func readingParams(id string, row portal.DeviceRow, now time.Time) model.CreateReadingParams {
	p := model.CreateReadingParams{
		DeviceID:         id,
		TotalReading:     row.EquipmentCurrentLarge.FloatPtr(),
		RemainingBalance: row.RemainingBalance.FloatPtr(),
		EquipmentStatus:  row.Status(),
		Now:              now,
	}

	if raw := row.CurrentDealDate.StringPtr(); raw != nil {
		if t, err := time.ParseInLocation(readTimeLayout, *raw, time.Local); err == nil {
			p.ReadTime = t
			return p
		}
	}
	p.ReadTime = now.Truncate(time.Second)
	p.Unstandard = true
	return p
}
