package service

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/meterwatch/alert-server-go/internal/config"
	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/repository"
	"github.com/meterwatch/alert-server-go/internal/util"
)

// MinKeywordLength is the shortest search keyword, counted in characters.
const MinKeywordLength = 2

type DeviceDetail struct {
	Device   *model.Device
	Readings []model.Reading
}

// QueryService serves read-only lookups over the mirrored device data.
type QueryService struct {
	devices          repository.DeviceRepository
	readings         repository.ReadingRepository
	firstScreenCount int
}

func NewQueryService(devices repository.DeviceRepository, readings repository.ReadingRepository, firstScreenCount int) *QueryService {
	if firstScreenCount > config.MaxFirstScreenCount {
		firstScreenCount = config.MaxFirstScreenCount
	}
	return &QueryService{
		devices:          devices,
		readings:         readings,
		firstScreenCount: firstScreenCount,
	}
}

// FirstScreen returns a random sample of device ids for the landing page.
func (s *QueryService) FirstScreen(ctx context.Context) ([]string, error) {
	ids, err := s.devices.RandomIDs(ctx, s.firstScreenCount)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ParseDataNum parses the number of readings to return. Empty means the default.
func ParseDataNum(raw string) (int, error) {
	if raw == "" {
		return config.DefaultDataNum, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput("无效的data_num参数")
	}
	if n < 1 || n > config.MaxDataNum {
		return 0, apperrors.InvalidInput("data_num参数超出范围(1-1000)")
	}
	return n, nil
}

// ValidateDeviceID rejects a missing or malformed device id.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return apperrors.MissingRequired("缺少device_id参数")
	}
	if !util.IsValidDeviceID(deviceID) {
		return apperrors.InvalidInput("无效的device_id参数")
	}
	return nil
}

// Check returns a device with its most recent readings.
func (s *QueryService) Check(ctx context.Context, deviceID string, dataNum int) (*DeviceDetail, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	device, err := s.devices.FindByID(ctx, deviceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if device == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "设备未找到")
	}

	readings, err := s.readings.ListRecent(ctx, deviceID, dataNum)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return &DeviceDetail{Device: device, Readings: readings}, nil
}

// Search matches keyword against device names and installation sites.
// The second return is false when the keyword is too short to search.
func (s *QueryService) Search(ctx context.Context, keyword string) ([]model.Device, bool, error) {
	if keyword == "" {
		return nil, false, apperrors.MissingRequired("缺少key_word参数")
	}
	if !util.IsValidKeyword(keyword) {
		return nil, false, apperrors.InvalidInput("搜索关键词包含非法字符")
	}
	if utf8.RuneCountInString(keyword) < MinKeywordLength {
		return nil, false, nil
	}

	devices, err := s.devices.Search(ctx, keyword)
	if err != nil {
		return nil, false, apperrors.Database(err)
	}
	return devices, true, nil
}
