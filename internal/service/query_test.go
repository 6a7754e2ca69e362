package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/model"
)

func TestQueryService_FirstScreen(t *testing.T) {
	ctx := context.Background()

	t.Run("caps the sample size", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("RandomIDs", ctx, 100).Return([]string{"1", "2"}, nil)

		ids, err := NewQueryService(devices, new(mockReadingRepo), 500).FirstScreen(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, ids)
	})

	t.Run("returns an empty list rather than nil", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("RandomIDs", ctx, 20).Return(nil, nil)

		ids, err := NewQueryService(devices, new(mockReadingRepo), 20).FirstScreen(ctx)
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("RandomIDs", ctx, 20).Return(nil, errors.New("gone"))

		_, err := NewQueryService(devices, new(mockReadingRepo), 20).FirstScreen(ctx)
		assertAppError(t, err, apperrors.ErrCodeDatabase, "")
	})
}

func TestParseDataNum(t *testing.T) {
	n, err := ParseDataNum("")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = ParseDataNum("1000")
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	_, err = ParseDataNum("abc")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "无效的data_num参数")

	_, err = ParseDataNum("0")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "data_num参数超出范围(1-1000)")

	_, err = ParseDataNum("1001")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "data_num参数超出范围(1-1000)")
}

func TestQueryService_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("validates the device id", func(t *testing.T) {
		svc := NewQueryService(new(mockDeviceRepo), new(mockReadingRepo), 20)

		_, err := svc.Check(ctx, "", 5)
		assertAppError(t, err, apperrors.ErrCodeMissingRequired, "缺少device_id参数")

		_, err = svc.Check(ctx, "1 OR 1=1", 5)
		assertAppError(t, err, apperrors.ErrCodeInvalidInput, "无效的device_id参数")
	})

	t.Run("unknown device", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("FindByID", ctx, "42").Return(nil, nil)

		_, err := NewQueryService(devices, new(mockReadingRepo), 20).Check(ctx, "42", 5)
		assertAppError(t, err, apperrors.ErrCodeNotFound, "设备未找到")
	})

	t.Run("returns device and readings", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		readings := new(mockReadingRepo)
		devices.On("FindByID", ctx, "42").Return(electricDevice(), nil)
		readings.On("ListRecent", ctx, "42", 3).Return([]model.Reading{{DeviceID: "42"}}, nil)

		detail, err := NewQueryService(devices, readings, 20).Check(ctx, "42", 3)
		require.NoError(t, err)
		assert.Equal(t, "42", detail.Device.ID)
		assert.Len(t, detail.Readings, 1)
	})
}

func TestQueryService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing and illegal keywords", func(t *testing.T) {
		svc := NewQueryService(new(mockDeviceRepo), new(mockReadingRepo), 20)

		_, _, err := svc.Search(ctx, "")
		assertAppError(t, err, apperrors.ErrCodeMissingRequired, "缺少key_word参数")

		_, _, err = svc.Search(ctx, "a%' --")
		assertAppError(t, err, apperrors.ErrCodeInvalidInput, "搜索关键词包含非法字符")
	})

	t.Run("short keyword is not searched", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		_, searched, err := NewQueryService(devices, new(mockReadingRepo), 20).Search(ctx, "楼")
		require.NoError(t, err)
		assert.False(t, searched)
		devices.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("two chinese characters are enough", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("Search", ctx, "一号").Return([]model.Device{*electricDevice()}, nil)

		found, searched, err := NewQueryService(devices, new(mockReadingRepo), 20).Search(ctx, "一号")
		require.NoError(t, err)
		assert.True(t, searched)
		assert.Len(t, found, 1)
	})
}
