package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/config"
	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/repository"
	"github.com/meterwatch/alert-server-go/internal/util"
)

const codeDigits = 6

const (
	msgCooldown         = "请等待验证码冷却期过期"
	msgCodeIncorrect    = "验证码错误，请重新输入"
	msgNoSubscriber     = "未查询到正在订阅预警服务的邮箱账号或设备"
	msgUnbindTooSoon    = "24小时内已请求过解绑或者刚绑定不到24小时，明天再试吧！"
	msgNoValidRecord    = "未找到有效的订阅记录"
	msgUnbindIncorrect  = "解绑验证码错误"
	msgInsertFailed     = "插入记录失败"
	msgInvalidEmail     = "邮箱格式不正确"
	msgInvalidEquipType = "设备类型不正确"
)

// Mailer dispatches one email and waits for the outcome.
type Mailer interface {
	Dispatch(ctx context.Context, kind string, msg mail.Message) error
}

type BindRequest struct {
	Email         string
	DeviceID      string
	EquipmentType model.EquipmentType
	AlarmNum      int
	IPAddress     string
}

type SubscriptionService struct {
	subs       repository.SubscriptionRepository
	devices    repository.DeviceRepository
	readings   repository.ReadingRepository
	mailer     Mailer
	aoksend    config.AoksendConfig
	emailLimit int

	now     func() time.Time
	newUUID func() string
	newCode func() (string, error)
	async   func(func())
}

func NewSubscriptionService(
	subs repository.SubscriptionRepository,
	devices repository.DeviceRepository,
	readings repository.ReadingRepository,
	mailer Mailer,
	aoksend config.AoksendConfig,
	emailLimit int,
) *SubscriptionService {
	return &SubscriptionService{
		subs:       subs,
		devices:    devices,
		readings:   readings,
		mailer:     mailer,
		aoksend:    aoksend,
		emailLimit: emailLimit,
		now:        time.Now,
		newUUID:    uuid.NewString,
		newCode:    func() (string, error) { return util.GenerateNumericCode(codeDigits) },
		async:      func(fn func()) { go fn() },
	}
}

// Bind validates the request and records a pending subscription, then sends
// the verification code. A failed send does not fail the bind.
func (s *SubscriptionService) Bind(ctx context.Context, req BindRequest) error {
	if !util.IsValidEmail(req.Email) {
		return apperrors.ValidationError(msgInvalidEmail)
	}
	if !req.EquipmentType.Valid() {
		return apperrors.ValidationError(msgInvalidEquipType)
	}

	device, err := s.devices.FindByID(ctx, req.DeviceID)
	if err != nil {
		return apperrors.Database(err)
	}
	if device == nil {
		return apperrors.DeviceNotFound()
	}
	if !device.HasType(req.EquipmentType) {
		return apperrors.TypeMismatch()
	}

	total, err := s.subs.CountByEmail(ctx, req.Email)
	if err != nil {
		return apperrors.Database(err)
	}
	if total >= s.emailLimit {
		return apperrors.LimitExceeded()
	}

	now := s.now()

	count, err := s.subs.CountByEmailAndType(ctx, req.Email, req.EquipmentType)
	if err != nil {
		return apperrors.Database(err)
	}
	if count > 0 {
		records, err := s.subs.FindByEmailAndType(ctx, req.Email, req.EquipmentType)
		if err != nil {
			return apperrors.Database(err)
		}
		switch DecideBind(records, now) {
		case CooldownActive:
			return apperrors.Cooldown(msgCooldown)
		case SubscriptionActive:
			return apperrors.AlreadySubscribed()
		}
	}

	verifyCode, err := s.newCode()
	if err != nil {
		return apperrors.Internal(msgInsertFailed).WithCause(err)
	}
	unbindCode, err := s.newCode()
	if err != nil {
		return apperrors.Internal(msgInsertFailed).WithCause(err)
	}

	id, err := s.subs.Create(ctx, model.CreateSubscriptionParams{
		UUID:               s.newUUID(),
		Email:              req.Email,
		DeviceID:           req.DeviceID,
		EquipmentType:      req.EquipmentType,
		VerificationCode:   verifyCode,
		VerificationExpiry: now.Add(config.VerificationTTL),
		UnbindCode:         unbindCode,
		LifeEnd:            now.Add(config.SubscriptionLifetime),
		AlarmNum:           req.AlarmNum,
		IPAddress:          req.IPAddress,
		Now:                now,
	})
	if err != nil {
		return apperrors.Internal(msgInsertFailed).WithCause(err)
	}

	log.Info().
		Int64("subscription_id", id).
		Str("email", util.MaskEmail(req.Email)).
		Str("device_id", req.DeviceID).
		Str("code", util.MaskCode(verifyCode)).
		Msg("subscription created, sending verification code")

	err = s.mailer.Dispatch(ctx, mail.KindVerify, mail.Message{
		To:         req.Email,
		TemplateID: s.aoksend.VerifyTemplateID,
		Data:       mail.VerificationData(s.aoksend, req.Email, verifyCode, device, req.EquipmentType),
	})
	if err != nil {
		log.Warn().Err(err).
			Int64("subscription_id", id).
			Msg("verification email not sent, record kept")
	}
	return nil
}

// Verify confirms a pending subscription by its emailed code.
func (s *SubscriptionService) Verify(ctx context.Context, email, code string) error {
	if !util.IsValidEmail(email) {
		return apperrors.ValidationError(msgInvalidEmail)
	}

	now := s.now()
	candidates, err := s.subs.FindPendingByEmail(ctx, email, now)
	if err != nil {
		return apperrors.Database(err)
	}
	if len(candidates) == 0 {
		return apperrors.CodeExpired()
	}

	for _, c := range candidates {
		if !util.ConstantTimeEqual(c.VerificationCode, code) {
			continue
		}

		ok, err := s.subs.MarkVerified(ctx, c.ID, now)
		if err != nil {
			return apperrors.Database(err)
		}
		if !ok {
			return apperrors.CodeExpired()
		}

		log.Info().
			Int64("subscription_id", c.ID).
			Str("email", util.MaskEmail(email)).
			Msg("subscription verified")

		bg := context.WithoutCancel(ctx)
		s.async(func() { s.sendCelebration(bg, email) })
		return nil
	}

	return apperrors.CodeIncorrect(msgCodeIncorrect)
}

func (s *SubscriptionService) sendCelebration(ctx context.Context, email string) {
	sub, err := s.subs.FindLatestVerified(ctx, email)
	if err != nil || sub == nil {
		if err != nil {
			log.Warn().Err(err).Msg("celebration email skipped: subscription lookup failed")
		}
		return
	}

	device, err := s.devices.FindByID(ctx, sub.DeviceID)
	if err != nil {
		log.Warn().Err(err).Str("device_id", sub.DeviceID).Msg("celebration email: device lookup failed")
	}
	reading, err := s.readings.Latest(ctx, sub.DeviceID)
	if err != nil {
		log.Warn().Err(err).Str("device_id", sub.DeviceID).Msg("celebration email: reading lookup failed")
		reading = nil
	}

	err = s.mailer.Dispatch(ctx, mail.KindCelebrate, mail.Message{
		To:         email,
		TemplateID: s.aoksend.CelebrateTemplate(),
		Data: mail.NoticeData(s.aoksend.CelebrateFields, mail.CelebrateTitle,
			device.Name(mail.UnknownDevice), reading),
	})
	if err != nil {
		log.Warn().Err(err).Str("email", util.MaskEmail(email)).Msg("celebration email not sent")
	}
}

// RequestUnbind emails the unbind code of an active subscription. Requests are
// limited to one per day per subscription, counting from its last update.
func (s *SubscriptionService) RequestUnbind(ctx context.Context, key model.SubscriptionKey) error {
	if !util.IsValidEmail(key.Email) {
		return apperrors.ValidationError(msgInvalidEmail)
	}

	now := s.now()
	sub, err := s.subs.FindActive(ctx, key, now)
	if err != nil {
		return apperrors.Database(err)
	}
	if sub == nil {
		return apperrors.NoActiveSubscription(msgNoSubscriber)
	}
	if sub.UpdatedAt.After(now.Add(-config.UnbindRequestWindow)) {
		return apperrors.Cooldown(msgUnbindTooSoon)
	}

	device, err := s.devices.FindByID(ctx, key.DeviceID)
	if err != nil {
		log.Warn().Err(err).Str("device_id", key.DeviceID).Msg("unbind email: device lookup failed")
	}

	err = s.mailer.Dispatch(ctx, mail.KindUnbind, mail.Message{
		To:         key.Email,
		TemplateID: s.aoksend.UnbindTemplate(),
		Data:       mail.UnbindData(s.aoksend, key.Email, sub.UnbindCode, device, key.EquipmentType),
	})
	if err != nil {
		log.Warn().Err(err).
			Int64("subscription_id", sub.ID).
			Msg("unbind email not sent, request still recorded")
	}

	// The dispatch may have outlived the request; the cooldown still resets.
	if err := s.subs.TouchUpdated(context.WithoutCancel(ctx), sub.ID, now); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// ConfirmUnbind releases an active subscription when the unbind code matches.
func (s *SubscriptionService) ConfirmUnbind(ctx context.Context, key model.SubscriptionKey, code string) error {
	if !util.IsValidEmail(key.Email) {
		return apperrors.ValidationError(msgInvalidEmail)
	}

	now := s.now()
	sub, err := s.subs.FindActive(ctx, key, now)
	if err != nil {
		return apperrors.Database(err)
	}
	if sub == nil {
		return apperrors.NoActiveSubscription(msgNoValidRecord)
	}
	if !util.ConstantTimeEqual(sub.UnbindCode, code) {
		return apperrors.CodeIncorrect(msgUnbindIncorrect)
	}

	ok, err := s.subs.MarkUnbound(ctx, sub.ID, now)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NoActiveSubscription(msgNoValidRecord)
	}

	log.Info().
		Int64("subscription_id", sub.ID).
		Str("email", util.MaskEmail(key.Email)).
		Str("device_id", key.DeviceID).
		Msg("subscription unbound")
	return nil
}
