package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"freshcart/internal/config"
	apperrors "freshcart/internal/errors"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/repositories/cache"
	"freshcart/internal/repositories/memory"
	"freshcart/internal/services/device"
	"freshcart/internal/services/lockout"
	"freshcart/internal/services/notification"
	"freshcart/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	storeID       = "STORE1"
	ownerEmail    = "owner@store1.test"
	ownerPassword = "Passw0rd!"
	secondaryCode = "k3y-c0de-abc"
	alertEmail    = "security@freshcart.test"
	storeLat      = 6.9271
	storeLng      = 79.8612
)

var (
	otpPattern  = regexp.MustCompile(`letter-spacing:4px"><b>(\d{6})</b>`)
	codePattern = regexp.MustCompile(`letter-spacing:2px"><b>([^<]+)</b>`)
	verifyLink  = regexp.MustCompile(`/api/auth/verify_email/([^"]+)"`)
	blockLinkRe = regexp.MustCompile(`/api/auth/block_account/([^"]+)"`)
	deviceKey   = models.DeviceKey{DeviceID: "tablet-1", BrowserToken: "bt-1"}
	otherDevice = models.DeviceKey{DeviceID: "tablet-2"}
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type stubReputation struct {
	safe bool
	err  error
}

func (s *stubReputation) IsSafe(context.Context, string) (bool, error) { return s.safe, s.err }

type harness struct {
	svc    Service
	store  *memory.Store
	mail   *notification.Recorder
	clock  *clock
	rep    *stubReputation
	tokens *utils.TokenManager
	owner  *models.ShopOwner
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Issuer:        "freshcart-test",
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			BlockSecret:   "block",
			VerifySecret:  "verify",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			BlockTTL:      10 * time.Minute,
			VerifyTTL:     24 * time.Hour,
		},
		Security: config.SecurityConfig{
			DeviceMaxFailures:       3,
			DeviceLockDuration:      30 * time.Minute,
			DeviceMaxLocks:          2,
			SecondaryMaxFailures:    3,
			SecondaryLockDuration:   30 * time.Minute,
			SecondaryMaxLocks:       2,
			OTPTTL:                  5 * time.Minute,
			OTPResendCooldown:       5 * time.Minute,
			MaxOTPAttempts:          5,
			LocationToleranceMeters: 1000,
			SecurityAlertEmail:      alertEmail,
			BcryptCost:              bcrypt.MinCost,
		},
		App: config.AppConfig{PublicURL: "http://api.test"},
	}
}

// flakySessions fails the next Upsert or Mutate once with the given error.
type flakySessions struct {
	repositories.LoginAttemptRepository
	upsertErr error
	mutateErr error
}

func (f *flakySessions) Upsert(ctx context.Context, session *models.LoginAttemptSession) error {
	if err := f.upsertErr; err != nil {
		f.upsertErr = nil
		return err
	}
	return f.LoginAttemptRepository.Upsert(ctx, session)
}

func (f *flakySessions) Mutate(ctx context.Context, storeID string, fn func(*models.LoginAttemptSession) error) (*models.LoginAttemptSession, error) {
	if err := f.mutateErr; err != nil {
		f.mutateErr = nil
		return nil, err
	}
	return f.LoginAttemptRepository.Mutate(ctx, storeID, fn)
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	cfg := testConfig()
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	mail := &notification.Recorder{}
	rep := &stubReputation{safe: true}
	tokens := utils.NewTokenManager(cfg.JWT).WithClock(c.now)

	mr := miniredis.RunT(t)
	guard := cache.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	devicePolicy := lockout.Policy{
		MaxFailures:  cfg.Security.DeviceMaxFailures,
		LockDuration: cfg.Security.DeviceLockDuration,
		MaxLocks:     cfg.Security.DeviceMaxLocks,
	}
	deps := Deps{
		ShopOwners: store.ShopOwners(),
		Sessions:   store.Sessions(),
		Devices:    device.NewTracker(store.Devices(), devicePolicy, zap.NewNop(), device.WithClock(c.now)),
		Reputation: rep,
		Notifier:   notification.NewService(mail, time.Second, zap.NewNop()),
		Tokens:     tokens,
		Guard:      guard,
		Logger:     zap.NewNop(),
		Now:        c.now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc := NewService(cfg, deps)
	return &harness{svc: svc, store: store, mail: mail, clock: c, rep: rep, tokens: tokens}
}

func mustHash(t *testing.T, s string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// seed creates a verified owner for STORE1 with a pending login session.
func (h *harness) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	lat, lng := storeLat, storeLng
	owner := &models.ShopOwner{
		StoreID:       storeID,
		Name:          "Green Grocer",
		Email:         ownerEmail,
		PasswordHash:  mustHash(t, ownerPassword),
		EmailVerified: true,
		Latitude:      &lat,
		Longitude:     &lng,
	}
	require.NoError(t, h.store.ShopOwners().Create(ctx, owner))
	h.owner = owner
	require.NoError(t, h.store.Sessions().Upsert(ctx, &models.LoginAttemptSession{
		StoreID:         storeID,
		EncryptCodeHash: mustHash(t, secondaryCode),
		Status:          models.AttemptPending,
	}))
}

func loginInput(password string) LoginInput {
	return LoginInput{
		StoreID:   storeID,
		Code:      secondaryCode,
		Password:  password,
		Latitude:  storeLat + 0.001,
		Longitude: storeLng,
		Device:    deviceKey,
		IP:        "203.0.113.7",
	}
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	require.NoError(t, h.svc.Login(context.Background(), loginInput(ownerPassword)))
	return h.lastOTP(t)
}

func (h *harness) lastOTP(t *testing.T) string {
	t.Helper()
	msg, ok := h.mail.Last(ownerEmail)
	require.True(t, ok)
	m := otpPattern.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2, "no otp in %q", msg.HTML)
	return m[1]
}

func (h *harness) session(t *testing.T) *models.LoginAttemptSession {
	t.Helper()
	sess, err := h.store.Sessions().GetByStoreID(context.Background(), storeID)
	require.NoError(t, err)
	return sess
}

func requireAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestLogin_SendsOTP(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	otp := h.login(t)
	assert.Len(t, otp, 6)

	sess := h.session(t)
	assert.Equal(t, models.AttemptOTPSent, sess.Status)
	require.NotNil(t, sess.OTPExpires)
	assert.Equal(t, h.clock.t.Add(5*time.Minute), *sess.OTPExpires)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(sess.OTPHash), []byte(otp)))

	msg, _ := h.mail.Last(ownerEmail)
	assert.Regexp(t, blockLinkRe, msg.HTML)

	_, err := h.store.Devices().Get(context.Background(), deviceKey)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestLogin_WrongPasswordLocksAccount(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		appErr := requireAppError(t, h.svc.Login(ctx, loginInput("wrong")), "INVALID_LOGIN")
		assert.Equal(t, 401, appErr.Status())
		assert.True(t, appErr.HasLockState())
		assert.False(t, appErr.Locked)
	}

	appErr := requireAppError(t, h.svc.Login(ctx, loginInput("wrong")), "INVALID_LOGIN")
	assert.Equal(t, 401, appErr.Status())
	assert.True(t, appErr.Locked)
	require.NotNil(t, appErr.LockUntil)
	assert.Equal(t, h.clock.t.Add(30*time.Minute), *appErr.LockUntil)

	alert, ok := h.mail.Last(alertEmail)
	require.True(t, ok)
	assert.Regexp(t, blockLinkRe, alert.HTML)

	// The right password does not help while locked.
	appErr = requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "LOCKED")
	assert.Equal(t, 403, appErr.Status())
	assert.True(t, appErr.Locked)

	h.clock.advance(30*time.Minute + time.Second)
	require.NoError(t, h.svc.Login(ctx, loginInput(ownerPassword)))
	sess := h.session(t)
	assert.False(t, sess.SecondaryIsLocked)
	assert.Zero(t, sess.SecondaryFailedAttempts)
}

func TestLogin_SecondLockBlocksAccount(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = h.svc.Login(ctx, loginInput("wrong"))
	}
	h.clock.advance(31 * time.Minute)
	for i := 0; i < 2; i++ {
		_ = h.svc.Login(ctx, loginInput("wrong"))
	}
	appErr := requireAppError(t, h.svc.Login(ctx, loginInput("wrong")), "INVALID_LOGIN")
	assert.True(t, appErr.Blocked)
	assert.False(t, appErr.Locked)

	appErr = requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "BLOCKED")
	assert.Equal(t, 403, appErr.Status())

	// Blocks do not expire.
	h.clock.advance(24 * time.Hour)
	requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "BLOCKED")

	alerts := 0
	for _, msg := range h.mail.Messages() {
		if msg.To == alertEmail {
			alerts++
			assert.Regexp(t, blockLinkRe, msg.HTML)
		}
	}
	assert.Equal(t, 2, alerts, "one alert for the lock and one for the block")
}

func TestLogin_UnsafeIPBlocksDevice(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	h.rep.safe = false
	appErr := requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "IP_INVALID")
	assert.Equal(t, 403, appErr.Status())
	assert.True(t, appErr.Blocked)

	h.rep.safe = true
	requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "DEVICE_BLOCKED")
}

func TestLogin_ReputationErrorFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	h.rep.safe, h.rep.err = true, errors.New("lookup timeout")
	requireAppError(t, h.svc.Login(context.Background(), loginInput(ownerPassword)), "IP_INVALID")
}

func TestLogin_WrongCodeLocksDevice(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	in := loginInput(ownerPassword)
	in.Code = "not-the-code"
	for i := 0; i < 2; i++ {
		appErr := requireAppError(t, h.svc.Login(ctx, in), "INVALID_LOGIN")
		assert.False(t, appErr.Locked)
	}
	appErr := requireAppError(t, h.svc.Login(ctx, in), "INVALID_LOGIN")
	assert.True(t, appErr.Locked)

	appErr = requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "DEVICE_LOCKED")
	assert.Equal(t, 403, appErr.Status())

	// Another device is unaffected.
	other := loginInput(ownerPassword)
	other.Device = otherDevice
	assert.NoError(t, h.svc.Login(ctx, other))
}

func TestLogin_LocationMismatch(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	in := loginInput(ownerPassword)
	in.Latitude, in.Longitude = 7.2906, 80.6337 // about 95 km away
	appErr := requireAppError(t, h.svc.Login(context.Background(), in), "INVALID_LOGIN")
	assert.Equal(t, 401, appErr.Status())
	assert.True(t, appErr.HasLockState())
}

func TestLogin_UnknownStore(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	in := loginInput(ownerPassword)
	in.StoreID = "NOPE"
	appErr := requireAppError(t, h.svc.Login(context.Background(), in), "INVALID_LOGIN")
	assert.Equal(t, 401, appErr.Status())
}

func TestLogin_SessionWithoutAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Sessions().Upsert(ctx, &models.LoginAttemptSession{
		StoreID:         storeID,
		EncryptCodeHash: mustHash(t, secondaryCode),
		Status:          models.AttemptPending,
	}))

	appErr := requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "ACCOUNT_NOT_FOUND")
	assert.Equal(t, 404, appErr.Status())
	assert.Equal(t, 1, h.session(t).SecondaryFailedAttempts)
}

func TestValidateOTP_ExpiredAtMinuteSix(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	expires := h.clock.t.Add(5 * time.Minute)
	sess := h.session(t)
	sess.OTPHash = mustHash(t, "123456")
	sess.OTPExpires = &expires
	sess.Status = models.AttemptOTPSent
	require.NoError(t, h.store.Sessions().Upsert(ctx, sess))

	h.clock.advance(6 * time.Minute)
	_, err := h.svc.ValidateOTP(ctx, storeID, "123456")
	appErr := requireAppError(t, err, "OTP_EXPIRED")
	assert.Equal(t, 401, appErr.Status())

	sess = h.session(t)
	assert.Empty(t, sess.OTPHash)
	assert.Nil(t, sess.OTPExpires)
	assert.Equal(t, models.AttemptPending, sess.Status)
}

func TestValidateOTP_IssuesSession(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	otp := h.login(t)
	session, err := h.svc.ValidateOTP(ctx, storeID, otp)
	require.NoError(t, err)
	assert.Equal(t, storeID, session.StoreID)
	assert.Equal(t, "Green Grocer", session.Name)
	assert.WithinDuration(t, h.clock.t.Add(15*time.Minute), session.AccessExpires, 0)
	assert.Equal(t, 1, h.store.RefreshTokenCount(h.owner.ID))

	claims, err := h.tokens.Parse(session.AccessToken, models.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, storeID, claims.Subject)
	assert.Equal(t, models.PrincipalShopOwner, claims.Principal)

	claims, err = h.svc.ValidateRefresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, storeID, claims.Subject)

	assert.Equal(t, models.AttemptVerified, h.session(t).Status)

	_, err = h.svc.ValidateOTP(ctx, storeID, otp)
	requireAppError(t, err, "NO_OTP_REQUEST")
}

func TestValidateOTP_MismatchThenExhausted(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	otp := h.login(t)
	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}

	for i := 0; i < 4; i++ {
		_, err := h.svc.ValidateOTP(ctx, storeID, wrong)
		appErr := requireAppError(t, err, "OTP_INVALID")
		assert.Equal(t, 400, appErr.Status())
	}
	_, err := h.svc.ValidateOTP(ctx, storeID, wrong)
	requireAppError(t, err, "OTP_EXHAUSTED")

	_, err = h.svc.ValidateOTP(ctx, storeID, otp)
	requireAppError(t, err, "NO_OTP_REQUEST")
}

func TestValidateOTP_UnknownStore(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ValidateOTP(context.Background(), "NOPE", "123456")
	appErr := requireAppError(t, err, "NO_OTP_REQUEST")
	assert.Equal(t, 401, appErr.Status())
}

func TestResendOTP_Cooldown(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	h.login(t)
	require.NoError(t, h.svc.ResendOTP(ctx, storeID))
	resent := h.lastOTP(t)

	err := h.svc.ResendOTP(ctx, storeID)
	appErr := requireAppError(t, err, "OTP_RESEND_COOLDOWN")
	assert.Equal(t, 429, appErr.Status())
	require.NotNil(t, appErr.RetryAt)
	assert.Equal(t, h.clock.t.Add(5*time.Minute), *appErr.RetryAt)

	h.clock.advance(time.Minute)
	_, err = h.svc.ValidateOTP(ctx, storeID, resent)
	assert.NoError(t, err)
}

func TestResendOTP_AfterCooldown(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	h.login(t)
	require.NoError(t, h.svc.ResendOTP(ctx, storeID))
	h.clock.advance(5*time.Minute + time.Second)
	require.NoError(t, h.svc.ResendOTP(ctx, storeID))

	sess := h.session(t)
	require.NotNil(t, sess.OTPExpires)
	assert.Equal(t, h.clock.t.Add(5*time.Minute), *sess.OTPExpires)
}

func TestResendOTP_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	requireAppError(t, h.svc.ResendOTP(context.Background(), storeID), "NO_OTP_REQUEST")
	requireAppError(t, h.svc.ResendOTP(context.Background(), "NOPE"), "NO_OTP_REQUEST")
}

func (h *harness) loggedIn(t *testing.T) *Session {
	t.Helper()
	session, err := h.svc.ValidateOTP(context.Background(), storeID, h.login(t))
	require.NoError(t, err)
	return session
}

func TestRefreshToken_RotationIsSingleUse(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	first := h.loggedIn(t)
	claims, err := h.svc.ValidateRefresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	second, err := h.svc.RefreshToken(ctx, claims, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, h.store.RefreshTokenCount(h.owner.ID))

	_, err = h.svc.ValidateRefresh(ctx, first.RefreshToken)
	requireAppError(t, err, "INVALID_REFRESH_TOKEN")

	// A replay that already passed validation loses the swap.
	_, err = h.svc.RefreshToken(ctx, claims, first.RefreshToken)
	requireAppError(t, err, "INVALID_REFRESH_TOKEN")

	_, err = h.svc.ValidateRefresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestValidateRefresh_Rejects(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	session := h.loggedIn(t)

	_, err := h.svc.ValidateRefresh(ctx, "")
	requireAppError(t, err, "NO_REFRESH_TOKEN")

	_, err = h.svc.ValidateRefresh(ctx, session.AccessToken)
	requireAppError(t, err, "INVALID_REFRESH_TOKEN")

	h.clock.advance(31 * 24 * time.Hour)
	_, err = h.svc.ValidateRefresh(ctx, session.RefreshToken)
	requireAppError(t, err, "INVALID_REFRESH_TOKEN")
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	session := h.loggedIn(t)
	claims, err := h.svc.ValidateRefresh(ctx, session.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, claims))
	assert.Equal(t, 0, h.store.RefreshTokenCount(h.owner.ID))

	_, err = h.svc.ValidateRefresh(ctx, session.RefreshToken)
	requireAppError(t, err, "INVALID_REFRESH_TOKEN")

	// Logging out twice is harmless.
	assert.NoError(t, h.svc.Logout(ctx, claims))
}

func TestBlockAccount_FromOTPEmail(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	h.loggedIn(t)
	h.login(t)
	msg, _ := h.mail.Last(ownerEmail)
	m := blockLinkRe.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2)
	link := m[1]

	already, err := h.svc.BlockAccount(ctx, link)
	require.NoError(t, err)
	assert.False(t, already)

	sess := h.session(t)
	assert.True(t, sess.SecondaryIsBlocked)
	assert.Empty(t, sess.OTPHash)
	assert.Equal(t, models.AttemptPending, sess.Status)
	assert.Equal(t, 0, h.store.RefreshTokenCount(h.owner.ID))

	blocked, ok := h.mail.Last(ownerEmail)
	require.True(t, ok)
	assert.Contains(t, blocked.Subject, "blocked")

	// Double submission of the same link.
	already, err = h.svc.BlockAccount(ctx, link)
	require.NoError(t, err)
	assert.True(t, already)

	requireAppError(t, h.svc.Login(ctx, loginInput(ownerPassword)), "BLOCKED")
}

func TestBlockAccount_SecondLink(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	first, _, err := h.tokens.Issue(models.PrincipalShopOwner, storeID, models.PurposeBlock, "")
	require.NoError(t, err)
	second, _, err := h.tokens.Issue(models.PrincipalShopOwner, storeID, models.PurposeBlock, "")
	require.NoError(t, err)

	already, err := h.svc.BlockAccount(ctx, first)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = h.svc.BlockAccount(ctx, second)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestBlockAccount_RetryAfterStorageError(t *testing.T) {
	sessions := &flakySessions{}
	h := newHarness(t, func(d *Deps) {
		sessions.LoginAttemptRepository = d.Sessions
		d.Sessions = sessions
	})
	h.seed(t)
	ctx := context.Background()

	link, _, err := h.tokens.Issue(models.PrincipalShopOwner, storeID, models.PurposeBlock, "")
	require.NoError(t, err)

	sessions.mutateErr = errors.New("connection reset")
	_, err = h.svc.BlockAccount(ctx, link)
	requireAppError(t, err, "INTERNAL")
	assert.False(t, h.session(t).SecondaryIsBlocked)

	already, err := h.svc.BlockAccount(ctx, link)
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, h.session(t).SecondaryIsBlocked)
}

func TestBlockAccount_InvalidTokens(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	session := h.loggedIn(t)
	_, err := h.svc.BlockAccount(ctx, session.AccessToken)
	requireAppError(t, err, "INVALID_LINK")

	link, _, err := h.tokens.Issue(models.PrincipalShopOwner, storeID, models.PurposeBlock, "")
	require.NoError(t, err)
	h.clock.advance(11 * time.Minute)
	_, err = h.svc.BlockAccount(ctx, link)
	requireAppError(t, err, "INVALID_LINK")
	assert.False(t, h.session(t).SecondaryIsBlocked)
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	lat, lng := storeLat, storeLng
	owner, err := h.svc.Register(ctx, models.ShopRegisterRequest{
		StoreID:   storeID,
		Name:      "Green Grocer",
		Email:     ownerEmail,
		Password:  ownerPassword,
		Latitude:  &lat,
		Longitude: &lng,
	})
	require.NoError(t, err)
	assert.False(t, owner.EmailVerified)
	assert.NotEqual(t, ownerPassword, owner.PasswordHash)

	msg, ok := h.mail.Last(ownerEmail)
	require.True(t, ok)
	m := verifyLink.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2)
	token := m[1]

	require.NoError(t, h.svc.VerifyEmail(ctx, token))
	profile, err := h.svc.GetProfile(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, profile.EmailVerified)

	msg, _ = h.mail.Last(ownerEmail)
	m = codePattern.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2)
	code := m[1]
	assert.Len(t, code, secondaryCodeLength)

	// The verification link works once.
	requireAppError(t, h.svc.VerifyEmail(ctx, token), "INVALID_LINK")

	in := loginInput(ownerPassword)
	in.Code = code
	assert.NoError(t, h.svc.Login(ctx, in))
}

func (h *harness) register(t *testing.T) string {
	t.Helper()
	lat, lng := storeLat, storeLng
	_, err := h.svc.Register(context.Background(), models.ShopRegisterRequest{
		StoreID:   storeID,
		Name:      "Green Grocer",
		Email:     ownerEmail,
		Password:  ownerPassword,
		Latitude:  &lat,
		Longitude: &lng,
	})
	require.NoError(t, err)
	msg, ok := h.mail.Last(ownerEmail)
	require.True(t, ok)
	m := verifyLink.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2)
	return m[1]
}

func TestVerifyEmail_RetryAfterStorageError(t *testing.T) {
	sessions := &flakySessions{}
	h := newHarness(t, func(d *Deps) {
		sessions.LoginAttemptRepository = d.Sessions
		d.Sessions = sessions
	})
	ctx := context.Background()
	token := h.register(t)
	sent := len(h.mail.Messages())

	sessions.upsertErr = errors.New("connection reset")
	requireAppError(t, h.svc.VerifyEmail(ctx, token), "INTERNAL")
	assert.Len(t, h.mail.Messages(), sent)
	_, err := h.store.Sessions().GetByStoreID(ctx, storeID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, h.svc.VerifyEmail(ctx, token))
	msg, _ := h.mail.Last(ownerEmail)
	assert.Regexp(t, codePattern, msg.HTML)
	assert.Equal(t, models.AttemptPending, h.session(t).Status)

	requireAppError(t, h.svc.VerifyEmail(ctx, token), "INVALID_LINK")
}

func TestResendVerification_VerifiedWithoutSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t)

	owner, err := h.store.ShopOwners().GetByStoreID(ctx, storeID)
	require.NoError(t, err)
	require.NoError(t, h.store.ShopOwners().MarkEmailVerified(ctx, owner.ID))
	sent := len(h.mail.Messages())

	require.NoError(t, h.svc.ResendVerification(ctx, ownerEmail))
	msgs := h.mail.Messages()
	require.Len(t, msgs, sent+1)
	m := verifyLink.FindStringSubmatch(msgs[sent].HTML)
	require.Len(t, m, 2)

	require.NoError(t, h.svc.VerifyEmail(ctx, m[1]))
	assert.Equal(t, models.AttemptPending, h.session(t).Status)
}

func TestRegister_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	lat, lng := storeLat, storeLng
	_, err := h.svc.Register(context.Background(), models.ShopRegisterRequest{
		StoreID:   storeID,
		Name:      "Copy",
		Email:     "other@store.test",
		Password:  ownerPassword,
		Latitude:  &lat,
		Longitude: &lng,
	})
	appErr := requireAppError(t, err, "STORE_EXISTS")
	assert.Equal(t, 409, appErr.Status())
}

func TestResendVerification(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	require.NoError(t, h.svc.ResendVerification(ctx, "nobody@store.test"))
	require.NoError(t, h.svc.ResendVerification(ctx, ownerEmail))
	assert.Empty(t, h.mail.Messages())
}

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, distanceMeters(storeLat, storeLng, storeLat, storeLng), 0.001)
	// One thousandth of a degree of latitude is about 111 m.
	assert.InDelta(t, 111, distanceMeters(storeLat, storeLng, storeLat+0.001, storeLng), 1)
}
