package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var mailedCode = regexp.MustCompile(`<b>(\d{6})</b>`)

type resetFixture struct {
	creds  CredentialService
	reset  PasswordResetService
	repo   *fakeUserRepo
	mailer *fakeMailer
	clock  *testClock
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	clock := newTestClock()
	hasher := testHasher()

	reset := NewPasswordResetService(repo, hasher, mailer, 5*time.Minute, zap.NewNop())
	reset.(*passwordResetService).now = clock.Now

	f := &resetFixture{
		creds:  NewCredentialService(repo, hasher, zap.NewNop()),
		reset:  reset,
		repo:   repo,
		mailer: mailer,
		clock:  clock,
	}
	_, err := f.creds.Create(context.Background(), "user@test.com", "secret1")
	require.NoError(t, err)
	return f
}

func (f *resetFixture) lastCode(t *testing.T) string {
	t.Helper()
	f.mailer.mu.Lock()
	defer f.mailer.mu.Unlock()
	require.NotEmpty(t, f.mailer.sent)
	m := mailedCode.FindStringSubmatch(f.mailer.sent[len(f.mailer.sent)-1].Body)
	require.Len(t, m, 2)
	return m[1]
}

func TestGenerateOTP_Format(t *testing.T) {
	digits := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 1000; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		require.Regexp(t, digits, code)
	}
}

func TestRequestReset_StoresAndMails(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reset.RequestReset(ctx, " User@Test.com"))

	u := f.repo.snapshot("user@test.com")
	require.True(t, u.HasPendingOTP())
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), *u.OTPExpiresAt)
	assert.False(t, u.ResetAuthorized)

	require.Equal(t, 1, f.mailer.count())
	sent := f.mailer.sent[0]
	assert.Equal(t, "user@test.com", sent.To)
	assert.Equal(t, "Your OTP to Reset Password", sent.Subject)
	assert.Equal(t, "<h3>Your OTP: <b>"+*u.OTPCode+"</b></h3><p>It is valid for 5 minutes.</p>", sent.Body)
}

func TestRequestReset_UnknownIdentity(t *testing.T) {
	f := newResetFixture(t)
	err := f.reset.RequestReset(context.Background(), "ghost@test.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.mailer.count())
}

func TestRequestReset_DispatchFailureKeepsState(t *testing.T) {
	f := newResetFixture(t)
	smtpErr := errors.New("smtp refused")
	f.mailer.err = smtpErr

	err := f.reset.RequestReset(context.Background(), "user@test.com")
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.ErrorIs(t, err, smtpErr)
	u := f.repo.snapshot("user@test.com")
	assert.True(t, u.HasPendingOTP())
}

func TestRequestReset_RevokesAuthorization(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	require.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", f.lastCode(t)))
	require.True(t, f.repo.snapshot("user@test.com").ResetAuthorized)

	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	u := f.repo.snapshot("user@test.com")
	assert.False(t, u.ResetAuthorized)
	assert.True(t, u.HasPendingOTP())
}

func TestRequestReset_ReplacesPreviousCode(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	first := f.lastCode(t)
	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	second := f.lastCode(t)

	if first != second {
		assert.ErrorIs(t, f.reset.VerifyOTP(ctx, "user@test.com", first), ErrInvalidOrExpired)
	}
	assert.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", second))
}

func TestVerifyOTP_ExpiryBoundary(t *testing.T) {
	offsets := []struct {
		name    string
		advance time.Duration
		want    error
	}{
		{"immediately", 0, nil},
		{"one nanosecond before expiry", 5*time.Minute - time.Nanosecond, nil},
		{"at expiry", 5 * time.Minute, ErrOTPExpired},
		{"after expiry", 6 * time.Minute, ErrOTPExpired},
	}
	for _, tc := range offsets {
		t.Run(tc.name, func(t *testing.T) {
			f := newResetFixture(t)
			ctx := context.Background()
			require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
			code := f.lastCode(t)

			f.clock.Advance(tc.advance)
			err := f.reset.VerifyOTP(ctx, "user@test.com", code)
			if tc.want == nil {
				require.NoError(t, err)
				assert.True(t, f.repo.snapshot("user@test.com").ResetAuthorized)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrInvalidOrExpired)
			assert.False(t, f.repo.snapshot("user@test.com").ResetAuthorized)
		})
	}
}

func TestVerifyOTP_ConsumesCode(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	code := f.lastCode(t)

	require.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", code))
	u := f.repo.snapshot("user@test.com")
	assert.Nil(t, u.OTPCode)
	assert.Nil(t, u.OTPExpiresAt)
	assert.True(t, u.ResetAuthorized)

	err := f.reset.VerifyOTP(ctx, "user@test.com", code)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.NotErrorIs(t, err, ErrOTPExpired)
}

func TestVerifyOTP_NoPendingOrUnknown(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.reset.VerifyOTP(ctx, "user@test.com", "123456"), ErrInvalidOrExpired)
	assert.ErrorIs(t, f.reset.VerifyOTP(ctx, "ghost@test.com", "123456"), ErrInvalidOrExpired)
}

func TestVerifyOTP_ConcurrentSingleWinner(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	code := f.lastCode(t)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.reset.VerifyOTP(ctx, "user@test.com", code) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCompleteReset_RequiresVerify(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "user@test.com", "newpass1", "newpass1"), ErrResetUnauthorized)
	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "ghost@test.com", "newpass1", "newpass1"), ErrResetUnauthorized)

	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "user@test.com", "newpass1", "newpass1"), ErrResetUnauthorized)

	require.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", f.lastCode(t)))
	require.NoError(t, f.reset.CompleteReset(ctx, "user@test.com", "newpass1", "newpass1"))
	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "user@test.com", "newpass2", "newpass2"), ErrResetUnauthorized)

	_, err := f.creds.Verify(ctx, "user@test.com", "newpass1")
	assert.NoError(t, err)
}

func TestCompleteReset_ValidationKeepsAuthorization(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	require.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", f.lastCode(t)))
	before := f.repo.snapshot("user@test.com")

	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "user@test.com", "newpass1", "newpass2"), ErrPasswordMismatch)
	assert.ErrorIs(t, f.reset.CompleteReset(ctx, "user@test.com", "abc", "abc"), ErrWeakCredential)

	after := f.repo.snapshot("user@test.com")
	assert.True(t, after.ResetAuthorized)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
}

func TestCompleteReset_LongPassword(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	long := strings.Repeat("p", 80)

	require.NoError(t, f.reset.RequestReset(ctx, "user@test.com"))
	require.NoError(t, f.reset.VerifyOTP(ctx, "user@test.com", f.lastCode(t)))
	require.NoError(t, f.reset.CompleteReset(ctx, "user@test.com", long, long))

	_, err := f.creds.Verify(ctx, "user@test.com", long)
	assert.NoError(t, err)
	_, err = f.creds.Verify(ctx, "user@test.com", long[:79]+"q")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestPasswordRecoveryScenario(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	clock := newTestClock()
	hasher := testHasher()
	creds := NewCredentialService(repo, hasher, zap.NewNop())
	store := newFakeSessionStore()
	sessions := NewSessionService(store, creds, time.Hour, zap.NewNop())
	reset := NewPasswordResetService(repo, hasher, mailer, 5*time.Minute, zap.NewNop())
	reset.(*passwordResetService).now = clock.Now

	user, err := creds.Create(ctx, "user@test.com", "secret1")
	require.NoError(t, err)
	sess, err := sessions.Start(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)

	_, err = sessions.Login(ctx, "user@test.com", "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredential)
	assert.Equal(t, 1, store.len())

	require.NoError(t, reset.RequestReset(ctx, "user@test.com"))
	assert.Equal(t, 1, mailer.count())
	code := *repo.snapshot("user@test.com").OTPCode

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	assert.ErrorIs(t, reset.VerifyOTP(ctx, "user@test.com", wrong), ErrInvalidOrExpired)
	require.NoError(t, reset.VerifyOTP(ctx, "user@test.com", code))
	assert.True(t, repo.snapshot("user@test.com").ResetAuthorized)

	before := repo.snapshot("user@test.com")
	assert.ErrorIs(t, reset.CompleteReset(ctx, "user@test.com", "newpass1", "newpass2"), ErrPasswordMismatch)
	assert.Equal(t, before, repo.snapshot("user@test.com"))

	require.NoError(t, reset.CompleteReset(ctx, "user@test.com", "newpass8", "newpass8"))
	assert.False(t, repo.snapshot("user@test.com").ResetAuthorized)

	_, err = creds.Verify(ctx, "user@test.com", "newpass8")
	assert.NoError(t, err)
	_, err = creds.Verify(ctx, "user@test.com", "secret1")
	assert.ErrorIs(t, err, ErrBadCredential)
}
