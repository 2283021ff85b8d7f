package verification

import (
	"errors"
	"strings"
	"testing"
	"time"

	dbpkg "fintrack/internal/db"
	"fintrack/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// recordSender captures outbound mail instead of delivering it
type recordSender struct {
	subject string
	body    string
	from    string
	to      string
	fail    error
}

func (r *recordSender) Send(subject, body, from, to string) error {
	if r.fail != nil {
		return r.fail
	}
	r.subject, r.body, r.from, r.to = subject, body, from, to
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, dbpkg.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("original-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := domain.User{Username: email, Email: email, Password: string(hash)}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// mailedCode pulls the code out of the recorded message body
func mailedCode(t *testing.T, sender *recordSender) string {
	t.Helper()
	code := strings.TrimPrefix(sender.body, "Your verification code is: ")
	require.Len(t, code, 6)
	return code
}

func storedCode(t *testing.T, db *gorm.DB, userID uint) domain.EmailVerification {
	t.Helper()
	var record domain.EmailVerification
	require.NoError(t, db.Where("user_id = ?", userID).First(&record).Error)
	return record
}

func codeCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.EmailVerification{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestRequestResetIssuesAndMailsCode(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{}

	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))

	record := storedCode(t, db, user.ID)
	assert.Equal(t, record.Code, mailedCode(t, sender))
	assert.Equal(t, "alice@example.com", sender.to)
	assert.Equal(t, "noreply@example.com", sender.from)
}

func TestRequestResetUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	sender := &recordSender{}

	err := RequestReset(db, sender, "noreply@example.com", "nobody@example.com")
	assert.Equal(t, domain.ErrUserNotFound, domain.KindOf(err))
	assert.Empty(t, sender.to)
}

func TestRequestResetSupersedesPriorCode(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{}

	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	first := storedCode(t, db, user.ID)

	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	second := storedCode(t, db, user.ID)

	// Only the latest code exists; the first one is dead
	assert.EqualValues(t, 1, codeCount(t, db, user.ID))
	if first.Code != second.Code { // 1-in-16M collision
		err := Verify(db, "alice@example.com", first.Code, "new-password-1", time.Now())
		assert.Equal(t, domain.ErrIncorrectCode, domain.KindOf(err))
	}
}

func TestRequestResetSurvivesMailFailure(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{fail: errors.New("relay down")}

	// Delivery is best-effort: the code is persisted and usable anyway
	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	record := storedCode(t, db, user.ID)
	require.NoError(t, Verify(db, "alice@example.com", record.Code, "new-password-1", time.Now()))
}

func TestVerifySuccessWithinWindow(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{}
	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	record := storedCode(t, db, user.ID)

	// Nine minutes after issuance is still inside the ten-minute window
	attempt := record.CreatedAt.Add(9 * time.Minute)
	require.NoError(t, Verify(db, "alice@example.com", record.Code, "new-password-1", attempt))

	// Password changed, code consumed
	var updated domain.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("new-password-1")))
	assert.EqualValues(t, 0, codeCount(t, db, user.ID))
}

func TestVerifyExpiredCodeIsConsumed(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{}
	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	record := storedCode(t, db, user.ID)

	attempt := record.CreatedAt.Add(11 * time.Minute)
	err := Verify(db, "alice@example.com", record.Code, "new-password-1", attempt)
	assert.Equal(t, domain.ErrExpired, domain.KindOf(err))

	// The expired code is gone; retrying reports no code at all
	assert.EqualValues(t, 0, codeCount(t, db, user.ID))
	err = Verify(db, "alice@example.com", record.Code, "new-password-1", attempt)
	assert.Equal(t, domain.ErrNoCodeIssued, domain.KindOf(err))

	// Password is untouched
	var updated domain.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("original-pass")))
}

func TestVerifyWrongCodeIsConsumed(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@example.com")
	sender := &recordSender{}
	require.NoError(t, RequestReset(db, sender, "noreply@example.com", "alice@example.com"))
	record := storedCode(t, db, user.ID)

	wrong := "000000"
	if record.Code == wrong {
		wrong = "FFFFFF"
	}
	err := Verify(db, "alice@example.com", wrong, "new-password-1", time.Now())
	assert.Equal(t, domain.ErrIncorrectCode, domain.KindOf(err))

	// One wrong guess burns the code: the right one no longer works
	assert.EqualValues(t, 0, codeCount(t, db, user.ID))
	err = Verify(db, "alice@example.com", record.Code, "new-password-1", time.Now())
	assert.Equal(t, domain.ErrNoCodeIssued, domain.KindOf(err))
}

func TestVerifyUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	err := Verify(db, "nobody@example.com", "ABCDEF", "new-password-1", time.Now())
	assert.Equal(t, domain.ErrUserNotFound, domain.KindOf(err))
}

func TestVerifyWithoutOutstandingCode(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	err := Verify(db, "alice@example.com", "ABCDEF", "new-password-1", time.Now())
	assert.Equal(t, domain.ErrNoCodeIssued, domain.KindOf(err))
}
