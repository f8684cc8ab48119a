package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/mail"
	"github.com/hugh/rateboard/internal/permission"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestJWTSecret = "test-secret-key-for-testing"
	TestPassword  = "testpassword123"
	TestHostURL   = "http://rateboard.test"
)

// FastHashParams keep argon2id cheap enough for table tests.
var FastHashParams = auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1}

// SetupTestDB creates an in-memory SQLite database with the schema applied.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService(TestJWTSecret, 24*time.Hour, 72*time.Hour)
}

func CreateTestHasher() *auth.Hasher {
	return auth.NewHasher(FastHashParams, 4)
}

// CreateTestUser inserts an activated user whose password is TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	if email == "" {
		email = "user-" + uuid.NewString()[:8] + "@example.com"
	}
	hash, err := CreateTestHasher().Hash(context.Background(), TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        strings.ToLower(email),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Activated:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestOrg inserts an organization owned by owner together with the
// owner's ACTIVE membership.
func CreateTestOrg(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Organization {
	t.Helper()

	if name == "" {
		name = "Org " + uuid.NewString()[:8]
	}
	org := &models.Organization{
		Name:    name,
		OwnerID: owner.ID,
		Status:  models.OrganizationStatusActive,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	CreateTestMembership(t, db, owner, org, models.RoleOwner, models.MembershipStatusActive)
	return org
}

func CreateTestMembership(t *testing.T, db *gorm.DB, user *models.User, org *models.Organization, role models.Role, status models.MembershipStatus) *models.OrganizationMembership {
	t.Helper()

	m := &models.OrganizationMembership{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           role,
		Permissions:    permission.ForRole(role),
		Status:         status,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// GenerateTestToken issues a session token for user carrying its ACTIVE
// memberships.
func GenerateTestToken(t *testing.T, db *gorm.DB, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	var memberships []models.OrganizationMembership
	if err := db.Where("user_id = ? AND status = ?", user.ID, models.MembershipStatusActive).Find(&memberships).Error; err != nil {
		t.Fatalf("failed to load memberships: %v", err)
	}
	claims := make([]auth.MembershipClaim, len(memberships))
	for i := range memberships {
		claims[i] = auth.NewMembershipClaim(&memberships[i])
	}

	token, err := jwtService.GenerateToken(user.ID, user.Email, claims)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// FakeSender records every message and fails with Err when set.
type FakeSender struct {
	mu       sync.Mutex
	Err      error
	Messages []mail.Message
}

func (f *FakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, msg)
	return nil
}

func (f *FakeSender) Sent() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mail.Message, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// AuthenticatedRequest creates an HTTP request with a bearer token.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
