package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/contract"
	"github.com/hugh/prompthub/internal/database"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/prompt"
	"github.com/hugh/prompthub/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword satisfies every password rule.
const TestPassword = "P@ssw0rd1"

const testSecret = "test-secret-key-for-testing-only-0123456789"

// SetupTestDB opens a private in-memory SQLite database with the full
// schema. A single connection is used, so code under test must run
// statements inside a transaction through the transaction handle only.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Logger discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// FrozenClock is a manually advanced clock.
type FrozenClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFrozenClock() *FrozenClock {
	return &FrozenClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// RecordingMailer keeps every message it is asked to send.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (m *RecordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Last returns the most recent message, failing the test when none was sent.
func (m *RecordingMailer) Last(t *testing.T) mail.Message {
	t.Helper()
	msgs := m.Messages()
	if len(msgs) == 0 {
		t.Fatal("no mail was sent")
	}
	return msgs[len(msgs)-1]
}

// NewTokenService builds a Token Service on the given clock.
func NewTokenService(t *testing.T, clock *FrozenClock) *auth.JWTService {
	t.Helper()

	svc, err := auth.NewJWTService(auth.TokenConfig{
		Algorithm:          "HS256",
		Secret:             []byte(testSecret),
		Issuer:             "prompthub-test",
		ActivationLifetime: time.Hour,
		APILifetime:        14 * 24 * time.Hour,
	}, auth.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	return svc
}

// Env wires every core service against one test database.
type Env struct {
	DB            *gorm.DB
	Store         *store.Store
	Clock         *FrozenClock
	Tokens        *auth.JWTService
	Authenticator *auth.Authenticator
	Permissions   *permission.Engine
	Contracts     *contract.Service
	Prompts       *prompt.Service
	Auth          *auth.Service
	Mailer        *RecordingMailer
	Logger        *slog.Logger
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := SetupTestDB(t)
	st := store.New(db)
	log := Logger()
	clock := NewFrozenClock()
	tokens := NewTokenService(t, clock)
	authn := auth.NewAuthenticator(tokens, st.Accounts, "token")
	engine := permission.NewEngine(st, log)
	contracts := contract.NewService(st, engine, models.DefaultMaxMemberCount, log)
	mailer := &RecordingMailer{}

	authService := auth.NewService(auth.ServiceDeps{
		Store:         st,
		Tokens:        tokens,
		Authenticator: authn,
		Roles:         engine,
		Memberships:   contracts,
		Mailer:        mailer,
		Logger:        log,
	}, auth.ServiceConfig{BaseURL: "http://localhost:8080"})

	if err := engine.SeedResources(context.Background()); err != nil {
		t.Fatalf("failed to seed resources: %v", err)
	}

	return &Env{
		DB:            db,
		Store:         st,
		Clock:         clock,
		Tokens:        tokens,
		Authenticator: authn,
		Permissions:   engine,
		Contracts:     contracts,
		Prompts:       prompt.NewService(db, engine, log),
		Auth:          authService,
		Mailer:        mailer,
		Logger:        log,
	}
}

// CreateAccount inserts an account with TestPassword in the given state.
func (e *Env) CreateAccount(t *testing.T, state models.ActivationState, roles ...string) *models.Account {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	account := &models.Account{
		Email:           "test-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash:    hash,
		ActivationState: state,
	}
	if state == models.ActivationActive {
		now := e.Clock.Now()
		account.ActivatedAt = &now
	}
	if err := e.DB.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	if len(roles) > 0 {
		e.Grant(t, account.ID, roles...)
	}
	return account
}

// ActiveAccount is CreateAccount for an active account.
func (e *Env) ActiveAccount(t *testing.T, roles ...string) *models.Account {
	t.Helper()
	return e.CreateAccount(t, models.ActivationActive, roles...)
}

// Grant bypasses the caller check.
func (e *Env) Grant(t *testing.T, accountID uuid.UUID, roles ...string) {
	t.Helper()
	if err := e.Permissions.Bootstrap(context.Background(), accountID, roles...); err != nil {
		t.Fatalf("failed to grant roles: %v", err)
	}
}

// CreateContract makes owner the owner of a new contract.
func (e *Env) CreateContract(t *testing.T, owner *models.Account, maxMembers int) *models.Contract {
	t.Helper()
	c, err := e.Contracts.CreateContract(context.Background(), owner.ID, maxMembers)
	if err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}
	return c
}

func (e *Env) AddMember(t *testing.T, c *models.Contract, account *models.Account) {
	t.Helper()
	if _, err := e.Contracts.AddMember(context.Background(), c.ID, account.ID); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

// APIToken issues an api token for the account.
func (e *Env) APIToken(t *testing.T, account *models.Account) string {
	t.Helper()
	issued, err := e.Tokens.Issue(account.ID, auth.TokenTypeAPI, 0, "")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return issued.Token
}

// AuthenticatedRequest creates an HTTP request with a bearer token.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
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

// AssertStatus checks the response code and prints the body on mismatch.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext returns a context cancelled when the test ends.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
