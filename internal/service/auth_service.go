package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/password"
	"storefront/internal/repository"
	"storefront/internal/token"
)

// MinPasswordLength is the shortest password accepted at registration, in characters.
const MinPasswordLength = 6

// absentUserHash is compared against when no account matches the email, so an
// unknown address pays the same bcrypt cost as a wrong password.
const absentUserHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var (
	// ErrInvalidCredentials is returned for every failed login, whatever the cause.
	ErrInvalidCredentials = domain.NewError(domain.KindUnauthenticated, "invalid email or password")
	// ErrUnauthenticated is returned when a request carries no usable credential.
	ErrUnauthenticated = domain.NewError(domain.KindUnauthenticated, "unauthenticated")
	// ErrForbidden is returned when an authenticated user lacks the admin capability.
	ErrForbidden = domain.NewError(domain.KindForbidden, "admin access required")
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = domain.NewError(domain.KindConflict, "user with this email already exists")
	// ErrUserNotFound is returned by lookups on behalf of an admin.
	ErrUserNotFound = domain.NewError(domain.KindNotFound, "user not found")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Compare(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(tokenString string) (string, error)
}

// AuthConfig carries the bootstrap administrator credentials.
// Leaving either field empty disables the admin login fallback.
type AuthConfig struct {
	AdminEmail    string
	AdminPassword string
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService describes the registration, login and request authentication flow.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Session, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Authenticate(ctx context.Context, tokenString string) (*domain.User, error)
	CurrentUser(user *domain.User) (domain.PublicProfile, error)
	ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error
	GetUser(ctx context.Context, id string) (domain.PublicProfile, error)
}

type authService struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	cfg      AuthConfig
	validate *validator.Validate
	logger   logrus.FieldLogger
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, cfg AuthConfig, logger logrus.FieldLogger) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cfg: AuthConfig{
			AdminEmail:    normalizeEmail(cfg.AdminEmail),
			AdminPassword: strings.TrimSpace(cfg.AdminPassword),
		},
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	pass := strings.TrimSpace(in.Password)

	if name == "" || email == "" || pass == "" {
		metrics.ObserveRegistration(metrics.OutcomeInvalid)
		return nil, domain.NewError(domain.KindValidation, "name, email and password are required")
	}
	if err := s.validateEmail(email); err != nil {
		metrics.ObserveRegistration(metrics.OutcomeInvalid)
		return nil, err
	}
	if err := validatePassword(pass); err != nil {
		metrics.ObserveRegistration(metrics.OutcomeInvalid)
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		metrics.ObserveRegistration(metrics.OutcomeConflict)
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		metrics.ObserveRegistration(metrics.OutcomeError)
		return nil, s.internal("lookup user by email", err)
	}

	hash, err := s.hasher.Hash(ctx, pass)
	if err != nil {
		metrics.ObserveRegistration(metrics.OutcomeError)
		return nil, s.internal("hash password", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.isAdminEmail(email),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			// lost a race with a concurrent registration
			metrics.ObserveRegistration(metrics.OutcomeConflict)
			return nil, ErrUserAlreadyExists
		}
		metrics.ObserveRegistration(metrics.OutcomeError)
		return nil, s.internal("create user", err)
	}

	session, err := s.newSession(user)
	if err != nil {
		metrics.ObserveRegistration(metrics.OutcomeError)
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "admin": user.IsAdmin}).Info("user registered")
	metrics.ObserveRegistration(metrics.OutcomeSuccess)
	return session, nil
}

// Login authenticates against the user store first and falls back to the
// configured administrator credentials, creating the admin record on first use.
func (s *authService) Login(ctx context.Context, email, pass string) (*domain.Session, error) {
	email = normalizeEmail(email)
	pass = strings.TrimSpace(pass)
	if email == "" || pass == "" {
		metrics.ObserveLogin(metrics.OutcomeInvalid)
		return nil, domain.NewError(domain.KindValidation, "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		ok, err := s.hasher.Compare(ctx, pass, user.PasswordHash)
		if err != nil {
			metrics.ObserveLogin(metrics.OutcomeError)
			return nil, s.internal("compare password", err)
		}
		if !ok {
			metrics.ObserveLogin(metrics.OutcomeInvalid)
			return nil, ErrInvalidCredentials
		}
		return s.loginSucceeded(user, metrics.OutcomeSuccess)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.ObserveLogin(metrics.OutcomeError)
		return nil, s.internal("lookup user by email", err)
	}

	if !s.matchesAdmin(email, pass) {
		if _, err := s.hasher.Compare(ctx, pass, absentUserHash); err != nil {
			s.logger.WithError(err).Debug("absent user compare failed")
		}
		metrics.ObserveLogin(metrics.OutcomeInvalid)
		return nil, ErrInvalidCredentials
	}

	admin, created, err := s.provisionAdmin(ctx, email, pass)
	if err != nil {
		metrics.ObserveLogin(metrics.OutcomeError)
		return nil, err
	}
	return s.loginSucceeded(admin, adminLoginOutcome(created))
}

// adminLoginOutcome separates the login that created the admin record from
// one that lost the creation race and read it back.
func adminLoginOutcome(created bool) string {
	if created {
		return metrics.OutcomeAdminCreated
	}
	return metrics.OutcomeSuccess
}

func (s *authService) provisionAdmin(ctx context.Context, email, pass string) (*domain.User, bool, error) {
	hash, err := s.hasher.Hash(ctx, pass)
	if err != nil {
		return nil, false, s.internal("hash admin password", err)
	}

	admin := &domain.User{
		Name:         adminName(email),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	err = s.users.Create(ctx, admin)
	if err == nil {
		s.logger.WithField("user_id", admin.ID).Info("admin account provisioned from configuration")
		return admin, true, nil
	}
	if !errors.Is(err, domain.ErrUserExists) {
		return nil, false, s.internal("create admin user", err)
	}

	// a concurrent login created the record first; it is committed, so one read is enough
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, s.internal("reload admin user", err)
	}
	return existing, false, nil
}

func (s *authService) loginSucceeded(user *domain.User, outcome string) (*domain.Session, error) {
	session, err := s.newSession(user)
	if err != nil {
		metrics.ObserveLogin(metrics.OutcomeError)
		return nil, err
	}
	s.logger.WithField("user_id", user.ID).Debug("user logged in")
	metrics.ObserveLogin(outcome)
	return session, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		outcome := metrics.OutcomeMalformed
		if errors.Is(err, token.ErrExpired) {
			outcome = metrics.OutcomeExpired
		}
		metrics.ObserveTokenVerification(outcome)
		s.logger.WithField("reason", outcome).Debugf("token rejected: %v", err)
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.ObserveTokenVerification(metrics.OutcomeUnknownUser)
			return nil, ErrUnauthenticated
		}
		metrics.ObserveTokenVerification(metrics.OutcomeError)
		return nil, s.internal("load token user", err)
	}
	metrics.ObserveTokenVerification(metrics.OutcomeSuccess)
	return user, nil
}

func (s *authService) CurrentUser(user *domain.User) (domain.PublicProfile, error) {
	if user == nil {
		return domain.PublicProfile{}, ErrUnauthenticated
	}
	return user.Profile(), nil
}

// ChangePassword replaces the password of an authenticated user after
// re-checking the current one.
func (s *authService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if user == nil {
		return ErrUnauthenticated
	}
	currentPassword = strings.TrimSpace(currentPassword)
	newPassword = strings.TrimSpace(newPassword)
	if currentPassword == "" || newPassword == "" {
		return domain.NewError(domain.KindValidation, "current and new password are required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	ok, err := s.hasher.Compare(ctx, currentPassword, user.PasswordHash)
	if err != nil {
		return s.internal("compare password", err)
	}
	if !ok {
		return domain.NewError(domain.KindValidation, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return s.internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUnauthenticated
		}
		return s.internal("update password", err)
	}
	user.PasswordHash = hash
	s.logger.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *authService) GetUser(ctx context.Context, id string) (domain.PublicProfile, error) {
	user, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.PublicProfile{}, ErrUserNotFound
		}
		return domain.PublicProfile{}, s.internal("get user", err)
	}
	return user.Profile(), nil
}

func (s *authService) newSession(user *domain.User) (*domain.Session, error) {
	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.internal("issue token", err)
	}
	return &domain.Session{Token: signed, User: user.Profile()}, nil
}

func (s *authService) validateEmail(email string) error {
	if err := s.validate.Var(email, "email"); err != nil {
		return domain.NewError(domain.KindValidation, "email is not a valid address")
	}
	return nil
}

func (s *authService) isAdminEmail(email string) bool {
	return s.cfg.AdminEmail != "" && email == s.cfg.AdminEmail
}

func (s *authService) matchesAdmin(email, pass string) bool {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.cfg.AdminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
	return emailOK && passOK
}

func (s *authService) internal(op string, err error) error {
	s.logger.WithError(err).Errorf("auth: %s", op)
	return domain.Internal(err)
}

func validatePassword(pass string) error {
	if utf8.RuneCountInString(pass) < MinPasswordLength {
		return domain.NewError(domain.KindValidation, "password must be at least 6 characters")
	}
	if len(pass) > password.MaxLength {
		return domain.NewError(domain.KindValidation, "password must be at most 72 bytes")
	}
	if password.IsHashed(pass) {
		return domain.NewError(domain.KindValidation, "password format is not allowed")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func adminName(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "Administrator"
}
