package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"store-api/internal/models"
	"store-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LoginResult struct {
	User            *models.User
	AccessToken     string
	AccessExpiresAt time.Time
	// SessionID пустой, если хранилище сессий выключено.
	SessionID        string
	SessionExpiresAt time.Time
}

type AuthService struct {
	users    repository.UserRepo
	hasher   PasswordHasher
	tokens   TokenProvider
	sessions SessionStore // может быть nil: тогда только bearer

	accessTTL  time.Duration
	sessionTTL time.Duration
	now        func() time.Time

	log *zap.Logger
}

func NewAuthService(
	users repository.UserRepo,
	hasher PasswordHasher,
	tokens TokenProvider,
	sessions SessionStore,
	accessTTL, sessionTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		sessions:   sessions,
		accessTTL:  accessTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
		log:        log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(username) == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: &hash,
		Role:         models.RoleCustomer,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// гонка двух регистраций с одним email
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("Пользователь зарегистрирован", zap.String("user_id", u.ID.String()))
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil || !s.hasher.Compare(*user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	role := Role(user.Role)
	access, aexp, err := s.tokens.SignAccess(ctx, user.ID, role, s.accessTTL)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{User: user, AccessToken: access, AccessExpiresAt: aexp}
	if s.sessions != nil {
		sid, err := s.sessions.Create(ctx, Identity{UserID: user.ID, Role: role}, s.sessionTTL)
		if err != nil {
			return nil, err
		}
		res.SessionID = sid
		res.SessionExpiresAt = s.now().Add(s.sessionTTL)
	}

	s.log.Info("Успешный вход", zap.String("user_id", user.ID.String()))
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// AuthenticateBearer: проверка access-токена; роль уже нормализована провайдером токенов.
func (s *AuthService) AuthenticateBearer(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.ParseAndValidateAccess(ctx, token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	if claims.UserID == uuid.Nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) AuthenticateSession(ctx context.Context, sessionID string) (Identity, error) {
	if s.sessions == nil || sessionID == "" {
		return Identity{}, ErrUnauthorized
	}
	id, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, err
	}
	return *id, nil
}
