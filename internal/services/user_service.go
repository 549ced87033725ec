package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type UserService struct {
	db     core.DbClient
	tokens TokenIssuer
	log    *logger.Logger
}

func NewUserService(db core.DbClient, tokens TokenIssuer, log *logger.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, log: logger.OrNop(log).With("component", "users")}
}

type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Jurisdiction string
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Jurisdiction *string
}

var errBadCredentials = errors.New("invalid credentials")

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, "", models.WrapError(models.ErrInvalidInput, "register", errors.New("email and password are required"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", models.WrapError(models.ErrInvalidInput, "register", err)
	}

	now := nowUTC()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Jurisdiction: strings.ToUpper(strings.TrimSpace(in.Jurisdiction)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login records a login activity on success.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if models.IsKind(err, models.ErrNotFound) {
			return nil, "", models.WrapError(models.ErrUnauthorized, "login", errBadCredentials)
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", models.WrapError(models.ErrUnauthorized, "login", errBadCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	recordActivity(ctx, s.db, s.log, &models.Activity{
		UserID: user.ID,
		Type:   models.ActivityLogin,
		Details: models.ActivityDetails{
			Title:       "Signed in",
			Description: "New sign-in to your account.",
			Status:      "success",
		},
	})
	return user, token, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.db.GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Jurisdiction != nil {
		user.Jurisdiction = strings.ToUpper(strings.TrimSpace(*upd.Jurisdiction))
	}
	user.UpdatedAt = nowUTC()
	if err := s.db.UpdateUserProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
