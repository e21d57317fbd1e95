package auth

import (
	"context"
	"errors"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/database"
	"project-management-api/internal/models"
	"project-management-api/internal/workspace"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Credentials is an email/password sign-in attempt.
type Credentials struct {
	Email    string
	Password string
}

// Profile is an identity asserted by an external provider.
type Profile struct {
	Provider string
	Email    string
	Name     string
	Image    string
}

// Registration is the result of a successful sign-up.
type Registration struct {
	User      *models.User
	Workspace *models.Workspace
	Token     string
}

// Service implements sign-up, sign-in and profile updates.
type Service struct {
	db       *database.DB
	tokens   *TokenIssuer
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService wires the identity service.
func NewService(db *database.DB, tokens *TokenIssuer, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		tokens:   tokens,
		validate: validator.New(),
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Tokens exposes the issuer used by the service.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

func (s *Service) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

// Authorize checks credentials. Any mismatch (malformed email, unknown user,
// provider-only account, wrong password) yields (nil, nil); only storage
// failures return an error.
func (s *Service) Authorize(ctx context.Context, creds Credentials) (*models.User, error) {
	email := models.NormalizeEmail(creds.Email)
	if !s.validEmail(email) || creds.Password == "" {
		return nil, nil
	}

	var user models.User
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("email = ?", email).First(&user).Error
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == nil || !CheckPassword(*user.PasswordHash, creds.Password) {
		return nil, nil
	}
	return &user, nil
}

// Register creates a password account together with its personal workspace.
// A duplicate email is a conflict and never produces a second user row.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Registration, error) {
	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)
	switch {
	case name == "":
		return nil, apperr.Invalid("Name is required")
	case !s.validEmail(email):
		return nil, apperr.Invalid("A valid email is required")
	case len(password) < MinPasswordLength:
		return nil, apperr.Newf(apperr.KindInvalid, "Password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: name, Email: email, PasswordHash: &hash}
	var ws *models.Workspace
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("User with this email already exists")
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		ws, err = s.onUserCreated(tx, user)
		return err
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil, apperr.Conflict("User with this email already exists")
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("workspace_id", ws.ID).Msg("user registered")
	return &Registration{User: user, Workspace: ws, Token: token}, nil
}

// SignInWithProvider finds or creates the user for a provider identity.
// created reports whether a new user (and personal workspace) was provisioned.
func (s *Service) SignInWithProvider(ctx context.Context, p Profile) (user *models.User, created bool, err error) {
	email := models.NormalizeEmail(p.Email)
	if !s.validEmail(email) {
		return nil, false, apperr.Invalid("A valid email is required")
	}

	user = &models.User{}
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(user).Error
		if err == nil {
			if user.Image == "" && p.Image != "" {
				user.Image = p.Image
				return tx.Model(user).Update("image", p.Image).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		name := strings.TrimSpace(p.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		*user = models.User{Name: name, Email: email, Image: p.Image, Provider: p.Provider}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		created = true
		_, err = s.onUserCreated(tx, user)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info().Str("user_id", user.ID).Str("provider", p.Provider).Msg("user provisioned from provider")
	}
	return user, created, nil
}

// onUserCreated runs inside the creating transaction.
func (s *Service) onUserCreated(tx *gorm.DB, user *models.User) (*models.Workspace, error) {
	return workspace.ProvisionPersonal(tx, user)
}

// User loads a user by id.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.First(&user, "id = ?", id).Error
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindUnauthenticated, "User no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes name and/or image and returns a token reflecting them.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, image *string) (*models.User, string, error) {
	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, "", apperr.Invalid("Name cannot be empty")
		}
		updates["name"] = trimmed
	}
	if image != nil {
		updates["image"] = strings.TrimSpace(*image)
	}

	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(updates) > 0 {
		err = s.db.Do(ctx, func(tx *gorm.DB) error {
			return tx.Model(user).Updates(updates).Error
		})
		if err != nil {
			return nil, "", err
		}
		if v, ok := updates["name"].(string); ok {
			user.Name = v
		}
		if v, ok := updates["image"].(string); ok {
			user.Image = v
		}
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
