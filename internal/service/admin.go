package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/auth"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AdminService struct {
	repo         repository.Store
	logger       *zap.Logger
	issuer       *auth.Issuer
	email        string
	passwordHash []byte
}

func NewAdminService(repo repository.Store, logger *zap.Logger) *AdminService {
	return &AdminService{repo: repo, logger: logger}
}

// SetCredentials configures the back office login
func (s *AdminService) SetCredentials(email, passwordHash string, issuer *auth.Issuer) {
	s.email = strings.ToLower(strings.TrimSpace(email))
	s.passwordHash = []byte(passwordHash)
	s.issuer = issuer
}

// Login checks the admin credentials and returns a bearer token
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	if s.issuer == nil || s.email == "" || len(s.passwordHash) == 0 {
		return "", ErrInvalidCredentials
	}

	given := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(given), []byte(s.email)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || passwordErr != nil {
		s.logger.Warn("admin login failed", zap.String("email", given))
		return "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(s.email, auth.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// LogAction writes an admin log entry through store so it commits with the
// decision it records. A nil store writes directly.
func (s *AdminService) LogAction(ctx context.Context, store repository.Store, adminID, action string,
	targetUserID *string, details interface{}) error {
	if store == nil {
		store = s.repo
	}

	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}

	return store.CreateAdminLog(ctx, &model.AdminLog{
		ID:           uuid.New(),
		AdminID:      adminID,
		Action:       action,
		TargetUserID: targetUserID,
		Details:      detailsJSON,
		CreatedAt:    time.Now().UTC(),
	})
}

// GetLogs returns admin action logs, newest first
func (s *AdminService) GetLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetAdminLogs(ctx, limit, offset)
}
