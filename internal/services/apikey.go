package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

// APIKeyRequiredMessage is the body text of every rejected write.
const APIKeyRequiredMessage = "You must supply a valid API key in the X-Api-Key header"

const apiKeyNotesMaxLength = 256

type APIKeyService interface {
	// Validate returns the stored key or an invalid_api_key Forbidden error.
	Validate(ctx context.Context, key string) (*types.APIKey, error)
	// Create stores key, generating a random one when key is empty.
	Create(ctx context.Context, key, notes string) (*types.APIKey, error)
}

type apiKeyService struct {
	log     *logger.Logger
	keys    repos.APIKeyRepo
	metrics *observability.Metrics
}

func NewAPIKeyService(baseLog *logger.Logger, keys repos.APIKeyRepo, metrics *observability.Metrics) APIKeyService {
	return &apiKeyService{
		log:     baseLog.With("service", "APIKeyService"),
		keys:    keys,
		metrics: metrics,
	}
}

func (s *apiKeyService) Validate(ctx context.Context, key string) (*types.APIKey, error) {
	if key == "" {
		s.metrics.IncAuthRejected()
		return nil, apierr.Forbidden(apierr.CodeInvalidAPIKey, APIKeyRequiredMessage)
	}
	found, err := s.keys.GetByKey(dbctx.New(ctx), key)
	if err != nil {
		s.log.Warn("API key lookup failed", "error", err)
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if found == nil {
		s.metrics.IncAuthRejected()
		return nil, apierr.Forbidden(apierr.CodeInvalidAPIKey, APIKeyRequiredMessage)
	}
	return found, nil
}

func (s *apiKeyService) Create(ctx context.Context, key, notes string) (*types.APIKey, error) {
	if key == "" {
		generated, err := generateAPIKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}
	if n := utf8.RuneCountInString(key); n < types.APIKeyMinLength || n > types.APIKeyMaxLength {
		return nil, apierr.BadRequest(apierr.CodeMalformedRequest,
			"api key must be between %d and %d characters", types.APIKeyMinLength, types.APIKeyMaxLength)
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > apiKeyNotesMaxLength {
		return nil, apierr.BadRequest(apierr.CodeMalformedRequest, "notes must be at most %d characters", apiKeyNotesMaxLength)
	}

	row, err := s.keys.Create(dbctx.New(ctx), &types.APIKey{Key: key, Notes: notes})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apierr.Conflict(apierr.CodeAPIKeyExists, "api key already exists")
		}
		s.log.Warn("API key create failed", "error", err)
		return nil, fmt.Errorf("create api key: %w", err)
	}
	s.log.Info("API key created", "api_key_id", row.ID)
	return row, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
