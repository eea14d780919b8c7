package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"gameplan-api/core/cache"
	"gameplan-api/core/config"
	"gameplan-api/core/constants"
	"gameplan-api/core/errors"
	"gameplan-api/core/logger"
	"gameplan-api/core/utils"
	"gameplan-api/modules/token/dto"
	"gameplan-api/modules/token/entity"
	"gameplan-api/modules/token/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MagicTokenClaims are the claims carried by availability-form tokens.
type MagicTokenClaims struct {
	PromptID string `json:"prompt_id"`
	jwt.RegisteredClaims
}

type TokenServiceInterface interface {
	Issue(ctx context.Context, userID, promptID uuid.UUID, ttl time.Duration) (*dto.IssueTokenResult, error)
	Validate(ctx context.Context, signedToken string, formLoadedAt *time.Time, meta dto.RequestMeta) (*dto.ValidationResult, *errors.AppError)
	Revoke(ctx context.Context, tokenID string) error
}

type TokenService struct {
	repo     repository.TokenRepositoryInterface
	cache    cache.Cache
	recorder *AnalyticsRecorder
}

func NewTokenService(repo repository.TokenRepositoryInterface, c cache.Cache, recorder *AnalyticsRecorder) TokenServiceInterface {
	return &TokenService{
		repo:     repo,
		cache:    c,
		recorder: recorder,
	}
}

// Issue signs a time-boxed token bound to one (user, prompt) pair and
// persists its shadow record. The signed token is meant to be embedded in a
// link; a zero ttl falls back to the 24h default.
func (s *TokenService) Issue(ctx context.Context, userID, promptID uuid.UUID, ttl time.Duration) (*dto.IssueTokenResult, error) {
	cfg := config.Get()

	if ttl == 0 {
		ttl = constants.MagicTokenDefaultTTL
	}

	tokenID := utils.GenerateTokenID()
	if tokenID == "" {
		return nil, fmt.Errorf("failed to generate token id")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := &MagicTokenClaims{
		PromptID: promptID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{constants.MagicTokenAudience},
			Issuer:    constants.MagicTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(cfg.JWT.MagicTokenSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign magic token: %w", err)
	}

	shadow := &entity.MagicToken{
		TokenID:   tokenID,
		UserID:    userID,
		PromptID:  promptID,
		Status:    entity.TokenStatusActive,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.CreateToken(ctx, shadow); err != nil {
		return nil, fmt.Errorf("failed to persist token record: %w", err)
	}

	return &dto.IssueTokenResult{
		TokenID:     tokenID,
		SignedToken: signed,
		FormURL:     fmt.Sprintf("%s?token=%s", cfg.Scheduler.FormBaseURL, url.QueryEscape(signed)),
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate verifies a magic token cryptographically and against its shadow
// record, updating usage on success. Every outcome is recorded by the
// analytics sink; callers must collapse failures to one generic message.
//
// Grace period: a cryptographically expired token is still honored when the
// caller proves the form was loaded before the recorded expiry and the
// submission arrives within the grace window after it.
func (s *TokenService) Validate(ctx context.Context, signedToken string, formLoadedAt *time.Time, meta dto.RequestMeta) (*dto.ValidationResult, *errors.AppError) {
	claims, parseCode := s.parseClaims(signedToken)
	if parseCode == errors.ErrMagicTokenInvalid {
		s.recorder.Record(nil, false, errors.ErrMagicTokenInvalid, meta, false)
		return nil, errors.NewAppError(errors.ErrMagicTokenInvalid, "Token signature or format invalid", nil)
	}
	tokenID := claims.ID
	cryptoExpired := parseCode == errors.ErrMagicTokenExpired

	shadow, err := s.lookupShadow(ctx, tokenID)
	if err != nil {
		s.recorder.Record(&tokenID, false, errors.ErrMagicTokenServer, meta, false)
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "Failed to look up token", err)
	}
	if shadow == nil {
		s.recorder.Record(&tokenID, false, errors.ErrMagicTokenNotFound, meta, false)
		return nil, errors.NewAppError(errors.ErrMagicTokenNotFound, "No record for token", nil)
	}
	if shadow.Status == entity.TokenStatusRevoked {
		s.recorder.Record(&tokenID, false, errors.ErrMagicTokenRevoked, meta, false)
		return nil, errors.NewAppError(errors.ErrMagicTokenRevoked, "Token has been revoked", nil)
	}

	graceUsed := false
	if cryptoExpired {
		if !s.graceApplies(shadow, formLoadedAt) {
			s.recorder.Record(&tokenID, false, errors.ErrMagicTokenExpired, meta, false)
			return nil, errors.NewAppError(errors.ErrMagicTokenExpired, "Token has expired", nil)
		}
		graceUsed = true
	}

	// Usage is stamped on every successful validation, grace included.
	if err := s.repo.MarkTokenUsed(ctx, tokenID, time.Now()); err != nil {
		s.recorder.Record(&tokenID, false, errors.ErrMagicTokenServer, meta, graceUsed)
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "Failed to update token usage", err)
	}

	s.recorder.Record(&tokenID, true, "", meta, graceUsed)

	return &dto.ValidationResult{
		TokenID:   tokenID,
		UserID:    shadow.UserID,
		PromptID:  shadow.PromptID,
		GraceUsed: graceUsed,
	}, nil
}

// Revoke flips the shadow record to revoked, invalidating all future
// validations regardless of cryptographic validity.
func (s *TokenService) Revoke(ctx context.Context, tokenID string) error {
	if err := s.repo.RevokeToken(ctx, tokenID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey(tokenID)); err != nil {
		logger.Warn("TokenService:Revoke:CacheDelete", "token_id", tokenID, "error", err)
	}
	return nil
}

// parseClaims verifies signature, audience, issuer and expiry. An expired
// but otherwise valid token is reported as ErrMagicTokenExpired with its
// claims so the grace path can inspect them.
func (s *TokenService) parseClaims(signedToken string) (*MagicTokenClaims, errors.ErrorCode) {
	cfg := config.Get()
	keyFunc := func(t *jwt.Token) (any, error) {
		return []byte(cfg.JWT.MagicTokenSecret), nil
	}

	claims := &MagicTokenClaims{}
	_, err := jwt.ParseWithClaims(signedToken, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(constants.MagicTokenAudience),
		jwt.WithIssuer(constants.MagicTokenIssuer),
		jwt.WithLeeway(constants.MagicTokenClockSkew),
	)
	if err == nil {
		return claims, ""
	}

	if !stderrors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.ErrMagicTokenInvalid
	}

	// Expired: re-verify the signature alone and recover the claims, then
	// enforce audience and issuer by hand.
	laxClaims := &MagicTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, laxErr := parser.ParseWithClaims(signedToken, laxClaims, keyFunc); laxErr != nil {
		return nil, errors.ErrMagicTokenInvalid
	}
	if laxClaims.Issuer != constants.MagicTokenIssuer || !containsAudience(laxClaims.Audience, constants.MagicTokenAudience) {
		return nil, errors.ErrMagicTokenInvalid
	}

	return laxClaims, errors.ErrMagicTokenExpired
}

// graceApplies reports whether an expired token still qualifies: the form
// was loaded before the recorded expiry and the request arrived within the
// grace window after it. Without a form-loaded instant, expiry is final.
func (s *TokenService) graceApplies(shadow *entity.MagicToken, formLoadedAt *time.Time) bool {
	if formLoadedAt == nil {
		return false
	}
	if !formLoadedAt.Before(shadow.ExpiresAt) {
		return false
	}
	return time.Now().Before(shadow.ExpiresAt.Add(constants.MagicTokenGracePeriod))
}

// lookupShadow reads the shadow record through the cache. Usage counters are
// written straight to the database, so a cached copy may lag on usage_count;
// validation only depends on status and expiry.
func (s *TokenService) lookupShadow(ctx context.Context, tokenID string) (*entity.MagicToken, error) {
	key := cacheKey(tokenID)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var cached entity.MagicToken
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return &cached, nil
		}
	}

	shadow, err := s.repo.GetTokenByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if shadow == nil {
		return nil, nil
	}

	if raw, err := json.Marshal(shadow); err == nil {
		_ = s.cache.Set(ctx, key, string(raw), constants.MagicTokenCacheTTL)
	}
	return shadow, nil
}

func cacheKey(tokenID string) string {
	return "magic_token:" + tokenID
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
