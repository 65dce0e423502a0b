package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/util"
)

var (
	ErrInvalidChannel     = errors.New("unknown verification channel")
	ErrInvalidDestination = errors.New("invalid email or phone number")
	ErrInvalidCode        = errors.New("verification code must be 6 digits")
	ErrCodeTooSoon        = errors.New("a code was sent recently")
	ErrTokenRejected      = errors.New("token returned by the API is unusable")
)

const (
	cooldownKeyPrefix = "auth_code_cooldown:"

	OnboardingPath = "/onboarding"

	// used when the API issues a token without expiry
	defaultTokenLifetime = 24 * time.Hour
)

// CooldownError is returned while the resend cooldown of a destination runs
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrCodeTooSoon, e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCodeTooSoon
}

// AuthAPI is the part of the Marché241 client the seller login needs
type AuthAPI interface {
	RequestCode(ctx context.Context, req marche.CodeRequest) (*marche.Ack, error)
	VerifyCode(ctx context.Context, req marche.CodeVerification) (*marche.VerifyResponse, error)
	ListOwnedShops(ctx context.Context) ([]marche.Shop, error)
}

// CodeSent is the outcome of a code request
type CodeSent struct {
	Channel     string        `json:"canal"`
	Destination string        `json:"destination"`
	Message     string        `json:"message"`
	ResendIn    time.Duration `json:"-"`
}

// LoginResult is the outcome of a successful verification
type LoginResult struct {
	Token     string        `json:"-"`
	TokenTTL  time.Duration `json:"-"`
	User      marche.User   `json:"user"`
	Shops     []marche.Shop `json:"boutiques"`
	Redirect  string        `json:"redirect"`
	ExpiresAt *time.Time    `json:"expire_le,omitempty"`
}

type AuthService interface {
	RequestCode(ctx context.Context, channel, destination string) (*CodeSent, error)
	VerifyCode(ctx context.Context, destination, code string) (*LoginResult, error)
}

type authService struct {
	api      AuthAPI
	store    kvstore.Store
	cooldown time.Duration
	now      func() time.Time
}

func NewAuthService(api AuthAPI, store kvstore.Store, cooldown time.Duration) AuthService {
	return newAuthService(api, store, cooldown, time.Now)
}

func newAuthService(api AuthAPI, store kvstore.Store, cooldown time.Duration, now func() time.Time) *authService {
	return &authService{api: api, store: store, cooldown: cooldown, now: now}
}

// RequestCode asks the API to send a one-time code to destination over
// channel, at most once per cooldown period per destination.
func (s *authService) RequestCode(ctx context.Context, channel, destination string) (*CodeSent, error) {
	normalized, err := normalizeDestination(channel, destination)
	if err != nil {
		return nil, err
	}

	logger.Info("Verification code requested", logger.Fields{
		"channel":     channel,
		"destination": maskDestination(normalized),
	})

	if wait := s.cooldownRemaining(ctx, normalized); wait > 0 {
		logger.Warn("Verification code requested during cooldown", logger.Fields{
			"destination": maskDestination(normalized),
			"retry_after": wait.String(),
		})
		return nil, &CooldownError{RetryAfter: wait}
	}

	ack, err := s.api.RequestCode(ctx, marche.CodeRequest{Channel: channel, Destination: normalized})
	if err != nil {
		logger.Warn("Verification code request rejected", logger.Fields{
			"destination": maskDestination(normalized),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("request code: %w", err)
	}

	s.startCooldown(ctx, normalized)

	return &CodeSent{
		Channel:     channel,
		Destination: normalized,
		Message:     ack.Message,
		ResendIn:    s.cooldown,
	}, nil
}

// VerifyCode checks the code with the API, reads the returned token and picks
// where the seller lands: the dashboard of their first shop, or onboarding
// when they have none yet.
func (s *authService) VerifyCode(ctx context.Context, destination, code string) (*LoginResult, error) {
	channel := marche.ChannelWhatsApp
	if strings.Contains(destination, "@") {
		channel = marche.ChannelEmail
	}
	normalized, err := normalizeDestination(channel, destination)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !util.IsVerificationCode(code) {
		return nil, ErrInvalidCode
	}

	resp, err := s.api.VerifyCode(ctx, marche.CodeVerification{Destination: normalized, Code: code})
	if err != nil {
		logger.Warn("Verification code rejected", logger.Fields{
			"destination": maskDestination(normalized),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("verify code: %w", err)
	}

	now := s.now()
	claims, err := util.ReadTokenClaims(resp.Token, now)
	if err != nil {
		logger.Error("API returned an unusable token", err, logger.Fields{
			"user_id": resp.User.ID,
		})
		return nil, fmt.Errorf("%w: %v", ErrTokenRejected, err)
	}

	shops, err := s.api.ListOwnedShops(marche.WithToken(ctx, resp.Token))
	if err != nil {
		logger.Warn("Failed to look up seller shops", logger.Fields{
			"user_id": resp.User.ID,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("list seller shops: %w", err)
	}

	if err := s.store.Remove(ctx, cooldownKeyPrefix+normalized); err != nil {
		logger.Debug("Failed to clear code cooldown", logger.Fields{"error": err.Error()})
	}

	result := &LoginResult{
		Token:    resp.Token,
		TokenTTL: claims.Lifetime(now, defaultTokenLifetime),
		User:     resp.User,
		Shops:    shops,
		Redirect: RedirectFor(shops),
	}
	if !claims.ExpiresAt.IsZero() {
		expiry := claims.ExpiresAt
		result.ExpiresAt = &expiry
	}

	logger.Info("Seller logged in", logger.Fields{
		"user_id":  resp.User.ID,
		"shops":    len(shops),
		"redirect": result.Redirect,
	})
	return result, nil
}

// RedirectFor returns the seller landing page for the given shops
func RedirectFor(shops []marche.Shop) string {
	if len(shops) == 0 || shops[0].Slug == "" {
		return OnboardingPath
	}
	return "/admin/" + shops[0].Slug
}

// cooldownRemaining treats an unreadable store as no cooldown so that a store
// outage never locks sellers out
func (s *authService) cooldownRemaining(ctx context.Context, destination string) time.Duration {
	raw, ok, err := s.store.Get(ctx, cooldownKeyPrefix+destination)
	if err != nil {
		logger.Warn("Failed to read code cooldown", logger.Fields{"error": err.Error()})
		return 0
	}
	if !ok {
		return 0
	}
	until, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0
	}
	return until.Sub(s.now())
}

func (s *authService) startCooldown(ctx context.Context, destination string) {
	if s.cooldown <= 0 {
		return
	}
	until := s.now().Add(s.cooldown).UTC().Format(time.RFC3339Nano)
	if err := s.store.Set(ctx, cooldownKeyPrefix+destination, until, s.cooldown); err != nil {
		logger.Warn("Failed to record code cooldown", logger.Fields{"error": err.Error()})
	}
}

func normalizeDestination(channel, destination string) (string, error) {
	switch channel {
	case marche.ChannelEmail:
		email, err := util.NormalizeEmail(destination)
		if err != nil {
			return "", ErrInvalidDestination
		}
		return email, nil
	case marche.ChannelWhatsApp:
		phone, err := util.NormalizePhone(destination)
		if err != nil {
			return "", ErrInvalidDestination
		}
		return phone, nil
	default:
		return "", ErrInvalidChannel
	}
}

// maskDestination keeps destinations out of logs
func maskDestination(destination string) string {
	if at := strings.IndexByte(destination, '@'); at > 1 {
		return destination[:1] + "***" + destination[at:]
	}
	if len(destination) > 4 {
		return "***" + destination[len(destination)-4:]
	}
	return "***"
}
