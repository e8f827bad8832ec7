// Package services provides external service integrations and technical concerns like telephony, tokens and captcha
package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/flashcall-auth/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	TokenTypeAccess            = "access"
	TokenTypeRefresh           = "refresh"
	TokenTypePhoneVerification = "phone_verification"
)

// TokenService handles JWT token generation and validation
type TokenService interface {
	GenerateAdminTokens(adminID uint) (accessToken, refreshToken string, err error)
	ValidateAdminToken(token string) (*AdminTokenClaims, error)
	RefreshAdminToken(refreshToken string) (newAccessToken, newRefreshToken string, err error)
	// Downstream proof that a phone number was verified by flash call
	GeneratePhoneVerificationToken(phone string, sessionID uuid.UUID) (token string, expiresAt time.Time, err error)
	ValidatePhoneVerificationToken(token string) (*PhoneVerificationClaims, error)
	AccessTokenTTL() time.Duration
}

// AdminTokenClaims represents claims for admin JWTs
type AdminTokenClaims struct {
	AdminID   uint      `json:"admin_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
	TokenID   string    `json:"jti"`
}

// PhoneVerificationClaims represents claims of a phone verification token
type PhoneVerificationClaims struct {
	Phone     string    `json:"phone"`
	SessionID uuid.UUID `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	phoneTokenTTL   time.Duration
	signingMethod   jwt.SigningMethod
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	secretKey       []byte
	useRSAKeys      bool
	issuer          string
	audience        string
}

// NewTokenService creates a new token service
func NewTokenService(accessTokenTTL, refreshTokenTTL time.Duration, issuer, audience string, useRSAKeys bool, privateKeyPEM, publicKeyPEM, secretKey string) (TokenService, error) {
	var privateKey *rsa.PrivateKey
	var publicKey *rsa.PublicKey
	var secretKeyBytes []byte
	var signingMethod jwt.SigningMethod

	if useRSAKeys {
		var err error
		privateKey, publicKey, err = parseRSAKeys(privateKeyPEM, publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA keys: %w", err)
		}
		signingMethod = jwt.SigningMethodRS256
	} else {
		if secretKey == "" {
			return nil, fmt.Errorf("secret key is required when not using RSA keys")
		}
		secretKeyBytes = []byte(secretKey)
		signingMethod = jwt.SigningMethodHS256
	}

	return &TokenServiceImpl{
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		phoneTokenTTL:   utils.PhoneVerificationTokenTTL,
		signingMethod:   signingMethod,
		privateKey:      privateKey,
		publicKey:       publicKey,
		secretKey:       secretKeyBytes,
		useRSAKeys:      useRSAKeys,
		issuer:          issuer,
		audience:        audience,
	}, nil
}

// parseRSAKeys parses RSA private and public keys from PEM format
func parseRSAKeys(privateKeyPEM, publicKeyPEM string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, nil, fmt.Errorf("both private and public keys are required")
	}

	privateKeyBlock, _ := pem.Decode([]byte(privateKeyPEM))
	if privateKeyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode private key")
	}
	privateKey, err := x509.ParsePKCS1PrivateKey(privateKeyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKeyBlock, _ := pem.Decode([]byte(publicKeyPEM))
	if publicKeyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode public key")
	}
	publicKey, err := x509.ParsePKIXPublicKey(publicKeyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("public key is not RSA")
	}

	return privateKey, rsaPublicKey, nil
}

func (s *TokenServiceImpl) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

// GenerateAdminTokens generates access and refresh tokens for an admin
func (s *TokenServiceImpl) GenerateAdminTokens(adminID uint) (accessToken, refreshToken string, err error) {
	now := utils.UTCNow()

	accessToken, err = s.signed(now, s.accessTokenTTL, jwt.MapClaims{
		"admin_id":   adminID,
		"token_type": TokenTypeAccess,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate admin access token: %w", err)
	}

	refreshToken, err = s.signed(now, s.refreshTokenTTL, jwt.MapClaims{
		"admin_id":   adminID,
		"token_type": TokenTypeRefresh,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate admin refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// ValidateAdminToken validates an admin JWT and returns admin-specific claims
func (s *TokenServiceImpl) ValidateAdminToken(token string) (*AdminTokenClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	adminID, ok := claims["admin_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenType, ok := claims["token_type"].(string)
	if !ok || (tokenType != TokenTypeAccess && tokenType != TokenTypeRefresh) {
		return nil, ErrTokenInvalid
	}
	tokenID, issuedAt, expiresAt, err := standardClaims(claims)
	if err != nil {
		return nil, err
	}

	return &AdminTokenClaims{
		AdminID:   uint(adminID),
		TokenType: tokenType,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// RefreshAdminToken issues a new token pair from a refresh token
func (s *TokenServiceImpl) RefreshAdminToken(refreshToken string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := s.ValidateAdminToken(refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", "", fmt.Errorf("token is not a refresh token")
	}
	return s.GenerateAdminTokens(claims.AdminID)
}

// GeneratePhoneVerificationToken issues a short-lived token carrying the verified phone
func (s *TokenServiceImpl) GeneratePhoneVerificationToken(phone string, sessionID uuid.UUID) (string, time.Time, error) {
	now := utils.UTCNow()
	token, err := s.signed(now, s.phoneTokenTTL, jwt.MapClaims{
		"phone":      phone,
		"session_id": sessionID.String(),
		"token_type": TokenTypePhoneVerification,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate phone verification token: %w", err)
	}
	return token, now.Add(s.phoneTokenTTL), nil
}

func (s *TokenServiceImpl) ValidatePhoneVerificationToken(token string) (*PhoneVerificationClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	if tokenType, _ := claims["token_type"].(string); tokenType != TokenTypePhoneVerification {
		return nil, ErrTokenInvalid
	}
	phone, ok := claims["phone"].(string)
	if !ok || phone == "" {
		return nil, ErrTokenInvalid
	}
	rawSessionID, _ := claims["session_id"].(string)
	sessionID, err := uuid.Parse(rawSessionID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	tokenID, issuedAt, expiresAt, err := standardClaims(claims)
	if err != nil {
		return nil, err
	}

	return &PhoneVerificationClaims{
		Phone:     phone,
		SessionID: sessionID,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *TokenServiceImpl) signed(now time.Time, ttl time.Duration, claims jwt.MapClaims) (string, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}
	claims["jti"] = tokenID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	return s.generateToken(claims)
}

func (s *TokenServiceImpl) parse(token string) (jwt.MapClaims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if s.useRSAKeys {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if s.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != s.issuer {
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}

func standardClaims(claims jwt.MapClaims) (tokenID string, issuedAt, expiresAt time.Time, err error) {
	tokenID, ok := claims["jti"].(string)
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}
	iat, ok := claims["iat"].(float64)
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(int64(exp), 0)
	if utils.UTCNow().After(expiresAt) {
		return "", time.Time{}, time.Time{}, ErrTokenExpired
	}
	return tokenID, time.Unix(int64(iat), 0), expiresAt, nil
}

// generateToken creates a signed JWT token
func (s *TokenServiceImpl) generateToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.signingMethod, claims)

	if s.useRSAKeys {
		return token.SignedString(s.privateKey)
	}
	return token.SignedString(s.secretKey)
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
