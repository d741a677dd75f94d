package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/dgrijalva/jwt-go"

	"order-service/internal/config"
	"order-service/internal/models"
)

var errInvalidCredentials = errors.New("could not validate credentials")

// Verifier validates bearer tokens issued by the user management service
type Verifier struct {
	rsaKey *rsa.PublicKey
	secret []byte
}

// NewVerifier builds a verifier for the configured algorithm
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	switch cfg.Algorithm {
	case "RS256":
		pem, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		return NewRSAVerifier(pem)
	case "HS256":
		if cfg.Secret == "" {
			return nil, fmt.Errorf("auth.secret is required for HS256")
		}
		return NewHMACVerifier([]byte(cfg.Secret)), nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
}

// NewRSAVerifier verifies RS256 tokens against a PEM encoded public key
func NewRSAVerifier(pem []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &Verifier{rsaKey: key}, nil
}

// NewHMACVerifier verifies HS256 tokens with a shared secret
func NewHMACVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the signature and expiry of tokenString and extracts the principal
func (v *Verifier) Verify(tokenString string) (*models.Principal, error) {
	token, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil || !token.Valid {
		return nil, errInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidCredentials
	}

	email, _ := claims["sub"].(string)
	rawRole, _ := claims["role"].(string)
	id, okID := numericClaim(claims, "id")
	shopID, okShop := numericClaim(claims, "coffee_shop_id")
	branchID, okBranch := numericClaim(claims, "branch_id")
	if email == "" || rawRole == "" || !okID || !okShop || !okBranch {
		return nil, errInvalidCredentials
	}

	role, err := models.ParseRole(rawRole)
	if err != nil {
		return nil, errInvalidCredentials
	}

	return &models.Principal{
		ID:           id,
		Email:        email,
		Role:         role,
		CoffeeShopID: shopID,
		BranchID:     branchID,
		Token:        tokenString,
	}, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
}

// numericClaim reads an integer claim; JSON numbers decode as float64
func numericClaim(claims jwt.MapClaims, name string) (int64, bool) {
	switch v := claims[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
