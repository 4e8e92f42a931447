package lib

import (
	"fmt"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssueOverrideToken signs a confirmation bound to one order in one status.
func IssueOverrideToken(orderId uuid.UUID, from tables.OrderStatus, issuer, secret string, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    orderId.String(),
		"status": string(from),
		"iss":    issuer,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
		"jti":    uuid.New().String(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign override token: %w", err)
	}
	return signed, nil
}

// ParseOverrideToken parses and validates an override confirmation and returns its claims
func ParseOverrideToken(tokenStr, issuer, secret string) (*structs.OverrideClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfirmation, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidConfirmation
	}

	subStr, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid sub claim", ErrInvalidConfirmation)
	}
	orderId, err := uuid.Parse(subStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid UUID in sub claim", ErrInvalidConfirmation)
	}

	status, ok := claims["status"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid status claim", ErrInvalidConfirmation)
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid iat claim", ErrInvalidConfirmation)
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid exp claim", ErrInvalidConfirmation)
	}

	return &structs.OverrideClaims{
		OrderId:    orderId,
		FromStatus: status,
		IssuedAt:   time.Unix(int64(iat), 0),
		ExpiresAt:  time.Unix(int64(exp), 0),
	}, nil
}
