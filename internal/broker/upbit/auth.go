package upbit

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// signer builds the Authorization header Upbit expects on private endpoints.
type signer struct {
	accessKey string
	secretKey string
}

// token returns a signed HS256 JWT. Requests with parameters also carry the
// SHA-512 of their url-encoded form.
func (s signer) token(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": s.accessKey,
		"nonce":      uuid.NewString(),
	}
	if len(params) > 0 {
		claims["query_hash"] = queryHash(params)
		claims["query_hash_alg"] = "SHA512"
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secretKey))
}

func (s signer) header(params url.Values) (map[string]string, error) {
	tok, err := s.token(params)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + tok}, nil
}

func queryHash(params url.Values) string {
	sum := sha512.Sum512([]byte(params.Encode()))
	return hex.EncodeToString(sum[:])
}
