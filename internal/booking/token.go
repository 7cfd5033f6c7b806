package booking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/tickethub/tickethub/internal/model"
)

// TokenClaims is the payload bound into an entry token.  Only fields
// that never change over the ticket's life go here, which keeps the
// token deterministic and recomputable.
type TokenClaims struct {
	TicketID   uint64 `json:"tid"`
	EventID    uint64 `json:"eid"`
	SeatNumber string `json:"seat"`
}

// TokenService signs and verifies entry tokens.  Tokens are
// base64url(JSON claims) + "." + base64url(HMAC-SHA256), checkable at
// the gate without a ledger round trip.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue produces the token for a ticket.  Same ticket, same token.
func (s *TokenService) Issue(t *model.Ticket) (string, error) {
	claims := TokenClaims{TicketID: t.ID, EventID: t.EventID, SeatNumber: t.SeatNumber}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.sign(body), nil
}

// Verify checks the signature and returns the embedded claims.  Any
// structural or cryptographic defect maps to ErrInvalidToken; callers
// never learn which part failed.
func (s *TokenService) Verify(token string) (*TokenClaims, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(body))) {
		return nil, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TicketID == 0 {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (s *TokenService) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
