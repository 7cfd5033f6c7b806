package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret")
	ticket := &model.Ticket{ID: 12, EventID: 3, SeatNumber: "S7"}

	token, err := svc.Issue(ticket)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), claims.TicketID)
	assert.Equal(t, uint64(3), claims.EventID)
	assert.Equal(t, "S7", claims.SeatNumber)
}

func TestTokenIsDeterministic(t *testing.T) {
	svc := NewTokenService("secret")
	ticket := &model.Ticket{ID: 12, EventID: 3, SeatNumber: "S7"}

	a, err := svc.Issue(ticket)
	require.NoError(t, err)
	b, err := svc.Issue(ticket)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTokenTamperDetection(t *testing.T) {
	svc := NewTokenService("secret")
	token, err := svc.Issue(&model.Ticket{ID: 12, EventID: 3, SeatNumber: "S7"})
	require.NoError(t, err)

	// Flip one character of the payload.
	flipped := []byte(token)
	if flipped[0] == 'A' {
		flipped[0] = 'B'
	} else {
		flipped[0] = 'A'
	}
	_, err = svc.Verify(string(flipped))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").Issue(&model.Ticket{ID: 12, EventID: 3, SeatNumber: "S7"})
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMalformedInput(t *testing.T) {
	svc := NewTokenService("secret")
	for _, token := range []string{"", ".", "abc", "abc.", ".def", "not base64!.sig"} {
		_, err := svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestTokenSignatureSwap(t *testing.T) {
	svc := NewTokenService("secret")
	t1, err := svc.Issue(&model.Ticket{ID: 1, EventID: 3, SeatNumber: "S1"})
	require.NoError(t, err)
	t2, err := svc.Issue(&model.Ticket{ID: 2, EventID: 3, SeatNumber: "S2"})
	require.NoError(t, err)

	// Graft t2's signature onto t1's payload.
	body1, _, _ := strings.Cut(t1, ".")
	_, sig2, _ := strings.Cut(t2, ".")
	_, err = svc.Verify(body1 + "." + sig2)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
