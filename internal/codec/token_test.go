package codec

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestRoundTrip(t *testing.T) {
	c := NewAccessCodec("correct-secret")

	encoded, err := c.New("usr-001", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	claims, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "usr-001")
	}
}

func TestDecode_WrongKeyFailsWithInvalidSignature(t *testing.T) {
	issuer := NewAccessCodec("correct-secret")
	verifier := NewAccessCodec("wrong-secret")

	encoded, err := issuer.New("usr-001", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = verifier.Decode(encoded)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Decode() error = %v, want ErrInvalidSignature", err)
	}
}

func TestDecode_ExpiredTokenFails(t *testing.T) {
	c := NewAccessCodec("secret")

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-001",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = c.Decode(encoded)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Decode() error = %v, want ErrExpired", err)
	}
}

func TestDecode_MissingSubjectFailsWithMalformedClaims(t *testing.T) {
	c := NewAccessCodec("secret")

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = c.Decode(encoded)
	if !errors.Is(err, ErrMalformedClaims) {
		t.Errorf("Decode() error = %v, want ErrMalformedClaims", err)
	}
}

func TestRefreshCodec_CarriesTokenID(t *testing.T) {
	c := NewRefreshCodec("refresh-secret")

	encoded, err := c.New("usr-001", "tid-abc123")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	claims, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if claims.TokenID != "tid-abc123" {
		t.Errorf("TokenID = %q, want %q", claims.TokenID, "tid-abc123")
	}
}

func TestFromRequest(t *testing.T) {
	c := NewAccessCodec("secret")
	encoded, err := c.New("usr-001", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+encoded)

	claims, err := c.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "usr-001")
	}
}

func TestFromRequest_MissingHeader(t *testing.T) {
	c := NewAccessCodec("secret")
	req, _ := http.NewRequest(http.MethodGet, "/", nil)

	_, err := c.FromRequest(req)
	if !errors.Is(err, ErrMissingBearer) {
		t.Errorf("FromRequest() error = %v, want ErrMissingBearer", err)
	}
}
