package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/permguard/bitfield"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signed(t *testing.T, method gjwt.SigningMethod, key any, claims AccessClaims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(iss, aud string) AccessClaims {
	c := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    iss,
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	if aud != "" {
		c.Audience = gjwt.ClaimStrings{aud}
	}
	return c
}

func TestCreateParseRoundTripsMask(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateAccess(Access{UserID: "u1", TenantID: "t1", Mask: 0b1011, PermVersion: 7})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UID != "u1" || claims.TID != "t1" || claims.PermVersion != 7 || claims.Subject != "u1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	bits, err := claims.Bits()
	if err != nil || bits != bitfield.Bits(0b1011) {
		t.Fatalf("unexpected mask %#x %v", uint64(bits), err)
	}
}

func TestOmitMaskGrantsNothing(t *testing.T) {
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.CreateAccess(Access{UserID: "u1", Mask: 0xFF, OmitMask: true})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if len(claims.Mask) != 0 {
		t.Fatalf("expected no mask claim, got %x", claims.Mask)
	}
	if bits, _ := claims.Bits(); bits != 0 {
		t.Fatalf("expected empty mask, got %#x", uint64(bits))
	}
}

func TestCreateAccessRequiresUser(t *testing.T) {
	m, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k")})
	if _, err := m.CreateAccess(Access{}); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, _ := newEdKeys(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"negative leeway", Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: -time.Second}},
		{"large leeway", Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour}},
		{"hs256 without key", Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}},
		{"ed25519 without public key", Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}},
		{"unknown method", Config{AccessTTL: time.Minute, SigningMethod: "rs256"}},
		{"empty kid", Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, VerifyKeys: map[string][]byte{" ": pub}}},
		{"kid not in set", Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, KeyID: "k9", VerifyKeys: map[string][]byte{"k1": pub}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: []byte("short")}); err == nil {
		t.Fatal("expected malformed public key to fail")
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token := signed(t, gjwt.SigningMethodHS256, []byte("secret-secret-secret-secret"), validClaims("", ""), "")
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseAccessIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "permguard",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.CreateAccess(Access{UserID: "u1"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(access); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv, validClaims("other", "api"), "")); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv, validClaims("permguard", "other-api"), "")); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	within := validClaims("permguard", "api")
	within.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-15 * time.Second))
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv, within, "")); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := validClaims("permguard", "api")
	expired.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute))
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv, expired, "")); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExp := validClaims("permguard", "api")
	noExp.ExpiresAt = nil
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv, noExp, "")); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseAccessRejectsFutureIAT(t *testing.T) {
	key := []byte("secret-secret-secret-secret")
	m, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: key, MaxFutureIAT: time.Minute})

	claims := validClaims("", "")
	claims.IssuedAt = gjwt.NewNumericDate(time.Now().Add(time.Hour))
	claims.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(2 * time.Hour))
	_, err := m.ParseAccess(signed(t, gjwt.SigningMethodHS256, key, claims, ""))
	if err == nil {
		t.Fatal("expected future iat to fail")
	}
}

func TestParseAccessRejectsMalformedMask(t *testing.T) {
	key := []byte("secret-secret-secret-secret")
	m, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: key})

	claims := validClaims("", "")
	claims.Mask = []byte{1, 2, 3}
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodHS256, key, claims, "")); !errors.Is(err, gjwt.ErrTokenInvalidClaims) {
		t.Fatalf("expected invalid claims, got %v", err)
	}
}

func TestParseAccessKeySet(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv1, validClaims("", ""), "k2")); !errors.Is(err, ErrUnknownKID) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}
	if _, err := m.ParseAccess(signed(t, gjwt.SigningMethodEdDSA, priv1, validClaims("", ""), "")); !errors.Is(err, ErrMissingKID) {
		t.Fatalf("expected missing kid failure, got %v", err)
	}

	good, err := m.CreateAccess(Access{UserID: "u1"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k1": pub2}})
	if _, err := m2.ParseAccess(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}
