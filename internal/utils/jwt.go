package utils // package utils provides helpers for token issuing and hashing

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
    "github.com/google/uuid"
)

// Token decode failures. DecodeToken collapses the jwt library's error
// surface into these three so callers can switch on them without importing
// the library themselves.
var (
    ErrTokenExpired   = errors.New("token expired")
    ErrTokenSignature = errors.New("token signature invalid")
    ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the payload carried by both access and refresh tokens:
// the subject user id, the login name, the role name, plus the standard
// exp/iat pair. The claim keys ("username", "user_id", "role") are part
// of the wire contract with the front end and must not change.
type Claims struct {
    Username string `json:"username"`
    UserID   uint64 `json:"user_id"`
    Role     string `json:"role"`
    jwt.RegisteredClaims
}

// SignedToken bundles a serialized JWT with its expiration time so callers
// can set cookie lifetimes without re-parsing the token.
type SignedToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. ttlMin is the
// access token's lifetime in minutes. The signing secret comes from process
// configuration and is passed in explicitly so tests can use their own.
func NewAccessToken(secret string, userID uint64, username, role string, ttlMin int) (SignedToken, error) {
    return signToken(secret, userID, username, role, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken is identical in shape to NewAccessToken but minted with
// the longer refresh TTL. The resulting string is stored on the session row;
// a presented refresh token is only honored when it matches that stored copy.
func NewRefreshToken(secret string, userID uint64, username, role string, ttlMin int) (SignedToken, error) {
    return signToken(secret, userID, username, role, time.Duration(ttlMin)*time.Minute)
}

func signToken(secret string, userID uint64, username, role string, ttl time.Duration) (SignedToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Username: username,
        UserID:   userID,
        Role:     role,
        RegisteredClaims: jwt.RegisteredClaims{
            // exp/iat have second granularity and HS256 signing is
            // deterministic, so without the jti two tokens minted for the
            // same user within one second would be byte-identical and
            // refresh rotation would replace the stored token with itself.
            ID:        uuid.NewString(),
            ExpiresAt: jwt.NewNumericDate(exp),
            IssuedAt:  jwt.NewNumericDate(now),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SignedToken{}, err
    }
    return SignedToken{Token: signed, Exp: exp}, nil
}

// DecodeToken parses and validates a token string. It never touches
// storage: validation is signature + format + expiry only. Tokens signed
// with a non-HMAC method are rejected as malformed.
func DecodeToken(secret, raw string) (Claims, error) {
    var claims Claims
    _, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenMalformed
        }
        return []byte(secret), nil
    })
    if err != nil {
        switch {
        case errors.Is(err, jwt.ErrTokenExpired):
            return Claims{}, ErrTokenExpired
        case errors.Is(err, jwt.ErrTokenSignatureInvalid):
            return Claims{}, ErrTokenSignature
        default:
            return Claims{}, ErrTokenMalformed
        }
    }
    return claims, nil
}

// DecodeTokenAllowExpired behaves like DecodeToken but accepts tokens whose
// only defect is expiry. The auth middleware uses it to learn who an expired
// access token belonged to before attempting a refresh. Signature and format
// failures still fail closed.
func DecodeTokenAllowExpired(secret, raw string) (Claims, error) {
    claims, err := DecodeToken(secret, raw)
    if err == nil {
        return claims, nil
    }
    if !errors.Is(err, ErrTokenExpired) {
        return Claims{}, err
    }
    var expired Claims
    _, perr := jwt.ParseWithClaims(raw, &expired, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenMalformed
        }
        return []byte(secret), nil
    }, jwt.WithoutClaimsValidation())
    if perr != nil {
        return Claims{}, ErrTokenMalformed
    }
    return expired, nil
}
