package invite

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Invitation tokens are base64 of "email|tenantID|issuedAtMillis". The
// encoding is reversible and unsigned: the token is a lookup key into the
// invitations table, not a credential, and must never be trusted on its
// own.

// EncodeToken builds the opaque invitation token.
func EncodeToken(email string, tenantID uint, issuedAt time.Time) string {
	raw := fmt.Sprintf("%s|%d|%d", email, tenantID, issuedAt.UnixMilli())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (email string, tenantID uint, issuedAt time.Time, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("invalid invitation token: %w", err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", 0, time.Time{}, fmt.Errorf("invalid invitation token: expected 3 fields, got %d", len(parts))
	}

	tenant, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("invalid invitation token tenant: %w", err)
	}

	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("invalid invitation token timestamp: %w", err)
	}

	return parts[0], uint(tenant), time.UnixMilli(millis), nil
}
