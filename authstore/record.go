package authstore

// AuthRecord is the credential bundle of the single active session.
// The JSON layout is shared with the mobile and web clients and must not change.
type AuthRecord struct {
	AccessToken          string `json:"accessToken"`          // Bearer credential for API calls
	RefreshToken         string `json:"refreshToken"`         // Persisted only, nothing refreshes with it
	SessionID            string `json:"sessionId"`            // Opaque backend session identifier
	TenantID             string `json:"wydelyBusinessId"`     // Business the session is scoped to
	AccessTokenExpiresAt string `json:"accessTokenExpiresAt"` // ISO-8601 UTC, "Z" suffixed once stored
	Email                string `json:"email"`                // Authenticated principal
}
