package core

// RawTokens is a loosely-typed token response as returned by the identity
// provider. Depending on the call path (SDK call versus hosted token
// endpoint) the same fields arrive under different naming conventions.
type RawTokens map[string]any

// TokenAliases is the first-match-wins alias table used to normalize a
// heterogeneous token response into a canonical TokenSet. Order matters:
// the first populated alias of each row wins.
var TokenAliases = map[string][]string{
	"accessToken":  {"accessToken", "access_token", "AccessToken"},
	"idToken":      {"idToken", "id_token", "IdToken"},
	"refreshToken": {"refreshToken", "refresh_token", "RefreshToken"},
	"expiresIn":    {"expiresIn", "expires_in", "ExpiresIn"},
	"tokenType":    {"tokenType", "token_type", "TokenType"},
}

// NormalizeTokens maps a raw token response onto the canonical TokenSet
// shape using TokenAliases. Absent fields are left zero-valued.
func NormalizeTokens(raw RawTokens) TokenSet {
	return TokenSet{
		AccessToken:  firstString(raw, TokenAliases["accessToken"]),
		IDToken:      firstString(raw, TokenAliases["idToken"]),
		RefreshToken: firstString(raw, TokenAliases["refreshToken"]),
		ExpiresIn:    firstInt(raw, TokenAliases["expiresIn"]),
		TokenType:    firstString(raw, TokenAliases["tokenType"]),
	}
}

func firstString(raw RawTokens, aliases []string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(raw RawTokens, aliases []string) int64 {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			if n != 0 {
				return n
			}
		case int:
			if n != 0 {
				return int64(n)
			}
		case int32:
			if n != 0 {
				return int64(n)
			}
		case float64:
			// JSON numbers decode as float64.
			if n != 0 {
				return int64(n)
			}
		}
	}
	return 0
}
