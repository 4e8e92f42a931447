package lib

import (
	"net/http"
	"tableside_server/config"
	"time"
)

// SetCookie sets an HttpOnly cookie scoped to the whole API.
func SetCookie(key, val string, expiry time.Time, w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	secure := false

	if config.IsProduction() {
		// Table devices load the menu from a different origin than the API
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	http.SetCookie(w, &http.Cookie{
		Name:     key,
		Value:    val,
		Expires:  expiry,
		MaxAge:   int(time.Until(expiry).Seconds()),
		Path:     "/",
		Secure:   secure,
		SameSite: sameSite,
		HttpOnly: true,
	})
}

func GetCookieValue(key string, r *http.Request) (string, error) {
	cookie, err := r.Cookie(key)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// ClientIdFromRequest resolves the device identity: header first, then cookie.
// A new id is minted and set as a cookie when neither is present.
func ClientIdFromRequest(w http.ResponseWriter, r *http.Request, cookieName string, expiry time.Duration) (string, error) {
	if id := SanitizeClientId(r.Header.Get("X-Client-Id")); id != "" {
		return id, nil
	}
	if val, err := GetCookieValue(cookieName, r); err == nil {
		if id := SanitizeClientId(val); id != "" {
			return id, nil
		}
	}

	id, err := GenerateClientId()
	if err != nil {
		return "", err
	}
	SetCookie(cookieName, id, time.Now().Add(expiry), w)
	return id, nil
}
