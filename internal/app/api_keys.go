package app

import (
	"crypto/subtle"
	"net/http"
)

// APIKey returns the key a request authenticates with, taken from the "key"
// query parameter.
func APIKey(r *http.Request) string {
	return r.URL.Query().Get("key")
}

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(APIKey(r))
}

// IsInvalidAPIKey compares in constant time against every configured key.
func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}
	valid := 0
	for _, candidate := range app.Config.ApiKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(candidate))
	}
	return valid != 1
}
