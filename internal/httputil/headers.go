package httputil

import "net/http"

// AllegroMediaType is the versioned media type of the public REST API.
const AllegroMediaType = "application/vnd.allegro.public.v1+json"

// APIHeaders returns the headers every authenticated API call carries.
func APIHeaders(token string) http.Header {
	h := http.Header{}
	h.Set("Accept", AllegroMediaType)
	h.Set("Accept-Language", "pl-PL")
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("Authorization", "Bearer "+token)
	return h
}
