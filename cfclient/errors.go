package cfclient

import "errors"

var (
	// ErrConfiguration covers missing credentials and a site that runs under localhost.
	ErrConfiguration = errors.New("cloudflare configuration error")
	// ErrZoneNotFound is returned when the account has no active zone for the domain.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrTransport is a network or timeout failure; the request may or may not have reached Cloudflare.
	ErrTransport = errors.New("cloudflare transport error")
	// ErrProvider is a well-formed response with success=false.
	ErrProvider = errors.New("cloudflare API error")
	// ErrMalformedResponse is a body that is not JSON or not shaped like an API response.
	ErrMalformedResponse = errors.New("malformed cloudflare response")
)
