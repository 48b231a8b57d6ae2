// Package contexthelpers stores request scoped values used by the templates and the plan handlers.
package contexthelpers

import (
	"context"
	"net/http"
)

type key int

const (
	currentPathKey key = iota
	cspNonceKey
	clientKeyKey
)

func value(ctx context.Context, k key) string {
	v, _ := ctx.Value(k).(string)
	return v
}

func with(r *http.Request, k key, v string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), k, v))
}

// CurrentPath is the request path, used to mark the active navigation link.
func CurrentPath(ctx context.Context) string { return value(ctx, currentPathKey) }

func SetCurrentPath(r *http.Request, path string) *http.Request { return with(r, currentPathKey, path) }

// CSPNonce is the nonce allowed by the Content-Security-Policy of the response.
func CSPNonce(ctx context.Context) string { return value(ctx, cspNonceKey) }

func SetCSPNonce(r *http.Request, nonce string) *http.Request { return with(r, cspNonceKey, nonce) }

// ClientKey identifies the browser session. Plan requests sharing a key supersede each other.
func ClientKey(ctx context.Context) string { return value(ctx, clientKeyKey) }

func SetClientKey(r *http.Request, clientKey string) *http.Request { return with(r, clientKeyKey, clientKey) }
