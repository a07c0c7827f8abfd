package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/labelbook/internal/core"
)

// withOperator records the caller's address and client for run history.
func withOperator(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, r.RemoteAddr) // already resolved by TrustedRealIP
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
