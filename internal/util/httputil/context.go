package httputil

import (
	"context"
	"encoding/hex"
	"math/rand/v2"
	"net/http"
)

type reqIDKey struct{}

func newReqID() string {
	var buf [8]byte
	r := rand.Uint64()
	for i := range buf {
		buf[i] = byte(r >> (8 * i))
	}
	return hex.EncodeToString(buf[:])
}

func WrapRequestContext(parent context.Context) context.Context {
	return context.WithValue(parent, reqIDKey{}, newReqID())
}

func WrapRequest(req *http.Request) *http.Request {
	return req.WithContext(WrapRequestContext(req.Context()))
}

func ExtractReqID(ctx context.Context) string {
	if s, ok := ctx.Value(reqIDKey{}).(string); ok {
		return s
	}
	return ""
}
