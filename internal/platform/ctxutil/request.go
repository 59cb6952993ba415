package ctxutil

import "context"

type requestDataKey struct{}

// orBackground lets the setters accept a nil parent.
func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// RequestData carries the caller attribution established by the API key
// middleware. APIKeyID is zero for unauthenticated requests.
type RequestData struct {
	APIKeyID    uint
	APIKeyNotes string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(orBackground(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// APIKeyID returns the attributed key id, if any.
func APIKeyID(ctx context.Context) (uint, bool) {
	rd := GetRequestData(ctx)
	if rd == nil || rd.APIKeyID == 0 {
		return 0, false
	}
	return rd.APIKeyID, true
}
