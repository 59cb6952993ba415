package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/platform/apierr"
)

func TestMarshalIndentsWithoutEscaping(t *testing.T) {
	got, err := Marshal(map[string]string{"value": "a&b<c>"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n    \"value\": \"a&b<c>\"\n}"
	if string(got) != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "not found",
			err:    apierr.NotFound(apierr.CodeSchemeNotFound, "scheme %d not found", 9),
			status: http.StatusNotFound,
			body:   "{\n    \"error\": {\n        \"message\": \"scheme 9 not found\",\n        \"code\": \"scheme_not_found\"\n    }\n}",
		},
		{
			name:   "plain error hides message",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			body:   "{\n    \"error\": {\n        \"message\": \"internal server error\",\n        \"code\": \"internal_error\"\n    }\n}",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondAPIError(c, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d", rec.Code, tc.status)
			}
			if rec.Body.String() != tc.body {
				t.Fatalf("body: got=%q want=%q", rec.Body.String(), tc.body)
			}
		})
	}
}
