package util

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

// The web client expects bare payloads on success and {"error": msg} on
// failure, with no envelope around either.
func TestSuccessEmitsBarePayload(t *testing.T) {
	c, w := testContext()

	Success(c, gin.H{"token": "abc"})

	require.Equal(t, 200, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "abc", body["token"])
	require.NotContains(t, body, "data")
	require.NotContains(t, body, "code")
}

func TestErrorShape(t *testing.T) {
	c, w := testContext()

	Error(c, 418, "boom")

	require.Equal(t, 418, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, map[string]string{"error": "boom"}, body)
}

func TestNotFoundAndUnauthorized(t *testing.T) {
	c, w := testContext()
	NotFound(c)
	require.Equal(t, 404, w.Code)

	c2, w2 := testContext()
	Unauthorized(c2)
	require.Equal(t, 401, w2.Code)
}
