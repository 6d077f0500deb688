package common

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		cpu  int
		want string
	}{
		{1, "small"},
		{2, "small"},
		{4, "medium"},
		{8, "medium"},
		{32, "large"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProfileFor(tt.cpu).Name, "cpu=%d", tt.cpu)
	}
	assert.Less(t, ProfileFor(2).MemLimit, ProfileFor(32).MemLimit)
}

func TestHTTPErrors(t *testing.T) {
	err := HTTPErrorTimeout("")
	assert.Equal(t, http.StatusGatewayTimeout, err.StatusCode)
	assert.Equal(t, "Request timed out", err.Message)

	err = HTTPErrorBadRequest("amount missing")
	assert.Equal(t, "amount missing", err.Message)
	assert.EqualError(t, err, "HTTP error: 400 BAD_REQUEST amount missing")
}

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	SetupLogger("prod", zerolog.WarnLevel)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
