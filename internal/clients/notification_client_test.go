package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPasswordReset(t *testing.T) {
	var received notificationRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/send", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewNotificationClient(server.URL + "/")
	err := client.SendPasswordReset(context.Background(), &PasswordResetNotification{
		UserID:    "user-1",
		Email:     "jane@example.com",
		Name:      "Jane",
		Token:     "abc",
		ResetURL:  "https://shop.test/reset-password",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, "EMAIL", received.Channel)
	assert.Equal(t, "jane@example.com", received.RecipientEmail)
	assert.Equal(t, "password_reset", received.TemplateName)
	assert.EqualValues(t, 60, received.Variables["expireMinutes"])
	assert.Equal(t, "user-1", headers.Get("X-User-ID"))

	link, err := url.Parse(received.Variables["resetLink"].(string))
	require.NoError(t, err)
	assert.Equal(t, "abc", link.Query().Get("token"))
	assert.Equal(t, "jane@example.com", link.Query().Get("email"))
}

func TestSendPasswordResetFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewNotificationClient(server.URL).SendPasswordReset(context.Background(), &PasswordResetNotification{Email: "x@example.com"})
	assert.ErrorContains(t, err, "502")
}

func TestPasswordResetLinkKeepsExistingQuery(t *testing.T) {
	n := &PasswordResetNotification{Token: "t", Email: "a@b.c", ResetURL: "https://shop.test/reset?lang=pt"}
	assert.Equal(t, "https://shop.test/reset?lang=pt&email=a%40b.c&token=t", n.Link())
}
