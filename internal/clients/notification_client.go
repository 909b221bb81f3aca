package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NotificationClient handles HTTP communication with notification-service
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

// PasswordResetNotification contains data for sending password reset emails
type PasswordResetNotification struct {
	UserID    string
	Email     string
	Name      string
	Token     string
	ResetURL  string
	ExpiresIn time.Duration
}

// Link is the reset page address carrying the token and email
func (n *PasswordResetNotification) Link() string {
	query := url.Values{}
	query.Set("token", n.Token)
	query.Set("email", n.Email)
	separator := "?"
	if strings.Contains(n.ResetURL, "?") {
		separator = "&"
	}
	return n.ResetURL + separator + query.Encode()
}

// notificationRequest is the API request format for notification-service
type notificationRequest struct {
	Channel        string                 `json:"channel"`
	RecipientEmail string                 `json:"recipientEmail"`
	Subject        string                 `json:"subject"`
	TemplateName   string                 `json:"templateName"`
	Variables      map[string]interface{} `json:"variables"`
}

// NewNotificationClient creates a new notification client
func NewNotificationClient(baseURL string) *NotificationClient {
	return &NotificationClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendPasswordReset emails the password reset link
func (c *NotificationClient) SendPasswordReset(ctx context.Context, notification *PasswordResetNotification) error {
	req := &notificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: notification.Email,
		Subject:        "Reset Password Notification",
		TemplateName:   "password_reset",
		Variables: map[string]interface{}{
			"name":          notification.Name,
			"email":         notification.Email,
			"resetLink":     notification.Link(),
			"expireMinutes": int(notification.ExpiresIn / time.Minute),
		},
	}

	return c.sendNotification(ctx, notification.UserID, req)
}

// sendNotification sends a notification request to notification-service
func (c *NotificationClient) sendNotification(ctx context.Context, userID string, req *notificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications/send", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-User-ID", userID)
	httpReq.Header.Set("X-Internal-Service", "catalog-admin-service")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
