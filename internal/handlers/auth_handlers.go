package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"catalog-admin-service/internal/clients"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/repository"
	"catalog-admin-service/internal/response"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Password broker statuses reported by forgot/reset failures
const (
	PasswordResetLinkSent = "passwords.sent"
	PasswordReset         = "passwords.reset"
	PasswordInvalidUser   = "passwords.user"
	PasswordInvalidToken  = "passwords.token"
	PasswordResetThrottle = "passwords.throttled"
)

const (
	tokenTypeBearer   = "Bearer"
	registerTokenName = "auth_token"
	unknownDevice     = "Unknown Device"
)

var avatarExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}

var avatarMIMETypes = []string{"image/jpeg", "image/png", "image/gif"}

// ResetNotifier delivers password reset links
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, notification *clients.PasswordResetNotification) error
}

// AuthOptions carries the token and reset settings
type AuthOptions struct {
	TokenTTL         time.Duration
	PasswordResetURL string
	PasswordResetTTL time.Duration
	AvatarMaxBytes   int64
}

type AuthHandler struct {
	users     *repository.UserRepository
	tokens    *repository.TokenRepository
	resets    *repository.PasswordResetRepository
	signer    *middleware.TokenSigner
	notifier  ResetNotifier
	presenter *Presenter
	opts      AuthOptions
	logger    *logrus.Entry
}

func NewAuthHandler(
	users *repository.UserRepository,
	tokens *repository.TokenRepository,
	resets *repository.PasswordResetRepository,
	signer *middleware.TokenSigner,
	notifier ResetNotifier,
	presenter *Presenter,
	opts AuthOptions,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		tokens:    tokens,
		resets:    resets,
		signer:    signer,
		notifier:  notifier,
		presenter: presenter,
		opts:      opts,
		logger:    logger.WithField("component", "handlers.auth"),
	}
}

func (h *AuthHandler) expiresIn() interface{} {
	if h.opts.TokenTTL <= 0 {
		return nil
	}
	return int64(h.opts.TokenTTL / time.Second)
}

// issueToken stores a personal access token and returns its bearer string
func (h *AuthHandler) issueToken(ctx context.Context, user *models.User, name string) (string, error) {
	token, err := h.tokens.Create(ctx, user.ID, name, h.opts.TokenTTL)
	if err != nil {
		return "", err
	}
	return h.signer.Sign(user, token)
}

func confirmed(field, value, confirmation string) *middleware.CustomError {
	if value != confirmation {
		return middleware.NewFieldError(field, "The "+strings.ReplaceAll(field, "_", " ")+" field confirmation does not match.")
	}
	return nil
}

// Ping answers the API root
// GET /api
func (h *AuthHandler) Ping(c *gin.Context) {
	response.Success(c, http.StatusOK, "API is working!", nil)
}

// ListUsers returns every user with the total count
// GET /api/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		repoError(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, h.presenter.User(&users[i]))
	}
	response.Success(c, http.StatusOK, "Users retrieved successfully.", gin.H{
		"countUsers": len(users),
		"users":      out,
	})
}

// Register creates an account and signs the user in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}
	if err := confirmed("password", req.Password, req.PasswordConfirmation); err != nil {
		_ = c.Error(err)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: true,
		Phone:    req.Phone,
		CPFCNPJ:  blankToNil(req.CPFCNPJ),
	}
	if req.BirthDate != nil {
		birthDate, err := models.ParseDate(*req.BirthDate)
		if err != nil {
			_ = c.Error(middleware.NewFieldError("birth_date", "The birth date field must be a valid date."))
			return
		}
		user.BirthDate = birthDate
	}

	ctx := c.Request.Context()
	if err := h.users.Create(ctx, user); err != nil {
		repoError(c, err)
		return
	}

	token, err := h.issueToken(ctx, user, registerTokenName)
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	response.Success(c, http.StatusCreated, "User registered successfully!", gin.H{
		"user":         h.presenter.UserOnly(user, "id", "name", "email", "phone", "cpf_cnpj", "birth_date", "avatar_url", "created_at"),
		"access_token": token,
		"token_type":   tokenTypeBearer,
	})
}

// Login exchanges credentials for a bearer token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	if user == nil || !repository.CheckPassword(user.Password, req.Password) {
		_ = c.Error(middleware.NewHTTPError(http.StatusUnauthorized, "Invalid credentials."))
		return
	}
	if !user.IsActive {
		_ = c.Error(middleware.NewForbiddenError("Account disabled. Please contact the administrator."))
		return
	}

	deviceName := unknownDevice
	if req.DeviceName != nil && *req.DeviceName != "" {
		deviceName = *req.DeviceName
	} else if ua := c.Request.UserAgent(); ua != "" {
		deviceName = ua
	}

	token, err := h.issueToken(ctx, user, deviceName)
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	if err := h.users.RecordLogin(ctx, user, c.ClientIP(), time.Now()); err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login")
	}

	response.Success(c, http.StatusOK, "Login successful!", gin.H{
		"user":         h.presenter.UserOnly(user, "id", "name", "email", "is_admin", "is_active", "phone", "avatar_url", "last_login_at"),
		"access_token": token,
		"token_type":   tokenTypeBearer,
		"expires_in":   h.expiresIn(),
	})
}

// Logout revokes the token used for this request
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.tokens.Revoke(c.Request.Context(), user.ID, middleware.CurrentTokenID(c)); err != nil &&
		!errors.Is(err, repository.ErrTokenNotFound) {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	response.Success(c, http.StatusOK, "Logged out successfully!", nil)
}

// LogoutAll revokes every token of the user
// POST /api/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if _, err := h.tokens.RevokeAll(c.Request.Context(), user.ID); err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	response.Success(c, http.StatusOK, "Logged out from all devices successfully!", nil)
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.Success(c, http.StatusOK, "User data retrieved successfully!", gin.H{
		"user": h.presenter.UserOnly(user,
			"id", "name", "email", "email_verified_at", "is_admin", "is_active",
			"phone", "avatar_url", "cpf_cnpj", "birth_date", "gender",
			"street", "number", "complement", "neighborhood", "city", "state", "zip_code",
			"last_login_at", "last_login_ip", "created_at", "updated_at"),
	})
}

// UpdateProfile applies a partial profile update
// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, &req)
	if err != nil {
		repoError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Profile updated successfully!", gin.H{
		"user": h.presenter.UserOnly(user, "id", "name", "email", "phone", "avatar_url", "updated_at"),
	})
}

// ChangePassword replaces the password after checking the current one
// PUT /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := confirmed("new_password", req.NewPassword, req.NewPasswordConfirmation); err != nil {
		_ = c.Error(err)
		return
	}

	user := middleware.CurrentUser(c)
	if !repository.CheckPassword(user.Password, req.CurrentPassword) {
		_ = c.Error(middleware.NewHTTPError(http.StatusUnprocessableEntity, "Current password is incorrect."))
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), user.ID, req.NewPassword); err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password changed successfully!", nil)
}

// ForgotPassword issues a reset token and mails the reset link
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		resetFailed(c, "Unable to send the password reset link.", PasswordInvalidUser)
		return
	}
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	token, err := h.resets.Issue(ctx, user.Email, time.Now())
	if errors.Is(err, repository.ErrResetThrottled) {
		resetFailed(c, "Unable to send the password reset link.", PasswordResetThrottle)
		return
	}
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	if h.notifier != nil {
		notification := &clients.PasswordResetNotification{
			UserID:    user.ID.String(),
			Email:     user.Email,
			Name:      user.Name,
			Token:     token,
			ResetURL:  h.opts.PasswordResetURL,
			ExpiresIn: h.opts.PasswordResetTTL,
		}
		if err := h.notifier.SendPasswordReset(ctx, notification); err != nil {
			h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to deliver password reset link")
		}
	}

	response.Success(c, http.StatusOK, "Password reset link sent to your email!", gin.H{"status": PasswordResetLinkSent})
}

// ResetPassword sets a new password using a reset token
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := confirmed("password", req.Password, req.PasswordConfirmation); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		resetFailed(c, "Unable to reset the password.", PasswordInvalidUser)
		return
	}
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	if err := h.resets.Consume(ctx, user.Email, req.Token, time.Now()); err != nil {
		if errors.Is(err, repository.ErrInvalidResetToken) {
			resetFailed(c, "Unable to reset the password.", PasswordInvalidToken)
			return
		}
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	if err := h.users.SetPassword(ctx, user.ID, req.Password); err != nil {
		repoError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Password reset successfully!", gin.H{"status": PasswordReset})
}

func resetFailed(c *gin.Context, message, status string) {
	_ = c.Error(middleware.NewBadRequestError(message, map[string]interface{}{"status": status}))
}

// ListTokens returns the user's active tokens (devices)
// GET /api/auth/tokens
func (h *AuthHandler) ListTokens(c *gin.Context) {
	tokens, err := h.tokens.ListForUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	if tokens == nil {
		tokens = []models.PersonalAccessToken{}
	}
	response.Success(c, http.StatusOK, "Tokens listed successfully!", gin.H{"tokens": tokens})
}

// RevokeToken deletes one of the user's tokens
// DELETE /api/auth/tokens/:id
func (h *AuthHandler) RevokeToken(c *gin.Context) {
	tokenID, ok := parseID(c, "id", "Token not found")
	if !ok {
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), middleware.CurrentUser(c).ID, tokenID); err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Token revoked successfully!", nil)
}

// CheckToken confirms the bearer token is valid
// GET /api/auth/check-token
func (h *AuthHandler) CheckToken(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.Success(c, http.StatusOK, "Token is valid", gin.H{
		"valid": true,
		"user":  h.presenter.UserOnly(user, "id", "name", "email", "is_admin"),
	})
}

// UploadAvatar replaces the user's avatar with the uploaded image
// POST /api/auth/upload-avatar
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	header, err := c.FormFile("avatar")
	if err != nil {
		_ = c.Error(middleware.NewFieldError("avatar", "The avatar field is required."))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !avatarExtensions[ext] {
		_ = c.Error(middleware.NewFieldError("avatar", "The avatar field must be a file of type: jpeg, png, jpg, gif."))
		return
	}
	if h.opts.AvatarMaxBytes > 0 && header.Size > h.opts.AvatarMaxBytes {
		_ = c.Error(middleware.NewFieldError("avatar", "The avatar field must not be greater than 2048 kilobytes."))
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	defer file.Close()

	mime, err := mimetype.DetectReader(file)
	if err != nil || !mimetype.EqualsAny(mime.String(), avatarMIMETypes...) {
		_ = c.Error(middleware.NewFieldError("avatar", "The avatar field must be an image."))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	disk := h.presenter.Disk
	filename := uuid.NewString() + ext
	if err := disk.Put(avatarDir+"/"+filename, file); err != nil {
		_ = c.Error(middleware.NewInternalError(err))
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	previous := user.Avatar
	if err := h.users.SetAvatar(ctx, user, &filename); err != nil {
		_ = disk.Delete(avatarDir + "/" + filename)
		_ = c.Error(middleware.NewInternalError(err))
		return
	}
	if previous != nil && *previous != "" {
		if err := disk.Delete(avatarDir + "/" + *previous); err != nil {
			h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to remove previous avatar")
		}
	}

	response.Success(c, http.StatusOK, "Avatar updated successfully!", gin.H{
		"user": h.presenter.UserOnly(user, "id", "name", "email", "avatar_url"),
	})
}
