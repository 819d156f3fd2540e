package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/hash"
	"github.com/easybuy/backend/internal/logging"
	"github.com/easybuy/backend/internal/mailer"
	"github.com/easybuy/backend/internal/middleware/auth"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/mykafka"
	"github.com/easybuy/backend/internal/service/token"
	"github.com/easybuy/backend/internal/storage"
	"github.com/easybuy/backend/internal/util"
)

const (
	avatarFolder  = "easybuy/avatars"
	resetTokenTTL = 15 * time.Minute
)

type AuthHandler struct {
	DB          *gorm.DB
	Tokens      *token.Service
	Storage     storage.Storage
	Mailer      mailer.Mailer
	Producer    *mykafka.Producer
	FrontendURL string
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	name := c.FormValue("name")
	email := c.FormValue("email")
	password := c.FormValue("password")
	file, err := c.FormFile("file")
	if name == "" || email == "" || password == "" || err != nil {
		return apperr.New(apperr.Validation, "All fields are required")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		l.Warn("register_failed", "status", 409, "reason", "email_taken")
		return apperr.New(apperr.Conflict, "Email has already been taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	src, err := file.Open()
	if err != nil {
		return apperr.Wrap(apperr.Validation, "cannot read uploaded file", err)
	}
	defer src.Close()

	avatar, err := h.Storage.Upload(ctx, avatarFolder, file.Filename, src)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "avatar_upload", "error", err)
		return apperr.Wrap(apperr.Upstream, "could not store avatar", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         "user",
		AvatarKey:    avatar.Key,
		AvatarURL:    avatar.URL,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	signed, exp, err := h.Tokens.Sign(user.ID)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "cannot create session token", err)
	}
	c.SetCookie(token.Cookie(signed, exp))

	l.Info("register_success", "status", 201, "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.Validation, "All fields are required")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 404, "reason", "unknown_email")
			return apperr.New(apperr.NotFound, "User doesn't exist")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "bad_credentials")
		return apperr.New(apperr.Auth, "Invalid credentials")
	}

	signed, exp, err := h.Tokens.Sign(user.ID)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "cannot create session token", err)
	}
	c.SetCookie(token.Cookie(signed, exp))

	l.Info("login_success", "status", 200, "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logged in successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(token.ExpiredCookie())
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) GetMyProfile(c echo.Context) error {
	user := auth.CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return apperr.New(apperr.Validation, "All fields are required")
	}

	if !hash.CheckPassword(user.PasswordHash, req.OldPassword) {
		return apperr.New(apperr.Auth, "Your old password is incorrect")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}
	if err := h.DB.Model(user).Update("password_hash", pwHash).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if len(updates) > 0 {
		if err := h.DB.Model(user).Updates(updates).Error; err != nil {
			return apperr.Wrap(apperr.Upstream, "internal server error", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Profile updated successfully",
	})
}

func (h *AuthHandler) UpdateProfilePicture(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_avatar")
	user := auth.CurrentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		return apperr.New(apperr.Validation, "All fields are required")
	}
	src, err := file.Open()
	if err != nil {
		return apperr.Wrap(apperr.Validation, "cannot read uploaded file", err)
	}
	defer src.Close()

	if err := h.Storage.Destroy(ctx, user.AvatarKey); err != nil {
		l.Warn("avatar_cleanup_failed", "key", user.AvatarKey, "error", err)
	}

	avatar, err := h.Storage.Upload(ctx, avatarFolder, file.Filename, src)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "could not store avatar", err)
	}

	if err := h.DB.Model(user).Updates(map[string]any{
		"avatar_key": avatar.Key,
		"avatar_url": avatar.URL,
	}).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Profile picture updated successfully",
	})
}

// ForgotPassword always answers with the same message so callers cannot
// probe which addresses have accounts. The raw token only ever leaves
// through the mail collaborator.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Email == "" {
		return apperr.New(apperr.Validation, "Email is required")
	}

	resp := echo.Map{
		"success": true,
		"message": fmt.Sprintf("Reset token has been sent to %s successfully", req.Email),
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("reset_requested", "known_account", false)
			return c.JSON(http.StatusOK, resp)
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	rawToken, err := hash.NewResetToken()
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.DB.Model(&user).Updates(map[string]any{
		"reset_token_hash":    hash.Sha256Hex(rawToken),
		"reset_token_expires": time.Now().Add(resetTokenTTL).Unix(),
	}).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	url := fmt.Sprintf("%s/resetpassword/%s", h.FrontendURL, rawToken)
	message := fmt.Sprintf("Click on the link to reset your password. \n %s \n If you haven't requested then you can ignore this mail.", url)
	if err := h.Mailer.Send(user.Email, "EASYBUY | Reset Password", message); err != nil {
		l.Error("reset_mail_failed", "status", 500, "error", err)
		return apperr.Wrap(apperr.Upstream, "could not send reset mail", err)
	}

	l.Info("reset_requested", "known_account", true)
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Password == "" {
		return apperr.New(apperr.Validation, "Password is required")
	}

	tokenHash := hash.Sha256Hex(c.Param("token"))

	var user models.User
	err := h.DB.Where("reset_token_hash = ? AND reset_token_expires > ?", tokenHash, time.Now().Unix()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.Auth, "Reset token is invalid or has been expired")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	// One UPDATE replaces the hash and burns the token together.
	if err := h.DB.Model(&user).Updates(map[string]any{
		"password_hash":       pwHash,
		"reset_token_hash":    "",
		"reset_token_expires": 0,
	}).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Password reset successful",
	})
}

func (h *AuthHandler) GetUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	offset, limit := util.Paginate(page)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	var users []models.User
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"totalPages": util.TotalPages(total),
		"users":      users,
	})
}

func (h *AuthHandler) UpdateUserRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "User doesn't exist")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	role := "admin"
	if user.Role == "admin" {
		role = "user"
	}
	if err := h.DB.Model(&user).Update("role", role).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User role updated successfully",
	})
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_delete_user")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "User doesn't exist")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	// Media cleanup is best effort; the deletion itself must not depend on
	// the storage collaborator.
	if err := h.Storage.Destroy(ctx, user.AvatarKey); err != nil {
		l.Warn("avatar_cleanup_failed", "key", user.AvatarKey, "error", err)
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_deleted",
		"userID": user.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}

func (h *AuthHandler) Subscribe(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Email == "" {
		return apperr.New(apperr.Validation, "Email is required")
	}

	var existing models.Subscriber
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return apperr.New(apperr.Conflict, "You have already been subscribed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.DB.Create(&models.Subscriber{Email: req.Email}).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "You have been subscribed to our newsletter",
	})
}
