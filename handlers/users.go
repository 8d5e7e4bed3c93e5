package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/threadkart/threadkart-backend-go/mail"
	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/utils"
)

const otpTTL = 10 * time.Minute

// UserStore is the slice of the document store the registration flow uses.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// UserHandler drives a user through unverified -> OTP-issued -> verified ->
// registered.
type UserHandler struct {
	store     UserStore
	mailer    mail.Mailer
	jwtSecret string
	now       func() time.Time
}

func NewUserHandler(store UserStore, mailer mail.Mailer, jwtSecret string) *UserHandler {
	return &UserHandler{
		store:     store,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SendOTP creates the user record on first contact and (re)issues a code.
// The code is persisted before the email goes out; a mail failure leaves it
// in place.
func (h *UserHandler) SendOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	ctx := c.Request().Context()

	user, err := h.store.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return serverError(c, err)
	}
	if user != nil && user.IsVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email is already verified!"})
	}

	otp, err := h.issueOTP(ctx, user, req.Email)
	if err != nil {
		return serverError(c, err)
	}

	if err := h.mailer.Send(req.Email, "Your OTP for Verification",
		fmt.Sprintf("Your OTP is %s. It is valid for 10 minutes.", otp)); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("failed to send OTP email")
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "OTP sent to email"})
}

// ResendOTP reissues a code for a user that already exists.
func (h *UserHandler) ResendOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	ctx := c.Request().Context()

	user, err := h.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found!"})
		}
		return serverError(c, err)
	}
	if user.IsVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already verified!"})
	}

	otp, err := h.issueOTP(ctx, user, req.Email)
	if err != nil {
		return serverError(c, err)
	}

	if err := h.mailer.Send(req.Email, "New OTP for Verification",
		fmt.Sprintf("Your new OTP is %s. It is valid for 10 minutes.", otp)); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("failed to send OTP email")
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "New OTP sent!"})
}

// VerifyOTP checks the code before its expiry: an expired-but-correct code
// reads as expired, a wrong code on an expired OTP reads as invalid.
func (h *UserHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	ctx := c.Request().Context()

	user, err := h.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found!"})
		}
		return serverError(c, err)
	}
	if user.IsVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already verified!"})
	}
	if user.OTP == nil || *user.OTP != req.OTP {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid OTP!"})
	}
	if user.OTPExpiry == nil || h.now().After(*user.OTPExpiry) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "OTP expired!"})
	}

	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiry = nil
	if err := h.store.Update(ctx, user); err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "User verified successfully!"})
}

// Register fills in the profile and password exactly once, after
// verification.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	ctx := c.Request().Context()

	user, err := h.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found!"})
		}
		return serverError(c, err)
	}
	if !user.IsVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email not verified. Verify OTP first!"})
	}
	if user.Password != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already registered!"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return serverError(c, err)
	}

	user.Name = req.Name
	user.Phone = req.Phone
	user.Password = string(hashed)
	user.Role = models.RoleCustomer
	if err := h.store.Update(ctx, user); err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Registration successful!"})
}

// Login checks credentials and returns the public profile with a session
// token. Password and OTP fields never leave the store.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	ctx := c.Request().Context()

	user, err := h.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found!"})
		}
		return serverError(c, err)
	}
	if !user.IsVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email not verified. Please verify first!"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid password!"})
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), h.jwtSecret)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful!",
		"user": map[string]string{
			"email": user.Email,
			"name":  user.Name,
			"phone": user.Phone,
		},
		"token": token,
	})
}

// Me returns the authenticated caller's profile.
func (h *UserHandler) Me(c echo.Context) error {
	userID := c.Get("userID").(primitive.ObjectID)

	user, err := h.store.FindByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "User not found!"})
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"email":      user.Email,
		"name":       user.Name,
		"phone":      user.Phone,
		"role":       user.Role,
		"isVerified": user.IsVerified,
	})
}

// issueOTP persists a fresh code and expiry on the user, creating the record
// when absent.
func (h *UserHandler) issueOTP(ctx context.Context, user *models.User, email string) (string, error) {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return "", err
	}
	expiry := h.now().Add(otpTTL)

	if user != nil {
		user.OTP = &otp
		user.OTPExpiry = &expiry
		if err := h.store.Update(ctx, user); err != nil {
			return "", err
		}
		return otp, nil
	}

	newUser := &models.User{
		Email:      email,
		OTP:        &otp,
		OTPExpiry:  &expiry,
		IsVerified: false,
		Role:       models.RoleCustomer,
	}
	if err := h.store.Insert(ctx, newUser); err != nil {
		return "", err
	}
	return otp, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
