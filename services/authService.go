package services

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/models"
	"github.com/sanjiv-madhavan/go-natours/utils"
)

type AuthService struct {
	logger  *slog.Logger
	users   UserStore
	tokens  *utils.TokenIssuer
	ttl     time.Duration
	revoker Revoker
	mailer  Mailer
	now     func() time.Time
}

func NewAuthService(logger *slog.Logger, users UserStore, tokens *utils.TokenIssuer, ttl time.Duration, revoker Revoker, mailer Mailer) *AuthService {
	return &AuthService{logger: logger, users: users, tokens: tokens, ttl: ttl, revoker: revoker, mailer: mailer, now: time.Now}
}

// Signup creates a plain user account and signs a token for it. welcomeURL is
// the page linked from the welcome email.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest, welcomeURL string) (*models.User, string, error) {
	if err := models.Validate(req); err != nil {
		return nil, "", err
	}
	user := &models.User{
		ID:    primitive.NewObjectID(),
		Name:  strings.TrimSpace(req.Name),
		Email: req.Email,
		Photo: req.Photo,
	}
	user.ApplyDefaults()
	if err := models.Validate(user); err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	user.Password = hash
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, "", err
	}
	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Summary(), welcomeURL); err != nil {
			s.logger.Warn("Welcome email not sent", slog.String("user", user.ID.Hex()), slog.Any("error", err))
		}
	}
	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("User signed up", slog.String("user", user.ID.Hex()))
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperror.BadRequest("Please provide email and password!")
	}
	user, err := s.users.FindOneWithPassword(ctx, activeUsers(bson.M{"email": strings.ToLower(strings.TrimSpace(email))}))
	if err != nil {
		return nil, "", err
	}
	if user == nil || !user.CorrectPassword(password) {
		return nil, "", apperror.Unauthorized("Incorrect email or password")
	}
	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("User logged in", slog.String("user", user.ID.Hex()))
	return user, token, nil
}

// Authenticate resolves a bearer token to its still-active user, rejecting
// tokens that predate a password change or a revocation.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *utils.AuthClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	userID, err := primitive.ObjectIDFromHex(claims.UID)
	if err != nil {
		return nil, nil, apperror.Unauthorized("Invalid token. Please log in again!")
	}
	user, err := s.users.FindOne(ctx, activeUsers(bson.M{"_id": userID}))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperror.Unauthorized("The user belonging to this token does no longer exist.")
	}
	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, nil, apperror.Unauthorized("User recently changed password! Please log in again.")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *utils.AuthClaims) error {
	if s.revoker == nil {
		return nil
	}
	issuedAt := claims.IssuedAt.Unix()
	global, err := s.revoker.GetGlobalInvalidation(ctx)
	if err != nil {
		return err
	}
	if global > 0 && issuedAt < global {
		return apperror.Unauthorized("Your session has been revoked. Please log in again.")
	}
	userInvalidation, err := s.revoker.GetUserSpecificInvalidation(ctx, claims.UID)
	if err != nil {
		return err
	}
	if userInvalidation > 0 && issuedAt < userInvalidation {
		return apperror.Unauthorized("User recently changed password! Please log in again.")
	}
	return nil
}

// ForgotPassword mails a reset link built by resetURL from the plain token.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, resetURL func(token string) string) error {
	if err := models.Validate(req); err != nil {
		return err
	}
	user, err := s.users.FindOne(ctx, activeUsers(bson.M{"email": strings.ToLower(strings.TrimSpace(req.Email))}))
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("There is no user with email address.")
	}
	resetToken, err := user.CreatePasswordResetToken(s.now())
	if err != nil {
		return err
	}
	set := bson.M{"passwordResetToken": user.PasswordResetToken, "passwordResetExpires": user.PasswordResetExpires}
	if err := s.users.Update(ctx, user.ID, bson.M{"$set": set}); err != nil {
		return err
	}
	if s.mailer == nil {
		return s.abortReset(ctx, user, nil)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Summary(), resetURL(resetToken)); err != nil {
		return s.abortReset(ctx, user, err)
	}
	return nil
}

func (s *AuthService) abortReset(ctx context.Context, user *models.User, cause error) error {
	s.logger.Error("Password reset email not sent", slog.String("user", user.ID.Hex()), slog.Any("error", cause))
	unset := bson.M{"passwordResetToken": "", "passwordResetExpires": ""}
	if err := s.users.Update(ctx, user.ID, bson.M{"$unset": unset}); err != nil {
		return err
	}
	return apperror.New("There was an error sending the email. Try again later!", http.StatusInternalServerError)
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) (*models.User, string, error) {
	user, err := s.users.FindOne(ctx, activeUsers(bson.M{
		"passwordResetToken":   models.HashResetToken(token),
		"passwordResetExpires": bson.M{"$gt": s.now()},
	}))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperror.BadRequest("Token is invalid or has expired")
	}
	if err := models.Validate(req); err != nil {
		return nil, "", err
	}
	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return nil, "", err
	}
	return s.issue(user)
}

func (s *AuthService) UpdatePassword(ctx context.Context, current *models.User, req models.PasswordUpdateRequest) (*models.User, string, error) {
	user, err := s.users.FindOneWithPassword(ctx, bson.M{"_id": current.ID})
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperror.Unauthorized("The user belonging to this token does no longer exist.")
	}
	if !user.CorrectPassword(req.PasswordCurrent) {
		return nil, "", apperror.Unauthorized("Your current password is wrong.")
	}
	if err := models.Validate(req); err != nil {
		return nil, "", err
	}
	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return nil, "", err
	}
	return s.issue(user)
}

// setPassword stores a new hash and backdates passwordChangedAt by a second
// so a token signed right afterwards is still accepted.
func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	changedAt := s.now().Add(-time.Second)
	update := bson.M{
		"$set":   bson.M{"password": hash, "passwordChangedAt": changedAt},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	}
	if err := s.users.Update(ctx, user.ID, update); err != nil {
		return err
	}
	user.Password = hash
	user.PasswordChangedAt = &changedAt
	user.ClearPasswordReset()
	if s.revoker != nil {
		if err := s.revoker.SetUserSpecificInvalidation(ctx, user.ID.Hex(), changedAt.Unix(), s.ttl); err != nil {
			s.logger.Warn("Token invalidation not recorded", slog.String("user", user.ID.Hex()), slog.Any("error", err))
		}
	}
	s.logger.Info("Password updated", slog.String("user", user.ID.Hex()))
	return nil
}

// RevokeAll invalidates every token issued so far.
func (s *AuthService) RevokeAll(ctx context.Context) error {
	if s.revoker == nil {
		return apperror.New("Session revocation is not available", http.StatusInternalServerError)
	}
	return s.revoker.SetGlobalInvalidation(ctx, s.now().Unix(), s.ttl)
}

func (s *AuthService) issue(user *models.User) (*models.User, string, error) {
	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
