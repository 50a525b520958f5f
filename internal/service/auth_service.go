package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"voyager-api/internal/domain"
	"voyager-api/internal/email"
	"voyager-api/internal/repository"
)

const (
	otpTTL          = 5 * time.Minute
	otpCodeLen      = 6
	resetTTL        = time.Hour
	minPasswordLen  = 6
	resetTokenBytes = 32
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrOTPRequired        = errors.New("otp is required")
	ErrOTPNotFound        = errors.New("otp not found")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPInvalid         = errors.New("invalid otp")
	ErrNoPending          = errors.New("registration not started")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrResetInvalid       = errors.New("invalid or expired token")
	ErrEmailInUse         = errors.New("email already in use")
)

// AuthService orquesta el registro con OTP, login, reset de password y perfil.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	pending     PendingStore
	otpLimiter  OTPRateLimiter
	frontendURL string
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, pending PendingStore, otpLimiter OTPRateLimiter, frontendURL string) *AuthService {
	if pending == nil {
		pending = NewMemoryPendingStore()
	}
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpTTL, 3)
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		pending:     pending,
		otpLimiter:  otpLimiter,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// RequestOTP inicia un registro: guarda la entrada pendiente y envia el codigo.
// Si el envio falla la entrada pendiente NO se revierte; un resend posterior
// reutiliza los datos de usuario candidato ya guardados.
func (s *AuthService) RequestOTP(ctx context.Context, name, emailAddr, password, code string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}

	name = strings.TrimSpace(name)
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	code = stripNonDigits(code)

	if name == "" || emailAddr == "" {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if code == "" {
		return ErrOTPRequired
	}
	// Un codigo que no son seis digitos ASCII jamas pasaria VerifyOTP;
	// se rechaza aqui para no guardar una entrada inverificable.
	if len(code) != otpCodeLen {
		return ErrOTPInvalid
	}

	if s.otpLimiter != nil && !s.otpLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	reg := PendingRegistration{
		Code:         code,
		ExpiresAt:    time.Now().UTC().Add(otpTTL),
		Name:         name,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
	}
	if err := s.pending.Put(emailAddr, reg); err != nil {
		return err
	}

	if err := s.sendOTPEmail(ctx, reg, false); err != nil {
		if s.logger != nil {
			s.logger.Warn("send otp failed",
				zap.Error(err),
				zap.String("email", emailAddr),
				zap.String("reason", string(email.ReasonOf(err))),
			)
		}
		return ErrEmailSendFailure
	}
	return nil
}

// ResendOTP reemplaza el codigo pendiente y reinicia la expiracion.
func (s *AuthService) ResendOTP(ctx context.Context, emailAddr, code string) error {
	emailAddr = normalizeEmail(emailAddr)
	code = stripNonDigits(code)

	if emailAddr == "" {
		return ErrInvalidEmail
	}

	reg, ok, err := s.pending.Get(emailAddr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPending
	}
	if code == "" {
		return ErrOTPRequired
	}
	if len(code) != otpCodeLen {
		return ErrOTPInvalid
	}

	reg.Code = code
	reg.ExpiresAt = time.Now().UTC().Add(otpTTL)
	if err := s.pending.Put(emailAddr, reg); err != nil {
		return err
	}

	if err := s.sendOTPEmail(ctx, reg, true); err != nil {
		if s.logger != nil {
			s.logger.Warn("resend otp failed",
				zap.Error(err),
				zap.String("email", emailAddr),
				zap.String("reason", string(email.ReasonOf(err))),
			)
		}
		return ErrEmailSendFailure
	}
	return nil
}

// VerifyOTP consume la entrada pendiente y crea el usuario persistente.
// Es el unico punto donde el estado transitorio se vuelve durable: si la
// persistencia falla, la entrada pendiente se conserva para reintentar.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	code = stripNonDigits(code)

	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if len(code) != otpCodeLen {
		return domain.User{}, ErrOTPInvalid
	}

	reg, ok, err := s.pending.Get(emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrOTPNotFound
	}
	if time.Now().UTC().After(reg.ExpiresAt) {
		_ = s.pending.Delete(emailAddr)
		return domain.User{}, ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(reg.Code), []byte(code)) != 1 {
		return domain.User{}, ErrOTPInvalid
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	_ = s.pending.Delete(emailAddr)

	return user, nil
}

// Authenticate valida credenciales de login.
func (s *AuthService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ForgotPassword emite un token de reset y lo envia por correo. El resultado
// hacia el cliente es identico exista o no la cuenta; si el envio falla, el
// grant se revierte para no dejar un token valido sin entregar.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, tokenHash, err := generateResetToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	body := fmt.Sprintf(`Hello %s,

Reset your password using the link below:

%s

This link will expire in 1 hour.`, user.Name, resetURL)

	if err := s.emailSender.Send(ctx, emailAddr, "Password Reset Request - Digital Voyager", body); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil && s.logger != nil {
			s.logger.Error("reset token rollback failed", zap.Error(clearErr), zap.String("user_id", user.ID))
		}
		if s.logger != nil {
			s.logger.Warn("send reset email failed",
				zap.Error(err),
				zap.String("email", emailAddr),
				zap.String("reason", string(email.ReasonOf(err))),
			)
		}
		return ErrEmailSendFailure
	}
	return nil
}

// ResetPassword canjea el token: un solo predicado digest+expiracion, sin
// distinguir "no emitido" de "expirado".
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}

	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}

	tokenHash := hashResetToken(token)
	user, err := s.users.GetByResetToken(ctx, tokenHash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetInvalid
		}
		return err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordClearReset(ctx, user.ID, string(hashBytes))
}

// GetProfile devuelve el usuario por id.
func (s *AuthService) GetProfile(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile actualiza nombre y/o email, validando unicidad del email.
func (s *AuthService) UpdateProfile(ctx context.Context, id, name, emailAddr string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if emailAddr != "" {
		emailAddr = normalizeEmail(emailAddr)
		taken, err := s.users.EmailTaken(ctx, emailAddr, id)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, ErrEmailInUse
		}
	}
	user, err := s.users.UpdateProfile(ctx, id, name, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) sendOTPEmail(ctx context.Context, reg PendingRegistration, resend bool) error {
	if s.emailSender == nil {
		return &email.SendError{Reason: email.ReasonNotConfigured, Err: errors.New("email sender not configured")}
	}

	subject := "OTP for Digital Voyager Registration"
	if resend {
		subject = "Resend OTP for Digital Voyager Registration"
	}
	body := fmt.Sprintf(`Hello %s,

Your OTP for Digital Voyager registration is: %s

This OTP is valid for 5 minutes.

If you didn't request this, please ignore this email.

Best regards,
Digital Voyager Team`, reg.Name, reg.Code)

	return s.emailSender.Send(ctx, reg.Email, subject, body)
}

func generateResetToken() (string, string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := hex.EncodeToString(raw)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// stripNonDigits deja solo digitos ASCII; otros sistemas numericos no son
// codigos validos y se descartan.
func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// OTPRateLimiter limita la frecuencia de solicitudes de OTP por clave.
type OTPRateLimiter interface {
	Allow(key string) bool
}

type otpRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewOTPRateLimiter crea un rate limiter en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &otpRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *otpRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
