package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"transferdesk/internal/audit"
	dErrors "transferdesk/pkg/domainerrors"
	"transferdesk/pkg/sentinel"
)

const tokenTTL = 12 * time.Hour

// RegisterRequest carries the data needed to open an account.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Role        Role   `json:"role"`
}

// Service manages accounts and sessions. Approval and rejection append to
// the same audit stream record lifecycle events use, so the history of who
// could act and who did act reads as one log.
type Service struct {
	store      Store
	auditLog   audit.Store
	signingKey []byte
	logger     *slog.Logger
}

func NewService(store Store, auditLog audit.Store, signingKey string, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		auditLog:   auditLog,
		signingKey: []byte(signingKey),
		logger:     logger,
	}
}

// Register creates an unapproved account. An owner must approve it before
// the user can log in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if len(req.Username) < 3 {
		return User{}, dErrors.New(dErrors.CodeValidation, "username must be at least 3 characters")
	}
	if len(req.Password) < 6 {
		return User{}, dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	if req.FirstName == "" || req.LastName == "" {
		return User{}, dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	if !req.Role.Valid() {
		return User{}, dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return User{}, dErrors.New(dErrors.CodeValidation, "username already taken")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "save user")
	}
	return user, nil
}

// Approve marks the account usable. Only an owner may approve.
func (s *Service) Approve(ctx context.Context, userID string, approver Actor) (User, error) {
	return s.decide(ctx, userID, approver, true)
}

// Reject declines the account. Only an owner may reject.
func (s *Service) Reject(ctx context.Context, userID string, approver Actor) (User, error) {
	return s.decide(ctx, userID, approver, false)
}

func (s *Service) decide(ctx context.Context, userID string, approver Actor, approved bool) (User, error) {
	if approver.Role != RoleOwner {
		return User{}, dErrors.New(dErrors.CodeUnauthorized, "only an owner may approve or reject accounts")
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "load user")
	}

	action := audit.ActionUserApproved
	if approved {
		user.Approved = true
		user.ApprovedBy = approver.Username
	} else {
		user.Approved = false
		action = audit.ActionUserRejected
	}

	if err := s.store.Save(ctx, user); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "save user")
	}
	if err := s.auditLog.Append(ctx, audit.Entry{
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Action:     action,
		Actor:      approver.Username,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "append audit entry")
	}
	return user, nil
}

// Login verifies the credential and issues a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, User, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return "", User{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.Approved {
		return "", User{}, dErrors.New(dErrors.CodeUnauthorized, "account pending approval")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", User{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.store.Save(ctx, user); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "user_id", user.ID, "error", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"jti":      uuid.New().String(),
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign session token")
	}
	return signed, user, nil
}

// ActorFromToken validates a session token and reconstructs the Actor.
// CredentialVerified always starts false; it is set per call by
// VerifyCredential.
func (s *Service) ActorFromToken(tokenString string) (Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	actor := Actor{ID: sub, Username: username, Role: Role(role)}
	if actor.ID == "" || !actor.Role.Valid() {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return actor, nil
}

// VerifyCredential re-checks the actor's password for elevated operations.
// Returns the actor with CredentialVerified set on success.
func (s *Service) VerifyCredential(ctx context.Context, actor Actor, password string) (Actor, error) {
	user, err := s.store.FindByID(ctx, actor.ID)
	if err != nil {
		return actor, dErrors.New(dErrors.CodeUnauthorized, "unknown actor")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return actor, dErrors.New(dErrors.CodeCredentialRequired, "credential verification failed")
	}
	actor.CredentialVerified = true
	return actor, nil
}
