package services

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rhythmtaneja/SignFlow/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rhythmtaneja/SignFlow/internal/db/models"
)

// InviteService issues public-signing links for external parties. The link
// carries a signed token binding one email to one document for a limited
// time; anyone presenting it may place a signature attributed to that email.
type InviteService struct {
	db        *gorm.DB
	security  config.SecurityConfig
	smtpCfg   config.SMTPConfig
	clientURL string
	audit     AuditRecorder
	logger    *zap.Logger
}

func NewInviteService(db *gorm.DB, cfg *config.Configuration, audit AuditRecorder, logger *zap.Logger) *InviteService {
	return &InviteService{
		db:        db,
		security:  cfg.Security,
		smtpCfg:   cfg.SMTP,
		clientURL: cfg.Server.ClientURL,
		audit:     audit,
		logger:    logger.With(zap.String("service", "invite_service")),
	}
}

type inviteClaims struct {
	DocumentID string `json:"documentId"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// Invite mails (or, without SMTP configured, logs) a public signing link.
func (s *InviteService) Invite(ctx context.Context, documentID, email, actorID string, meta RequestMeta) (string, error) {
	if documentID == "" || email == "" {
		return "", fmt.Errorf("%w: documentId and email are required", ErrValidation)
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", documentID).Error; err != nil {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}

	claims := inviteClaims{
		DocumentID: documentID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.security.InviteTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.security.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign invite token: %w", err)
	}
	link := fmt.Sprintf("%s/sign/%s", s.clientURL, token)

	if s.smtpCfg.Enabled {
		if err := s.sendMail(email, link); err != nil {
			return "", fmt.Errorf("failed to send invite email: %w", err)
		}
	} else {
		s.logger.Info("Public signature link issued (SMTP disabled)",
			zap.String("email", email), zap.String("link", link))
	}

	s.audit.Record(AuditEntry{
		DocumentID:    documentID,
		Action:        models.ActionInviteSent,
		SignerID:      actorID,
		ExternalEmail: email,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
	})
	return link, nil
}

// Verify parses a public signing token and returns the bound document and
// email.
func (s *InviteService) Verify(token string) (documentID, email string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &inviteClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.security.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", "", fmt.Errorf("%w: invalid or expired link", ErrValidation)
	}
	claims, ok := parsed.Claims.(*inviteClaims)
	if !ok {
		return "", "", fmt.Errorf("%w: invalid or expired link", ErrValidation)
	}
	return claims.DocumentID, claims.Email, nil
}

func (s *InviteService) sendMail(to, link string) error {
	addr := s.smtpCfg.Host + ":" + s.smtpCfg.Port
	var auth smtp.Auth
	if s.smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", s.smtpCfg.Username, s.smtpCfg.Password, s.smtpCfg.Host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Sign PDF Document\r\n\r\n"+
		"You have been invited to sign a document. Click the link: %s\r\n",
		s.smtpCfg.From, to, link)
	return smtp.SendMail(addr, auth, s.smtpCfg.From, []string{to}, []byte(msg))
}
