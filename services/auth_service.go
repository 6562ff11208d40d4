// services/auth_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"trading-referral-system/models"
	"trading-referral-system/utils"

	"gorm.io/gorm"
)

// AuthService orchestrates registration and session calls against the
// identity provider and keeps the local profile row in step.
type AuthService struct {
	DB        *gorm.DB
	Identity  *IdentityClient
	Referrals *ReferralService

	// AdminEmail gets the admin role at registration (bootstrap account)
	AdminEmail string
}

func NewAuthService(db *gorm.DB, identity *IdentityClient, referrals *ReferralService) *AuthService {
	return &AuthService{
		DB:         db,
		Identity:   identity,
		Referrals:  referrals,
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
	}
}

// Register signs the user up with the identity provider, creates the profile
// row with its referral linkage, and kicks off reward distribution. The
// referral chain is a side benefit: a bad code or a failed payout never fails
// the registration itself.
func (s *AuthService) Register(username, email, password, referralCode string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}

	idUser, err := s.Identity.SignUp(email, password, map[string]interface{}{"username": username})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	role := "user"
	if s.AdminEmail != "" && strings.EqualFold(email, s.AdminEmail) {
		role = "admin"
	}

	var referredBy *string
	if referralCode != "" {
		if referrerID, ok := s.Referrals.ResolveReferrerID(referralCode); ok {
			referredBy = &referrerID
		} else {
			log.Printf("⚠️ [AUTH] referral code %q not found, registering %s without referrer", referralCode, email)
		}
	}

	user := models.User{
		ID:           idUser.ID,
		Username:     username,
		Email:        strings.ToLower(email),
		Role:         role,
		Status:       "active",
		ReferralCode: utils.GenerateReferralCode(utils.DefaultCodePrefix, utils.DefaultCodeLength),
		ReferredBy:   referredBy,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	// Exactly one distribution per registration, after the profile row is
	// durable. Its failures are logged inside and never propagate here.
	if referredBy != nil {
		s.Referrals.DistributeRewards(user.ID, referralCode, *referredBy)
	}

	return &user, nil
}

// Login exchanges credentials for a session and loads the profile row. A
// missing profile is logged, not fatal — the session itself is valid.
func (s *AuthService) Login(email, password string) (*IdentitySession, *models.User, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("email and password are required")
	}

	session, err := s.Identity.SignInWithPassword(email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("login failed: %w", err)
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", session.User.ID).Error; err != nil {
		log.Printf("⚠️ [AUTH] session active but no profile row for %s: %v", session.User.ID, err)
		return session, nil, nil
	}
	return session, &user, nil
}

// Logout revokes the session with the identity provider
func (s *AuthService) Logout(accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("missing session token")
	}
	if err := s.Identity.SignOut(accessToken); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}
