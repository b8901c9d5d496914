// Package testing provides test utilities and database setup for testing the link shortening service
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates a test customer on the given plan
func (tf *TestFixtures) CreateTestCustomer(plan string) (*models.Customer, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if plan == "" {
		plan = models.PlanFree
	}

	displayName := "Jamie Doe"
	customer := &models.Customer{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("jamie.doe.%d@example.com", mathrand.Intn(100000000)),
		PasswordHash: string(hashedPassword),
		DisplayName:  &displayName,
		Plan:         plan,
		IsActive:     utils.ToPtr(true),
	}

	err = tf.DB.DB.Create(customer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a test customer session
func (tf *TestFixtures) CreateTestSession(customerID uint) (*models.CustomerSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.CustomerSession{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	err = tf.DB.DB.Create(session).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestShortLink creates a short link owned by the given customer
// A nil customerID produces an ownerless row
func (tf *TestFixtures) CreateTestShortLink(customerID *uint, code, destination string) (*models.ShortLink, error) {
	if code == "" {
		code = fmt.Sprintf("t%05d", mathrand.Intn(100000))
	}
	if destination == "" {
		destination = "https://example.com/landing"
	}

	link := &models.ShortLink{
		Code:        code,
		Destination: destination,
		CustomerID:  customerID,
		IsCustom:    utils.ToPtr(false),
	}

	err := tf.DB.DB.Create(link).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test short link: %w", err)
	}

	return link, nil
}

// CreateTestClick records a click event against a short link
func (tf *TestFixtures) CreateTestClick(linkID uint, country, deviceType string) (*models.ShortLinkClick, error) {
	ip := "203.0.113.7"
	browser := "Chrome"
	osName := "Linux"
	userAgent := "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0"

	click := &models.ShortLinkClick{
		ShortLinkID: linkID,
		UserAgent:   &userAgent,
		Browser:     &browser,
		OS:          &osName,
		IP:          &ip,
	}
	if country != "" {
		click.Country = &country
	}
	if deviceType != "" {
		click.DeviceType = &deviceType
	}

	err := tf.DB.DB.Create(click).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test click: %w", err)
	}

	return click, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}

// CreateMultipleTestCustomers creates test customers across the known plans
func (tf *TestFixtures) CreateMultipleTestCustomers() ([]*models.Customer, error) {
	plans := []string{models.PlanFree, models.PlanPro}

	var customers []*models.Customer
	for i, plan := range plans {
		customer, err := tf.CreateTestCustomer(plan)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer %d: %w", i, err)
		}
		customers = append(customers, customer)
	}

	return customers, nil
}
