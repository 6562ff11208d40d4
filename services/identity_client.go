// services/identity_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// IdentityClient talks to the hosted identity provider. Sign-up, sign-in and
// session teardown live entirely on the provider side; this service only
// keeps the profile row keyed by the provider's user id.
type IdentityClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type IdentityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type IdentitySession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         IdentityUser `json:"user"`
}

func NewIdentityClient() *IdentityClient {
	baseURL := os.Getenv("IDENTITY_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("IDENTITY_SERVICE_URL environment variable not set")
	}
	apiKey := os.Getenv("IDENTITY_SERVICE_KEY")
	if apiKey == "" {
		log.Fatal("IDENTITY_SERVICE_KEY environment variable not set")
	}

	return &IdentityClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignUp creates the credential record on the provider and returns the new
// stable user id. Profile metadata (username) rides along for the provider's
// own records; the authoritative profile row is ours.
func (c *IdentityClient) SignUp(email, password string, metadata map[string]interface{}) (*IdentityUser, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	var user IdentityUser
	if err := c.post("/auth/v1/signup", "", body, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("identity provider returned no user id")
	}
	return &user, nil
}

// SignInWithPassword exchanges credentials for a session
func (c *IdentityClient) SignInWithPassword(email, password string) (*IdentitySession, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}

	var session IdentitySession
	if err := c.post("/auth/v1/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the session behind accessToken
func (c *IdentityClient) SignOut(accessToken string) error {
	return c.post("/auth/v1/logout", accessToken, map[string]interface{}{}, nil)
}

// GetUser resolves the session token to its user (current session or none)
func (c *IdentityClient) GetUser(accessToken string) (*IdentityUser, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, accessToken)

	var user IdentityUser
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *IdentityClient) post(path, accessToken string, body interface{}, out interface{}) error {
	jsonData, _ := json.Marshal(body)

	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	c.setHeaders(req, accessToken)

	return c.do(req, out)
}

func (c *IdentityClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

func (c *IdentityClient) do(req *http.Request, out interface{}) error {
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var apiErr struct {
			Message          string `json:"msg"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.ErrorDescription
		}
		if msg == "" {
			msg = string(raw)
		}
		return fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
