//go:build e2e

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run against a seeded server:
//
//	STORE_DRIVER=memory SESSION_COOKIE_SECURE=false SESSION_SECRET=... go run ./cmd/server &
//	go test -tags e2e ./cmd/server/...
var (
	baseURL      = getEnv("STOREADMIN_API_URL", "http://127.0.0.1:8080")
	apiBase      = baseURL + "/api/v1"
	seedPassword = getEnv("SEED_PASSWORD", "password")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

type TestClient struct {
	httpClient *http.Client
}

func NewTestClient() *TestClient {
	jar, _ := cookiejar.New(nil)
	return &TestClient{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
}

func (c *TestClient) Do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", "e2e")
	return c.httpClient.Do(req)
}

func (c *TestClient) Login(t *testing.T, email string) {
	t.Helper()
	resp, err := c.Do(http.MethodPost, apiBase+"/auth/login", map[string]string{
		"email":    email,
		"password": seedPassword,
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_Workflows(t *testing.T) {
	var (
		viewerID   int64
		categoryID int64
	)

	admin := NewTestClient()
	viewer := NewTestClient()

	t.Run("Admin Flow", func(t *testing.T) {
		admin.Login(t, "admin@example.com")

		roleName := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
		resp, err := admin.Do(http.MethodPost, apiBase+"/roles", map[string]any{
			"name":        roleName,
			"permissions": []string{"view users"},
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err = admin.Do(http.MethodGet, apiBase+"/users", nil)
		require.NoError(t, err)
		var users []struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
		resp.Body.Close()
		for _, u := range users {
			if u.Email == "viewer@example.com" {
				viewerID = u.ID
			}
		}
		require.NotZero(t, viewerID)

		resp, err = admin.Do(http.MethodGet, apiBase+"/categories/accessible", nil)
		require.NoError(t, err)
		var cats []struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cats))
		resp.Body.Close()
		require.NotEmpty(t, cats)
		categoryID = cats[0].ID

		resp, err = admin.Do(http.MethodPut,
			fmt.Sprintf("%s/users/%d/categories/%d/permissions", apiBase, viewerID, categoryID),
			map[string]any{"permissions": []string{"view categories", "edit products"}})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Scoped Viewer Flow", func(t *testing.T) {
		require.NotZero(t, categoryID)
		viewer.Login(t, "viewer@example.com")

		resp, err := viewer.Do(http.MethodGet, fmt.Sprintf("%s/categories/%d/access", apiBase, categoryID), nil)
		require.NoError(t, err)
		var access struct {
			Permissions map[string]struct {
				Allowed bool   `json:"allowed"`
				Reason  string `json:"reason"`
			} `json:"permissions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&access))
		resp.Body.Close()
		assert.True(t, access.Permissions["edit products"].Allowed)
		assert.Equal(t, "override", access.Permissions["edit products"].Reason)
		assert.False(t, access.Permissions["delete products"].Allowed)

		resp, err = viewer.Do(http.MethodGet, apiBase+"/roles", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Cleanup", func(t *testing.T) {
		resp, err := admin.Do(http.MethodDelete,
			fmt.Sprintf("%s/users/%d/categories/%d/permissions", apiBase, viewerID, categoryID), nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}
