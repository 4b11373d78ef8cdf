package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient calls the SecureLife HTTP API with the stored token
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is the error body returned by the server
type apiError struct {
	Status int               `json:"-"`
	Err    string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d: %s", e.Status, e.Err)
	for field, reason := range e.Fields {
		msg += fmt.Sprintf("\n  %s %s", field, reason)
	}
	return msg
}

// do sends body as JSON and decodes a 2xx response into out when out is non-nil
func (c *apiClient) do(method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Err == "" {
			apiErr.Err = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type authResult struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

type contract struct {
	ID            int64   `json:"id"`
	Number        string  `json:"contractNumber"`
	Kind          string  `json:"kind"`
	FullName      string  `json:"fullName"`
	Status        string  `json:"status"`
	AnnualPremium float64 `json:"annualPremium"`
}

type contractPage struct {
	Items []contract `json:"items"`
	Page  int        `json:"page"`
	Total int64      `json:"total"`
}

type stats struct {
	CountByStatus      map[string]int64 `json:"countByStatus"`
	Total              int64            `json:"total"`
	TotalAnnualPremium float64          `json:"totalAnnualPremium"`
}

type reference struct {
	Kinds     []string `json:"kinds"`
	Statuses  []string `json:"statuses"`
	RiskZones []struct {
		Code   string  `json:"code"`
		Factor float64 `json:"factor"`
	} `json:"riskZones"`
}
