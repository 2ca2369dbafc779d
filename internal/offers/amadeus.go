package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mwielgosz/flight-risk/internal/common"
)

const (
	DefaultAmadeusBaseURL = "https://test.api.amadeus.com"

	tokenTimeout  = 20 * time.Second
	searchTimeout = 30 * time.Second

	amadeusBodyLimit = 1200
)

// AuthError reports missing or rejected credentials. It is fatal to the
// caller: credential problems never fade into synthetic fallback.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "amadeus auth: " + e.Reason
}

// ServiceError reports a non-success response from the offer-search API,
// with a truncated body for diagnostics.
type ServiceError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("amadeus %s HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// RawOffer mirrors the relevant slice of one Amadeus flight-offer object.
type RawOffer struct {
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
	Itineraries []struct {
		Duration string `json:"duration"`
		Segments []struct {
			CarrierCode string `json:"carrierCode"`
		} `json:"segments"`
	} `json:"itineraries"`
}

// AmadeusClient wraps the OAuth-gated flight-offer search API. Each search
// obtains a bearer token via a client-credentials exchange first. A single
// attempt per call through a circuit breaker, no retries.
type AmadeusClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	breaker    *gobreaker.CircuitBreaker
}

func NewAmadeusClient(client *http.Client, baseURL, apiKey, apiSecret string) *AmadeusClient {
	if baseURL == "" {
		baseURL = DefaultAmadeusBaseURL
	}
	return &AmadeusClient{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "amadeus",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// token performs the client-credentials exchange. Missing or rejected
// credentials surface as AuthError.
func (c *AmadeusClient) token(ctx context.Context) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", &AuthError{Reason: "missing AMADEUS_API_KEY / AMADEUS_API_SECRET"}
	}

	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.apiKey)
	form.Set("client_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, amadeusBodyLimit))
		return "", &AuthError{Reason: fmt.Sprintf("token HTTP %d: %s",
			resp.StatusCode, common.Truncate(string(body), amadeusBodyLimit))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("amadeus token decode: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Reason: "token response without access_token"}
	}
	return payload.AccessToken, nil
}

// SearchOffers runs one offer search. An empty result is a valid outcome,
// not an error.
func (c *AmadeusClient) SearchOffers(ctx context.Context, origin, dest, departDate string, adults, maxResults int) ([]RawOffer, error) {
	bearer, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	values := url.Values{}
	values.Set("originLocationCode", origin)
	values.Set("destinationLocationCode", dest)
	values.Set("departureDate", departDate)
	values.Set("adults", fmt.Sprintf("%d", adults))
	values.Set("max", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/shopping/flight-offers?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, fmt.Errorf("amadeus search: %w", execErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, amadeusBodyLimit))
			return nil, &ServiceError{
				Op:         "search",
				StatusCode: resp.StatusCode,
				Body:       common.Truncate(string(body), amadeusBodyLimit),
			}
		}

		var payload struct {
			Data []RawOffer `json:"data"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&payload); decErr != nil {
			return nil, fmt.Errorf("amadeus search decode: %w", decErr)
		}
		return payload.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]RawOffer), nil
}
