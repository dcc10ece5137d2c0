// Package mercadopago is the MercadoPago provider adapter: preference
// creation and payment lookup over the public REST API, with the
// reference's retry/backoff policy and status-to-error mapping. The HTTP
// adapter shape (raw net/http client, struct-literal payloads, status-code
// switch) follows the reference KhaltiAdapter.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"salescore/internal/domain/payments"
	"salescore/internal/domainerrors"
)

const (
	MaxRetryAttempts  = 3
	RetryBaseDelay    = 200 * time.Millisecond
	preferencesPath   = "https://api.mercadopago.com/checkout/preferences"
	paymentLookupPath = "https://api.mercadopago.com/v1/payments/%s"
)

type Client struct {
	AccessToken string
	httpClient  *http.Client
}

func NewClient(accessToken string, timeout time.Duration) *Client {
	return &Client{
		AccessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type preferenceRequest struct {
	ExternalReference string             `json:"external_reference"`
	Items             []preferenceItem   `json:"items"`
}

type preferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type preferenceResponse struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
}

// CreatePreference implements payments.MPProvider.
func (c *Client) CreatePreference(ctx context.Context, pref payments.Preference, idempotencyKey string) (*payments.PreferenceResult, error) {
	body := preferenceRequest{
		ExternalReference: pref.ExternalReference,
		Items: []preferenceItem{{
			Title:      pref.Description,
			Quantity:   1,
			UnitPrice:  float64(pref.TotalAmountCents) / 100,
			CurrencyID: pref.Currency,
		}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal preference payload: %w", err)
	}

	var out preferenceResponse
	if err := c.doWithRetry(ctx, http.MethodPost, preferencesPath, raw, idempotencyKey, "preference creation", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, domainerrors.New(domainerrors.ProviderValidation, "mercadopago preference id missing")
	}
	if out.InitPoint == "" && out.SandboxInitPoint == "" {
		return nil, domainerrors.New(domainerrors.ProviderValidation, "mercadopago checkout url missing")
	}
	return &payments.PreferenceResult{
		PreferenceID:     out.ID,
		InitPoint:        out.InitPoint,
		SandboxInitPoint: out.SandboxInitPoint,
	}, nil
}

// PaymentLookup is the subset of MercadoPago's payment object the
// reconciler needs to normalize.
type PaymentLookup struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

func (c *Client) GetPayment(ctx context.Context, providerPaymentID string) (*PaymentLookup, error) {
	if providerPaymentID == "" {
		return nil, domainerrors.New(domainerrors.ProviderValidation, "mercadopago payment id is required")
	}
	var out PaymentLookup
	url := fmt.Sprintf(paymentLookupPath, providerPaymentID)
	if err := c.doWithRetry(ctx, http.MethodGet, url, nil, "", "payment lookup", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doWithRetry implements the reference client's MAX_RETRY_ATTEMPTS/
// RETRY_BASE_DELAY_SECONDS backoff: each attempt sleeps
// RETRY_BASE_DELAY*attempt before the next try, retrying on transport
// errors, 5xx, 408, 429 and malformed JSON responses, failing fast on other
// 4xx.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte, idempotencyKey, operation string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= MaxRetryAttempts; attempt++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return fmt.Errorf("build mercadopago request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = domainerrors.Wrap(domainerrors.ProviderTimeout, "mercadopago request failed", err)
			if attempt == MaxRetryAttempts {
				return lastErr
			}
			sleep(attempt)
			continue
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = domainerrors.New(domainerrors.ProviderUnavailable, fmt.Sprintf("mercadopago %s unavailable", operation))
			if attempt == MaxRetryAttempts {
				return lastErr
			}
			sleep(attempt)
			continue
		}
		if resp.StatusCode == 400 || resp.StatusCode == 404 || resp.StatusCode == 422 {
			return domainerrors.New(domainerrors.ProviderValidation, fmt.Sprintf("mercadopago %s rejected", operation))
		}
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			return domainerrors.New(domainerrors.ProviderAuth, "mercadopago credentials rejected")
		}
		if resp.StatusCode >= 400 {
			return domainerrors.New(domainerrors.ProviderUnavailable, fmt.Sprintf("mercadopago %s failed", operation))
		}

		if err := json.Unmarshal(raw, out); err != nil {
			lastErr = domainerrors.Wrap(domainerrors.ProviderUnavailable, "mercadopago invalid response payload", err)
			if attempt == MaxRetryAttempts {
				return lastErr
			}
			sleep(attempt)
			continue
		}
		return nil
	}
	return lastErr
}

func sleep(attempt int) {
	time.Sleep(RetryBaseDelay * time.Duration(attempt))
}
