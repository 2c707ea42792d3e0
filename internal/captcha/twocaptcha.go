package captcha

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwoCaptchaURL is the production 2Captcha API root.
const TwoCaptchaURL = "https://2captcha.com"

const notReady = "CAPCHA_NOT_READY"

// TwoCaptcha is a client for the 2Captcha in.php/res.php API.
type TwoCaptcha struct {
	APIKey       string
	BaseURL      string
	Client       *http.Client
	PollInterval time.Duration
	Verbose      bool
}

// NewTwoCaptcha creates a client with production defaults.
func NewTwoCaptcha(apiKey string) *TwoCaptcha {
	return &TwoCaptcha{
		APIKey:       apiKey,
		BaseURL:      TwoCaptchaURL,
		Client:       &http.Client{Timeout: 30 * time.Second},
		PollInterval: 5 * time.Second,
	}
}

func (c *TwoCaptcha) Name() string { return "2captcha" }

// twoCaptchaResponse carries either a task id, a token or an error code in
// Request depending on Status.
type twoCaptchaResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// UnmarshalJSON tolerates status sent as a string.
func (r *twoCaptchaResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status  json.RawMessage `json:"status"`
		Request string          `json:"request"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Request = raw.Request
	r.Status = 0
	if strings.Trim(string(raw.Status), `"`) == "1" {
		r.Status = 1
	}
	return nil
}

// Solve submits the challenge and polls until the token is ready or ctx expires.
func (c *TwoCaptcha) Solve(ctx context.Context, ch Challenge) (string, error) {
	form := url.Values{
		"key":     {c.APIKey},
		"pageurl": {ch.PageURL},
		"json":    {"1"},
	}
	switch ch.Kind {
	case KindHCaptcha:
		form.Set("method", "hcaptcha")
		form.Set("sitekey", ch.SiteKey)
	case KindRecaptchaV3:
		form.Set("method", "userrecaptcha")
		form.Set("googlekey", ch.SiteKey)
		form.Set("version", "v3")
	default:
		form.Set("method", "userrecaptcha")
		form.Set("googlekey", ch.SiteKey)
	}

	var submitted twoCaptchaResponse
	err := doJSON(ctx, c.Client, "2captcha", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/in.php", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, &submitted)
	if err != nil {
		return "", err
	}
	if submitted.Status != 1 {
		return "", &SolverError{Provider: "2captcha", Message: "submit rejected: " + submitted.Request}
	}
	id := submitted.Request
	if c.Verbose {
		log.Printf("[CAPTCHA] 2Captcha task %s created (%s)", id, ch.Kind)
	}

	query := url.Values{
		"key":    {c.APIKey},
		"action": {"get"},
		"id":     {id},
		"json":   {"1"},
	}
	resultURL := c.BaseURL + "/res.php?" + query.Encode()
	for {
		if err := sleep(ctx, c.PollInterval); err != nil {
			return "", &SolverError{Provider: "2captcha", Message: "timed out waiting for solution", Cause: err}
		}
		var result twoCaptchaResponse
		err := doJSON(ctx, c.Client, "2captcha", func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
		}, &result)
		if err != nil {
			return "", err
		}
		if result.Status == 1 {
			return result.Request, nil
		}
		if result.Request != notReady {
			return "", &SolverError{Provider: "2captcha", Message: "solve failed: " + result.Request}
		}
	}
}
