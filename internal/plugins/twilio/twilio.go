package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Team-Zemo/omninet-core-sub000/internal/config"
)

type TwilioClient struct {
	SID       string
	Token     string
	VerifySID string
}

func NewTwilioClient(
	cfg config.TwilioConfig,
) *TwilioClient {
	return &TwilioClient{
		SID:       cfg.SID,
		Token:     cfg.Token,
		VerifySID: cfg.VerifySID,
	}
}

func (t *TwilioClient) SendOTP(ctx context.Context, email string) error {
	apiURL := fmt.Sprintf("https://verify.twilio.com/v2/Services/%s/Verifications", t.VerifySID)

	data := url.Values{}
	data.Set("To", email)
	data.Set("Channel", "email")

	req, _ := http.NewRequestWithContext(ctx, "POST", apiURL, strings.NewReader(data.Encode()))
	req.SetBasicAuth(t.SID, t.Token)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio error: status %d", resp.StatusCode)
	}
	return nil
}

func (t *TwilioClient) VerifyOTP(ctx context.Context, email, code string) (bool, error) {
	apiURL := fmt.Sprintf("https://verify.twilio.com/v2/Services/%s/VerificationCheck", t.VerifySID)

	data := url.Values{}
	data.Set("To", email)
	data.Set("Code", code)

	req, _ := http.NewRequestWithContext(ctx, "POST", apiURL, strings.NewReader(data.Encode()))
	req.SetBasicAuth(t.SID, t.Token)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	return result.Status == "approved", nil
}
