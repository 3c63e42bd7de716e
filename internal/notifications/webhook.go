package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pairstats/analytics-backend/internal/httputil"
)

type Sender struct {
	webhookURL  string
	serviceName string
	httpClient  *http.Client
	retry       httputil.RetryConfig
}

func NewSender(webhookURL, serviceName string) *Sender {
	if serviceName == "" {
		serviceName = "PairStatsAnalytics"
	}
	return &Sender{
		webhookURL:  webhookURL,
		serviceName: serviceName,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.serviceName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("[CHAT ERROR] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[CHAT ERROR] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

// SendDrawdownAlert formats the drawdown-breach message the monitor fires.
// currentPct and thresholdPct are negative-magnitude percentages.
func (s *Sender) SendDrawdownAlert(accounts []string, currentPct, thresholdPct float64, windowStart string) {
	s.Send(fmt.Sprintf(
		"DRAWDOWN ALERT: merged drawdown %.2f%% breached the -%.2f%% threshold (accounts: %s, since %s)",
		currentPct, thresholdPct, strings.Join(accounts, ", "), windowStart,
	))
}

// SendDrawdownRecovered announces the monitor re-arming after equity
// climbed back inside the re-arm band.
func (s *Sender) SendDrawdownRecovered(accounts []string, currentPct float64) {
	s.Send(fmt.Sprintf(
		"Drawdown recovered to %.2f%% (accounts: %s), alerting re-armed",
		currentPct, strings.Join(accounts, ", "),
	))
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.serviceName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.serviceName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
