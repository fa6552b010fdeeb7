// Package probe implements the external monitoring agent: it pings every
// registered device on an interval and reports the results to the Vigil
// server's ingest API.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/device"
	"github.com/HerbHall/vigil/pkg/models"
)

// Config holds the agent's settings.
type Config struct {
	ServerURL   string
	APIKey      string
	Interval    time.Duration
	PingTimeout time.Duration
	PingCount   int
	Concurrency int
}

// Agent runs the check loop against one Vigil server.
type Agent struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

// NewAgent creates an agent. It does not contact the server until Run.
func NewAgent(cfg Config, logger *zap.Logger) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.PingCount <= 0 {
		cfg.PingCount = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Agent{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Run executes check rounds until the context is cancelled. The first round
// starts immediately.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := a.runRound(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Warn("check round failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runRound fetches the device list, pings every device, and posts the
// results.
func (a *Agent) runRound(ctx context.Context) error {
	devices, err := a.fetchDevices(ctx)
	if err != nil {
		return fmt.Errorf("fetch devices: %w", err)
	}
	if len(devices) == 0 {
		a.logger.Debug("no devices registered, skipping round")
		return nil
	}

	results := a.checkAll(ctx, devices)
	if err := a.postResults(ctx, results); err != nil {
		return fmt.Errorf("post results: %w", err)
	}

	a.logger.Info("check round completed",
		zap.Int("devices", len(devices)),
		zap.Int("results", len(results)),
	)
	return nil
}

// checkAll pings the devices with bounded concurrency, preserving input
// order in the result slice.
func (a *Agent) checkAll(ctx context.Context, devices []models.Device) []device.StatusReport {
	results := make([]device.StatusReport, len(devices))
	sem := make(chan struct{}, a.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, d := range devices {
		select {
		case <-ctx.Done():
			// Let in-flight checks finish writing their slots before the
			// partial slice is read.
			wg.Wait()
			return results[:i]
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, d models.Device) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = a.checkDevice(ctx, d)
		}(i, d)
	}

	wg.Wait()
	return results
}

// checkDevice pings one device and builds its status report.
func (a *Agent) checkDevice(ctx context.Context, d models.Device) device.StatusReport {
	report := device.StatusReport{
		DeviceID:  d.ID,
		Status:    models.DeviceStatusOffline,
		CheckedAt: time.Now().UTC(),
	}

	alive, rtt := a.ping(ctx, d.IPAddress)
	if alive {
		report.Status = models.DeviceStatusOnline
		ms := float64(rtt.Microseconds()) / 1000.0
		report.ResponseTimeMs = &ms
	}
	return report
}

func (a *Agent) ping(ctx context.Context, ip string) (alive bool, rtt time.Duration) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		a.logger.Debug("failed to create pinger", zap.String("ip", ip), zap.Error(err))
		return false, 0
	}

	pinger.Count = a.cfg.PingCount
	pinger.Timeout = a.cfg.PingTimeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			a.logger.Debug("ping failed", zap.String("ip", ip), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false, 0
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt
	}
	return false, 0
}

// fetchDevices lists the registered devices from the server.
func (a *Agent) fetchDevices(ctx context.Context) ([]models.Device, error) {
	resp, err := a.doAuthed(ctx, http.MethodGet, "/api/v1/devices", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var devices []models.Device
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}
	return devices, nil
}

// postResults submits one round's reports to the ingest API.
func (a *Agent) postResults(ctx context.Context, results []device.StatusReport) error {
	if len(results) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	resp, err := a.doAuthed(ctx, http.MethodPost, "/api/v1/ingest/results", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

// doAuthed performs an authenticated request, exchanging the API key for a
// fresh token once on 401.
func (a *Agent) doAuthed(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := a.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	if err := a.refreshToken(ctx); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return a.do(ctx, method, path, body)
}

func (a *Agent) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.ServerURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return a.client.Do(req)
}

// refreshToken exchanges the API key for a JWT.
func (a *Agent) refreshToken(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"api_key": a.cfg.APIKey})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.ServerURL+"/api/v1/auth/token", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	a.mu.Lock()
	a.token = tokenResp.Token
	a.mu.Unlock()
	a.logger.Debug("agent token refreshed")
	return nil
}
