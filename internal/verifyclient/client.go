package verifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campus/internal/attendance"
)

// GeofenceResult reports whether coordinates fall inside the campus fence.
type GeofenceResult struct {
	Allowed   bool    `json:"allowed"`
	DistanceM float64 `json:"distance_m"`
}

// NetworkResult reports whether the joined network is a campus network.
type NetworkResult struct {
	Allowed bool   `json:"allowed"`
	SSID    string `json:"ssid"`
}

// VerifyResult contains the 1:1 face verification outcome.
type VerifyResult struct {
	UserID     string  `json:"user_id"`
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
}

// LivenessResult contains the anti-spoofing check outcome.
type LivenessResult struct {
	IsLive     bool    `json:"is_live"`
	Confidence float64 `json:"confidence"`
}

// Client calls the verification microservice that backs the attendance
// gates. With Skip set every check passes with mock results, which is the
// demo behavior for environments without the service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // face processing can take time
		},
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("verification service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("verification service error %s: %s", resp.Status, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Geofence checks coordinates against the campus fence.
func (c *Client) Geofence(ctx context.Context, lat, lng float64) (*GeofenceResult, error) {
	if c.Skip {
		return &GeofenceResult{Allowed: true, DistanceM: 12.5}, nil
	}
	var out GeofenceResult
	if err := c.post(ctx, "/geofence", map[string]float64{"latitude": lat, "longitude": lng}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Network checks the joined SSID against the campus network list.
func (c *Client) Network(ctx context.Context, ssid string) (*NetworkResult, error) {
	if c.Skip {
		return &NetworkResult{Allowed: true, SSID: ssid}, nil
	}
	var out NetworkResult
	if err := c.post(ctx, "/network", map[string]string{"ssid": ssid}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify runs 1:1 face verification of the captured frame against the
// user's enrolled face.
func (c *Client) Verify(ctx context.Context, userID, imageURL string) (*VerifyResult, error) {
	if c.Skip {
		return &VerifyResult{UserID: userID, Verified: true, Similarity: 0.92, Threshold: 0.5}, nil
	}
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}
	var out VerifyResult
	if err := c.post(ctx, "/verify", map[string]string{"user_id": userID, "image_url": imageURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liveness runs the anti-spoofing check on the captured frame.
func (c *Client) Liveness(ctx context.Context, imageURL string) (*LivenessResult, error) {
	if c.Skip {
		return &LivenessResult{IsLive: true, Confidence: 0.97}, nil
	}
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}
	var out LivenessResult
	if err := c.post(ctx, "/liveness", map[string]string{"image_url": imageURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the verification service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("verification service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("verification service unhealthy: %s", resp.Status)
	}
	return nil
}

// Gatekeeper adapts the client to the attendance checker contract, mapping
// each gate to the matching service endpoint.
type Gatekeeper struct {
	client *Client
}

// NewGatekeeper wraps a client.
func NewGatekeeper(client *Client) *Gatekeeper {
	return &Gatekeeper{client: client}
}

// Check verifies one gate using the evidence carried on the session.
func (g *Gatekeeper) Check(ctx context.Context, step attendance.Step, sess attendance.Session) error {
	switch step {
	case attendance.StepLocation:
		res, err := g.client.Geofence(ctx, sess.Evidence.Latitude, sess.Evidence.Longitude)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return fmt.Errorf("outside campus geofence (%.0fm away)", res.DistanceM)
		}
	case attendance.StepNetwork:
		res, err := g.client.Network(ctx, sess.Evidence.NetworkSSID)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return fmt.Errorf("network %q is not a campus network", sess.Evidence.NetworkSSID)
		}
	case attendance.StepBiometric:
		res, err := g.client.Verify(ctx, sess.UserID, sess.Evidence.ImageURL)
		if err != nil {
			return err
		}
		if !res.Verified {
			return fmt.Errorf("face does not match enrollment (similarity %.2f)", res.Similarity)
		}
	case attendance.StepLiveness:
		res, err := g.client.Liveness(ctx, sess.Evidence.ImageURL)
		if err != nil {
			return err
		}
		if !res.IsLive {
			return fmt.Errorf("liveness check failed (confidence %.2f)", res.Confidence)
		}
	default:
		return fmt.Errorf("no check defined for step %q", step)
	}
	return nil
}
