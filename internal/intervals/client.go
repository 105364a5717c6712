// Package intervals talks to the Intervals.icu HTTP API and translates its
// records into the canonical activity shape.
package intervals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotConfigured indicates the API key or athlete id is missing.
	ErrNotConfigured = errors.New("intervals: api key or athlete id not configured")
	// ErrUnauthorized indicates the API key was rejected upstream.
	ErrUnauthorized = errors.New("intervals: invalid api key or unauthorized access")
	// ErrAthleteNotFound indicates the configured athlete id does not exist upstream.
	ErrAthleteNotFound = errors.New("intervals: athlete not found")
	// ErrTimeout indicates the upstream request did not complete in time.
	ErrTimeout = errors.New("intervals: request timeout")
)

// UpstreamError carries a non-success status the API returned that is not
// covered by a more specific sentinel.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("intervals: api request failed with status %d", e.StatusCode)
}

// basicAuthUser is the fixed username Intervals.icu expects; the API key is
// the password.
const basicAuthUser = "API_KEY"

const (
	defaultProbeTimeout = 10 * time.Second
	defaultFetchTimeout = 30 * time.Second
)

// Config holds the connection settings for a Client.
type Config struct {
	BaseURL      string
	APIKey       string
	AthleteID    string
	ProbeTimeout time.Duration // zero means the 10s default
	FetchTimeout time.Duration // zero means the 30s default
}

// Client issues authenticated requests against the Intervals.icu API.
// Construct one per process and pass it to whatever needs upstream access.
type Client struct {
	baseURL      string
	apiKey       string
	athleteID    string
	probeTimeout time.Duration
	fetchTimeout time.Duration
	http         *http.Client
}

// NewClient constructs a Client from explicit configuration.
func NewClient(cfg Config) *Client {
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = defaultProbeTimeout
	}
	fetch := cfg.FetchTimeout
	if fetch <= 0 {
		fetch = defaultFetchTimeout
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		athleteID:    cfg.AthleteID,
		probeTimeout: probe,
		fetchTimeout: fetch,
		http:         &http.Client{},
	}
}

// Configured reports whether both the API key and athlete id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.athleteID != ""
}

// TestConnection probes the athlete endpoint with a short timeout. It returns
// false on any failure and never returns an error.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.Configured() {
		logrus.Warn("intervals: missing api key or athlete id")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/athlete/%s", c.baseURL, c.athleteID), nil)
	if err != nil {
		logrus.WithError(err).Error("intervals: failed to build probe request")
		return false
	}
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		logrus.WithError(err).Error("intervals: connection test failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logrus.WithFields(logrus.Fields{"status": resp.StatusCode, "body": string(body)}).Error("intervals: connection test rejected")
		return false
	}

	logrus.Info("intervals: connection test succeeded")
	return true
}

// FetchActivities requests a bounded page of raw activities, optionally
// constrained to an inclusive date range. The records are returned as parsed
// by the API, untranslated; callers normalize them individually.
func (c *Client) FetchActivities(ctx context.Context, oldest, newest *time.Time, limit int) ([]RawActivity, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	if oldest != nil {
		params.Set("oldest", oldest.Format("2006-01-02"))
	}
	if newest != nil {
		params.Set("newest", newest.Format("2006-01-02"))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/athlete/%s/activities", c.baseURL, c.athleteID)
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	logrus.WithField("url", endpoint).Info("intervals: fetching activities")

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			logrus.Error("intervals: timeout while fetching activities")
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		logrus.Error("intervals: unauthorized, check the api key")
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		logrus.Error("intervals: athlete not found, check the athlete id")
		return nil, ErrAthleteNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logrus.WithFields(logrus.Fields{"status": resp.StatusCode, "body": string(body)}).Error("intervals: fetch rejected")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("intervals: decoding activities: %w", err)
	}

	// Records are decoded one at a time so a single malformed record cannot
	// fail the whole page. A record that won't unmarshal degrades to an
	// id-less placeholder; the sync loop skips it but still counts it.
	activities := make([]RawActivity, 0, len(page))
	for _, item := range page {
		var raw RawActivity
		if err := json.Unmarshal(item, &raw); err != nil {
			logrus.WithError(err).Warn("intervals: dropping malformed activity record")
			raw = RawActivity{}
		}
		activities = append(activities, raw)
	}

	logrus.WithField("count", len(activities)).Info("intervals: fetched activities")
	return activities, nil
}

func (c *Client) authenticate(req *http.Request) {
	req.SetBasicAuth(basicAuthUser, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
