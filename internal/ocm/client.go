package ocm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production On-Call Manager endpoint.
	DefaultBaseURL = "https://oncallmanager.ibm.com"

	// DateLayout is the 8-digit date format the schedules endpoint expects.
	DateLayout = "20060102"
)

// Credentials authenticate one subscription against OCM. The subscription
// identifier is encoded in the username, so it is derived, never stored.
type Credentials struct {
	Username string
	Password string
}

// SubscriptionID returns the tenant identifier: the username up to its first
// "/", or the full username when no "/" is present.
func (c Credentials) SubscriptionID() string {
	if i := strings.Index(c.Username, "/"); i >= 0 {
		return c.Username[:i]
	}
	return c.Username
}

// Client handles communication with the OCM schedules API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OCM API client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Bucket is one top-level unit of the schedules response, nominally one per
// group, though the server does not guarantee that.
type Bucket struct {
	GroupID           string             `json:"GroupId"`
	SchedulingDetails []SchedulingDetail `json:"schedulingDetails"`
}

// SchedulingDetail groups the shifts of one provider group.
type SchedulingDetail struct {
	GroupID  string     `json:"GroupId"`
	Date     FlexString `json:"Date"`
	Timezone *string    `json:"Timezone"`
	Shifts   []Shift    `json:"Shifts"`
}

// Shift is a single on-call assignment interval.
type Shift struct {
	StartTime   string       `json:"StartTime"`
	EndTime     string       `json:"EndTime"`
	UserDetails []UserDetail `json:"UserDetails"`
}

// UserDetail is one assigned user as OCM reports it.
type UserDetail struct {
	FullName     string `json:"FullName"`
	UserID       string `json:"UserId"`
	MobileNumber string `json:"MobileNumber"`
}

// FlexString absorbs the upstream API's inconsistent quoting: the Date field
// arrives sometimes as a string and sometimes as a bare number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// FetchWindow requests every schedule bucket the subscription can see between
// from and to (both inclusive, formatted as 8-digit dates). Exactly one
// attempt is made, no retries. The groupname parameter is a server-side hint
// only; callers always re-filter locally. A non-nil error means the fetch
// failed, as opposed to a confirmed-empty window.
func (c *Client) FetchWindow(ctx context.Context, creds Credentials, from, to time.Time, groupHint string) ([]Bucket, error) {
	endpoint := fmt.Sprintf("%s/api/ocdm/v1/%s/crosssubscriptionschedules",
		c.baseURL, url.PathEscape(creds.SubscriptionID()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	if groupHint != "" {
		q.Set("groupname", groupHint)
	}
	q.Set("from", from.Format(DateLayout))
	q.Set("to", to.Format(DateLayout))
	req.URL.RawQuery = q.Encode()

	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call OCM API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OCM API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return decodeBuckets(body)
}

// decodeBuckets parses the response array bucket by bucket so one malformed
// element cannot discard the rest of the window.
func decodeBuckets(body []byte) ([]Bucket, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	buckets := make([]Bucket, 0, len(raw))
	for _, msg := range raw {
		var b Bucket
		if err := json.Unmarshal(msg, &b); err != nil {
			continue
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}
