package statusclient

import (
	"context"
	"time"

	"github.com/cumulus-hpc/controller/job"
	"github.com/go-resty/resty/v2"
)

// Client is the HTTP client for the metadata service's job endpoints.
type Client struct {
	http *resty.Client
}

// Config controls the underlying resty.Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New builds a Client against cfg.BaseURL.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

// GetJob fetches the current state of the job with id, authenticating
// with token.
func (c *Client) GetJob(ctx context.Context, id, token string) (*job.Job, error) {
	var j job.Job
	url := "/jobs/" + id
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Girder-Token", token).
		SetResult(&j).
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &StatusError{Method: "GET", URL: url, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return &j, nil
}

// GetStatus fetches only the current status of the job with id,
// authenticating with token. Monitors poll this endpoint rather than
// GetJob on every tick since it is all they need to detect a
// terminating/terminated job and it is far cheaper for the metadata
// service to answer.
func (c *Client) GetStatus(ctx context.Context, id, token string) (job.Status, error) {
	var body struct {
		Status job.Status `json:"status"`
	}
	url := "/jobs/" + id + "/status"
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Girder-Token", token).
		SetResult(&body).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", &StatusError{Method: "GET", URL: url, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return body.Status, nil
}

// PatchJob merges fields into the job with id, authenticating with
// token. fields is sent verbatim as the PATCH body, matching the
// metadata service's partial-update semantics; callers build exactly
// one map per tick so a job's status only ever advances through one
// write, never several that could interleave with a concurrent ticker.
func (c *Client) PatchJob(ctx context.Context, id, token string, fields map[string]any) error {
	url := "/jobs/" + id
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Girder-Token", token).
		SetBody(fields).
		Patch(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &StatusError{Method: "PATCH", URL: url, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
