// Package restclient provides the agent's client for the job board HTTP API.
package restclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/saudijob/jobboard/model"
)

// ListOptions represents the paging and filtering options accepted by the
// listing endpoint.
type ListOptions struct {
	Limit int
	Skip  int
	City  string
	Role  string
	Query string
}

// Client calls the job board HTTP API.
type Client struct {
	resty *resty.Client
}

// NewClient creates a new API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{resty: resty.New().SetBaseURL(baseURL)}
}

// ListJobs fetches one page of job postings, newest first.
func (c *Client) ListJobs(ctx context.Context, opts ListOptions) (*model.JobListing, error) {
	request := c.resty.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(opts.Limit)).
		SetQueryParam("skip", strconv.Itoa(opts.Skip))
	if opts.City != "" {
		request.SetQueryParam("city", opts.City)
	}
	if opts.Role != "" {
		request.SetQueryParam("role", opts.Role)
	}
	if opts.Query != "" {
		request.SetQueryParam("q", opts.Query)
	}

	var listing model.JobListing
	response, err := request.SetResult(&listing).SetError(&errorBody{}).Get("/jobs")
	if err != nil {
		return nil, NewTransportError("unable to list job postings: %s", err.Error())
	}
	if response.IsError() {
		return nil, apiError(response)
	}

	return &listing, nil
}

// ListMyPosts fetches one page of the caller's own postings.
func (c *Client) ListMyPosts(ctx context.Context, email string, limit, skip int) (*model.JobListing, error) {
	var listing model.JobListing
	response, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("skip", strconv.Itoa(skip)).
		SetResult(&listing).
		SetError(&errorBody{}).
		Get("/my-posts")
	if err != nil {
		return nil, NewTransportError("unable to list my postings: %s", err.Error())
	}
	if response.IsError() {
		return nil, apiError(response)
	}

	return &listing, nil
}

// CreateJob submits a new job posting.
func (c *Client) CreateJob(ctx context.Context, payload map[string]interface{}) (*model.Job, error) {
	var job model.Job
	response, err := c.resty.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&job).
		SetError(&errorBody{}).
		Post("/jobs")
	if err != nil {
		return nil, NewTransportError("unable to create the job posting: %s", err.Error())
	}
	if response.IsError() {
		return nil, apiError(response)
	}

	return &job, nil
}

// UpdateJob submits changes to a posting owned by the caller.
func (c *Client) UpdateJob(ctx context.Context, id, email string, payload map[string]interface{}) (*model.Job, error) {
	var job model.Job
	response, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetBody(payload).
		SetResult(&job).
		SetError(&errorBody{}).
		Put(fmt.Sprintf("/jobs/%s", id))
	if err != nil {
		return nil, NewTransportError("unable to update the job posting: %s", err.Error())
	}
	if response.IsError() {
		return nil, apiError(response)
	}

	return &job, nil
}

// DeleteJob removes a posting owned by the caller.
func (c *Client) DeleteJob(ctx context.Context, id, email string) error {
	response, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetError(&errorBody{}).
		Delete(fmt.Sprintf("/jobs/%s", id))
	if err != nil {
		return NewTransportError("unable to delete the job posting: %s", err.Error())
	}
	if response.IsError() {
		return apiError(response)
	}

	return nil
}

// IncrementView adds one view to a posting the user opened.
func (c *Client) IncrementView(ctx context.Context, id string) error {
	response, err := c.resty.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/jobs/%s/view", id))
	if err != nil {
		return NewTransportError("unable to increment the view counter: %s", err.Error())
	}
	if response.IsError() {
		return apiError(response)
	}

	return nil
}

// RegisterPush registers a delivery token for push notifications.
func (c *Client) RegisterPush(ctx context.Context, token string, roles []string, platform string) error {
	response, err := c.resty.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"token":    token,
			"roles":    roles,
			"platform": platform,
		}).
		SetError(&errorBody{}).
		Post("/push/register")
	if err != nil {
		return NewTransportError("unable to register for push notifications: %s", err.Error())
	}
	if response.IsError() {
		return apiError(response)
	}

	return nil
}
