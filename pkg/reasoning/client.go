package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
	"agentdesk/pkg/telemetry"
)

// Client calls the remote reasoning service over HTTP. Construct one per
// process with NewClient; the embedded cooldown is deliberately shared by
// everything that triages through it.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	httpc    *fasthttp.Client
	cooldown *Cooldown
}

// Options configure the client.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
	// Now overrides the cooldown clock (tests).
	Now func() time.Time
}

// NewClient builds a reasoning client. Credential presence is checked once
// here: with no API key every call fails ErrUnavailable without I/O.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "triage-small"
	}
	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    opts.Model,
		apiKey:   strings.TrimSpace(opts.APIKey),
		timeout:  opts.Timeout,
		httpc:    &fasthttp.Client{Name: "agentdesk"},
		cooldown: NewCooldown(opts.Now),
	}
}

// Cooldown exposes the gate for observability and tests.
func (c *Client) Cooldown() *Cooldown { return c.cooldown }

// call posts a JSON request for op and decodes the JSON response into out.
// It owns the whole error taxonomy: credential and cooldown checks happen
// before any network I/O, and rate-limited failures arm the cooldown.
func (c *Client) call(ctx context.Context, op string, in, out any) error {
	if c.apiKey == "" || c.endpoint == "" {
		return ErrUnavailable
	}
	if c.cooldown.Active() {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return &ReasoningError{Op: op, Err: err}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return &ReasoningError{Op: op, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + "/v1/triage/" + op)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	if err := c.httpc.DoTimeout(req, resp, c.timeout); err != nil {
		return c.fail(op, 0, err.Error(), err)
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK {
		return c.fail(op, status, string(resp.Body()), nil)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ReasoningError{Op: op, Msg: "invalid response JSON", Err: err}
	}
	return nil
}

// fail wraps a remote failure, arming the cooldown when it looks like rate
// limiting.
func (c *Client) fail(op string, status int, msg string, err error) error {
	re := &ReasoningError{Op: op, Status: status, Msg: msg, Err: err}
	if looksRateLimited(status, msg) {
		re.RateLimited = true
		c.cooldown.Arm()
		telemetry.CooldownTrips.Inc()
		logger.Warn("reasoning_cooldown_armed", "op", op, "status", status)
	}
	return re
}

type classifyRequest struct {
	Model   string        `json:"model"`
	Ticket  TicketContent `json:"ticket"`
	Allowed []string      `json:"allowed_categories"`
}

func (c *Client) Classify(ctx context.Context, tc TicketContent) (ClassifyResult, error) {
	var out ClassifyResult
	req := classifyRequest{
		Model:   c.model,
		Ticket:  tc,
		Allowed: []string{"billing", "bug", "feature_request", "general"},
	}
	if err := c.call(ctx, "classify", req, &out); err != nil {
		return ClassifyResult{}, err
	}
	if !models.ValidCategory(out.Category) {
		return ClassifyResult{}, &ReasoningError{Op: "classify", Msg: fmt.Sprintf("unknown category %q", out.Category)}
	}
	return out, nil
}

type prioritizeRequest struct {
	Model    string                `json:"model"`
	Ticket   TicketContent         `json:"ticket"`
	Category models.TicketCategory `json:"category"`
}

func (c *Client) Prioritize(ctx context.Context, tc TicketContent, category models.TicketCategory) (PrioritizeResult, error) {
	var out PrioritizeResult
	req := prioritizeRequest{Model: c.model, Ticket: tc, Category: category}
	if err := c.call(ctx, "prioritize", req, &out); err != nil {
		return PrioritizeResult{}, err
	}
	if !models.ValidPriority(out.Priority) {
		return PrioritizeResult{}, &ReasoningError{Op: "prioritize", Msg: fmt.Sprintf("unknown priority %q", out.Priority)}
	}
	return out, nil
}

type assigneeRequest struct {
	Model    string                `json:"model"`
	Ticket   TicketContent         `json:"ticket"`
	Category models.TicketCategory `json:"category"`
	Priority models.TicketPriority `json:"priority"`
	Team     []models.Member       `json:"team"`
}

func (c *Client) SuggestAssignee(ctx context.Context, tc TicketContent, category models.TicketCategory, priority models.TicketPriority, team []models.Member) (AssigneeResult, error) {
	var out AssigneeResult
	req := assigneeRequest{Model: c.model, Ticket: tc, Category: category, Priority: priority, Team: team}
	if err := c.call(ctx, "suggest_assignee", req, &out); err != nil {
		return AssigneeResult{}, err
	}
	// an unknown suggested id is a contract violation, not a null suggestion
	if out.AssigneeID != "" {
		known := false
		for _, m := range team {
			if m.ID == out.AssigneeID {
				known = true
				break
			}
		}
		if !known {
			return AssigneeResult{}, &ReasoningError{Op: "suggest_assignee", Msg: fmt.Sprintf("suggested unknown member %q", out.AssigneeID)}
		}
	}
	return out, nil
}

type draftRequest struct {
	Model        string                `json:"model"`
	Ticket       TicketContent         `json:"ticket"`
	Category     models.TicketCategory `json:"category"`
	Priority     models.TicketPriority `json:"priority"`
	CustomerName string                `json:"customer_name,omitempty"`
}

func (c *Client) DraftReply(ctx context.Context, tc TicketContent, category models.TicketCategory, priority models.TicketPriority, customerName string) (DraftResult, error) {
	var out DraftResult
	req := draftRequest{Model: c.model, Ticket: tc, Category: category, Priority: priority, CustomerName: customerName}
	if err := c.call(ctx, "draft_reply", req, &out); err != nil {
		return DraftResult{}, err
	}
	if strings.TrimSpace(out.ReplyBody) == "" {
		return DraftResult{}, &ReasoningError{Op: "draft_reply", Msg: "empty reply body"}
	}
	return out, nil
}

var _ Service = (*Client)(nil)
