package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meeting-assistant/internal/models"
	"meeting-assistant/internal/scheduling"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/pkg/errors"
)

const (
	MsgNetwork    = "无法连接到服务器，请检查网络连接或稍后重试。"
	MsgUnexpected = "发生意外错误，请稍后重试。"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindStatus
)

// RequestError is a failed call, classified for display.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindNetwork:
		return MsgNetwork
	case KindStatus:
		return fmt.Sprintf("服务器错误: %d", e.StatusCode)
	default:
		return MsgUnexpected
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// classify sorts a transport error into network or unknown.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return &RequestError{Kind: KindUnknown, Err: err}
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &RequestError{Kind: KindNetwork, Err: err}
	}
	return &RequestError{Kind: KindUnknown, Err: err}
}

// Client calls the assistant's REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) sendRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Kind: KindUnknown, Err: err}
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return &RequestError{Kind: KindUnknown, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}
	if resp.StatusCode >= 400 {
		return &RequestError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("%s %s: %s - %s", method, path, resp.Status, string(respBody)),
		}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &RequestError{Kind: KindUnknown, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

// --- Meetings ---

func (c *Client) FetchMeetings(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	if err := c.sendRequest(ctx, http.MethodGet, "/meetings", nil, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (c *Client) CreateMeeting(ctx context.Context, req pkgmodels.MeetingRequest) (*models.Meeting, error) {
	var m models.Meeting
	if err := c.sendRequest(ctx, http.MethodPost, "/meetings", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// --- Mock users ---

func (c *Client) GetMockUsers(ctx context.Context) ([]models.MockUser, error) {
	var users []models.MockUser
	err := c.sendRequest(ctx, http.MethodGet, "/api/mock/users", nil, &users)
	return users, err
}

func (c *Client) GetUserSchedule(ctx context.Context, userID string) ([]models.Availability, error) {
	var slots []models.Availability
	err := c.sendRequest(ctx, http.MethodGet, "/api/mock/users/"+url.PathEscape(userID)+"/schedule", nil, &slots)
	return slots, err
}

func (c *Client) GetConversationHistory(ctx context.Context, userID string) ([]models.ConversationMessage, error) {
	var msgs []models.ConversationMessage
	err := c.sendRequest(ctx, http.MethodGet, "/api/mock/conversation/"+url.PathEscape(userID), nil, &msgs)
	return msgs, err
}

// --- Assistant ---

func (c *Client) EndDialogue(ctx context.Context, dialogueType string) (*pkgmodels.EndDialogueResponse, error) {
	var resp pkgmodels.EndDialogueResponse
	if err := c.sendRequest(ctx, http.MethodPost, "/end_dialogue", pkgmodels.EndDialogueRequest{Type: dialogueType}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp pkgmodels.ChatResponse
	if err := c.sendRequest(ctx, http.MethodPost, "/api/chat", pkgmodels.ChatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// --- Scheduling runs ---

func (c *Client) StartRun(ctx context.Context, req scheduling.StartRequest) (*scheduling.Snapshot, error) {
	var snap scheduling.Snapshot
	if err := c.sendRequest(ctx, http.MethodPost, "/api/schedule/runs", req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*scheduling.Snapshot, error) {
	var snap scheduling.Snapshot
	if err := c.sendRequest(ctx, http.MethodGet, "/api/schedule/runs/"+url.PathEscape(id), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) SimulateError(ctx context.Context, id string, index int) error {
	return c.sendRequest(ctx, http.MethodPost, "/api/schedule/runs/"+url.PathEscape(id)+"/error", map[string]int{"index": index}, nil)
}

func (c *Client) CompleteIntervention(ctx context.Context, id string) (*scheduling.Step, error) {
	var step scheduling.Step
	if err := c.sendRequest(ctx, http.MethodPost, "/api/schedule/runs/"+url.PathEscape(id)+"/intervention", nil, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

func (c *Client) ReorderContactMethods(ctx context.Context, id string, from, to int) ([]scheduling.ContactMethod, error) {
	var methods []scheduling.ContactMethod
	body := map[string]int{"from": from, "to": to}
	if err := c.sendRequest(ctx, http.MethodPost, "/api/schedule/runs/"+url.PathEscape(id)+"/contact-methods/reorder", body, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}
