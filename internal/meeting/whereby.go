package meeting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// WherebyClient talks to a Whereby-compatible REST API.
type WherebyClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewWherebyClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *WherebyClient {
	return &WherebyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *WherebyClient) CreateMeeting(ctx context.Context, req CreateRequest) (*Meeting, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode meeting request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/meetings", body)
	if err != nil {
		c.log.Error("create meeting request failed", zap.String("room_prefix", req.RoomNamePrefix), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err := unexpectedStatus("create meeting", resp)
		c.log.Error("create meeting rejected", zap.String("room_prefix", req.RoomNamePrefix), zap.Error(err))
		return nil, err
	}

	var m Meeting
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode meeting: %w", err)
	}
	if m.MeetingID == "" {
		return nil, fmt.Errorf("create meeting: response has no meetingId")
	}
	return &m, nil
}

// DeleteMeeting treats 404 as already deleted.
func (c *WherebyClient) DeleteMeeting(ctx context.Context, meetingID string) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil)
	if err != nil {
		c.log.Error("delete meeting request failed", zap.String("meeting_id", meetingID), zap.Error(err))
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return true, nil
	default:
		err := unexpectedStatus("delete meeting", resp)
		c.log.Error("delete meeting rejected", zap.String("meeting_id", meetingID), zap.Error(err))
		return false, err
	}
}

func (c *WherebyClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func unexpectedStatus(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
