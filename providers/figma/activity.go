package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-flowsteps/core"
)

const secondsPerDay = 86400

// ParseFileKey extracts the file key from a Figma file URL. Both the legacy
// /file/<key> and the current /design/<key> layouts are accepted.
func ParseFileKey(fileURL string) (string, error) {
	fileURL = strings.TrimSpace(fileURL)
	if fileURL == "" {
		return "", core.ValidationError("file url is required")
	}
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", core.ValidationError("file url is not a valid url")
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment != "file" && segment != "design" {
			continue
		}
		if i+1 < len(segments) {
			if key := strings.TrimSpace(segments[i+1]); key != "" {
				return key, nil
			}
		}
		break
	}
	return "", core.ValidationError("file url does not contain a file key, expected /file/<key> or /design/<key>")
}

// activityPage is the activity-log endpoint's JSON body.
type activityPage struct {
	Error   bool   `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Meta    struct {
		ActivityLogs []core.ActivityLogEvent `json:"activity_logs"`
		Cursor       string                  `json:"cursor"`
		NextPage     bool                    `json:"next_page"`
	} `json:"meta"`
}

// FetchActivity pulls one page of organization activity logs and keeps only
// the events whose main file key matches the requested file.
func (p *Provider) FetchActivity(ctx context.Context, in core.FetchActivityInput) (core.FetchActivityResult, error) {
	if p == nil {
		return core.FetchActivityResult{}, fmt.Errorf("figma: provider is nil")
	}
	accessToken := strings.TrimSpace(in.AccessToken)
	if accessToken == "" {
		return core.FetchActivityResult{}, core.ConfigError("access token is required")
	}
	fileKey, err := ParseFileKey(in.FileURL)
	if err != nil {
		return core.FetchActivityResult{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := p.cfg.Now().UTC()
	endTime := now.Unix()
	startTime := endTime - int64(in.DateRange.Days())*secondsPerDay

	values := url.Values{}
	if len(in.Events) > 0 {
		events := make([]string, 0, len(in.Events))
		for _, event := range in.Events {
			if event = strings.TrimSpace(event); event != "" {
				events = append(events, event)
			}
		}
		if len(events) > 0 {
			values.Set("events", strings.Join(events, ","))
		}
	}
	values.Set("start_time", strconv.FormatInt(startTime, 10))
	values.Set("end_time", strconv.FormatInt(endTime, 10))
	if in.Limit > 0 {
		values.Set("limit", strconv.Itoa(in.Limit))
	}
	if order := strings.TrimSpace(in.Order); order != "" {
		values.Set("order", order)
	}
	if cursor := strings.TrimSpace(in.Cursor); cursor != "" {
		values.Set("cursor", cursor)
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodGet,
		p.cfg.ActivityURL+"?"+values.Encode(),
		nil,
	)
	if err != nil {
		return core.FetchActivityResult{}, core.TransportError(err, "figma: build activity request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return core.FetchActivityResult{}, core.TransportError(err, "figma: activity request failed")
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return core.FetchActivityResult{}, core.TransportError(readErr, "figma: read activity response")
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return core.FetchActivityResult{}, core.TransportError(nil, fmt.Sprintf("figma: activity response exceeds %d bytes", maxResponseBodyBytes))
	}

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return core.FetchActivityResult{}, core.AuthExpiredError("figma rejected the access token, reconnect the account")
	case response.StatusCode == http.StatusForbidden:
		return core.FetchActivityResult{}, core.PermissionError("figma denied activity log access, an organization plan is required")
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return core.FetchActivityResult{}, core.UpstreamError(
			fmt.Sprintf("figma activity endpoint returned %d: %s", response.StatusCode, summarizeBody(body)),
			response.StatusCode,
		)
	}

	var page activityPage
	if err := json.Unmarshal(body, &page); err != nil {
		return core.FetchActivityResult{}, core.TransportError(err, "figma: decode activity response")
	}
	if page.Error {
		return core.FetchActivityResult{}, core.UpstreamError(
			"figma activity endpoint error: "+summarizePageError(page),
			page.Status,
		)
	}

	logs := make([]core.ActivityLogEvent, 0, len(page.Meta.ActivityLogs))
	for _, event := range page.Meta.ActivityLogs {
		if event.MainFileKey() == fileKey {
			logs = append(logs, event)
		}
	}

	return core.FetchActivityResult{
		FileKey:   fileKey,
		Logs:      logs,
		Cursor:    strings.TrimSpace(page.Meta.Cursor),
		HasMore:   page.Meta.NextPage,
		StartTime: startTime,
		EndTime:   endTime,
	}, nil
}

func summarizePageError(page activityPage) string {
	if message := strings.TrimSpace(page.Message); message != "" {
		return message
	}
	return "unknown error"
}

func summarizeBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if message := strings.TrimSpace(payload.Message); message != "" {
			return message
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	if trimmed == "" {
		return "empty body"
	}
	return trimmed
}
