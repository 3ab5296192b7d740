package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpTimeout = 5 * time.Second

func apiCreateRoom(baseURL, username string) (*roomCreatedResponse, error) {
	payload := usernameRequest{Username: username}
	var resp roomCreatedResponse
	if err := doJSONRequest(http.MethodPost, baseURL+"/comuni/rooms", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func apiJoinRoom(baseURL, roomID, username string) (*roomJoinResponse, error) {
	payload := usernameRequest{Username: username}
	path := baseURL + "/comuni/rooms/" + url.PathEscape(roomID) + "/join"
	var resp roomJoinResponse
	if err := doJSONRequest(http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func apiRoomInfo(baseURL, roomID string) (*roomInfoResponse, error) {
	path := baseURL + "/comuni/rooms/" + url.PathEscape(roomID)
	var resp roomInfoResponse
	if err := doJSONRequest(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func apiCloseRoom(baseURL, roomID, username string) error {
	payload := usernameRequest{Username: username}
	path := baseURL + "/comuni/rooms/" + url.PathEscape(roomID)
	return doJSONRequest(http.MethodDelete, path, payload, nil)
}

func doJSONRequest(method, endpoint string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(buf)
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

// httpBase normalizes the configured server URL into an http(s) origin with
// no path, accepting ws:// and wss:// spellings too.
func httpBase(serverURL string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http", "https":
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %s", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}
