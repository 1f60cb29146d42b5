package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

// GraphQLRequest is one operation request in the GraphQL-over-HTTP shape.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// requestError rejects a request before any operation runs.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// parseRequest reads the operations of r. batch reports a JSON array body,
// answered with an array even when it holds one operation.
func parseRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (reqs []GraphQLRequest, batch bool, err error) {
	if r.Method == http.MethodGet {
		req, err := parseQueryString(r)
		if err != nil {
			return nil, false, err
		}
		return []GraphQLRequest{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return nil, false, &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
		}
	}
	body, err := readBody(w, r, maxBody)
	if err != nil {
		return nil, false, err
	}

	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, false, badRequest("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, badRequest("empty batch")
		}
		for _, req := range reqs {
			if req.Query == "" {
				return nil, false, badRequest("missing 'query'")
			}
		}
		return reqs, true, nil
	}

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	return []GraphQLRequest{req}, false, nil
}

func parseQueryString(r *http.Request) (GraphQLRequest, error) {
	values := r.URL.Query()
	req := GraphQLRequest{
		Query:         values.Get("query"),
		OperationName: values.Get("operationName"),
	}
	if req.Query == "" {
		return req, badRequest("missing 'query'")
	}
	if v := values.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return req, badRequest("invalid 'variables' JSON")
		}
	}
	return req, nil
}

func readBody(w http.ResponseWriter, r *http.Request, maxBody int64) ([]byte, error) {
	defer r.Body.Close()
	var reader io.Reader = r.Body
	if maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
		}
		return nil, badRequest("failed to read body")
	}
	return body, nil
}
