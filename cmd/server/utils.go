package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/exdock/exdock"
)

// APIResponse is the standard response format.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathInt(r *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s path segment: %w", name, err)
	}
	return value, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s query parameter", name)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s query parameter: %w", name, err)
	}
	return value, nil
}

// scopeFromQuery builds the scope key from ?level=&websiteId=&storeViewId=.
// A missing level means global.
func scopeFromQuery(r *http.Request) (exdock.ScopeKey, error) {
	level := r.URL.Query().Get("level")
	if level == "" {
		return exdock.GlobalScope(), nil
	}
	parsed, err := exdock.ParseScopeLevel(level)
	if err != nil {
		return exdock.ScopeKey{}, err
	}
	switch parsed {
	case exdock.ScopeWebsite:
		websiteID, err := queryInt(r, "websiteId")
		if err != nil {
			return exdock.ScopeKey{}, err
		}
		return exdock.WebsiteScope(websiteID), nil
	case exdock.ScopeStoreView:
		storeViewID, err := queryInt(r, "storeViewId")
		if err != nil {
			return exdock.ScopeKey{}, err
		}
		return exdock.StoreViewScope(storeViewID), nil
	default:
		return exdock.GlobalScope(), nil
	}
}

// statusForError maps the catalog error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch exdock.CodeOf(err) {
	case exdock.ErrCodeNotFound, exdock.ErrCodeUnknownOperation, exdock.ErrCodeUnknownCacheKey:
		return http.StatusNotFound
	case exdock.ErrCodeDuplicateKey, exdock.ErrCodeAttributeInUse, exdock.ErrCodeOptionInUse:
		return http.StatusConflict
	case exdock.ErrCodeInvalidDefinition, exdock.ErrCodeTypeMismatch, exdock.ErrCodeScopeMismatch,
		exdock.ErrCodeUnknownOption, exdock.ErrCodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
