package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Chat errors (2000-2999)
	ErrChatMessageNotFound   = 2000
	ErrChatAlreadyResponding = 2001
	ErrChatStreamFailed      = 2002
	ErrChatBackendUnavail    = 2003
	ErrChatInvalidEvent      = 2004
	ErrChatThreadNotFound    = 2005

	// Research errors (3000-3999)
	ErrResearchNotFound = 3000

	// History errors (4000-4999)
	ErrHistoryNotFound      = 4000
	ErrHistoryStorageFailed = 4001

	// Persistence errors (5000-5999)
	ErrPersistenceFailed   = 5000
	ErrPersistenceInactive = 5001

	// Podcast errors (6000-6999)
	ErrPodcastGenerateFailed = 6000
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Chat errors
	ErrChatMessageNotFound:   {ErrChatMessageNotFound, http.StatusNotFound, "Message not found"},
	ErrChatAlreadyResponding: {ErrChatAlreadyResponding, http.StatusConflict, "A response is already in progress"},
	ErrChatStreamFailed:      {ErrChatStreamFailed, http.StatusBadGateway, "Chat stream failed"},
	ErrChatBackendUnavail:    {ErrChatBackendUnavail, http.StatusBadGateway, "Chat backend unavailable"},
	ErrChatInvalidEvent:      {ErrChatInvalidEvent, http.StatusBadRequest, "Invalid stream event"},
	ErrChatThreadNotFound:    {ErrChatThreadNotFound, http.StatusNotFound, "Thread not found"},

	// Research errors
	ErrResearchNotFound: {ErrResearchNotFound, http.StatusNotFound, "Research not found"},

	// History errors
	ErrHistoryNotFound:      {ErrHistoryNotFound, http.StatusNotFound, "History entry not found"},
	ErrHistoryStorageFailed: {ErrHistoryStorageFailed, http.StatusInternalServerError, "History storage operation failed"},

	// Persistence errors
	ErrPersistenceFailed:   {ErrPersistenceFailed, http.StatusInternalServerError, "Persistence operation failed"},
	ErrPersistenceInactive: {ErrPersistenceInactive, http.StatusServiceUnavailable, "Persistence bridge inactive"},

	// Podcast errors
	ErrPodcastGenerateFailed: {ErrPodcastGenerateFailed, http.StatusInternalServerError, "Podcast generation failed"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
