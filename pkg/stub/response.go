package stub

import (
	"net/http"
	"time"
)

// ResourceIDHeader is the synthetic response header carrying a lifecycle's resource id.
const ResourceIDHeader = "x-stubby-resource-id"

// FailedToLoadFileMessage replaces a response body whose 'file' reference could not be read.
const FailedToLoadFileMessage = "Failed to load response content using relative path specified in 'file' during YAML parse time. " +
	"Check terminal for warnings, and that response content exists in relative path specified in 'file'"

// Response is one HTTP response of a lifecycle.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
	// File is the 'file' reference as written in YAML.
	File    string
	Latency time.Duration
	// ResourceID is shared by every response of the same lifecycle.
	ResourceID int
}

// NewResponse applies defaults to r.
func NewResponse(r Response) *Response {
	out := r
	if out.Status == 0 {
		out.Status = http.StatusOK
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return &out
}
