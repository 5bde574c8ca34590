package purge

import (
	"encoding/json"
	"fmt"
	"strings"

	cloudflare "github.com/cloudflare/cloudflare-go"

	"CFPurge/cfclient"
)

const (
	DefaultSuccessTemplate = "CloudFlare cache has been purged for: {file_count} files"
	AllSuccessMessage      = "CloudFlare cache has been purged for: all files"
	NoFilesMessage         = "No files were found to purge"
	unknownErrorMessage    = "Unknown error"
)

// Result is the outcome of an interpreted response or of a whole Purge call.
type Result struct {
	Success     bool
	Message     string
	Raw         []byte
	Files       []string
	Batches     []BatchResult
	Err         error
	OperationID string
}

// BatchResult is the outcome of one purge_cache request. Skipped batches were never sent.
type BatchResult struct {
	Index   int
	URLs    []string
	Success bool
	Skipped bool
	Message string
	Raw     []byte
	Err     error
}

// Interpret reads a Cloudflare response body. It never panics: anything that is not
// a well-formed success envelope is a failure with a message.
func Interpret(raw []byte) Result {
	var resp cloudflare.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{
			Message: unknownErrorMessage,
			Raw:     raw,
			Err:     fmt.Errorf("%w: %w", cfclient.ErrMalformedResponse, err),
		}
	}
	if resp.Success {
		return Result{Success: true, Raw: raw}
	}

	message := unknownErrorMessage
	if len(resp.Errors) > 0 && strings.TrimSpace(resp.Errors[0].Message) != "" {
		message = resp.Errors[0].Message
	}
	return Result{
		Message: message,
		Raw:     raw,
		Err:     fmt.Errorf("%w: %s", cfclient.ErrProvider, message),
	}
}

// RenderMessage substitutes {file_count} and {files} in template.
func RenderMessage(template string, files []string) string {
	if template == "" {
		template = DefaultSuccessTemplate
	}
	return strings.NewReplacer(
		"{file_count}", fmt.Sprint(len(files)),
		"{files}", strings.Join(files, ", "),
	).Replace(template)
}
