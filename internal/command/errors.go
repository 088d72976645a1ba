package command

import (
	"errors"
	"fmt"
	"html"

	"pkt.systems/qult/schema"
)

// UsageError reports a command invoked without its required argument.
// Notice usage hints render as system output rather than errors.
type UsageError struct {
	Command string
	// Usage is the rendered HTML hint.
	Usage  string
	Notice bool
}

func (e *UsageError) Error() string {
	return "usage: " + e.Command
}

// ValidationError reports an argument that failed validation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports an unknown command token or a missing resource.
type NotFoundError struct {
	Command  string
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("resource %q not found", e.Resource)
	}
	return fmt.Sprintf("command %q not found", e.Command)
}

func (e *NotFoundError) Unwrap() error {
	return schema.ErrNotFound
}

// PermissionError reports a restricted command.
type PermissionError struct {
	Command string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Command)
}

// FetchError reports a content source failure other than not found.
type FetchError struct {
	ID       string
	Resource bool
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DispatchError reports an unexpected handler failure, panics included.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing HTML text for err.
func Message(err error) string {
	var (
		usage      *UsageError
		validation *ValidationError
		notFound   *NotFoundError
		permission *PermissionError
		fetch      *FetchError
	)
	switch {
	case errors.As(err, &usage):
		return usage.Usage
	case errors.As(err, &validation):
		return html.EscapeString(validation.Reason)
	case errors.As(err, &notFound):
		if notFound.Resource != "" {
			return "resource not found."
		}
		return "command not found: <code>" + html.EscapeString(notFound.Command) + "</code>"
	case errors.As(err, &permission):
		return "You don't have permissions to perform this command"
	case errors.As(err, &fetch):
		if fetch.Resource {
			return "Unable to load resource right now."
		}
		return "Content is unavailable right now."
	default:
		return "Command failed. Please try again."
	}
}

// Variant returns the output variant err renders with.
func Variant(err error) schema.Variant {
	var usage *UsageError
	if errors.As(err, &usage) && usage.Notice {
		return schema.VariantSystem
	}
	return schema.VariantError
}

func fetchError(id string, resource bool, err error) error {
	if errors.Is(err, schema.ErrNotFound) && resource {
		return &NotFoundError{Resource: id}
	}
	return &FetchError{ID: id, Resource: resource, Err: err}
}
