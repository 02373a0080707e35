package request

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status tracks where a form sits in its submission lifecycle.
type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// File is an uploaded attachment accumulated on the form.
type File struct {
	Name    string
	Content []byte
}

// Submission is the finalized payload handed to the webhook relay. URLs are
// carried raw and untrimmed, exactly as the user typed them.
type Submission struct {
	Reference   string
	TemplateID  string
	StoreName   string
	Email       string
	Criteria    string
	URLs        []string
	Files       []File
	SubmittedAt time.Time
}

// Submitter relays a finalized submission to the webhook endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

// ValidationError is a recoverable, user-facing form rejection. Submission is
// aborted and form state is untouched.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Message }

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission is still pending. Submission is at most once per user intent.
var ErrSubmitInFlight = errors.New("request: submission already in flight")

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Form owns the full state of one template request: identity of the selected
// template, the editable fields, the accumulated files, and the submission
// status. A form belongs to exactly one session's open dialog.
type Form struct {
	mu         sync.Mutex
	templateID string
	preview    string
	storeName  string
	email      string
	criteria   string
	urls       []string
	files      []File
	status     Status
	reference  string
}

// NewForm constructs an empty form bound to the selected template.
func NewForm(templateID, preview string) *Form {
	return &Form{
		templateID: templateID,
		preview:    preview,
		status:     StatusEditing,
	}
}

// TemplateID returns the id of the template this form was opened for.
func (f *Form) TemplateID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templateID
}

// Status returns the current submission status.
func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// SetStoreName updates the store name field.
func (f *Form) SetStoreName(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeName = v
	f.touchLocked()
}

// SetEmail updates the email field.
func (f *Form) SetEmail(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = v
	f.touchLocked()
}

// SetCriteria updates the criteria free-text field.
func (f *Form) SetCriteria(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.criteria = v
	f.touchLocked()
}

// AddURLField appends one empty URL entry.
func (f *Form) AddURLField() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, "")
	f.touchLocked()
}

// RemoveURLField removes the entry at index, leaving the order and identity
// of the remaining entries intact. Out-of-range indexes are a silent no-op.
func (f *Form) RemoveURLField(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.urls) {
		return
	}
	f.urls = append(f.urls[:index], f.urls[index+1:]...)
	f.touchLocked()
}

// UpdateURLField replaces the entry at index with value. Out-of-range indexes
// are a silent no-op.
func (f *Form) UpdateURLField(index int, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.urls) {
		return
	}
	f.urls[index] = value
	f.touchLocked()
}

// AddFiles appends every newly selected file to the accumulated list; earlier
// selections are never replaced. Returns the number of files added so the UI
// can acknowledge the selection.
func (f *Form) AddFiles(files []File) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		content := make([]byte, len(file.Content))
		copy(content, file.Content)
		f.files = append(f.files, File{Name: file.Name, Content: content})
	}
	f.touchLocked()
	return len(files)
}

// RemoveFile removes the file at index. Out-of-range indexes are a silent no-op.
func (f *Form) RemoveFile(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.files) {
		return
	}
	f.files = append(f.files[:index], f.files[index+1:]...)
	f.touchLocked()
}

// Submit validates the form and relays it through the submitter. Validation
// failures short-circuit in field order, surface a distinct message, and
// leave the status unchanged. A pending submission rejects re-entry with
// ErrSubmitInFlight. On a relay success the form moves to Succeeded with its
// fields preserved until the acknowledgement is dismissed; on any relay
// failure it moves to Failed with fields preserved for correction.
func (f *Form) Submit(ctx context.Context, now time.Time, submitter Submitter) error {
	f.mu.Lock()
	if f.status == StatusSubmitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		return err
	}

	sub := Submission{
		Reference:   uuid.NewString(),
		TemplateID:  f.templateID,
		StoreName:   f.storeName,
		Email:       f.email,
		Criteria:    f.criteria,
		URLs:        append([]string(nil), f.urls...),
		SubmittedAt: now.UTC(),
	}
	sub.Files = make([]File, len(f.files))
	copy(sub.Files, f.files)
	f.status = StatusSubmitting
	f.mu.Unlock()

	err := submitter.Submit(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status = StatusFailed
		return err
	}
	f.status = StatusSucceeded
	f.reference = sub.Reference
	return nil
}

// DismissAcknowledgement closes the success acknowledgement: the form returns
// to editing with every field reset. Calling it in any other state is a no-op.
func (f *Form) DismissAcknowledgement() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusSucceeded {
		return
	}
	f.storeName = ""
	f.email = ""
	f.criteria = ""
	f.urls = nil
	f.files = nil
	f.reference = ""
	f.status = StatusEditing
}

func (f *Form) validateLocked() error {
	if strings.TrimSpace(f.storeName) == "" {
		return &ValidationError{Field: "storeName", Message: "Please enter your store name."}
	}
	email := strings.TrimSpace(f.email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email address."}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address."}
	}
	hasURL := false
	for _, u := range f.urls {
		if strings.TrimSpace(u) != "" {
			hasURL = true
			break
		}
	}
	if !hasURL && len(f.files) == 0 {
		return &ValidationError{Field: "sources", Message: "Add at least one URL or upload a file."}
	}
	return nil
}

// touchLocked returns a failed form to editing so the state table stays
// accurate while the user corrects fields.
func (f *Form) touchLocked() {
	if f.status == StatusFailed {
		f.status = StatusEditing
	}
}

// Snapshot is a copy of the form's renderable state.
type Snapshot struct {
	TemplateID string
	Preview    string
	StoreName  string
	Email      string
	Criteria   string
	URLs       []string
	FileNames  []string
	Status     Status
	Reference  string
}

// Snapshot returns a consistent copy of the form for rendering.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{
		TemplateID: f.templateID,
		Preview:    f.preview,
		StoreName:  f.storeName,
		Email:      f.email,
		Criteria:   f.criteria,
		URLs:       append([]string(nil), f.urls...),
		Status:     f.status,
		Reference:  f.reference,
	}
	snap.FileNames = make([]string, 0, len(f.files))
	for _, file := range f.files {
		snap.FileNames = append(snap.FileNames, file.Name)
	}
	return snap
}
