package flow

// Submission is the raw field-name to value-list map submitted by the client
// for the current step. It is transient: discarded once validate/commit have
// run.
type Submission map[string][]string

// First returns the first value for key, or "".
func (s Submission) First(key string) string {
	if vs := s[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns all values for key.
func (s Submission) Values(key string) []string {
	return s[key]
}

// Set replaces any existing values for key with a single value.
func (s Submission) Set(key, value string) {
	s[key] = []string{value}
}

// Add appends a value for key.
func (s Submission) Add(key, value string) {
	s[key] = append(s[key], value)
}

// Strip removes the given keys. Used to scrub password-bearing fields before
// a submission is echoed back to the client.
func (s Submission) Strip(keys ...string) {
	for _, k := range keys {
		delete(s, k)
	}
}

// Clone returns a deep copy so callers can merge draft data without mutating
// the original submission.
func (s Submission) Clone() Submission {
	out := make(Submission, len(s))
	for k, vs := range s {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// FieldError is a per-field validation failure surfaced to the client. It
// re-renders the current step and is never fatal.
type FieldError struct {
	// Field is empty for form-global errors such as a failed bot check.
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
	Params  []string `json:"params,omitempty"`
}

// RenderContext carries attributes a renderer needs to display a step, such
// as prefilled fields or the bot-check site key.
type RenderContext map[string]any

// Attempt identifies one end-to-end pass through the registration flow. All
// cross-step state lives in the Store under the attempt's ID; the struct
// itself only carries per-request context.
type Attempt struct {
	ID        string
	LoginHint string
	ClientID  string
	// RemoteIP is refreshed on every request; the bot-check verifier
	// forwards it to the verification service.
	RemoteIP string
	// UserID is set when the finalizer binds a freshly created account to
	// the attempt.
	UserID string
}

// Result is the outcome of submitting a step.
type Result struct {
	// FieldErrors is non-empty when validation failed; Echo then holds the
	// submission with sensitive fields stripped, for re-display.
	FieldErrors []FieldError
	Echo        Submission
	// Next names the step to render after a successful commit; empty when
	// the flow completed.
	Next string
	// Completed is true once the final step committed and the account
	// exists. UserID identifies it.
	Completed bool
	UserID    string
}

// Failed reports whether the submission was rejected with field errors.
func (r *Result) Failed() bool {
	return len(r.FieldErrors) > 0
}
