package register

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enroll/internal/events"
	"enroll/internal/flow"
	"enroll/internal/user"
	"enroll/pkg/domainerrors"
)

// capturingPublisher records published events synchronously.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type FinalizerSuite struct {
	suite.Suite
	ctx       context.Context
	notes     *flow.MemoryStore
	users     *user.MemoryStore
	publisher *capturingPublisher
	finalizer *Finalizer
	att       *flow.Attempt
}

func TestFinalizerSuite(t *testing.T) {
	suite.Run(t, new(FinalizerSuite))
}

func (s *FinalizerSuite) SetupTest() {
	s.ctx = context.Background()
	s.notes = flow.NewMemoryStore(time.Hour)
	s.users = user.NewMemoryStore()
	s.publisher = &capturingPublisher{}
	s.finalizer = NewFinalizer(s.notes, s.users, user.NewHasher(4), "main",
		WithFinalizerEvents(s.publisher),
	)
	s.att = &flow.Attempt{ID: "att-1", ClientID: "portal"}

	for key, value := range map[string]string{
		"email":     "jane@example.com",
		"password":  "s3curePwd1",
		"civility":  "Mme",
		"lastName":  "Doe",
		"firstName": "Jane",
		"profile":   "Teacher,Director",
	} {
		s.Require().NoError(s.notes.Put(s.ctx, s.att.ID, key, value))
	}
}

// TestMaterializesAccount verifies the account carries the full draft plus
// the final step's own fields.
func (s *FinalizerSuite) TestMaterializesAccount() {
	sub := flow.Submission{
		FieldUAI:        {"0561234A"},
		FieldNewsletter: {"on"},
		FieldCGU:        {"on"},
	}
	s.Require().NoError(s.finalizer.Finalize(s.ctx, s.att, sub))

	created, err := s.users.GetByEmail(s.ctx, "jane@example.com")
	s.Require().NoError(err)

	s.Equal(s.att.UserID, created.ID, "account is bound to the attempt")
	s.Equal("jane@example.com", created.Username, "email doubles as username")
	s.True(created.Enabled)
	s.False(created.EmailVerified)
	s.Equal("Jane", created.FirstName)
	s.Equal("Doe", created.LastName)
	s.Equal("Mme", created.FirstAttribute("civility"))
	s.Equal([]string{"Teacher", "Director"}, created.Attribute("profile"))
	s.Equal("0561234A", created.FirstAttribute("uai"))
	s.Equal("true", created.FirstAttribute("newsletter"))
	s.Equal("true", created.FirstAttribute("cgu"))

	s.NoError(user.NewHasher(4).Compare(created.CredentialHash, "s3curePwd1"),
		"stored credential must verify against the submitted password")
	s.NotEqual("s3curePwd1", created.CredentialHash)
}

// TestOptionalFields verifies absent optional inputs produce no attributes
// and declined checkboxes store "false".
func (s *FinalizerSuite) TestOptionalFields() {
	s.Require().NoError(s.notes.Put(s.ctx, s.att.ID, "civility", ""))
	s.Require().NoError(s.notes.Put(s.ctx, s.att.ID, "profile", ""))

	s.Require().NoError(s.finalizer.Finalize(s.ctx, s.att, flow.Submission{FieldCGU: {"on"}}))

	created, err := s.users.GetByEmail(s.ctx, "jane@example.com")
	s.Require().NoError(err)
	s.Empty(created.Attribute("civility"))
	s.Empty(created.Attribute("profile"))
	s.Empty(created.Attribute("uai"))
	s.Equal("false", created.FirstAttribute("newsletter"))
	s.Equal("true", created.FirstAttribute("cgu"))
}

// TestEmitsEvent verifies the completion event identifies the new account.
func (s *FinalizerSuite) TestEmitsEvent() {
	s.Require().NoError(s.finalizer.Finalize(s.ctx, s.att, flow.Submission{FieldCGU: {"on"}}))

	s.Require().Len(s.publisher.events, 1)
	event := s.publisher.events[0]
	s.Equal(events.TypeRegisterCompleted, event.Type)
	s.Equal(s.att.UserID, event.UserID)
	s.Equal("jane@example.com", event.Email)
	s.Equal("portal", event.ClientID)
	s.Equal("main", event.Realm)
}

// TestDuplicateEmail verifies a concurrent registration race surfaces as an
// already-exists failure and leaves exactly one account.
func (s *FinalizerSuite) TestDuplicateEmail() {
	other := &flow.Attempt{ID: "att-2"}
	for key, value := range map[string]string{
		"email":     "jane@example.com",
		"password":  "an0therPwd1",
		"lastName":  "Doe",
		"firstName": "Jane",
	} {
		s.Require().NoError(s.notes.Put(s.ctx, other.ID, key, value))
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, att := range []*flow.Attempt{s.att, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.finalizer.Finalize(s.ctx, att, flow.Submission{FieldCGU: {"on"}})
		}()
	}
	wg.Wait()

	var failures int
	for _, err := range results {
		if err != nil {
			s.ErrorIs(err, user.ErrEmailExists)
			s.True(domainerrors.Is(err, domainerrors.CodeAlreadyExists))
			failures++
		}
	}
	s.Equal(1, failures, "exactly one of the two attempts must lose the race")

	created, err := s.users.GetByEmail(s.ctx, "jane@example.com")
	s.Require().NoError(err)
	s.NotNil(created)
}
