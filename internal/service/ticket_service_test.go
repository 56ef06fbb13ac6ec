package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTicketRepo struct {
	byID    map[string]*domain.Ticket
	seq     int64
	updates int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byID: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) NextTicketNumber(context.Context) (string, error) {
	f.seq++
	return fmt.Sprintf("TKT-%06d", f.seq), nil
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = fmt.Sprintf("t-%d", len(f.byID)+1)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	f.byID[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.updates++
	copied := *ticket
	f.byID[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTicketRepo) GetByIDScoped(_ context.Context, id string, scope policy.TicketScope) (*domain.Ticket, error) {
	ticket, ok := f.byID[id]
	if !ok || !scopeAdmits(scope, ticket) {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func scopeAdmits(scope policy.TicketScope, t *domain.Ticket) bool {
	switch {
	case scope.All:
		return true
	case len(scope.CompanyIDs) > 0:
		if t.CompanyID != nil {
			for _, id := range scope.CompanyIDs {
				if id == *t.CompanyID {
					return true
				}
			}
		}
		return scope.OwnCreated && t.CreatedBy == scope.CreatedBy
	case scope.CreatedBy != "":
		return t.CreatedBy == scope.CreatedBy
	case scope.AssignedTo != "":
		return t.AssignedTo != nil && *t.AssignedTo == scope.AssignedTo
	}
	return false
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.byID {
		if scopeAdmits(filter.Scope, ticket) {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (f *fakeTicketRepo) CountByStatus(_ context.Context, scope policy.TicketScope) ([]repository.StatusCount, error) {
	counts := map[domain.TicketStatus]int64{}
	for _, ticket := range f.byID {
		if scopeAdmits(scope, ticket) {
			counts[ticket.Status]++
		}
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

func (f *fakeTicketRepo) CountByPriority(_ context.Context, scope policy.TicketScope) ([]repository.PriorityCount, error) {
	counts := map[domain.TicketPriority]int64{}
	for _, ticket := range f.byID {
		if scopeAdmits(scope, ticket) {
			counts[ticket.Priority]++
		}
	}
	var result []repository.PriorityCount
	for priority, count := range counts {
		result = append(result, repository.PriorityCount{Priority: priority, Count: count})
	}
	return result, nil
}

func (f *fakeTicketRepo) CountCreatedPerDay(context.Context, policy.TicketScope, time.Time) ([]repository.DayCount, error) {
	return nil, nil
}

func (f *fakeTicketRepo) OpenCountByCompany(context.Context, policy.TicketScope, int) ([]repository.CompanyCount, error) {
	return nil, nil
}

type fakeCommentRepo struct {
	comments []*domain.Comment
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = fmt.Sprintf("c-%d", len(f.comments)+1)
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, *comment)
	}
	return result, nil
}

type fakeAttachmentRepo struct{}

func (fakeAttachmentRepo) Create(context.Context, *domain.Attachment) error { return nil }
func (fakeAttachmentRepo) ListByTicket(context.Context, string) ([]domain.Attachment, error) {
	return nil, nil
}

type staticScopes struct{ ids []string }

func (s staticScopes) ManagerCompanyIDs(context.Context, policy.Principal) ([]string, error) {
	return s.ids, nil
}

type recordingProvisioner struct {
	calls [][]string
}

func (r *recordingProvisioner) EnsureRecipients(_ context.Context, _ string, emails []string) {
	r.calls = append(r.calls, emails)
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, *domain.Company, mail.Message) error {
	f.calls++
	return errors.New("smtp unreachable")
}

func (f *failingSender) TestTransport(mail.Transport, string) mail.TestResult {
	return mail.TestResult{}
}

type ticketFixture struct {
	svc         *TicketService
	tickets     *fakeTicketRepo
	comments    *fakeCommentRepo
	users       *fakeUserRepo
	provisioner *recordingProvisioner
	dispatcher  events.Dispatcher
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	users := newFakeUserRepo()
	provisioner := &recordingProvisioner{}
	dispatcher := events.NewInMemoryDispatcher()

	svc := NewTicketService(TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    comments,
		AttachmentRepo: fakeAttachmentRepo{},
		UserRepo:       users,
		Scopes:         staticScopes{},
		Provisioner:    provisioner,
		Dispatcher:     dispatcher,
	})
	return &ticketFixture{
		svc:         svc,
		tickets:     tickets,
		comments:    comments,
		users:       users,
		provisioner: provisioner,
		dispatcher:  dispatcher,
	}
}

func customer(id string) *domain.User {
	return &domain.User{ID: id, Name: "Cust " + id, Email: id + "@cust.test", Role: domain.RoleCustomer, IsActive: true}
}

func agent(id string) *domain.User {
	return &domain.User{ID: id, Name: "Agent " + id, Email: id + "@staff.test", Role: domain.RoleAgent, IsActive: true}
}

func adminUser(id string) *domain.User {
	return &domain.User{ID: id, Name: "Admin " + id, Email: id + "@staff.test", Role: domain.RoleAdmin, IsActive: true}
}

func TestCreate_AssignsSequentialNumbers(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")

	first, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "printer on fire"})
	require.NoError(t, err)
	second, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "printer still on fire"})
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", first.TicketNumber)
	assert.Equal(t, "TKT-000002", second.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.Equal(t, domain.TicketPriorityMedium, first.Priority, "priority defaults to medium")
}

func TestCreate_CustomerTicketBindsOwnCompany(t *testing.T) {
	fx := newTicketFixture(t)
	companyID := "co-1"
	otherCompany := "co-2"
	creator := customer("u1")
	creator.CompanyID = &companyID

	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{
		Title:     "vpn down",
		CompanyID: &otherCompany,
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.CompanyID)
	assert.Equal(t, companyID, *ticket.CompanyID, "customer cannot file into another company")
}

func TestCreate_AdminForbidden(t *testing.T) {
	fx := newTicketFixture(t)

	_, err := fx.svc.Create(context.Background(), adminUser("a1"), TicketCreateInput{Title: "x"})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "FORBIDDEN", de.Code)
}

func TestUpdate_StampsResolvedAtOnce(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "slow laptop"})
	require.NoError(t, err)

	admin := adminUser("a1")
	resolved := domain.TicketStatusResolved
	updated, err := fx.svc.Update(context.Background(), principalOf(admin), ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	firstStamp := *updated.ResolvedAt

	open := domain.TicketStatusOpen
	_, err = fx.svc.Update(context.Background(), principalOf(admin), ticket.ID, TicketUpdateInput{Status: &open})
	require.NoError(t, err)

	updated, err = fx.svc.Update(context.Background(), principalOf(admin), ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, firstStamp, *updated.ResolvedAt, "re-entering resolved keeps the first stamp")
}

func TestUpdate_OutOfScopeReadsAsNotFound(t *testing.T) {
	fx := newTicketFixture(t)
	ticket, err := fx.svc.Create(context.Background(), customer("u1"), TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	title := "hijacked"
	_, err = fx.svc.Update(context.Background(), principalOf(customer("u2")), ticket.ID, TicketUpdateInput{Title: &title})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "NOT_FOUND", de.Code, "foreign tickets are indistinguishable from absent ones")
}

func TestAddComment_FirstStaffReplyFlipsOpenToInProgress(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	staff := agent("a1")
	assigned := staff.ID
	stored := fx.tickets.byID[ticket.ID]
	stored.AssignedTo = &assigned

	_, err = fx.svc.AddComment(context.Background(), staff, ticket.ID, CommentInput{Message: "looking into it"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, fx.tickets.byID[ticket.ID].Status)

	// a second staff comment leaves the status alone
	fx.tickets.byID[ticket.ID].Status = domain.TicketStatusPending
	_, err = fx.svc.AddComment(context.Background(), staff, ticket.ID, CommentInput{Message: "still digging"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, fx.tickets.byID[ticket.ID].Status)
}

func TestAddComment_CustomerReplyDoesNotFlipStatus(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = fx.svc.AddComment(context.Background(), creator, ticket.ID, CommentInput{Message: "any update?"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, fx.tickets.byID[ticket.ID].Status)
}

func TestAddComment_ResolvesAndProvisionsRecipients(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	staff := agent("a1")
	assigned := staff.ID
	fx.tickets.byID[ticket.ID].AssignedTo = &assigned

	var published []events.Event
	fx.dispatcher.Subscribe(events.EventTicketCommentAdded, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	_, err = fx.svc.AddComment(context.Background(), staff, ticket.ID, CommentInput{
		Message: "cc'ing the vendor",
		To:      []string{"Vendor@Ext.com"},
		CC:      []string{"vendor@ext.com", "other@ext.com"},
	})
	require.NoError(t, err)

	want := []string{"vendor@ext.com", "other@ext.com", creator.Email}
	require.Len(t, fx.provisioner.calls, 1)
	assert.Equal(t, want, fx.provisioner.calls[0])
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.TicketCommentAddedPayload)
	assert.Equal(t, want, payload.Recipients)
}

func TestAddComment_InternalNotifiesNobody(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	staff := agent("a1")
	assigned := staff.ID
	fx.tickets.byID[ticket.ID].AssignedTo = &assigned

	var published int
	fx.dispatcher.Subscribe(events.EventTicketCommentAdded, func(context.Context, events.Event) error {
		published++
		return nil
	})

	_, err = fx.svc.AddComment(context.Background(), staff, ticket.ID, CommentInput{
		Message:    "internal note",
		IsInternal: true,
		To:         []string{"someone@ext.com"},
	})
	require.NoError(t, err)
	assert.Empty(t, fx.provisioner.calls)
	assert.Zero(t, published)
}

func TestAddComment_FailingSenderDoesNotFailRequest(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	sender := &failingSender{}
	notify.NewService(fx.dispatcher, sender, fakeCompanyReaderEmpty{}, zap.NewNop()).RegisterHandlers()

	staff := agent("a1")
	assigned := staff.ID
	fx.tickets.byID[ticket.ID].AssignedTo = &assigned

	comment, err := fx.svc.AddComment(context.Background(), staff, ticket.ID, CommentInput{
		Message: "on it",
		To:      []string{"someone@ext.com"},
	})
	require.NoError(t, err, "delivery failure stays inside the notification path")
	require.NotNil(t, comment)
	assert.Positive(t, sender.calls, "the sender was actually exercised")
}

type fakeCompanyReaderEmpty struct{}

func (fakeCompanyReaderEmpty) GetByID(context.Context, string) (*domain.Company, error) {
	return nil, pgx.ErrNoRows
}

func (fakeCompanyReaderEmpty) ListCreatedBy(context.Context, string) ([]domain.Company, error) {
	return nil, nil
}

func TestForward_RecordsInternalNote(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	fx.users.byEmail[creator.Email] = creator
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	staff := agent("a1")
	assigned := staff.ID
	fx.tickets.byID[ticket.ID].AssignedTo = &assigned

	err = fx.svc.Forward(context.Background(), staff, ticket.ID, ForwardInput{
		To:   []string{"Escalation@Vendor.com"},
		Note: "please advise",
	})
	require.NoError(t, err)

	require.Len(t, fx.comments.comments, 1)
	note := fx.comments.comments[0]
	assert.True(t, note.IsInternal)
	assert.True(t, strings.HasPrefix(note.Message, "Forwarded to escalation@vendor.com"))
	assert.Contains(t, note.Message, "please advise")
}

func TestForward_CustomerForbidden(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	err = fx.svc.Forward(context.Background(), creator, ticket.ID, ForwardInput{To: []string{"a@b.com"}})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "FORBIDDEN", de.Code)
}

func TestDelete_RequiresPrivilegedRole(t *testing.T) {
	fx := newTicketFixture(t)
	creator := customer("u1")
	ticket, err := fx.svc.Create(context.Background(), creator, TicketCreateInput{Title: "x"})
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), principalOf(creator), ticket.ID)
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "FORBIDDEN", de.Code)

	err = fx.svc.Delete(context.Background(), principalOf(adminUser("a1")), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, fx.tickets.byID)
}
