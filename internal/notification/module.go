// Package notification is the dispatcher behind the event bus: it turns
// lifecycle and escrow events into in-app notifications and best-effort
// email. Nothing here may fail a transition; every delivery error ends at
// a log line.
package notification

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/internal/events"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/notification/inapp"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/logger"
)

const (
	categoryJob      = "job"
	categoryPayment  = "payment"
	categoryWarranty = "warranty"
	categoryDispute  = "dispute"
	categorySLA      = "sla"

	listLimit      = 50
	fanOutParallel = 8
)

// Module is the notification dispatcher implementing http.Module.
type Module struct {
	inapp    *inapp.Repository
	accounts *accountsrepo.Repo
	mail     EmailSender
	log      *logger.Logger
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(pool *pgxpool.Pool, bus events.Bus, mail EmailSender, log *logger.Logger) *Module {
	if mail == nil {
		mail = NoopSender{}
	}
	m := &Module{
		inapp:    inapp.NewRepository(pool),
		accounts: accountsrepo.New(pool),
		mail:     mail,
		log:      log,
	}
	m.subscribe(bus)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the in-app notification routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	group.GET("", m.list)
	group.GET("/unread-count", m.unreadCount)
	group.POST("/:id/read", m.markRead)
	group.POST("/read-all", m.markAllRead)
}

func (m *Module) subscribe(bus events.Bus) {
	on := func(name string, fn func(context.Context, events.Event) error) {
		bus.Subscribe(name, events.HandlerFunc(fn))
	}

	on(events.JobPosted{}.EventName(), m.onJobPosted)
	on(events.JobSoftLocked{}.EventName(), m.onJobSoftLocked)
	on(events.JobAssigned{}.EventName(), m.onJobAssigned)
	on(events.JobReturnedToPool{}.EventName(), m.onJobReturnedToPool)
	on(events.JobCompleted{}.EventName(), m.onJobCompleted)
	on(events.JobPermanentlyRejected{}.EventName(), m.onJobPermanentlyRejected)
	on(events.CompletionOTPIssued{}.EventName(), m.onCompletionOTPIssued)
	on(events.CounterOfferMade{}.EventName(), m.onCounterOfferMade)
	on(events.PaymentSplitCreated{}.EventName(), m.onPaymentSplitCreated)
	on(events.WarrantyHoldReleased{}.EventName(), m.onWarrantyHoldReleased)
	on(events.DisputeRaised{}.EventName(), m.onDisputeRaised)
	on(events.SLABreached{}.EventName(), m.onSLABreached)
}

// notify records an in-app notification and emails the recipient, both
// best effort.
func (m *Module) notify(ctx context.Context, accountID uuid.UUID, jobID *uuid.UUID, category, title, content string) {
	if _, err := m.inapp.Create(ctx, inapp.CreateParams{
		AccountID: accountID,
		Title:     title,
		Content:   content,
		JobID:     jobID,
		Category:  category,
	}); err != nil {
		m.log.NotifyFailure("inapp", accountID.String(), err)
	}

	account, err := m.accounts.GetAccount(ctx, accountID)
	if err != nil {
		m.log.NotifyFailure("email", accountID.String(), err)
		return
	}
	if err := m.mail.Send(ctx, account.Email, title, content); err != nil {
		m.log.NotifyFailure("email", account.Email, err)
	}
}

// onJobPosted fans out to every matched candidate with bounded parallelism.
func (m *Module) onJobPosted(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobPosted)
	if !ok {
		return nil
	}

	emails, err := m.accounts.EmailsByAccountIDs(ctx, ev.CandidateIDs)
	if err != nil {
		m.log.NotifyFailure("email", "candidates", err)
		emails = map[uuid.UUID]string{}
	}

	title := fmt.Sprintf("New job %s in %s", ev.JobNumber, ev.City)
	content := fmt.Sprintf("%s is available for acceptance.", ev.Title)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutParallel)
	for _, candidateID := range ev.CandidateIDs {
		g.Go(func() error {
			if _, err := m.inapp.Create(gctx, inapp.CreateParams{
				AccountID: candidateID,
				Title:     title,
				Content:   content,
				JobID:     &ev.JobID,
				Category:  categoryJob,
			}); err != nil {
				m.log.NotifyFailure("inapp", candidateID.String(), err)
			}
			if email, ok := emails[candidateID]; ok {
				if err := m.mail.Send(gctx, email, title, content); err != nil {
					m.log.NotifyFailure("email", email, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Module) onJobSoftLocked(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobSoftLocked)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryJob,
		fmt.Sprintf("Job %s has a taker", ev.JobNumber),
		"A technician accepted your job. Confirm them before the lock expires.")
	return nil
}

func (m *Module) onJobAssigned(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobAssigned)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.TechnicianID, &ev.JobID, categoryJob,
		fmt.Sprintf("Job %s assigned to you", ev.JobNumber),
		"Payment is locked in escrow. You can start the work.")
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryPayment,
		fmt.Sprintf("Payment captured for %s", ev.JobNumber),
		"The job is now assigned.")
	return nil
}

func (m *Module) onJobReturnedToPool(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobReturnedToPool)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryJob,
		fmt.Sprintf("Job %s returned to the pool", ev.JobNumber),
		fmt.Sprintf("Reason: %s. You can repost the job.", ev.Reason))
	return nil
}

func (m *Module) onJobCompleted(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobCompleted)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.TechnicianID, &ev.JobID, categoryJob,
		fmt.Sprintf("Job %s approved", ev.JobNumber),
		"The dealer approved your work. The escrow split has been created.")
	return nil
}

func (m *Module) onJobPermanentlyRejected(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.JobPermanentlyRejected)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryJob,
		fmt.Sprintf("Job %s permanently closed", ev.JobNumber),
		"The job exhausted its repost limit and cannot be reposted again.")
	return nil
}

// onCompletionOTPIssued delivers the code toward the customer contact. With
// no customer messaging channel wired, the dealer relays it.
func (m *Module) onCompletionOTPIssued(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.CompletionOTPIssued)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryJob,
		fmt.Sprintf("Completion code for %s", ev.JobNumber),
		fmt.Sprintf("Share code %s with the customer at %s to confirm completion.", ev.Code, ev.CustomerPhone))
	return nil
}

func (m *Module) onCounterOfferMade(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.CounterOfferMade)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.RecipientID, &ev.JobID, categoryJob,
		fmt.Sprintf("Counter-offer on %s", ev.JobNumber),
		fmt.Sprintf("The other party proposed %d. Respond within the window or the job returns to the pool.", ev.Amount))
	return nil
}

func (m *Module) onPaymentSplitCreated(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.PaymentSplitCreated)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.TechnicianID, &ev.JobID, categoryPayment,
		"Escrow split created",
		fmt.Sprintf("Released now: %d. Held for warranty: %d.", ev.ReleasedAmount, ev.HeldAmount))
	return nil
}

func (m *Module) onWarrantyHoldReleased(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.WarrantyHoldReleased)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.TechnicianID, &ev.JobID, categoryWarranty,
		"Warranty hold released",
		fmt.Sprintf("The held amount of %d has been released to you.", ev.Amount))
	return nil
}

func (m *Module) onDisputeRaised(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.DisputeRaised)
	if !ok {
		return nil
	}
	if ev.TechnicianID != uuid.Nil {
		m.notify(ctx, ev.TechnicianID, &ev.JobID, categoryDispute,
			fmt.Sprintf("Dispute raised on %s", ev.JobNumber),
			"An admin will review the dispute before any held amount settles.")
	}
	m.notify(ctx, ev.DealerID, &ev.JobID, categoryDispute,
		fmt.Sprintf("Dispute recorded on %s", ev.JobNumber),
		"An admin will review the dispute.")
	return nil
}

func (m *Module) onSLABreached(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.SLABreached)
	if !ok {
		return nil
	}
	m.notify(ctx, ev.TechnicianID, &ev.JobID, categorySLA,
		fmt.Sprintf("Job %s is behind schedule", ev.JobNumber),
		ev.Breach)
	return nil
}

func (m *Module) list(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	notifications, err := m.inapp.List(c.Request.Context(), identity.AccountID(), listLimit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, notifications)
}

func (m *Module) unreadCount(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := m.inapp.CountUnread(c.Request.Context(), identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"unread": count})
}

func (m *Module) markRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid notification ID", nil)
		return
	}

	if err := m.inapp.MarkRead(c.Request.Context(), identity.AccountID(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"read": true})
}

func (m *Module) markAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := m.inapp.MarkAllRead(c.Request.Context(), identity.AccountID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"read": true})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
