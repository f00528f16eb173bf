package listeners

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/events"
	"freeflow/internal/services"
	"freeflow/pkg/constants"
	"freeflow/pkg/eventbus"
)

// notice is one status change worth telling the owner about.
type notice struct {
	resource string
	id       string
	title    string
	status   string
	at       time.Time
}

type noticeGroupKey struct {
	UserID   uuid.UUID
	Resource string
	Status   string
}

type noticeGroup struct {
	notices []notice
	timer   *time.Timer
}

// NotificationListener turns escrow and invoice status changes into stored
// notifications. Changes of the same kind for one user that arrive within
// the grouping window become a single notification.
type NotificationListener struct {
	notifier services.NotificationServiceInterface
	window   time.Duration
	logger   *zap.Logger
	groups   map[noticeGroupKey]*noticeGroup
	groupsMu sync.Mutex
	pending  sync.WaitGroup
}

func NewNotificationListener(notifier services.NotificationServiceInterface, window time.Duration, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{
		notifier: notifier,
		window:   window,
		logger:   logger,
		groups:   make(map[noticeGroupKey]*noticeGroup),
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(constants.EventRecordChanged, l.handleRecordChanged)
	l.logger.Info("notification listener subscribed", zap.String("event", constants.EventRecordChanged))
}

func (l *NotificationListener) handleRecordChanged(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.RecordChangedEvent)
	if !ok {
		return nil
	}
	n, ok := noticeFor(e)
	if !ok {
		return nil
	}

	key := noticeGroupKey{UserID: e.UserID, Resource: e.Resource, Status: n.status}

	l.groupsMu.Lock()
	defer l.groupsMu.Unlock()

	group, exists := l.groups[key]
	if !exists {
		group = &noticeGroup{}
		l.groups[key] = group
		l.pending.Add(1)
		group.timer = time.AfterFunc(l.window, func() {
			defer l.pending.Done()
			l.flush(context.Background(), key)
		})
	}
	group.notices = append(group.notices, n)
	return nil
}

// Flush sends every pending group now. Used on shutdown.
func (l *NotificationListener) Flush(ctx context.Context) {
	l.groupsMu.Lock()
	keys := make([]noticeGroupKey, 0, len(l.groups))
	for key, group := range l.groups {
		if group.timer.Stop() {
			l.pending.Done()
			keys = append(keys, key)
		}
	}
	l.groupsMu.Unlock()

	for _, key := range keys {
		l.flush(ctx, key)
	}
	l.pending.Wait()
}

func (l *NotificationListener) flush(ctx context.Context, key noticeGroupKey) {
	l.groupsMu.Lock()
	group, exists := l.groups[key]
	delete(l.groups, key)
	l.groupsMu.Unlock()

	if !exists || len(group.notices) == 0 {
		return
	}

	n := formatNotification(key, group.notices)
	if _, err := l.notifier.Notify(ctx, key.UserID, n); err != nil {
		l.logger.Error("send notification failed",
			zap.String("user_id", key.UserID.String()),
			zap.String("resource", key.Resource),
			zap.Error(err),
		)
	}
}

// noticeFor decides whether a change is worth a notification. Only status
// changes count, so an update without the previous row is never one.
func noticeFor(e events.RecordChangedEvent) (notice, bool) {
	if e.Action != events.ActionUpdate || e.Record == nil || e.Previous == nil {
		return notice{}, false
	}
	status := e.Record.String("status")
	if e.Previous.String("status") == status {
		return notice{}, false
	}

	n := notice{resource: e.Resource, id: e.Record.ID(), status: status, at: e.OccurredAt}
	switch e.Resource {
	case "escrow_deposits":
		n.title = e.Record.String("project_title")
	case "escrow_milestones":
		if status != constants.MilestoneStatusApproved && status != constants.MilestoneStatusRejected {
			return notice{}, false
		}
		n.title = e.Record.String("title")
	case "invoices":
		if status != constants.InvoiceStatusOverdue && status != constants.InvoiceStatusPaid {
			return notice{}, false
		}
		n.title = e.Record.String("invoice_number")
	default:
		return notice{}, false
	}
	return n, true
}

var noticeNouns = map[string][2]string{
	"escrow_deposits":   {"Escrow deposit", "escrow deposits"},
	"escrow_milestones": {"Milestone", "milestones"},
	"invoices":          {"Invoice", "invoices"},
}

func formatNotification(key noticeGroupKey, notices []notice) dto.NotificationDTO {
	sort.Slice(notices, func(i, j int) bool { return notices[i].at.Before(notices[j].at) })

	nouns := noticeNouns[key.Resource]
	status := strings.ReplaceAll(key.Status, "_", " ")
	n := dto.NotificationDTO{
		Type: key.Resource + "." + key.Status,
		Data: map[string]interface{}{"resource": key.Resource, "status": key.Status},
	}

	if len(notices) == 1 {
		only := notices[0]
		n.Title = fmt.Sprintf("%s %s", nouns[0], status)
		n.Message = fmt.Sprintf("%s %q is now %s.", nouns[0], only.title, status)
		n.Link = fmt.Sprintf("/api/v1/records/%s/%s", key.Resource, only.id)
		n.Data["id"] = only.id
		return n
	}

	ids := make([]interface{}, 0, len(notices))
	titles := make([]string, 0, len(notices))
	for _, item := range notices {
		ids = append(ids, item.id)
		titles = append(titles, fmt.Sprintf("%q", item.title))
	}
	n.Title = fmt.Sprintf("%d %s %s", len(notices), nouns[1], status)
	n.Message = fmt.Sprintf("%s are now %s.", strings.Join(titles, ", "), status)
	n.Link = fmt.Sprintf("/api/v1/records/%s?filter[status]=%s", key.Resource, key.Status)
	n.Data["ids"] = ids
	return n
}
