package staffing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/obstetric/obstetric/internal/domain/staff"
	"github.com/obstetric/obstetric/internal/platform/notification"
)

type mockShifts struct {
	store  map[int64]*Shift
	nextID int64
}

func (m *mockShifts) Create(_ context.Context, s *Shift) error {
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockShifts) GetByID(_ context.Context, id int64) (*Shift, error) {
	s, ok := m.store[id]
	if !ok {
		return nil, ErrShiftNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockShifts) Update(_ context.Context, s *Shift) error {
	if _, ok := m.store[s.ID]; !ok {
		return ErrShiftNotFound
	}
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockShifts) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return ErrShiftNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockShifts) sorted() []*Shift {
	out := make([]*Shift, 0, len(m.store))
	for _, s := range m.store {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockShifts) List(_ context.Context, f ShiftFilter, _, _ int) ([]*Shift, int, error) {
	var out []*Shift
	for _, s := range m.sorted() {
		if (f.StaffID == 0 || s.StaffID == f.StaffID) && (f.Role == "" || s.Role == f.Role) &&
			(f.Status == "" || s.Status == f.Status) {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockShifts) ListOnShift(_ context.Context, role string, at time.Time) ([]*Shift, error) {
	var out []*Shift
	for _, s := range m.sorted() {
		if s.Role == role && s.Status == ShiftActive && s.Availability == Available && s.Covers(at) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockShifts) Activate(_ context.Context, at time.Time) (int, error) {
	n := 0
	for _, s := range m.store {
		if s.Status == ShiftScheduled && s.Covers(at) {
			s.Status = ShiftActive
			n++
		}
	}
	return n, nil
}

func (m *mockShifts) Finish(_ context.Context, at time.Time) (int, error) {
	n := 0
	for _, s := range m.store {
		if (s.Status == ShiftScheduled || s.Status == ShiftActive) && !s.EndsAt.After(at) {
			s.Status, s.Availability = ShiftFinished, Available
			n++
		}
	}
	return n, nil
}

func (m *mockShifts) SetAvailability(_ context.Context, ids []int64, availability string) error {
	for _, id := range ids {
		if s, ok := m.store[id]; ok {
			s.Availability = availability
		}
	}
	return nil
}

type mockTeams struct {
	store      map[int64]*TeamRequest
	admissions map[int64]*AdmissionContext
}

func (m *mockTeams) Lock(_ context.Context, t *TeamRequest) (*TeamRequest, error) {
	existing, ok := m.store[t.LaborAdmissionID]
	if !ok {
		cp := *t
		cp.Status = TeamGathering
		m.store[t.LaborAdmissionID] = &cp
		existing = &cp
	}
	existing.Babies = t.Babies
	if existing.RequestedBy == nil {
		existing.RequestedBy = t.RequestedBy
	}
	cp := *existing
	return &cp, nil
}

func (m *mockTeams) Get(_ context.Context, laborID int64) (*TeamRequest, error) {
	t, ok := m.store[laborID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTeams) GetForUpdate(ctx context.Context, laborID int64) (*TeamRequest, error) {
	return m.Get(ctx, laborID)
}

func (m *mockTeams) SetStatus(_ context.Context, laborID int64, status string) error {
	t, ok := m.store[laborID]
	if !ok {
		return ErrTeamNotFound
	}
	t.Status = status
	return nil
}

func (m *mockTeams) SetPIN(_ context.Context, laborID int64, secret string) error {
	t, ok := m.store[laborID]
	if !ok {
		return ErrTeamNotFound
	}
	t.PINSecret, t.PINAttempts = &secret, 0
	return nil
}

func (m *mockTeams) IncPINAttempts(_ context.Context, laborID int64) (int, error) {
	t, ok := m.store[laborID]
	if !ok {
		return 0, ErrTeamNotFound
	}
	t.PINAttempts++
	return t.PINAttempts, nil
}

func (m *mockTeams) AdmissionContext(_ context.Context, laborID int64) (*AdmissionContext, error) {
	a, ok := m.admissions[laborID]
	if !ok {
		return nil, ErrAdmissionNotFound
	}
	cp := *a
	return &cp, nil
}

type mockAssignments struct {
	store  map[int64]*Assignment
	nextID int64
}

func (m *mockAssignments) Create(_ context.Context, a *Assignment) error {
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAssignments) GetByID(_ context.Context, id int64) (*Assignment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignments) GetForUpdate(ctx context.Context, id int64) (*Assignment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAssignments) SetResponse(_ context.Context, id int64, status string, at time.Time) error {
	a, ok := m.store[id]
	if !ok {
		return ErrAssignmentNotFound
	}
	a.ResponseStatus, a.RespondedAt = status, &at
	return nil
}

func (m *mockAssignments) filter(keep func(*Assignment) bool) []*Assignment {
	var out []*Assignment
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.store[id]; ok && keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockAssignments) ListByAdmission(_ context.Context, laborID int64) ([]*Assignment, error) {
	return m.filter(func(a *Assignment) bool { return a.LaborAdmissionID == laborID }), nil
}

func (m *mockAssignments) ListPendingForStaff(_ context.Context, staffID int64) ([]*Assignment, error) {
	return m.filter(func(a *Assignment) bool {
		return a.StaffID == staffID && a.ResponseStatus == ResponsePending
	}), nil
}

func (m *mockAssignments) CancelPending(_ context.Context, laborID int64, at time.Time) ([]*Assignment, error) {
	out := m.filter(func(a *Assignment) bool {
		return a.LaborAdmissionID == laborID && a.ResponseStatus == ResponsePending
	})
	for _, a := range out {
		m.store[a.ID].ResponseStatus = ResponseCancelled
		m.store[a.ID].RespondedAt = &at
		a.ResponseStatus = ResponseCancelled
	}
	return out, nil
}

type mockNotifications struct {
	store  map[int64]*Notification
	nextID int64
}

func (m *mockNotifications) Create(_ context.Context, n *Notification) error {
	m.nextID++
	n.ID = m.nextID
	cp := *n
	m.store[n.ID] = &cp
	return nil
}

func (m *mockNotifications) GetByID(_ context.Context, id int64) (*Notification, error) {
	n, ok := m.store[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNotifications) MarkSent(_ context.Context, id int64, attempts int, at time.Time) error {
	n := m.store[id]
	n.Status, n.Attempts, n.SentAt, n.LastError = NotificationSent, attempts, &at, nil
	return nil
}

func (m *mockNotifications) MarkFailed(_ context.Context, id int64, attempts int, reason string) error {
	n := m.store[id]
	n.Status, n.Attempts, n.LastError = NotificationFailed, attempts, &reason
	return nil
}

func (m *mockNotifications) MarkRead(_ context.Context, id int64, at time.Time) error {
	n, ok := m.store[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status, n.ReadAt = NotificationRead, &at
	return nil
}

func (m *mockNotifications) ListForStaff(_ context.Context, staffID int64, unreadOnly bool, _, _ int) ([]*Notification, int, error) {
	var out []*Notification
	for id := int64(1); id <= m.nextID; id++ {
		n, ok := m.store[id]
		if ok && n.StaffID == staffID && (!unreadOnly || n.Status != NotificationRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *mockNotifications) ListFailed(_ context.Context, limit int) ([]*Notification, error) {
	var out []*Notification
	for id := int64(1); id <= m.nextID && len(out) < limit; id++ {
		if n, ok := m.store[id]; ok && n.Status == NotificationFailed {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ofKind returns the notifications of kind addressed to staffID.
func (m *mockNotifications) ofKind(kind string, staffID int64) []*Notification {
	var out []*Notification
	for id := int64(1); id <= m.nextID; id++ {
		if n := m.store[id]; n.Kind == kind && (staffID == 0 || n.StaffID == staffID) {
			out = append(out, n)
		}
	}
	return out
}

type mockDirectory map[int64]*staff.User

func (m mockDirectory) Get(_ context.Context, id int64) (*staff.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, staff.ErrNotFound
	}
	return u, nil
}

func (m mockDirectory) LinkTelegram(_ context.Context, code string, chatID int64) (*staff.User, error) {
	for _, u := range m {
		if u.LinkCode != nil && *u.LinkCode == code {
			u.TelegramChatID, u.LinkCode = &chatID, nil
			return u, nil
		}
	}
	return nil, staff.ErrNotFound
}

func (m mockDirectory) FindByChatID(_ context.Context, chatID int64) (*staff.User, error) {
	for _, u := range m {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return nil, staff.ErrNotFound
}

type delivery struct {
	chatID  int64
	text    string
	buttons []notification.Button
}

type mockRelay struct {
	mu   sync.Mutex
	sent []delivery
	fail error
	// depth, when set, reports the open transaction depth at each call.
	depth  func() int
	depths []int
	// stall makes every call wait for ctx to end.
	stall bool
}

func (m *mockRelay) Deliver(ctx context.Context, chatID *int64, text string, buttons []notification.Button) (uint, error) {
	if m.depth != nil {
		m.depths = append(m.depths, m.depth())
	}
	if chatID == nil {
		return 0, notification.ErrNoChannel
	}
	if m.stall {
		<-ctx.Done()
		return 1, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 3, m.fail
	}
	m.sent = append(m.sent, delivery{chatID: *chatID, text: text, buttons: buttons})
	return 1, nil
}

// depthTx tracks how many InTx calls are open.
type depthTx struct{ depth int }

func (d *depthTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	d.depth++
	defer func() { d.depth-- }()
	return fn(ctx)
}
