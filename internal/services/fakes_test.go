package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"internboard/internal/models"
	"internboard/internal/repositories"
	"internboard/internal/session"
)

var errStoreDown = errors.New("store down")

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[u.Email]; ok {
		return repositories.ErrDuplicate
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) SetOTP(_ context.Context, email, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[email]
	if !ok {
		return repositories.ErrNotFound
	}
	c, e := code, expiresAt
	u.OTPCode, u.OTPExpiresAt, u.ResetAuthorized = &c, &e, false
	return nil
}

func (r *fakeUserRepo) ConsumeOTP(_ context.Context, email, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok || u.OTPCode == nil || *u.OTPCode != code || !u.OTPExpiresAt.After(now) {
		return false, nil
	}
	u.OTPCode, u.OTPExpiresAt, u.ResetAuthorized = nil, nil, true
	return true, nil
}

func (r *fakeUserRepo) CompleteReset(_ context.Context, email, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok || !u.ResetAuthorized {
		return false, nil
	}
	u.PasswordHash, u.ResetAuthorized = hash, false
	return true, nil
}

func (r *fakeUserRepo) snapshot(email string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[email]
}

func (r *fakeUserRepo) remove(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, email)
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	err      error
	delErr   error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]session.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, token string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeInternshipRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Internship
	err    error
}

func newFakeInternshipRepo() *fakeInternshipRepo {
	return &fakeInternshipRepo{rows: map[int64]models.Internship{}}
}

func (r *fakeInternshipRepo) Store(_ context.Context, in *models.Internship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	in.ID = r.nextID
	r.rows[in.ID] = *in
	return nil
}

func (r *fakeInternshipRepo) FindByID(_ context.Context, id int64) (*models.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &in, nil
}

func (r *fakeInternshipRepo) List(_ context.Context, limit int, order models.ListOrder) ([]models.Internship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]models.Internship, 0, len(r.rows))
	for _, in := range r.rows {
		res = append(res, in)
	}
	sort.Slice(res, func(i, j int) bool {
		if order == models.OrderDeadline {
			return res[i].Deadline.Before(res[j].Deadline)
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *fakeInternshipRepo) DeleteOwned(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.rows[id]
	if !ok || in.PostedBy != ownerID {
		return repositories.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeInternshipRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for id, in := range r.rows {
		if !in.Deadline.After(now) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	announced []int64
	err       error
}

func (a *fakeAnnouncer) Announce(_ context.Context, in *models.Internship) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = append(a.announced, in.ID)
	return a.err
}

// testClock is a manually advanced clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testHasher() PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}
