package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"userprofile-service/internal/domain"
)

var errBoom = errors.New("boom")

// fakeSession records every call and can be told to fail any of them.
// Writes made through it register undo funcs that Rollback runs.
type fakeSession struct {
	state SessionState
	level IsolationLevel

	begins, commits, rollbacks, releases int

	beginErr, commitErr, rollbackErr, releaseErr error

	undo []func()
}

func (f *fakeSession) Begin(_ context.Context, l IsolationLevel) error {
	f.begins++
	f.level = l
	if f.beginErr != nil {
		return f.beginErr
	}
	f.state = SessionActive
	return nil
}

func (f *fakeSession) Commit(context.Context) error {
	f.commits++
	if f.commitErr != nil {
		return f.commitErr
	}
	f.undo = nil
	f.state = SessionCommitted
	return nil
}

func (f *fakeSession) Rollback(context.Context) error {
	f.rollbacks++
	for i := len(f.undo) - 1; i >= 0; i-- {
		f.undo[i]()
	}
	f.undo = nil
	if f.rollbackErr != nil {
		return f.rollbackErr
	}
	f.state = SessionRolledBack
	return nil
}

func (f *fakeSession) Release(context.Context) error {
	f.releases++
	f.state = SessionReleased
	return f.releaseErr
}

func (f *fakeSession) State() SessionState { return f.state }

type fakeFactory struct {
	sess  *fakeSession
	err   error
	calls int
	block bool
}

func (f *fakeFactory) NewSession(ctx context.Context) (Session, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.sess == nil {
		f.sess = &fakeSession{state: SessionIdle}
	}
	return f.sess, nil
}

// memDB is a tiny store shared by the fake repos.
type memDB struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]domain.User
	profiles map[int64]domain.Profile
}

func newMemDB() *memDB {
	return &memDB{users: map[int64]domain.User{}, profiles: map[int64]domain.Profile{}}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

type fakeUserRepo struct {
	db        *memDB
	createErr error
	getErr    error
}

func (r *fakeUserRepo) Create(_ context.Context, u domain.NewUser, sess Session) (domain.User, error) {
	if r.createErr != nil {
		return domain.User{}, r.createErr
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := domain.User{ID: r.db.id(), Name: u.Name, Email: u.Email, CreatedAt: time.Now().UTC()}
	r.db.users[out.ID] = out
	if fs, ok := sess.(*fakeSession); ok {
		fs.undo = append(fs.undo, func() {
			r.db.mu.Lock()
			defer r.db.mu.Unlock()
			delete(r.db.users, out.ID)
		})
	}
	return out, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	if r.getErr != nil {
		return domain.User{}, r.getErr
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListWithoutProfile(_ context.Context, limit int) ([]domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	has := map[int64]bool{}
	for _, p := range r.db.profiles {
		has[p.UserID] = true
	}
	var out []domain.User
	for _, u := range r.db.users {
		if !has[u.ID] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeProfileRepo struct {
	db        *memDB
	createErr error
}

func (r *fakeProfileRepo) Create(_ context.Context, p domain.NewProfile, sess Session) (domain.Profile, error) {
	if r.createErr != nil {
		return domain.Profile{}, r.createErr
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[p.UserID]; !ok {
		return domain.Profile{}, errors.New("foreign key violation")
	}
	out := domain.Profile{ID: r.db.id(), UserID: p.UserID, Bio: p.Bio, CreatedAt: time.Now().UTC()}
	r.db.profiles[out.ID] = out
	if fs, ok := sess.(*fakeSession); ok {
		fs.undo = append(fs.undo, func() {
			r.db.mu.Lock()
			defer r.db.mu.Unlock()
			delete(r.db.profiles, out.ID)
		})
	}
	return out, nil
}

func (r *fakeProfileRepo) ListByUserID(_ context.Context, userID int64) ([]domain.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Profile
	for _, p := range r.db.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeIdem struct{ seen map[string]bool }

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	delete(f.seen, k)
	return nil
}
