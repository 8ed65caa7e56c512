package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(opts ...Option) (*UserService, *memDB, *fakeFactory) {
	db := newMemDB()
	f := &fakeFactory{}
	svc := NewUserService(&fakeUserRepo{db: db}, &fakeProfileRepo{db: db}, NewUnitOfWork(f), opts...)
	return svc, db, f
}

func ann() CreateUserInput {
	return CreateUserInput{Name: "Ann", Email: "ann@x.com", Bio: "hi"}
}

func Test_CreateTransactional_Commits(t *testing.T) {
	t.Parallel()
	svc, _, f := newTestService()

	out, err := svc.CreateUserWithProfileTransactional(context.Background(), ann())
	require.NoError(t, err)
	require.NotZero(t, out.User.ID)
	require.Equal(t, "Ann", out.User.Name)
	require.Equal(t, out.User.ID, out.Profile.UserID)
	require.Equal(t, "hi", out.Profile.Bio)
	require.Equal(t, 1, f.sess.commits)

	got, err := svc.GetUser(context.Background(), out.User.ID)
	require.NoError(t, err)
	require.Len(t, got.Profiles, 1)
}

func Test_CreateTransactional_FaultLeavesNothing(t *testing.T) {
	t.Parallel()
	svc, db, f := newTestService(WithFaultInjector(FailAt(StepUserCreated)))

	_, err := svc.CreateUserWithProfileTransactional(context.Background(), ann())
	var wf *WorkFailure
	require.ErrorAs(t, err, &wf)
	require.Equal(t, "transactional operation failed", wf.Message)
	require.Nil(t, wf.UserCreated)
	require.ErrorIs(t, err, ErrInjectedFault)
	require.Equal(t, 1, f.sess.rollbacks)
	require.Empty(t, db.users)

	_, err = svc.users.GetByID(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_CreateNonTransactional_FaultLeavesOrphan(t *testing.T) {
	t.Parallel()
	svc, _, f := newTestService(WithFaultInjector(FailAt(StepUserCreated)))

	_, err := svc.CreateUserWithProfileNonTransactional(context.Background(), ann())
	var wf *WorkFailure
	require.ErrorAs(t, err, &wf)
	require.Equal(t, "non-transactional operation failed", wf.Message)
	require.NotNil(t, wf.UserCreated)
	require.Equal(t, "ann@x.com", wf.UserCreated.Email)
	require.Nil(t, f.sess, "non-transactional path must not open a session")

	orphans, err := svc.ListOrphans(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, wf.UserCreated.ID, orphans[0].ID)
}

func Test_CreateNonTransactional_Succeeds(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	out, err := svc.CreateUserWithProfileNonTransactional(context.Background(), ann())
	require.NoError(t, err)
	require.Equal(t, out.User.ID, out.Profile.UserID)
}

func Test_Create_UserWriteFails_NoSnapshot(t *testing.T) {
	t.Parallel()
	db := newMemDB()
	errDB := errors.New("unique violation")
	svc := NewUserService(&fakeUserRepo{db: db, createErr: errDB}, &fakeProfileRepo{db: db}, NewUnitOfWork(&fakeFactory{}))

	for _, run := range []func(context.Context, CreateUserInput) (UserWithProfile, error){
		svc.CreateUserWithProfileNonTransactional,
		svc.CreateUserWithProfileTransactional,
	} {
		_, err := run(context.Background(), ann())
		var wf *WorkFailure
		require.ErrorAs(t, err, &wf)
		require.Nil(t, wf.UserCreated)
		require.Same(t, errDB, wf.Cause)
	}
}

func Test_Create_ProfileWriteFails(t *testing.T) {
	t.Parallel()
	db := newMemDB()
	errDB := errors.New("profiles: disk full")
	svc := NewUserService(&fakeUserRepo{db: db}, &fakeProfileRepo{db: db, createErr: errDB}, NewUnitOfWork(&fakeFactory{}))

	_, err := svc.CreateUserWithProfileTransactional(context.Background(), ann())
	var wf *WorkFailure
	require.ErrorAs(t, err, &wf)
	require.Nil(t, wf.UserCreated)
	require.ErrorIs(t, err, errDB)

	_, err = svc.CreateUserWithProfileNonTransactional(context.Background(), ann())
	require.ErrorAs(t, err, &wf)
	require.NotNil(t, wf.UserCreated)
}

func Test_Create_RereadFailureKeepsCause(t *testing.T) {
	t.Parallel()
	db := newMemDB()
	users := &fakeUserRepo{db: db, getErr: errors.New("read timeout")}
	svc := NewUserService(users, &fakeProfileRepo{db: db}, NewUnitOfWork(&fakeFactory{}),
		WithFaultInjector(FailAt(StepUserCreated)))

	_, err := svc.CreateUserWithProfileNonTransactional(context.Background(), ann())
	var wf *WorkFailure
	require.ErrorAs(t, err, &wf)
	require.Nil(t, wf.UserCreated)
	require.ErrorIs(t, wf.Cause, ErrInjectedFault)
}

func Test_Create_IdempotencyConflict(t *testing.T) {
	t.Parallel()
	svc, db, _ := newTestService(WithIdempotency(&fakeIdem{}))
	in := ann()
	in.IdempotencyKey = "ik-1"

	_, err := svc.CreateUserWithProfileTransactional(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.CreateUserWithProfileNonTransactional(context.Background(), in)
	require.ErrorIs(t, err, ErrConflict)
	require.Len(t, db.users, 1)
}

func Test_GetUser_NotFound(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	_, err := svc.GetUser(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_WorkFailure_Error(t *testing.T) {
	t.Parallel()
	wf := &WorkFailure{Message: "transactional operation failed", Cause: errBoom}
	require.Equal(t, "transactional operation failed: boom", wf.Error())
	require.Same(t, errBoom, errors.Unwrap(wf))
}

func Test_Create_IdempotencyKeyReleasedOnlyWithoutPartialEffect(t *testing.T) {
	t.Parallel()
	idem := &fakeIdem{}
	svc, db, _ := newTestService(WithIdempotency(idem), WithFaultInjector(FailAt(StepUserCreated)))
	in := ann()

	in.IdempotencyKey = "tx-key"
	_, err := svc.CreateUserWithProfileTransactional(context.Background(), in)
	require.Error(t, err)
	require.False(t, idem.seen[userCreateKey("tx-key")], "rolled back: key must be retryable")

	in.IdempotencyKey = "plain-key"
	_, err = svc.CreateUserWithProfileNonTransactional(context.Background(), in)
	require.Error(t, err)
	require.True(t, idem.seen[userCreateKey("plain-key")], "orphan written: key must stay reserved")
	require.Len(t, db.users, 1)
}

func Test_ParseStep(t *testing.T) {
	got, err := ParseStep("user_created")
	require.NoError(t, err)
	require.Equal(t, StepUserCreated, got)

	for _, in := range []string{"true", "1", "USER_CREATED", ""} {
		_, err := ParseStep(in)
		require.ErrorIs(t, err, ErrBadRequest, in)
	}
}
