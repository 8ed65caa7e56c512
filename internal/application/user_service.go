package application

import (
	"context"
	"errors"
	"fmt"

	"userprofile-service/internal/domain"

	"go.uber.org/zap"
)

const defaultOrphanLimit = 100

// Step names a point in a workflow where a FaultInjector is consulted.
type Step string

const StepUserCreated Step = "user_created"

// FaultInjector is called at each Step; a non-nil error aborts the workflow
// at that point as if the next write had failed.
type FaultInjector func(ctx context.Context, step Step) error

// FailAt returns a FaultInjector that fails with ErrInjectedFault at step.
func FailAt(step Step) FaultInjector {
	return func(_ context.Context, s Step) error {
		if s == step {
			return fmt.Errorf("%w at %s", ErrInjectedFault, s)
		}
		return nil
	}
}

// ParseStep accepts the name of a known workflow Step.
func ParseStep(s string) (Step, error) {
	switch Step(s) {
	case StepUserCreated:
		return StepUserCreated, nil
	}
	return "", fmt.Errorf("%w: unknown workflow step %q", ErrBadRequest, s)
}

type CreateUserInput struct {
	Name           string
	Email          string
	Bio            string
	IdempotencyKey string
}

type UserWithProfile struct {
	User    domain.User
	Profile domain.Profile
}

type UserDetails struct {
	User     domain.User
	Profiles []domain.Profile
}

type UserService struct {
	users     UserRepo
	profiles  ProfileRepo
	uow       *UnitOfWork
	idem      IdempotencyStore
	isolation IsolationLevel
	fault     FaultInjector
	log       *zap.Logger
}

type Option func(*UserService)

func WithIsolation(l IsolationLevel) Option {
	return func(s *UserService) { s.isolation = l }
}

// WithFaultInjector installs a hook consulted between the user and profile
// writes.
func WithFaultInjector(f FaultInjector) Option {
	return func(s *UserService) { s.fault = f }
}

func WithIdempotency(st IdempotencyStore) Option {
	return func(s *UserService) { s.idem = st }
}

func WithLogger(l *zap.Logger) Option { return func(s *UserService) { s.log = l } }

func NewUserService(users UserRepo, profiles ProfileRepo, uow *UnitOfWork, opts ...Option) *UserService {
	s := &UserService{
		users:    users,
		profiles: profiles,
		uow:      uow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.isolation == "" {
		s.isolation = DefaultIsolation
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// CreateUserWithProfileNonTransactional writes the user and then the profile,
// each committing on its own. A failure between the two writes leaves the user
// without a profile; the returned *WorkFailure shows it.
func (s *UserService) CreateUserWithProfileNonTransactional(ctx context.Context, in CreateUserInput) (UserWithProfile, error) {
	if err := s.reserve(ctx, in.IdempotencyKey); err != nil {
		return UserWithProfile{}, err
	}
	var userID int64
	out, err := s.writeUserAndProfile(ctx, in, nil, &userID)
	if err != nil {
		return UserWithProfile{}, s.fail(ctx, "non-transactional operation failed", in.IdempotencyKey, userID, err)
	}
	return out, nil
}

// CreateUserWithProfileTransactional writes the user and the profile on one
// session inside one transaction. On failure nothing is left behind, which the
// re-read in the returned *WorkFailure confirms.
func (s *UserService) CreateUserWithProfileTransactional(ctx context.Context, in CreateUserInput) (UserWithProfile, error) {
	if err := s.reserve(ctx, in.IdempotencyKey); err != nil {
		return UserWithProfile{}, err
	}
	var userID int64
	out, err := WithTransaction(ctx, s.uow, s.isolation, func(ctx context.Context, sess Session) (UserWithProfile, error) {
		return s.writeUserAndProfile(ctx, in, sess, &userID)
	})
	if err != nil {
		return UserWithProfile{}, s.fail(ctx, "transactional operation failed", in.IdempotencyKey, userID, err)
	}
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (UserDetails, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserDetails{}, err
	}
	profiles, err := s.profiles.ListByUserID(ctx, id)
	if err != nil {
		return UserDetails{}, err
	}
	return UserDetails{User: u, Profiles: profiles}, nil
}

// ListOrphans returns users that have no profile, oldest first.
func (s *UserService) ListOrphans(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultOrphanLimit
	}
	return s.users.ListWithoutProfile(ctx, limit)
}

// writeUserAndProfile stores the id of the user as soon as it exists so the
// caller can look it up after a failure.
func (s *UserService) writeUserAndProfile(ctx context.Context, in CreateUserInput, sess Session, userID *int64) (UserWithProfile, error) {
	user, err := s.users.Create(ctx, domain.NewUser{Name: in.Name, Email: in.Email}, sess)
	if err != nil {
		return UserWithProfile{}, err
	}
	*userID = user.ID

	if s.fault != nil {
		if err := s.fault(ctx, StepUserCreated); err != nil {
			return UserWithProfile{}, err
		}
	}

	profile, err := s.profiles.Create(ctx, domain.NewProfile{UserID: user.ID, Bio: in.Bio}, sess)
	if err != nil {
		return UserWithProfile{}, err
	}
	return UserWithProfile{User: user, Profile: profile}, nil
}

// fail builds the WorkFailure for a workflow error. The idempotency key is
// released only when storage shows nothing was written, so a retry cannot
// create a second user.
func (s *UserService) fail(ctx context.Context, msg, idemKey string, userID int64, cause error) error {
	ctx = context.WithoutCancel(ctx)
	wf := &WorkFailure{Message: msg, Cause: cause}
	log := s.log.With(zap.String("workflow", msg), zap.Int64("user_id", userID))
	rereadOK := true
	if userID != 0 {
		u, err := s.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			wf.UserCreated = &u
		case errors.Is(err, ErrNotFound):
		default:
			rereadOK = false
			log.Warn("workflow.reread_failed", zap.Error(err))
		}
	}
	if idemKey != "" && rereadOK && wf.UserCreated == nil {
		if err := s.idem.Release(ctx, userCreateKey(idemKey)); err != nil {
			log.Warn("workflow.idempotency_release_failed", zap.Error(err))
		}
	}
	log.Warn("workflow.failed", zap.Bool("user_exists", wf.UserCreated != nil), zap.Error(cause))
	return wf
}

func (s *UserService) reserve(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	ok, err := s.idem.TryReserve(ctx, userCreateKey(key))
	if err != nil {
		return fmt.Errorf("idempotency: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}
