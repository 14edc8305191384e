package user_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cpdo/zoning-tracker/internal"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/user"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockRepository struct {
	users      map[int64]*userDatamodel.User
	nextID     int64
	shouldFail bool
	createErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]*userDatamodel.User)}
}

func (m *mockRepository) Create(_ context.Context, u *userDatamodel.User) error {
	if m.shouldFail {
		return errors.New("database error")
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockRepository) Update(_ context.Context, u *userDatamodel.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *mockRepository) List(_ context.Context) ([]*userDatamodel.User, error) {
	if m.shouldFail {
		return nil, errors.New("database error")
	}
	out := make([]*userDatamodel.User, 0, len(m.users))
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockRepository) exists(match func(*userDatamodel.User) bool, excludeID int64) bool {
	for id, u := range m.users {
		if id != excludeID && match(u) {
			return true
		}
	}
	return false
}

func (m *mockRepository) UsernameExists(_ context.Context, username string, excludeID int64) (bool, error) {
	return m.exists(func(u *userDatamodel.User) bool { return strings.EqualFold(u.Username, username) }, excludeID), nil
}

func (m *mockRepository) EmailExists(_ context.Context, email string, excludeID int64) (bool, error) {
	return m.exists(func(u *userDatamodel.User) bool { return strings.EqualFold(u.Email, email) }, excludeID), nil
}

// seed stores a user with a real hash of password.
func (m *mockRepository) seed(username, email, password, role string) *userDatamodel.User {
	hash, err := user.HashPassword(password, 4)
	Expect(err).NotTo(HaveOccurred())
	u := &userDatamodel.User{Username: username, Email: email, PasswordHash: hash, Name: username, Role: role}
	Expect(m.Create(context.Background(), u)).To(Succeed())
	return u
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func asPrincipal(u *userDatamodel.User) context.Context {
	return withPrincipal(context.Background(), u)
}

// withPrincipal keeps whatever ctx already carries, such as chi's route context.
func withPrincipal(ctx context.Context, u *userDatamodel.User) context.Context {
	return internal.ContextWithPrincipal(ctx, &internal.Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	})
}

func codeOf(err error) internal.ErrorCode {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Code
}

func fieldCodeOf(err error) string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	return details.Errors[0].Code
}

var _ = Describe("User Service", func() {
	var (
		repo      *mockRepository
		publisher *recordingPublisher
		service   *user.Service
		admin     *userDatamodel.User
		adminCtx  context.Context
	)

	newUser := func(username, email string) user.CreateUserDTO {
		return user.CreateUserDTO{
			FirstName:       "Juan",
			LastName:        "Dela Cruz",
			Username:        username,
			Email:           email,
			Password:        "secret1",
			ConfirmPassword: "secret1",
		}
	}

	BeforeEach(func() {
		repo = newMockRepository()
		publisher = &recordingPublisher{}
		service = user.NewService(repo, 4, publisher, logger.Discard())
		admin = repo.seed("admin", "admin@cpdo.gov.ph", "adminpass", internal.RoleAdmin)
		adminCtx = asPrincipal(admin)
	})

	Describe("Create", func() {
		It("should create a user with defaults and a hashed password", func() {
			// Given an admin caller
			// When creating an account without role, designation or section
			created, err := service.Create(adminCtx, newUser("juan", "juan@cpdo.gov.ph"))

			// Then defaults are applied and the password is stored hashed
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Name).To(Equal("Juan Dela Cruz"))
			Expect(created.Role).To(Equal(internal.RoleUser))
			Expect(created.Designation).To(Equal(user.DefaultDesignation))
			Expect(created.Section).To(Equal(user.DefaultSection))
			stored := repo.users[created.ID]
			Expect(stored.PasswordHash).NotTo(Equal("secret1"))
			Expect(user.VerifyPassword(stored.PasswordHash, "secret1")).To(Succeed())
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeUserCreated}))
		})

		It("should reject a username taken with different case", func() {
			_, err := service.Create(adminCtx, newUser("ADMIN", "other@cpdo.gov.ph"))
			Expect(err).To(MatchError(user.ErrUsernameTaken))
		})

		It("should reject a registered email", func() {
			_, err := service.Create(adminCtx, newUser("other", "Admin@cpdo.gov.ph"))
			Expect(err).To(MatchError(user.ErrEmailTaken))
		})

		It("should return the conflict when a concurrent insert wins the race", func() {
			// Given the existence checks pass but the unique index rejects the row
			repo.createErr = user.ErrUsernameTaken

			_, err := service.Create(adminCtx, newUser("juan", "juan@cpdo.gov.ph"))

			Expect(err).To(MatchError(user.ErrUsernameTaken))
			var appErr *internal.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(409))
			Expect(publisher.Types()).To(BeEmpty())
		})

		It("should refuse non-admin callers", func() {
			editor := repo.seed("editor", "editor@cpdo.gov.ph", "secret1", internal.RoleUser)
			_, err := service.Create(asPrincipal(editor), newUser("juan", "juan@cpdo.gov.ph"))
			Expect(err).To(MatchError(user.ErrAdminRequired))
		})

		It("should reject invalid input before touching the repository", func() {
			dto := newUser("juan", "not-an-email")
			_, err := service.Create(adminCtx, dto)
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidEmail)))
			Expect(repo.users).To(HaveLen(1))
		})
	})

	Describe("Update", func() {
		It("should keep the password when none is given", func() {
			created, err := service.Create(adminCtx, newUser("juan", "juan@cpdo.gov.ph"))
			Expect(err).NotTo(HaveOccurred())
			before := repo.users[created.ID].PasswordHash

			updated, err := service.Update(adminCtx, created.ID, user.UpdateUserDTO{
				FirstName: "Juana",
				LastName:  "Dela Cruz",
				Username:  "juana",
				Email:     "juana@cpdo.gov.ph",
				Role:      internal.RoleViewer,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Juana Dela Cruz"))
			Expect(updated.Role).To(Equal(internal.RoleViewer))
			Expect(repo.users[created.ID].PasswordHash).To(Equal(before))
		})

		It("should allow a user to keep their own username", func() {
			updated, err := service.Update(adminCtx, admin.ID, user.UpdateUserDTO{
				FirstName: "Site",
				LastName:  "Admin",
				Username:  "admin",
				Email:     "admin@cpdo.gov.ph",
				Role:      internal.RoleAdmin,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Username).To(Equal("admin"))
		})

		It("should return not found for an unknown id", func() {
			_, err := service.Update(adminCtx, 99, user.UpdateUserDTO{
				FirstName: "A", LastName: "B", Username: "abc", Email: "abc@cpdo.gov.ph", Role: internal.RoleUser,
			})
			Expect(err).To(MatchError(user.ErrUserNotFound))
		})
	})

	Describe("Delete", func() {
		It("should refuse to delete the caller's own account", func() {
			err := service.Delete(adminCtx, admin.ID)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeCannotDeleteSelf))
			Expect(repo.users).To(HaveKey(admin.ID))
		})

		It("should delete another account and publish", func() {
			other := repo.seed("other", "other@cpdo.gov.ph", "secret1", internal.RoleUser)
			Expect(service.Delete(adminCtx, other.ID)).To(Succeed())
			Expect(repo.users).NotTo(HaveKey(other.ID))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeUserDeleted))
		})
	})

	Describe("List and Get", func() {
		It("should require an admin", func() {
			viewer := repo.seed("viewer", "viewer@cpdo.gov.ph", "secret1", internal.RoleViewer)
			_, err := service.List(asPrincipal(viewer))
			Expect(err).To(MatchError(user.ErrAdminRequired))
			_, err = service.Get(asPrincipal(viewer), admin.ID)
			Expect(err).To(MatchError(user.ErrAdminRequired))
		})

		It("should list every account for an admin", func() {
			repo.seed("viewer", "viewer@cpdo.gov.ph", "secret1", internal.RoleViewer)
			users, err := service.List(adminCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(2))
		})
	})

	Describe("Directory", func() {
		It("should be sorted by name for any caller", func() {
			viewer := repo.seed("viewer", "viewer@cpdo.gov.ph", "secret1", internal.RoleViewer)
			repo.users[viewer.ID].Name = "Bea Santos"
			repo.users[admin.ID].Name = ""

			entries, err := service.Directory(asPrincipal(viewer))

			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Name).To(Equal("admin"))
			Expect(entries[1].Name).To(Equal("Bea Santos"))
		})
	})

	Describe("UpdateProfile", func() {
		It("should reject an email owned by someone else", func() {
			repo.seed("other", "other@cpdo.gov.ph", "secret1", internal.RoleUser)
			_, err := service.UpdateProfile(adminCtx, user.UpdateProfileDTO{Username: "admin", Email: "OTHER@cpdo.gov.ph"})
			Expect(err).To(MatchError(user.ErrEmailTaken))
		})

		It("should store the new username and publish a settings event", func() {
			updated, err := service.UpdateProfile(adminCtx, user.UpdateProfileDTO{Username: "chief", Email: "admin@cpdo.gov.ph"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Username).To(Equal("chief"))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeSettingsChanged}))
		})

		It("should require an authenticated caller", func() {
			_, err := service.UpdateProfile(context.Background(), user.UpdateProfileDTO{Username: "x", Email: "x@y.z"})
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("ChangePassword", func() {
		It("should reject a wrong current password", func() {
			err := service.ChangePassword(adminCtx, user.ChangePasswordDTO{
				CurrentPassword: "nope",
				NewPassword:     "newpass1",
				ConfirmPassword: "newpass1",
			})
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeWrongPassword)))
			Expect(user.VerifyPassword(repo.users[admin.ID].PasswordHash, "adminpass")).To(Succeed())
		})

		It("should reject a mismatched confirmation", func() {
			err := service.ChangePassword(adminCtx, user.ChangePasswordDTO{
				CurrentPassword: "adminpass",
				NewPassword:     "newpass1",
				ConfirmPassword: "newpass2",
			})
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodePasswordMismatch)))
		})

		It("should store the new password", func() {
			err := service.ChangePassword(adminCtx, user.ChangePasswordDTO{
				CurrentPassword: "adminpass",
				NewPassword:     "newpass1",
				ConfirmPassword: "newpass1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.VerifyPassword(repo.users[admin.ID].PasswordHash, "newpass1")).To(Succeed())
			Expect(publisher.Types()).To(Equal([]string{events.EventTypePasswordChanged}))
		})
	})
})
