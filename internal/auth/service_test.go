package auth_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/profixcrm/profixcrm/internal/auth"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

type mockAuthRepository struct {
	credentials map[string]struct {
		userID   int64
		hash     string
		isActive bool
	}
	users    map[int64]*auth.User
	getError error
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		credentials: make(map[string]struct {
			userID   int64
			hash     string
			isActive bool
		}),
		users: make(map[int64]*auth.User),
	}
}

func (m *mockAuthRepository) addUser(id int64, email, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	m.credentials[email] = struct {
		userID   int64
		hash     string
		isActive bool
	}{id, string(hash), active}
	m.users[id] = &auth.User{ID: id, Email: email, Username: email}
}

func (m *mockAuthRepository) GetCredentialsForEmail(email string) (int64, string, bool, error) {
	if m.getError != nil {
		return 0, "", false, m.getError
	}
	cred, ok := m.credentials[email]
	if !ok {
		return 0, "", false, errors.New("no rows")
	}
	return cred.userID, cred.hash, cred.isActive, nil
}

func (m *mockAuthRepository) GetUserWithPermissions(userID int64) (*auth.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, errors.New("no rows")
	}
	return user, nil
}

var _ = Describe("Auth Service", func() {
	var (
		repo    *mockAuthRepository
		service *auth.Service
	)

	newService := func(accessTTL, refreshTTL time.Duration) *auth.Service {
		tokenGen := auth.NewJWTTokenGenerator(
			"test-access-secret-0123456789abcdef",
			"test-refresh-secret-0123456789abcdef",
			accessTTL,
			refreshTTL,
		)
		return auth.NewService(repo, tokenGen, bcrypt.MinCost)
	}

	BeforeEach(func() {
		repo = newMockAuthRepository()
		service = newService(15*time.Minute, 7*24*time.Hour)
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			repo.addUser(1, "agent@example.com", "correct-password", true)
		})

		It("issues both tokens on valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "agent@example.com",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())
		})

		It("rejects a wrong password as invalid credentials", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "agent@example.com",
				Password: "wrong-password",
			})
			Expect(err).To(Equal(auth.ErrInvalidCredentials))
		})

		It("reports a missing account the same way as a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "ghost@example.com",
				Password: "whatever-password",
			})
			Expect(err).To(Equal(auth.ErrInvalidCredentials))
		})

		It("rejects a deactivated account with its own error", func() {
			repo.addUser(2, "gone@example.com", "correct-password", false)

			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "gone@example.com",
				Password: "correct-password",
			})
			Expect(err).To(Equal(auth.ErrUserInactive))
		})

		It("validates the request shape before touching storage", func() {
			_, err := service.Authenticate(auth.LoginDTO{Email: "", Password: ""})
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(Equal(auth.ErrInvalidCredentials))
		})
	})

	Describe("token round trip", func() {
		It("validates a freshly issued access token", func() {
			repo.addUser(1, "agent@example.com", "correct-password", true)
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "agent@example.com",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("1"))
			Expect(claims.Email).To(Equal("agent@example.com"))
		})

		It("refreshes into a new valid pair", func() {
			repo.addUser(1, "agent@example.com", "correct-password", true)
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "agent@example.com",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed.AccessToken).NotTo(BeEmpty())

			claims, err := service.ValidateAccessToken(refreshed.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("1"))
		})

		It("rejects garbage tokens", func() {
			_, err := service.ValidateAccessToken("not-a-token")
			Expect(err).To(Equal(auth.ErrInvalidToken))
		})

		It("rejects an expired token", func() {
			expiredGen := auth.NewJWTTokenGenerator(
				"test-access-secret-0123456789abcdef",
				"test-refresh-secret-0123456789abcdef",
				-15*time.Minute,
				7*24*time.Hour,
			)
			token, err := expiredGen.GenerateAccessToken("1", "agent@example.com")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ValidateAccessToken(token)
			Expect(err).To(Equal(auth.ErrTokenExpired))
		})
	})

	Describe("GetUserWithPermissions", func() {
		It("returns the principal with its resolved permissions", func() {
			repo.users[5] = &auth.User{
				ID:          5,
				Email:       "manager@example.com",
				Username:    "manager",
				Permissions: []string{"leads.view.desk", "leads.assign"},
			}

			user, err := service.GetUserWithPermissions(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.HasPermission("leads.assign")).To(BeTrue())
			Expect(user.HasPermission("leads.view.all")).To(BeFalse())
			Expect(user.HasAnyPermission([]string{"leads.view.all", "leads.view.desk"})).To(BeTrue())
		})
	})
})
