package service_test

import (
	"context"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AuthService", func() {
	var (
		ctx      context.Context
		s        *store
		sessions *session.MemoryStore
		clock    *testClock
		auth     service.AuthService
		analyst  model.Role
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		sessions = session.NewMemoryStore(service.MaxSessionIdle)
		clock = &testClock{t: time.Now()}
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		auth = service.NewAuthService(fakeUsers{s}, sessions, session.NewTokenSigner("test-secret", time.Hour), config, service.Clock(clock.Now))

		analyst = s.addRole("analista", access.PermOverview, access.PermHistory)
		s.addUser("ana", "Secret#123", analyst, model.StatusActive)
		s.addUser("bob", "Secret#123", analyst, model.StatusInactive)
	})

	Describe("Authenticate", func() {
		It("opens a session with the role's permissions and records last access", func() {
			res, err := auth.Authenticate(ctx, "ana", "Secret#123")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Token).NotTo(BeEmpty())
			Expect(res.RestoreToken).NotTo(BeEmpty())
			Expect(res.Session.Username).To(Equal("ana"))
			Expect(res.Session.RoleName).To(Equal("analista"))
			Expect(res.Session.Permissions).To(ConsistOf(access.PermOverview, access.PermHistory))
			Expect(sessions.Len()).To(Equal(1))

			user, err := fakeUsers{s}.GetByUsername(ctx, "ana")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.LastAccess).NotTo(BeNil())
		})

		It("returns the same error for a wrong password, an unknown user and an inactive user", func() {
			_, err := auth.Authenticate(ctx, "ana", "wrong")
			Expect(err).To(MatchError(service.ErrInvalidCredentials))

			_, err = auth.Authenticate(ctx, "nobody", "Secret#123")
			Expect(err).To(MatchError(service.ErrInvalidCredentials))

			_, err = auth.Authenticate(ctx, "bob", "Secret#123")
			Expect(err).To(MatchError(service.ErrInvalidCredentials))

			Expect(sessions.Len()).To(Equal(0))
		})

		It("grants the super role every permission regardless of what is stored", func() {
			super := s.addRole(model.SuperRoleName, access.PermProfile)
			s.addUser(model.SuperadminUsername, "Admin#1234", super, model.StatusActive)

			res, err := auth.Authenticate(ctx, model.SuperadminUsername, "Admin#1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Session.Permissions).To(ConsistOf(access.AllPermissions))
		})
	})

	Describe("CheckAuthentication", func() {
		It("rejects an empty or unknown token", func() {
			_, err := auth.CheckAuthentication(ctx, "")
			Expect(err).To(MatchError(service.ErrUnauthenticated))

			_, err = auth.CheckAuthentication(ctx, "missing")
			Expect(err).To(MatchError(service.ErrUnauthenticated))
		})

		It("refreshes activity while the session is used", func() {
			res, err := auth.Authenticate(ctx, "ana", "Secret#123")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(50 * time.Minute)
			sess, err := auth.CheckAuthentication(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.LastActivity).To(BeTemporally("==", clock.Now()))

			clock.Advance(50 * time.Minute)
			_, err = auth.CheckAuthentication(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
		})

		It("expires and deletes a session idle past the configured timeout", func() {
			s.setConfig("session_timeout", "30", model.CategorySecurity)
			res, err := auth.Authenticate(ctx, "ana", "Secret#123")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(31 * time.Minute)
			_, err = auth.CheckAuthentication(ctx, res.Token)
			Expect(err).To(MatchError(service.ErrSessionExpired))
			Expect(sessions.Len()).To(Equal(0))

			_, err = auth.CheckAuthentication(ctx, res.Token)
			Expect(err).To(MatchError(service.ErrUnauthenticated))
		})
	})

	It("logs out by deleting the session", func() {
		res, err := auth.Authenticate(ctx, "ana", "Secret#123")
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.Logout(ctx, res.Token)).To(Succeed())
		_, err = auth.CheckAuthentication(ctx, res.Token)
		Expect(err).To(MatchError(service.ErrUnauthenticated))
	})

	Describe("Restore", func() {
		It("opens a fresh session from a restore token", func() {
			res, err := auth.Authenticate(ctx, "ana", "Secret#123")
			Expect(err).NotTo(HaveOccurred())

			restored, err := auth.Restore(ctx, res.RestoreToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Token).NotTo(Equal(res.Token))
			Expect(restored.Session.Username).To(Equal("ana"))
		})

		It("rejects garbage and users deactivated since", func() {
			_, err := auth.Restore(ctx, "not-a-token")
			Expect(err).To(MatchError(service.ErrInvalidCredentials))

			res, err := auth.Authenticate(ctx, "ana", "Secret#123")
			Expect(err).NotTo(HaveOccurred())
			user, _ := fakeUsers{s}.GetByUsername(ctx, "ana")
			user.Status = model.StatusInactive
			Expect(fakeUsers{s}.Update(ctx, user)).To(Succeed())

			_, err = auth.Restore(ctx, res.RestoreToken)
			Expect(err).To(MatchError(service.ErrInvalidCredentials))
		})
	})
})
