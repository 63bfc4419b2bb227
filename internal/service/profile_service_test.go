package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("ProfileService", func() {
	var (
		ctx      context.Context
		s        *store
		sessions *session.MemoryStore
		auth     service.AuthService
		profile  service.ProfileService
		user     model.User
		actor    service.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		sessions = session.NewMemoryStore(service.MaxSessionIdle)
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		auth = service.NewAuthService(fakeUsers{s}, sessions, session.NewTokenSigner("k", time.Hour), config, nil)
		profile = service.NewProfileService(fakeUsers{s}, config, auth)

		role := s.addRole("analista", access.PermProfile)
		user = s.addUser("ana", "Secret#123", role, model.StatusActive)
		s.addUser("bob", "Secret#123", role, model.StatusActive)
		actor = actorFor(user, role)
	})

	It("updates the email and the live session", func() {
		login, err := auth.Authenticate(ctx, "ana", "Secret#123")
		Expect(err).NotTo(HaveOccurred())

		res, err := profile.UpdateEmail(ctx, actor, login.Token, service.UpdateEmailRequest{Email: "ana.new@example.com"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Email).To(Equal("ana.new@example.com"))

		sess, err := sessions.Get(ctx, login.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Email).To(Equal("ana.new@example.com"))
	})

	It("refuses an email held by someone else", func() {
		_, err := profile.UpdateEmail(ctx, actor, "", service.UpdateEmailRequest{Email: "BOB@example.com"})
		Expect(err).To(BeAssignableToTypeOf(&service.ValidationError{}))
		_, err = profile.UpdateEmail(ctx, actor, "", service.UpdateEmailRequest{Email: "bad"})
		Expect(err).To(BeAssignableToTypeOf(&service.ValidationError{}))
	})

	DescribeTable("ChangePassword rejections",
		func(req service.ChangePasswordRequest, field string) {
			err := profile.ChangePassword(ctx, actor, req)
			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal(field))
		},
		Entry("missing field", service.ChangePasswordRequest{CurrentPassword: "Secret#123", NewPassword: "New#12345"}, "password"),
		Entry("wrong current", service.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "New#12345", ConfirmPassword: "New#12345"}, "current_password"),
		Entry("mismatch", service.ChangePasswordRequest{CurrentPassword: "Secret#123", NewPassword: "New#12345", ConfirmPassword: "New#54321"}, "confirm_password"),
		Entry("weak", service.ChangePasswordRequest{CurrentPassword: "Secret#123", NewPassword: "weak", ConfirmPassword: "weak"}, "new_password"),
	)

	It("changes the password", func() {
		Expect(profile.ChangePassword(ctx, actor, service.ChangePasswordRequest{
			CurrentPassword: "Secret#123", NewPassword: "New#12345", ConfirmPassword: "New#12345",
		})).To(Succeed())
		Expect(bcrypt.CompareHashAndPassword([]byte(s.users[user.ID].Password), []byte("New#12345"))).To(Succeed())
	})
})

var _ = Describe("APIKeyService", func() {
	var (
		ctx    context.Context
		s      *store
		listed []string
		keys   service.APIKeyService
	)

	openaiKey := "sk-" + "abcdefghijklmnopqrstuvwxyz0123456789ABCD"

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		listed = nil
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		keys = service.NewAPIKeyService(config, func(_ context.Context, key string) (int, error) {
			listed = append(listed, key)
			if key == openaiKey {
				return 3, nil
			}
			return 0, errors.New("401")
		})
	})

	It("checks the format per provider", func() {
		res, err := keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "anthropic", APIKey: "sk-short"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Valid).To(BeFalse())

		res, err = keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "agentops", APIKey: "0123456789abcdefghijklm"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Valid).To(BeTrue())
		Expect(res.Live).To(BeFalse())
	})

	It("falls back to the stored key when given the mask", func() {
		s.setConfig("openai_api_key", openaiKey, model.CategoryAPI)
		res, err := keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "OpenAI", APIKey: service.SecretMask, Live: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Valid).To(BeTrue())
		Expect(res.Live).To(BeTrue())
		Expect(res.Message).To(ContainSubstring("3 models"))
		Expect(listed).To(Equal([]string{openaiKey}))
	})

	It("reports a missing key and a rejected key", func() {
		res, err := keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "openai"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Valid).To(BeFalse())
		Expect(res.Message).To(ContainSubstring("required"))

		res, err = keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "openai", APIKey: "sk-" + "zyxwvutsrqponmlkjihgfedcba9876543210ZYXW", Live: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Valid).To(BeFalse())
	})

	It("rejects unknown providers", func() {
		_, err := keys.CheckKey(ctx, service.APIKeyCheckRequest{Provider: "cohere", APIKey: "x"})
		Expect(err).To(BeAssignableToTypeOf(&service.ValidationError{}))
	})
})
