package service_test

import (
	"context"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConfigService", func() {
	var (
		ctx    context.Context
		s      *store
		config service.ConfigService
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		config = service.NewConfigService(fakeConfigs{s}, passthroughTx{})
	})

	It("merges stored values over defaults", func() {
		s.setConfig("dashboard_name", "Panel", model.CategoryGeneral)
		values, err := config.GetCategory(ctx, model.CategoryGeneral, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveKeyWithValue("dashboard_name", "Panel"))
		Expect(values).To(HaveKeyWithValue("timezone", "America/Bogota"))
	})

	It("masks secrets on read and keeps them when the mask is written back", func() {
		s.setConfig("n8n_password", "hunter2", model.CategoryAPI)

		values, err := config.GetCategory(ctx, model.CategoryAPI, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveKeyWithValue("n8n_password", service.SecretMask))

		_, err = config.SaveCategory(ctx, model.CategoryAPI, map[string]string{
			"n8n_username": "bot",
			"n8n_password": service.SecretMask,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Get(ctx, "n8n_password", model.CategoryAPI, "")).To(Equal("hunter2"))
		Expect(config.Get(ctx, "n8n_username", model.CategoryAPI, "")).To(Equal("bot"))
	})

	It("rejects an invalid batch without saving any of it", func() {
		_, err := config.SaveCategory(ctx, model.CategoryAppearance, map[string]string{
			"color_base_bg":   "#000000",
			"color_navbar_bg": "green",
		})
		var verr *service.ValidationError
		Expect(err).To(BeAssignableToTypeOf(verr))
		Expect(err.Error()).To(ContainSubstring("color_navbar_bg"))
		Expect(s.configs).To(BeEmpty())
	})

	It("rejects unknown keys and categories", func() {
		_, err := config.SaveCategory(ctx, model.CategoryGeneral, map[string]string{"nope": "1"})
		Expect(err).To(HaveOccurred())

		_, err = config.GetCategory(ctx, "missing", false)
		Expect(err).To(MatchError(service.ErrNotFound))
	})

	It("falls back to defaults for wrong categories and unparsable values", func() {
		s.setConfig("password_min_length", "abc", model.CategorySecurity)
		s.setConfig("session_timeout", "30", model.CategoryGeneral)
		Expect(config.GetInt(ctx, "password_min_length", model.CategorySecurity, 8)).To(Equal(8))
		Expect(config.SessionTimeout(ctx)).To(Equal(60 * time.Minute))
	})

	It("clamps the session timeout", func() {
		s.setConfig("session_timeout", "1", model.CategorySecurity)
		Expect(config.SessionTimeout(ctx)).To(Equal(5 * time.Minute))
		s.setConfig("session_timeout", "100000", model.CategorySecurity)
		Expect(config.SessionTimeout(ctx)).To(Equal(service.MaxSessionIdle))
	})

	It("uses the default zone when the stored one is unknown", func() {
		s.setConfig("timezone", "Mars/Olympus", model.CategoryGeneral)
		Expect(config.Location(ctx).String()).To(Equal("America/Bogota"))
	})
})

var _ = Describe("PasswordPolicy", func() {
	policy := service.DefaultPasswordPolicy()

	DescribeTable("Validate",
		func(password, want string) {
			err := policy.Validate("password", password)
			if want == "" {
				Expect(err).NotTo(HaveOccurred())
				return
			}
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(want))
		},
		Entry("accepts a compliant password", "Abcdef1!", ""),
		Entry("short", "Ab1!", "at least 8 characters"),
		Entry("no special character", "Abcdefg1", "special character"),
		Entry("no digit", "Abcdefg!", "number"),
		Entry("no uppercase", "abcdefg1!", "uppercase"),
	)

	It("never goes below the length floor", func() {
		p := service.PasswordPolicy{MinLength: 1}
		Expect(p.Validate("password", "abc")).To(HaveOccurred())
		Expect(p.Validate("password", "abcd")).To(Succeed())
	})

	It("reads its settings from configuration", func() {
		s := newStore()
		s.setConfig("password_require_special", "false", model.CategorySecurity)
		s.setConfig("password_min_length", "10", model.CategorySecurity)
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		p := config.PasswordPolicy(context.Background())
		Expect(p.MinLength).To(Equal(10))
		Expect(p.RequireSpecial).To(BeFalse())
		Expect(p.RequireNumbers).To(BeTrue())
	})
})
