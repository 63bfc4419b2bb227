package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("unreachable")
}

type keyRecorder struct{ keys []string }

func (k *keyRecorder) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	k.keys = append(k.keys, key)
	return true, 0, nil
}

var _ = Describe("Rate limiting", func() {
	It("allows a burst then refuses per key", func() {
		l := middleware.NewMemoryLimiter(1, 2)
		ctx := context.Background()

		ok, _, err := l.Allow(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		ok, _, _ = l.Allow(ctx, "a")
		Expect(ok).To(BeTrue())
		ok, retry, _ := l.Allow(ctx, "a")
		Expect(ok).To(BeFalse())
		Expect(retry).To(BeNumerically(">", 0))

		ok, _, _ = l.Allow(ctx, "b")
		Expect(ok).To(BeTrue())
	})

	It("sweeps idle buckets", func() {
		l := middleware.NewMemoryLimiter(60, 1)
		_, _, _ = l.Allow(context.Background(), "a")
		Expect(l.Sweep(time.Hour)).To(Equal(0))
		Expect(l.Sweep(-time.Second)).To(Equal(1))
	})

	It("answers 429 with Retry-After once exhausted", func() {
		r := gin.New()
		r.POST("/login", middleware.RateLimit(middleware.NewMemoryLimiter(1, 1), "login"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		send := func() *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
			return rec
		}
		Expect(send().Code).To(Equal(http.StatusOK))
		rec := send()
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())
		Expect(decode(rec).Status).To(Equal("error"))
	})

	It("lets requests through when the limiter fails", func() {
		r := gin.New()
		r.GET("/x", middleware.RateLimit(brokenLimiter{}, "x"), func(c *gin.Context) { c.Status(http.StatusOK) })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	Describe("client addressing", func() {
		forwardedFor := func(r *gin.Engine, xff string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "203.0.113.7:40000"
			req.Header.Set("X-Forwarded-For", xff)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			return rec
		}

		It("ignores a spoofed X-Forwarded-For without trusted proxies", func() {
			r := gin.New()
			Expect(r.SetTrustedProxies(nil)).To(Succeed())
			r.POST("/login", middleware.RateLimit(middleware.NewMemoryLimiter(1, 1), "login"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			Expect(forwardedFor(r, "10.0.0.1").Code).To(Equal(http.StatusOK))
			Expect(forwardedFor(r, "10.0.0.2").Code).To(Equal(http.StatusTooManyRequests))
		})

		It("keys buckets by route name and peer address", func() {
			keys := &keyRecorder{}
			r := gin.New()
			Expect(r.SetTrustedProxies(nil)).To(Succeed())
			r.POST("/login", middleware.RateLimit(keys, "login"), func(c *gin.Context) { c.Status(http.StatusOK) })

			forwardedFor(r, "10.0.0.9")
			Expect(keys.keys).To(Equal([]string{"login:203.0.113.7"}))
		})

		It("honours the header from a trusted proxy", func() {
			keys := &keyRecorder{}
			r := gin.New()
			Expect(r.SetTrustedProxies([]string{"203.0.113.0/24"})).To(Succeed())
			r.POST("/login", middleware.RateLimit(keys, "login"), func(c *gin.Context) { c.Status(http.StatusOK) })

			forwardedFor(r, "198.51.100.20")
			Expect(keys.keys).To(Equal([]string{"login:198.51.100.20"}))
		})
	})
})
