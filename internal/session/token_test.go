package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TokenSigner", func() {
	var (
		signer *TokenSigner
		now    time.Time
		sess   *Session
	)

	BeforeEach(func() {
		now = time.Now()
		signer = NewTokenSigner("test-secret", 7*24*time.Hour)
		signer.now = func() time.Time { return now }
		sess = &Session{UserID: uuid.New(), Username: "ana", RoleName: "operador", Permissions: []string{"Mi Perfil"}}
	})

	It("verifies its own tokens", func() {
		raw, err := signer.Issue(sess)
		Expect(err).NotTo(HaveOccurred())

		claims, err := signer.Parse(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal(sess.UserID.String()))
		Expect(claims.Username).To(Equal("ana"))
		Expect(claims.Permissions).To(Equal([]string{"Mi Perfil"}))
	})

	It("rejects tokens signed with another secret", func() {
		raw, err := NewTokenSigner("other", time.Hour).Issue(sess)
		Expect(err).NotTo(HaveOccurred())

		_, err = signer.Parse(raw)
		Expect(err).To(MatchError(ErrInvalidRestoreToken))
	})

	It("rejects tampered tokens", func() {
		raw, err := signer.Issue(sess)
		Expect(err).NotTo(HaveOccurred())
		other, err := signer.Issue(&Session{UserID: uuid.New(), Username: "eve"})
		Expect(err).NotTo(HaveOccurred())

		parts := strings.Split(raw, ".")
		otherParts := strings.Split(other, ".")
		forged := parts[0] + "." + otherParts[1] + "." + parts[2]
		_, err = signer.Parse(forged)
		Expect(err).To(MatchError(ErrInvalidRestoreToken))
	})

	It("rejects tokens past their expiry", func() {
		raw, err := signer.Issue(sess)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(8 * 24 * time.Hour)
		_, err = signer.Parse(raw)
		Expect(err).To(MatchError(ErrInvalidRestoreToken))
	})
})
