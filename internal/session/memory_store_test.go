package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemoryStore", func() {
	var (
		store *MemoryStore
		now   time.Time
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		store = NewMemoryStore(30 * time.Minute)
		store.now = func() time.Time { return now }
	})

	It("round-trips sessions without sharing permission slices", func() {
		sess := &Session{Token: NewToken(), UserID: uuid.New(), Permissions: []string{"Roles"}, LastActivity: now}
		Expect(store.Save(ctx, sess)).To(Succeed())

		sess.Permissions[0] = "changed"
		got, err := store.Get(ctx, sess.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Permissions).To(Equal([]string{"Roles"}))
	})

	It("returns ErrNotFound for unknown and deleted tokens", func() {
		_, err := store.Get(ctx, "missing")
		Expect(err).To(MatchError(ErrNotFound))

		sess := &Session{Token: NewToken(), LastActivity: now}
		Expect(store.Save(ctx, sess)).To(Succeed())
		Expect(store.Delete(ctx, sess.Token)).To(Succeed())
		_, err = store.Get(ctx, sess.Token)
		Expect(err).To(MatchError(ErrNotFound))
	})

	It("sweeps only sessions idle beyond the limit", func() {
		fresh := &Session{Token: "fresh", LastActivity: now.Add(-10 * time.Minute)}
		stale := &Session{Token: "stale", LastActivity: now.Add(-31 * time.Minute)}
		Expect(store.Save(ctx, fresh)).To(Succeed())
		Expect(store.Save(ctx, stale)).To(Succeed())

		Expect(store.Sweep()).To(Equal(1))
		Expect(store.Len()).To(Equal(1))
		_, err := store.Get(ctx, "fresh")
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts and stops the sweeper", func() {
		c, err := store.StartSweeper()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Entries()).To(HaveLen(1))
		<-c.Stop().Done()
	})
})

var _ = Describe("NewToken", func() {
	It("produces distinct opaque tokens", func() {
		a, b := NewToken(), NewToken()
		Expect(a).To(HaveLen(64))
		Expect(a).NotTo(Equal(b))
	})
})
