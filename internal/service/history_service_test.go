package service_test

import (
	"context"
	"strings"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HistoryService", func() {
	var (
		ctx     context.Context
		s       *store
		history service.HistoryService
		agent   model.Agent
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		clock := &testClock{t: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)}
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		history = service.NewHistoryService(fakeQueries{s}, config, service.Clock(clock.Now))
		agent = s.addAgent("Soporte", model.StatusActive, "https://n8n.example.com/c")
	})

	It("lists the last week newest first with previews", func() {
		long := strings.Repeat("á", 100)
		s.addQuery(agent.ID, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), true, 120, long)
		s.addQuery(agent.ID, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), false, 80, "corta")
		s.queries[1].ResponseText = ""
		s.addQuery(agent.ID, time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC), true, 50, "vieja")

		page, err := history.ListHistory(ctx, service.HistoryRequest{})
		Expect(err).NotTo(HaveOccurred())
		Expect(page.From).To(Equal("2026-03-03"))
		Expect(page.To).To(Equal("2026-03-10"))
		Expect(page.Limit).To(Equal(service.HistoryLimit))
		Expect(page.Total).To(Equal(int64(2)))
		Expect(page.Entries).To(HaveLen(2))

		Expect(page.Entries[0].Query).To(Equal("corta"))
		Expect(page.Entries[0].Response).To(Equal("N/A"))
		Expect(page.Entries[0].CreatedAt).To(Equal("2026-03-10 07:00:00"))
		Expect(page.Entries[0].AgentName).To(Equal("Soporte"))

		Expect(page.Entries[1].Query).To(Equal(strings.Repeat("á", 80) + "..."))
	})

	It("filters by outcome and agent", func() {
		other := s.addAgent("Otro", model.StatusActive, "")
		s.addQuery(agent.ID, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), true, 120, "uno")
		s.addQuery(agent.ID, time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC), false, 120, "dos")
		s.addQuery(other.ID, time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC), true, 120, "tres")

		page, err := history.ListHistory(ctx, service.HistoryRequest{Success: "false"})
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Entries).To(HaveLen(1))
		Expect(page.Entries[0].Query).To(Equal("dos"))

		page, err = history.ListHistory(ctx, service.HistoryRequest{AgentID: other.ID.String()})
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Entries).To(HaveLen(1))
		Expect(page.Entries[0].Query).To(Equal("tres"))

		_, err = history.ListHistory(ctx, service.HistoryRequest{Success: "maybe"})
		Expect(err).To(BeAssignableToTypeOf(&service.ValidationError{}))
	})

	It("refuses windows longer than two years", func() {
		_, err := history.ListHistory(ctx, service.HistoryRequest{From: "2020-01-01", To: "2026-03-10"})
		Expect(err).To(BeAssignableToTypeOf(&service.ValidationError{}))
	})

	It("returns one full query", func() {
		s.addQuery(agent.ID, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), true, 120, "completa")
		q, err := history.GetQuery(ctx, s.queries[0].ID.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(q.QueryText).To(Equal("completa"))
		Expect(q.Agent).NotTo(BeNil())

		_, err = history.GetQuery(ctx, "7b0c1e0a-1111-4c4c-8888-000000000000")
		Expect(err).To(MatchError(service.ErrNotFound))
	})
})
