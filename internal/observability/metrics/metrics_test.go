package metrics

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Self-metrics registry", func() {
	var m *Registry

	BeforeEach(func() {
		m = New()
	})

	It("counts loop ticks by outcome", func() {
		m.LoopTicksTotal.WithLabelValues("no_change").Inc()
		m.LoopTicksTotal.WithLabelValues("no_change").Inc()
		m.LoopTicksTotal.WithLabelValues("state_change").Inc()

		Expect(testutil.ToFloat64(m.LoopTicksTotal.WithLabelValues("no_change"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.LoopTicksTotal.WithLabelValues("state_change"))).To(Equal(1.0))
	})

	It("counts state transitions by from/to pair", func() {
		m.StateTransitionsTotal.WithLabelValues("happy", "stressed").Inc()
		Expect(testutil.ToFloat64(m.StateTransitionsTotal.WithLabelValues("happy", "stressed"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.StateTransitionsTotal.WithLabelValues("stressed", "critical"))).To(Equal(0.0))
	})

	It("counts assessments by trigger and triage outcome", func() {
		m.AssessmentsTotal.WithLabelValues("state_change", "needs_deep").Inc()
		Expect(testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("state_change", "needs_deep"))).To(Equal(1.0))
	})

	It("observes narrator latency by tier", func() {
		m.NarratorLatency.WithLabelValues("triage").Observe(0.05)
		Expect(testutil.CollectAndCount(m.NarratorLatency)).To(Equal(1))
	})

	It("serves the registered metrics over HTTP", func() {
		m.LoopTicksTotal.WithLabelValues("no_change").Inc()
		Expect(m.Handler()).NotTo(BeNil())
	})

	It("records compiler outcomes and guard rail violations", func() {
		m.CompileOutcomesTotal.WithLabelValues("success").Inc()
		m.GuardRailViolations.WithLabelValues("max_idle_equals_max_conns").Inc()

		Expect(testutil.ToFloat64(m.CompileOutcomesTotal.WithLabelValues("success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.GuardRailViolations.WithLabelValues("max_idle_equals_max_conns"))).To(Equal(1.0))
	})
})
