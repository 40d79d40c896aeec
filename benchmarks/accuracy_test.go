package benchmarks_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/benchmarks"
	"github.com/sarchlab/bpsim/timing/predictor"
)

func byName(name string) benchmarks.Benchmark {
	for _, b := range benchmarks.GetMicrobenchmarks() {
		if b.Name == name {
			return b
		}
	}
	Fail("no benchmark named " + name)
	return benchmarks.Benchmark{}
}

func run(config predictor.Config, b benchmarks.Benchmark) benchmarks.Result {
	cfg := benchmarks.DefaultConfig()
	cfg.Predictor = config
	cfg.Output = GinkgoWriter
	h := benchmarks.NewHarness(cfg)
	h.AddBenchmark(b)

	results, err := h.RunAll()
	Expect(err).NotTo(HaveOccurred())
	Expect(results).To(HaveLen(1))
	return results[0]
}

var _ = Describe("Accuracy", func() {
	DescribeTable("default calibration",
		func(name string, minAccuracy float64) {
			r := run(predictor.DefaultConfig(), byName(name))
			Expect(r.AccuracyPercent).To(BeNumerically(">=", minAccuracy))
		},
		Entry("always taken", "always_taken", 99.0),
		Entry("alternating", "alternating", 95.0),
		Entry("fixed trip loop", "fixed_trip_loop", 85.0),
		Entry("long period", "long_period", 70.0),
		Entry("correlated pair", "correlated_pair", 65.0),
		Entry("biased random", "biased_random", 70.0),
	)

	It("should never mispredict an always-taken branch", func() {
		for _, config := range []predictor.Config{predictor.DefaultConfig(), predictor.LongHistoryConfig()} {
			r := run(config, byName("always_taken"))
			Expect(r.Mispredictions).To(BeZero())
		}
	})

	It("should stop training once confident", func() {
		r := run(predictor.DefaultConfig(), byName("always_taken"))
		Expect(r.Trainings).To(BeNumerically("<", r.Conditional/10))
	})

	It("should only score conditional branches", func() {
		r := run(predictor.DefaultConfig(), byName("call_return_mix"))
		Expect(r.Branches).To(Equal(uint64(4000)))
		Expect(r.Conditional).To(Equal(uint64(2000)))
	})

	It("should be deterministic", func() {
		a := run(predictor.LongHistoryConfig(), byName("correlated_pair"))
		b := run(predictor.LongHistoryConfig(), byName("correlated_pair"))
		Expect(a.Mispredictions).To(Equal(b.Mispredictions))
		Expect(a.Trainings).To(Equal(b.Trainings))
	})

	It("should name every benchmark uniquely", func() {
		seen := map[string]bool{}
		for _, b := range benchmarks.GetMicrobenchmarks() {
			Expect(seen).NotTo(HaveKey(b.Name))
			seen[b.Name] = true
			Expect(b.Records).NotTo(BeEmpty())
		}
		Expect(benchmarks.GetCoreBenchmarks()).To(HaveLen(3))
	})
})
