package predictor_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/timing/predictor"
)

func cond(addr uint64) predictor.BranchInfo {
	return predictor.BranchInfo{Address: addr, Flags: predictor.FlagConditional}
}

// step runs one predict/update pair and returns the prediction.
func step(p *predictor.Perceptron, addr uint64, taken bool) predictor.Prediction {
	pred := p.Predict(cond(addr))
	p.Update(pred, taken, 0)
	return pred
}

var _ = Describe("Perceptron", func() {
	var bp *predictor.Perceptron

	BeforeEach(func() {
		bp = predictor.New(predictor.DefaultConfig())
	})

	Describe("Prediction", func() {
		It("should predict taken on a zero score", func() {
			pred := bp.Predict(cond(0x1000))
			Expect(pred.Score()).To(Equal(int32(0)))
			Expect(pred.Taken).To(BeTrue())
		})

		It("should never predict a target", func() {
			pred := bp.Predict(cond(0x1000))
			Expect(pred.Target).To(Equal(uint64(0)))

			step(bp, 0x1000, true)
			pred = bp.Predict(cond(0x1000))
			Expect(pred.Target).To(Equal(uint64(0)))
		})

		It("should index the long table by the low address bits", func() {
			pred := bp.Predict(cond(0x12345))
			Expect(pred.LongIndex()).To(Equal(uint32(0x12345 & 0x3FF)))
		})

		It("should index the short table by a folded address", func() {
			addr := uint64(0x12345)
			pred := bp.Predict(cond(addr))
			Expect(pred.ShortIndex()).To(Equal(uint32((addr ^ (addr >> 2)) & 0x3FF)))
		})

		It("should return identical results for repeated queries", func() {
			for i := 0; i < 30; i++ {
				step(bp, 0x2000+uint64(i%3)*4, i%4 != 0)
			}

			first := bp.Predict(cond(0x2004))
			second := bp.Predict(cond(0x2004))
			Expect(second).To(Equal(first))
		})

		It("should not modify state", func() {
			step(bp, 0x3000, false)
			longHist := bp.LongHistory()
			weights := bp.LongWeights(0)

			bp.Predict(cond(0x3000))
			bp.Predict(predictor.BranchInfo{Address: 0x3000, Flags: predictor.FlagCall})

			Expect(bp.LongHistory()).To(Equal(longHist))
			Expect(bp.LongWeights(0)).To(Equal(weights))
		})

		It("should sum the two perceptron scores", func() {
			for i := 0; i < 10; i++ {
				step(bp, 0x4000, i%3 == 0)
			}
			pred := bp.Predict(cond(0x4000))
			Expect(pred.Score()).To(Equal(pred.LongScore() + pred.ShortScore()))
		})
	})

	Describe("End-to-end example", func() {
		It("should decrement both biases after a first misprediction", func() {
			pred := bp.Predict(cond(0x400))

			Expect(pred.LongIndex()).To(Equal(uint32(0)))
			Expect(pred.ShortIndex()).To(Equal(uint32(0x100)))
			Expect(pred.LongScore()).To(Equal(int32(0)))
			Expect(pred.ShortScore()).To(Equal(int32(0)))
			Expect(pred.Taken).To(BeTrue())

			bp.Update(pred, false, 0)

			long := bp.LongWeights(0)
			short := bp.ShortWeights(0x100)
			Expect(long[0]).To(Equal(int8(-1)))
			Expect(short[0]).To(Equal(int8(-1)))
			// History was empty, so only the biases move.
			Expect(long[1:]).To(HaveEach(int8(0)))
			Expect(short[1:]).To(HaveEach(int8(0)))

			Expect(bp.LongHistory()[0]).To(Equal(int8(-1)))
			Expect(bp.ShortHistory()[0]).To(Equal(int8(-1)))
		})
	})

	Describe("Training gate", func() {
		It("should train a correct prediction below the threshold", func() {
			pred := bp.Predict(cond(0x800))
			Expect(pred.Taken).To(BeTrue())
			Expect(bp.ShouldTrain(pred, true)).To(BeTrue())

			bp.Update(pred, true, 0)

			Expect(bp.LongWeights(pred.LongIndex())[0]).To(Equal(int8(1)))
			Expect(bp.ShortWeights(pred.ShortIndex())[0]).To(Equal(int8(1)))
		})

		It("should leave weights alone for a confident correct prediction", func() {
			addr := uint64(0x800)
			var pred predictor.Prediction
			for i := 0; i < 200; i++ {
				pred = bp.Predict(cond(addr))
				if pred.Score() >= 90 {
					break
				}
				bp.Update(pred, true, 0)
			}
			Expect(pred.Score()).To(BeNumerically(">=", 90))
			Expect(bp.ShouldTrain(pred, true)).To(BeFalse())

			long := bp.LongWeights(pred.LongIndex())
			short := bp.ShortWeights(pred.ShortIndex())

			bp.Update(pred, true, 0)

			Expect(bp.LongWeights(pred.LongIndex())).To(Equal(long))
			Expect(bp.ShortWeights(pred.ShortIndex())).To(Equal(short))
		})

		It("should train a confident misprediction", func() {
			addr := uint64(0x800)
			var pred predictor.Prediction
			for i := 0; i < 200; i++ {
				pred = bp.Predict(cond(addr))
				if pred.Score() >= 90 {
					break
				}
				bp.Update(pred, true, 0)
			}
			Expect(bp.ShouldTrain(pred, false)).To(BeTrue())

			bias := bp.LongWeights(pred.LongIndex())[0]
			bp.Update(pred, false, 0)
			Expect(bp.LongWeights(pred.LongIndex())[0]).To(Equal(bias - 1))
		})

		DescribeTable("confidence threshold per calibration",
			func(config predictor.Config, score int32, wantTrain bool) {
				p := predictor.New(config)
				Expect(p.ShouldTrain(predictor.PredictionWithScore(score), true)).To(Equal(wantTrain))
			},
			Entry("default, inside margin", predictor.DefaultConfig(), int32(89), true),
			Entry("default, at margin", predictor.DefaultConfig(), int32(90), false),
			Entry("long, inside margin", predictor.LongHistoryConfig(), int32(136), true),
			Entry("long, at margin", predictor.LongHistoryConfig(), int32(137), false),
		)
	})

	Describe("History", func() {
		It("should shift outcomes in most recent first", func() {
			outcomes := make([]bool, 20)
			for i := range outcomes {
				outcomes[i] = i%3 == 1
			}
			for _, taken := range outcomes {
				step(bp, 0x500, taken)
			}

			short := bp.ShortHistory()
			Expect(short).To(HaveLen(12))
			for i := range short {
				want := int8(-1)
				if outcomes[len(outcomes)-1-i] {
					want = 1
				}
				Expect(short[i]).To(Equal(want), "position %d", i)
			}
		})

		It("should leave unfilled positions empty", func() {
			step(bp, 0x500, true)
			step(bp, 0x500, false)

			long := bp.LongHistory()
			Expect(long).To(HaveLen(48))
			Expect(long[:2]).To(Equal([]int8{-1, 1}))
			Expect(long[2:]).To(HaveEach(int8(0)))
		})

		It("should shift even when the gate does not fire", func() {
			var pred predictor.Prediction
			for i := 0; i < 200; i++ {
				pred = bp.Predict(cond(0x900))
				if pred.Score() >= 90 {
					break
				}
				bp.Update(pred, true, 0)
			}
			Expect(bp.ShouldTrain(pred, true)).To(BeFalse())

			filled := countFilled(bp.LongHistory())
			bp.Update(pred, true, 0)
			Expect(countFilled(bp.LongHistory())).To(Equal(filled + 1))
		})
	})

	Describe("Non-conditional branches", func() {
		It("should leave all state untouched", func() {
			for i := 0; i < 25; i++ {
				step(bp, 0x600+uint64(i%2)*8, i%2 == 0)
			}

			info := predictor.BranchInfo{
				Address: 0x600,
				Flags:   predictor.FlagCall | predictor.FlagIndirect,
			}
			pred := bp.Predict(info)

			long := bp.LongWeights(pred.LongIndex())
			short := bp.ShortWeights(pred.ShortIndex())
			longHist := bp.LongHistory()
			shortHist := bp.ShortHistory()

			bp.Update(pred, !pred.Taken, 0x1234)

			Expect(bp.LongWeights(pred.LongIndex())).To(Equal(long))
			Expect(bp.ShortWeights(pred.ShortIndex())).To(Equal(short))
			Expect(bp.LongHistory()).To(Equal(longHist))
			Expect(bp.ShortHistory()).To(Equal(shortHist))
		})
	})

	Describe("Weight saturation", func() {
		It("should clip weights at the maximum", func() {
			config := predictor.DefaultConfig()
			config.Threshold = 1 << 20
			p := predictor.New(config)

			for i := 0; i < 300; i++ {
				step(p, 0x10, true)
			}

			long := p.LongWeights(0x10)
			Expect(long).To(HaveEach(int8(predictor.MaxWeight)))
		})

		It("should clip weights at the minimum", func() {
			config := predictor.DefaultConfig()
			config.Threshold = 1 << 20
			p := predictor.New(config)

			for i := 0; i < 300; i++ {
				step(p, 0x10, false)
			}

			Expect(p.LongWeights(0x10)[0]).To(Equal(int8(predictor.MinWeight)))
		})

		It("should keep every weight in range under random outcomes", func() {
			config := predictor.Config{
				LongHistory:  16,
				ShortHistory: 4,
				TableBits:    3,
				Threshold:    1000,
			}
			p := predictor.New(config)
			rng := rand.New(rand.NewSource(42))

			for i := 0; i < 20000; i++ {
				step(p, uint64(rng.Intn(64)), rng.Intn(2) == 0)
			}

			for idx := uint32(0); idx < 8; idx++ {
				for _, w := range append(p.LongWeights(idx), p.ShortWeights(idx)...) {
					Expect(int(w)).To(BeNumerically(">=", predictor.MinWeight))
					Expect(int(w)).To(BeNumerically("<=", predictor.MaxWeight))
				}
			}
		})
	})

	Describe("Determinism", func() {
		It("should produce the same predictions from a fresh predictor", func() {
			run := func() []bool {
				p := predictor.New(predictor.LongHistoryConfig())
				rng := rand.New(rand.NewSource(7))
				out := make([]bool, 0, 5000)
				for i := 0; i < 5000; i++ {
					addr := uint64(rng.Intn(256)) << 2
					flags := predictor.FlagConditional
					if rng.Intn(10) == 0 {
						flags = predictor.FlagCall
					}
					pred := p.Predict(predictor.BranchInfo{Address: addr, Flags: flags})
					out = append(out, pred.Taken)
					p.Update(pred, rng.Intn(3) != 0, 0)
				}
				return out
			}

			Expect(run()).To(Equal(run()))
		})
	})

	Describe("Learning", func() {
		It("should learn an alternating pattern", func() {
			correct := 0
			for i := 0; i < 2000; i++ {
				taken := i%2 == 0
				pred := step(bp, 0x7000, taken)
				if i >= 1000 && pred.Taken == taken {
					correct++
				}
			}
			Expect(correct).To(Equal(1000))
		})
	})

	Describe("Reset", func() {
		It("should clear weights and history", func() {
			for i := 0; i < 10; i++ {
				step(bp, 0x400, false)
			}
			bp.Reset()

			Expect(bp.LongWeights(0)).To(HaveEach(int8(0)))
			Expect(bp.LongHistory()).To(HaveEach(int8(0)))
			Expect(bp.ShortHistory()).To(HaveEach(int8(0)))
		})
	})

	Describe("Construction", func() {
		It("should use the default calibration for a zero config", func() {
			p := predictor.New(predictor.Config{})
			Expect(p.Config()).To(Equal(predictor.DefaultConfig()))
		})

		It("should accept a zero threshold", func() {
			p := predictor.New(predictor.Config{LongHistory: 4, ShortHistory: 2, TableBits: 2})
			Expect(p.Config().Threshold).To(BeZero())

			// Only mispredictions train.
			pred := p.Predict(cond(0x1))
			Expect(p.ShouldTrain(pred, true)).To(BeFalse())
			Expect(p.ShouldTrain(pred, false)).To(BeTrue())
		})

		It("should panic on an invalid config", func() {
			Expect(func() {
				predictor.New(predictor.Config{TableBits: 40})
			}).To(Panic())
		})

		It("should satisfy DirectionPredictor", func() {
			var dp predictor.DirectionPredictor = bp
			Expect(dp).NotTo(BeNil())
		})
	})
})

func countFilled(h []int8) int {
	n := 0
	for _, x := range h {
		if x != 0 {
			n++
		}
	}
	return n
}
