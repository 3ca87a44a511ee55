package reconnect_test

import (
	"errors"
	"math"
	"time"

	. "github.com/dogmatiq/durabletask/reconnect"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Delay()", func() {
	It("doubles the delay with each attempt until the cap is reached", func() {
		var delays []time.Duration
		for n := uint(1); n <= 7; n++ {
			delays = append(delays, Delay(n))
		}

		Expect(delays).To(Equal([]time.Duration{
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second,
			30 * time.Second,
		}))
	})

	It("never exceeds the maximum delay", func() {
		Expect(Delay(math.MaxUint32)).To(Equal(MaxDelay))
	})

	It("treats attempt zero as the first attempt", func() {
		Expect(Delay(0)).To(Equal(2 * time.Second))
	})
})

var _ = Describe("var Strategy", func() {
	It("ignores the cause of the failure", func() {
		Expect(Strategy(errors.New("<error>"), 3)).To(Equal(8 * time.Second))
		Expect(Strategy(nil, 3)).To(Equal(8 * time.Second))
	})
})
