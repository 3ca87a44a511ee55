package loggingx_test

import (
	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/durabletask/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func WithPrefix()", func() {
	var target *logging.BufferedLogger

	BeforeEach(func() {
		target = &logging.BufferedLogger{CaptureDebug: true}
	})

	It("prefixes formatted messages", func() {
		l := WithPrefix(target, "[%s] ", "@counter@1")
		l.Log("applied %d operation(s)", 3)
		l.Debug("rolled back %s", "increment")

		Expect(target.Messages()).To(Equal([]logging.BufferedLogMessage{
			{Message: "[@counter@1] applied 3 operation(s)"},
			{Message: "[@counter@1] rolled back increment", IsDebug: true},
		}))
	})

	It("prefixes pre-formatted messages", func() {
		l := WithPrefix(target, "[%s] ", "@counter@1")
		l.LogString("100%")
		l.DebugString("50%")

		Expect(target.Messages()).To(Equal([]logging.BufferedLogMessage{
			{Message: "[@counter@1] 100%"},
			{Message: "[@counter@1] 50%", IsDebug: true},
		}))
	})

	It("does not interpret format verbs in the prefix", func() {
		l := WithPrefix(target, "%s ", "100%")
		l.Log("done")

		Expect(target.Messages()).To(Equal([]logging.BufferedLogMessage{
			{Message: "100% done"},
		}))
	})

	It("reports the target's debug setting", func() {
		Expect(WithPrefix(target, "").IsDebug()).To(BeTrue())

		target.CaptureDebug = false
		Expect(WithPrefix(target, "").IsDebug()).To(BeFalse())
	})

	It("uses the default logger if the target is nil", func() {
		Expect(func() {
			WithPrefix(nil, "<prefix> ").IsDebug()
		}).NotTo(Panic())
	})
})
