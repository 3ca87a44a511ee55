package mlog_test

import (
	. "github.com/dogmatiq/durabletask/internal/mlog"
	"github.com/dogmatiq/durabletask/workitem"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Icon", func() {
	Describe("func String()", func() {
		It("returns the icon string", func() {
			Expect(
				IDIcon.String(),
			).To(Equal("="))
		})
	})

	Describe("func WithLabel()", func() {
		It("returns the icon and label", func() {
			Expect(
				IDIcon.WithLabel("<foo>").String(),
			).To(Equal("= <foo>"))
		})
	})

	Describe("func WithID()", func() {
		It("returns the icon and label", func() {
			Expect(
				IDIcon.WithID("47d10297-8192-40c4-aa77-ad63e7d4a8cb").String(),
			).To(Equal("= 47d10297"))
		})

		It("does not interpret the ID as a format string", func() {
			Expect(
				IDIcon.WithID("100%").String(),
			).To(Equal("= 100%"))
		})
	})
})

var _ = DescribeTable(
	"func WorkItemIcon()",
	func(item workitem.WorkItem, expect Icon) {
		Expect(WorkItemIcon(item)).To(Equal(expect))
	},
	Entry("orchestrator", &workitem.OrchestratorWorkItem{}, OrchestratorIcon),
	Entry("activity", &workitem.ActivityWorkItem{}, ActivityIcon),
	Entry("entity batch", &workitem.EntityBatchWorkItem{}, EntityIcon),
	Entry("unknown", &workitem.UnknownWorkItem{Type: "<kind>"}, Icon("")),
)
