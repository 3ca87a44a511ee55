package orchestration_test

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/durabletask/internal/x/gomegax"
	. "github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/workitem"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Executor", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		logger   *logging.BufferedLogger
		engine   EngineFunc
		executor *Executor
		item     *workitem.OrchestratorWorkItem
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)

		logger = &logging.BufferedLogger{}

		engine = func(context.Context, Request) ([]workitem.Action, error) {
			return nil, nil
		}

		executor = &Executor{
			Engine: EngineFunc(func(ctx context.Context, req Request) ([]workitem.Action, error) {
				return engine(ctx, req)
			}),
			Logger: logger,
		}

		now := time.Now()

		item = &workitem.OrchestratorWorkItem{
			Name:       "Checkout",
			InstanceID: "<instance>",
			PastEvents: []workitem.HistoryEvent{
				{ID: 1, Type: "ExecutionStarted", Timestamp: now},
				{ID: 2, Type: "TaskScheduled", Timestamp: now},
			},
			NewEvents: []workitem.HistoryEvent{
				{ID: 3, Type: "TaskCompleted", Timestamp: now},
			},
		}
	})

	Describe("func Execute()", func() {
		It("passes the history to the engine without reordering it", func() {
			engine = func(_ context.Context, req Request) ([]workitem.Action, error) {
				Expect(req.Name).To(Equal("Checkout"))
				Expect(req.InstanceID).To(Equal("<instance>"))
				Expect(req.PastEvents).To(EqualX(item.PastEvents))
				Expect(req.NewEvents).To(EqualX(item.NewEvents))
				return nil, nil
			}

			_, err := executor.Execute(ctx, item)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns the actions produced by the engine", func() {
			actions := []workitem.Action{
				{ID: 1, Type: "CompleteOrchestration", Data: []byte(`"done"`)},
			}

			engine = func(context.Context, Request) ([]workitem.Action, error) {
				return actions, nil
			}

			c, err := executor.Execute(ctx, item)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c).To(EqualX(
				&workitem.OrchestratorCompletion{
					InstanceID: "<instance>",
					Actions:    actions,
				},
			))
		})

		It("reports a failure if the engine returns an error", func() {
			engine = func(context.Context, Request) ([]workitem.Action, error) {
				return []workitem.Action{{ID: 1}}, errors.New("<error>")
			}

			c, err := executor.Execute(ctx, item)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.Actions).To(BeEmpty())
			Expect(c.Failure.ErrorMessage).To(Equal("<error>"))
			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "<instance>: orchestrator 'Checkout' failed: <error>",
				},
			))
		})

		It("recovers from a panic within the engine", func() {
			engine = func(context.Context, Request) ([]workitem.Action, error) {
				panic("<panic>")
			}

			c, err := executor.Execute(ctx, item)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.Failure.ErrorType).To(Equal("panic"))
			Expect(c.Failure.ErrorMessage).To(Equal("<panic>"))
		})

		It("reports a failure that is unrelated to cancellation even if ctx is canceled", func() {
			engine = func(context.Context, Request) ([]workitem.Action, error) {
				cancel()
				return nil, errors.New("<non-determinism>")
			}

			c, err := executor.Execute(ctx, item)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.InstanceID).To(Equal("<instance>"))
			Expect(c.Failure).NotTo(BeNil())
			Expect(c.Failure.ErrorMessage).To(Equal("<non-determinism>"))
		})

		It("returns the context error and no completion if the replay fails due to cancellation", func() {
			engine = func(ctx context.Context, _ Request) ([]workitem.Action, error) {
				cancel()
				return nil, ctx.Err()
			}

			c, err := executor.Execute(ctx, item)
			Expect(err).To(Equal(context.Canceled))
			Expect(c).To(BeNil())
		})
	})
})
