package dispatch_test

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/activity"
	. "github.com/dogmatiq/durabletask/dispatch"
	"github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/internal/tracing"
	"github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/registry"
	"github.com/dogmatiq/durabletask/workitem"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ = Describe("type Dispatcher", func() {
	var (
		ctx        context.Context
		recorder   *tracetest.SpanRecorder
		reg        *registry.Registry
		replayed   []orchestration.Request
		dispatcher *Dispatcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		recorder = tracetest.NewSpanRecorder()
		replayed = nil

		reg = registry.New()

		err := reg.AddActivity(
			"Echo",
			activity.Func(func(_ context.Context, in activity.Input) (interface{}, error) {
				var v string
				err := in.Get(&v)
				return v, err
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		err = reg.AddActivity(
			"Fail",
			activity.Func(func(context.Context, activity.Input) (interface{}, error) {
				return nil, errors.New("<error>")
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		err = reg.AddEntity(
			"Register",
			entity.Typed(func(_ context.Context, op entity.Operation, v string) (interface{}, string, error) {
				err := op.GetInput(&v)
				return nil, v, err
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		dispatcher = &Dispatcher{
			Orchestrations: &orchestration.Executor{
				Engine: orchestration.EngineFunc(
					func(_ context.Context, req orchestration.Request) ([]workitem.Action, error) {
						replayed = append(replayed, req)
						return []workitem.Action{{ID: 1, Type: "CompleteOrchestration"}}, nil
					},
				),
				Logger: logging.DiscardLogger{},
			},
			Activities: &activity.Executor{
				Activities: reg,
				Logger:     logging.DiscardLogger{},
			},
			Entities: &entity.BatchExecutor{
				Entities: reg,
				Logger:   logging.DiscardLogger{},
			},
			Tracer: sdktrace.NewTracerProvider(
				sdktrace.WithSpanProcessor(recorder),
			).Tracer("test"),
		}
	})

	Describe("func Dispatch()", func() {
		It("routes orchestrator work items to the orchestration executor", func() {
			c, err := dispatcher.Dispatch(
				ctx,
				&workitem.OrchestratorWorkItem{
					Name:       "Checkout",
					InstanceID: "<instance>",
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(replayed).To(HaveLen(1))
			Expect(c).To(Equal(
				&workitem.OrchestratorCompletion{
					InstanceID: "<instance>",
					Actions:    []workitem.Action{{ID: 1, Type: "CompleteOrchestration"}},
				},
			))
		})

		It("routes activity work items to the activity executor", func() {
			c, err := dispatcher.Dispatch(
				ctx,
				&workitem.ActivityWorkItem{
					Name:       "Echo",
					TaskID:     1,
					InstanceID: "<instance>",
					Input:      []byte(`"<value>"`),
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			ac, ok := c.(*workitem.ActivityCompletion)
			Expect(ok).To(BeTrue())
			Expect(ac.Result).To(MatchJSON(`"<value>"`))
		})

		It("routes entity batch work items to the entity batch executor", func() {
			c, err := dispatcher.Dispatch(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: workitem.EntityID{Name: "register", Key: "r1"},
					Operations: []workitem.OperationRequest{
						{Operation: "set", Input: []byte(`"<value>"`)},
					},
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			ec, ok := c.(*workitem.EntityBatchCompletion)
			Expect(ok).To(BeTrue())
			Expect(ec.Result.State).To(MatchJSON(`"<value>"`))
		})

		It("returns a dispatch error if the work item kind is not recognized", func() {
			c, err := dispatcher.Dispatch(
				ctx,
				&workitem.UnknownWorkItem{Type: "health-check"},
			)
			Expect(c).To(BeNil())
			Expect(err).To(MatchError("unable to dispatch 'health-check' work item: unrecognized work item kind"))

			var dispatchErr *DispatchError
			Expect(errors.As(err, &dispatchErr)).To(BeTrue())
			Expect(dispatchErr.Kind).To(Equal("health-check"))
		})

		It("returns a dispatch error if there is no executor for the work item kind", func() {
			dispatcher.Orchestrations = nil

			_, err := dispatcher.Dispatch(
				ctx,
				&workitem.OrchestratorWorkItem{Name: "Checkout"},
			)
			Expect(err).To(MatchError("unable to dispatch 'orchestrator' work item: no executor is configured for this kind"))
		})

		It("returns an untyped nil completion if the work item is not completed", func() {
			ctx, cancel := context.WithCancel(ctx)
			dispatcher.Orchestrations.Engine = orchestration.EngineFunc(
				func(ctx context.Context, _ orchestration.Request) ([]workitem.Action, error) {
					cancel()
					return nil, ctx.Err()
				},
			)

			c, err := dispatcher.Dispatch(
				ctx,
				&workitem.OrchestratorWorkItem{Name: "Checkout"},
			)
			Expect(err).To(Equal(context.Canceled))
			Expect(c == nil).To(BeTrue())
		})

		It("records a span describing the work item", func() {
			_, err := dispatcher.Dispatch(
				ctx,
				&workitem.ActivityWorkItem{
					Name:       "Echo",
					TaskID:     7,
					InstanceID: "<instance>",
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Name()).To(Equal("durabletask.dispatch activity"))
			Expect(spans[0].Status().Code).To(Equal(codes.Unset))
			Expect(spans[0].Attributes()).To(ContainElements(
				tracing.WorkItemKindActivityAttr,
				tracing.TaskNameKey.String("Echo"),
				tracing.InstanceIDKey.String("<instance>"),
				tracing.TaskIDKey.String("7"),
			))
		})

		It("marks the span as an error if the work item fails", func() {
			_, err := dispatcher.Dispatch(
				ctx,
				&workitem.ActivityWorkItem{Name: "Fail"},
			)
			Expect(err).ShouldNot(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Status().Code).To(Equal(codes.Error))
			Expect(spans[0].Status().Description).To(Equal("errors.errorString: <error>"))
		})

		It("does not require a tracer", func() {
			dispatcher.Tracer = nil

			_, err := dispatcher.Dispatch(
				ctx,
				&workitem.ActivityWorkItem{Name: "Echo"},
			)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})
