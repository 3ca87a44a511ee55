package entity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/registry"
	"github.com/dogmatiq/durabletask/workitem"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// counter is an entity that maintains an integer total.
//
// The "add" operation adds its input to the total and returns the new total.
// The "fail" operation modifies the total then returns an error, and the
// "panic" operation modifies the total then panics.
var counter = Typed(
	func(_ context.Context, op Operation, total int) (interface{}, int, error) {
		var n int
		if err := op.GetInput(&n); err != nil {
			return nil, total, err
		}

		switch op.Name {
		case "add":
			total += n
			return total, total, nil
		case "fail":
			return nil, total + 1000, errors.New("<failed>")
		case "panic":
			panic("<panicked>")
		case "get":
			return total, total, nil
		}

		return nil, total, errors.New("unknown operation")
	},
)

var _ = Describe("type BatchExecutor", func() {
	var (
		ctx      context.Context
		logger   *logging.BufferedLogger
		reg      *registry.Registry
		executor *BatchExecutor
		id       workitem.EntityID
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = &logging.BufferedLogger{CaptureDebug: true}
		reg = registry.New()

		err := reg.AddEntity("Counter", counter)
		Expect(err).ShouldNot(HaveOccurred())

		executor = &BatchExecutor{
			Entities: reg,
			Logger:   logger,
		}

		id = workitem.EntityID{Name: "counter", Key: "c1"}
	})

	Describe("func Execute()", func() {
		It("commits the state of successful operations and rolls back failed operations", func() {
			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					State:    []byte(`10`),
					Operations: []workitem.OperationRequest{
						{Operation: "add", Input: []byte(`1`)},
						{Operation: "fail"},
						{Operation: "add", Input: []byte(`2`)},
					},
				},
			)

			Expect(c.EntityID).To(Equal(id))
			Expect(c.Result.Results).To(HaveLen(3))

			Expect(c.Result.Results[0].Failure).To(BeNil())
			Expect(c.Result.Results[0].Result).To(MatchJSON(`11`))

			Expect(c.Result.Results[1].Result).To(BeNil())
			Expect(c.Result.Results[1].Failure.ErrorMessage).To(Equal("<failed>"))

			Expect(c.Result.Results[2].Failure).To(BeNil())
			Expect(c.Result.Results[2].Result).To(MatchJSON(`13`))

			Expect(c.Result.State).To(MatchJSON(`13`))
		})

		It("rolls back the state of an operation that panics", func() {
			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					State:    []byte(`10`),
					Operations: []workitem.OperationRequest{
						{Operation: "panic"},
						{Operation: "get"},
					},
				},
			)

			Expect(c.Result.Results[0].Failure.ErrorType).To(Equal("panic"))
			Expect(c.Result.Results[0].Failure.ErrorMessage).To(Equal("<panicked>"))
			Expect(c.Result.Results[0].Failure.StackTrace).NotTo(BeEmpty())
			Expect(c.Result.Results[1].Result).To(MatchJSON(`10`))
			Expect(c.Result.State).To(MatchJSON(`10`))
		})

		It("returns one result per operation, in order", func() {
			var ops []workitem.OperationRequest
			for i := 0; i < 20; i++ {
				ops = append(ops, workitem.OperationRequest{Operation: "add", Input: []byte(`1`)})
			}

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID:   id,
					Operations: ops,
				},
			)

			Expect(c.Result.Results).To(HaveLen(20))
			for i, r := range c.Result.Results {
				var n int
				Expect(r.Failure).To(BeNil())
				Expect(unmarshal(r.Result, &n)).To(Succeed())
				Expect(n).To(Equal(i + 1))
			}
		})

		It("starts from the zero-value if the entity has no state", func() {
			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					Operations: []workitem.OperationRequest{
						{Operation: "add", Input: []byte(`5`)},
					},
				},
			)

			Expect(c.Result.Results[0].Result).To(MatchJSON(`5`))
			Expect(c.Result.State).To(MatchJSON(`5`))
		})

		It("leaves the state unchanged if every operation fails", func() {
			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					State:    []byte(`7`),
					Operations: []workitem.OperationRequest{
						{Operation: "fail"},
						{Operation: "fail"},
					},
				},
			)

			Expect(c.Result.State).To(Equal([]byte(`7`)))
		})

		It("returns an empty result without resolving the entity if the batch is empty", func() {
			executor.Entities = registryFunc(func(string) (Entity, bool) {
				Fail("unexpected call")
				return nil, false
			})

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					State:    []byte(`7`),
				},
			)

			Expect(c.Result.Results).To(BeEmpty())
			Expect(c.Result.State).To(Equal([]byte(`7`)))
		})

		It("fails every operation if the entity is not registered", func() {
			id.Name = "unknown"

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					State:    []byte(`7`),
					Operations: []workitem.OperationRequest{
						{Operation: "add", Input: []byte(`1`)},
						{Operation: "add", Input: []byte(`2`)},
					},
				},
			)

			Expect(c.Result.Results).To(HaveLen(2))
			for _, r := range c.Result.Results {
				Expect(r.Result).To(BeNil())
				Expect(r.Failure.ErrorType).To(Equal("entity.NotFoundError"))
				Expect(r.Failure.ErrorMessage).To(Equal("no entity named 'unknown' is registered"))
			}
			Expect(c.Result.State).To(Equal([]byte(`7`)))
		})

		It("logs failed operations", func() {
			executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					Operations: []workitem.OperationRequest{
						{Operation: "fail"},
					},
				},
			)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "@counter@c1  operation 'fail' failed, state rolled back: <failed>",
					IsDebug: true,
				},
			))
		})

		It("is not interrupted by cancellation of the context", func() {
			ctx, cancel := context.WithCancel(ctx)
			cancel()

			var observed []error
			executor.Entities = registryFunc(func(string) (Entity, bool) {
				return Func(func(
					ctx context.Context,
					_ Operation,
					s State,
				) (interface{}, State, error) {
					observed = append(observed, ctx.Err())
					return nil, s, nil
				}), true
			})

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID: id,
					Operations: []workitem.OperationRequest{
						{Operation: "a"},
						{Operation: "b"},
					},
				},
			)

			Expect(c.Result.Results).To(HaveLen(2))
			Expect(observed).To(Equal([]error{nil, nil}))
		})

		It("does not apply concurrent batches for the same entity at the same time", func() {
			var active, peak int32

			executor.Entities = registryFunc(func(string) (Entity, bool) {
				return Func(func(
					_ context.Context,
					_ Operation,
					s State,
				) (interface{}, State, error) {
					n := atomic.AddInt32(&active, 1)
					defer atomic.AddInt32(&active, -1)

					for {
						p := atomic.LoadInt32(&peak)
						if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
							break
						}
					}

					time.Sleep(time.Millisecond)
					return nil, s, nil
				}), true
			})

			var g sync.WaitGroup
			for i := 0; i < 10; i++ {
				g.Add(1)
				go func() {
					defer g.Done()
					executor.Execute(
						ctx,
						&workitem.EntityBatchWorkItem{
							EntityID:   id,
							Operations: []workitem.OperationRequest{{Operation: "op"}},
						},
					)
				}()
			}
			g.Wait()

			Expect(atomic.LoadInt32(&peak)).To(BeEquivalentTo(1))
		})

		It("reports a non-nil result if the converter produces empty data", func() {
			executor.Converter = emptyConverter{}

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID:   id,
					Operations: []workitem.OperationRequest{{Operation: "get"}},
				},
			)

			Expect(c.Result.Results).To(HaveLen(1))

			r := c.Result.Results[0]
			Expect(r.Succeeded()).To(BeTrue())
			Expect(r.Failure).To(BeNil())
			Expect(r.Result).NotTo(BeNil())
			Expect(r.Result).To(BeEmpty())
		})

		It("allows an operation to delete the entity's state", func() {
			executor.Entities = registryFunc(func(string) (Entity, bool) {
				return Func(func(
					_ context.Context,
					_ Operation,
					s State,
				) (interface{}, State, error) {
					return nil, s.Delete(), nil
				}), true
			})

			c := executor.Execute(
				ctx,
				&workitem.EntityBatchWorkItem{
					EntityID:   id,
					State:      []byte(`7`),
					Operations: []workitem.OperationRequest{{Operation: "delete"}},
				},
			)

			Expect(c.Result.State).To(BeNil())
		})
	})
})

type registryFunc func(string) (Entity, bool)

func (fn registryFunc) Entity(n string) (Entity, bool) {
	return fn(n)
}

// emptyConverter is a converter that represents every value as empty data.
type emptyConverter struct{}

func (emptyConverter) Marshal(interface{}) ([]byte, error) {
	return nil, nil
}

func (emptyConverter) Unmarshal([]byte, interface{}) error {
	return nil
}

func unmarshal(data []byte, v interface{}) error {
	return NewState(data, nil).Get(v)
}
