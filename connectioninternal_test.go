package durabletask

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

var _ = Describe("func parseAddress()", func() {
	DescribeTable(
		"it returns the dial target",
		func(addr, target string, useTLS bool) {
			t, tls, err := parseAddress(addr)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t).To(Equal(target))
			Expect(tls).To(Equal(useTLS))
		},
		Entry("host and port", "localhost:4001", "localhost:4001", false),
		Entry("IPv6 host", "[::1]:4001", "[::1]:4001", false),
		Entry("http scheme", "http://example.org:80", "example.org:80", false),
		Entry("https scheme", "https://example.org:443", "example.org:443", true),
		Entry("trailing slash", "https://example.org:443/", "example.org:443", true),
	)

	DescribeTable(
		"it returns an error if the address is invalid",
		func(addr, message string) {
			_, _, err := parseAddress(addr)
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("missing port", "localhost", "missing port in address"),
		Entry("empty host", ":4001", "host must not be empty"),
		Entry("non-numeric port", "localhost:http", "invalid port 'http'"),
		Entry("zero port", "localhost:0", "invalid port '0'"),
		Entry("out-of-range port", "localhost:65536", "invalid port '65536'"),
		Entry("unsupported scheme", "ftp://localhost:21", "unsupported scheme 'ftp'"),
		Entry("path", "https://example.org:443/path", "must not contain a path"),
	)
})

var _ = Describe("type connectionProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)
	})

	Describe("func Acquire()", func() {
		It("prefers a provided *grpc.ClientConn over other options", func() {
			conn, err := grpc.Dial(
				"passthrough:///example.org:4001",
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			)
			Expect(err).ShouldNot(HaveOccurred())
			defer conn.Close()

			p := &connectionProvider{
				resolveWorkerOptions(
					WithClientConn(conn),
					WithConn(conn),
					WithAddress("localhost:4001"),
				),
			}

			c, err := p.Acquire(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.Conn).To(BeIdenticalTo(conn))
			Expect(c.Target).To(Equal("passthrough:///example.org:4001"))
			Expect(c.Source).To(Equal("provided connection"))
			Expect(c.Lifetime).To(BeZero())
			Expect(p.Target()).To(Equal(c.Target))

			Expect(c.Release()).To(Succeed())
			Expect(conn.GetState()).NotTo(Equal(connectivity.Shutdown))
		})

		It("prefers a provided grpc.ClientConnInterface over dialing", func() {
			conn, err := grpc.Dial(
				"passthrough:///example.org:4001",
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			)
			Expect(err).ShouldNot(HaveOccurred())
			defer conn.Close()

			p := &connectionProvider{
				resolveWorkerOptions(
					WithConn(conn),
					WithAddress("localhost:4001"),
				),
			}

			c, err := p.Acquire(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.Target).To(Equal("(unspecified)"))
			Expect(c.Source).To(Equal("provided call dispatcher"))
			Expect(p.Target()).To(Equal(c.Target))

			Expect(c.Release()).To(Succeed())
			Expect(conn.GetState()).NotTo(Equal(connectivity.Shutdown))
		})

		It("dials the address if no connection is provided", func() {
			p := &connectionProvider{
				resolveWorkerOptions(
					WithAddress("http://localhost:4001"),
					WithConnectionLifetime(time.Minute),
				),
			}

			c, err := p.Acquire(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.Target).To(Equal("localhost:4001"))
			Expect(c.Source).To(Equal("dialed connection"))
			Expect(c.Lifetime).To(Equal(time.Minute))

			conn := c.Conn.(*grpc.ClientConn)
			Expect(c.Release()).To(Succeed())
			Expect(conn.GetState()).To(Equal(connectivity.Shutdown))

			By("releasing the connection only once")

			Expect(c.Release()).To(Succeed())
		})

		It("returns a *ConnectionError if the address is invalid", func() {
			p := &connectionProvider{
				resolveWorkerOptions(
					WithAddress("localhost"),
				),
			}

			_, err := p.Acquire(ctx)
			Expect(err).To(MatchError(
				"unable to connect to localhost: invalid address: address localhost: missing port in address",
			))

			var cerr *ConnectionError
			Expect(err).To(BeAssignableToTypeOf(cerr))
		})
	})
})
