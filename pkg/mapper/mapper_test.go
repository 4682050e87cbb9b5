package mapper_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"git.srvlab.io/whiskey/mapdrive/pkg/mapper"
	"git.srvlab.io/whiskey/mapdrive/pkg/observability"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
	"git.srvlab.io/whiskey/mapdrive/test/mock"
)

const share = `\\nas\media`

var _ = Describe("Mapper", func() {
	var (
		ctx     context.Context
		client  *mock.MockClient
		prober  *mock.MockProber
		timer   *mock.FakeTimer
		metrics *observability.Metrics
		config  mapper.Config
	)

	newMapper := func() *mapper.Mapper {
		m, err := mapper.NewMapper(config)
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = mock.NewMockClient()
		prober = mock.NewMockProber()
		timer = mock.NewFakeTimer()
		metrics = observability.NewMetrics()
		config = mapper.Config{
			Client:  client,
			Prober:  prober,
			Metrics: metrics,
			Timer:   timer,
		}
	})

	Describe("NewMapper", func() {
		It("should require a client", func() {
			config.Client = nil
			_, err := mapper.NewMapper(config)
			Expect(err).To(MatchError("client is required"))
		})

		It("should require a prober", func() {
			config.Prober = nil
			_, err := mapper.NewMapper(config)
			Expect(err).To(MatchError("prober is required"))
		})

		It("should reject a negative fatal threshold", func() {
			config.FatalThreshold = -1
			_, err := mapper.NewMapper(config)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("request validation", func() {
		DescribeTable("should reject invalid requests without touching the OS",
			func(req mapper.Request, sentinel error) {
				result, err := newMapper().Map(ctx, req)

				Expect(result).To(BeNil())
				Expect(err).To(MatchError(sentinel))
				Expect(utils.IsValidationError(err)).To(BeTrue())
				Expect(client.Calls()).To(BeEmpty())
				Expect(prober.OnlineCalls()).To(BeEmpty())
			},
			Entry("drive too long", mapper.Request{Drive: "SS", Share: share}, utils.ErrInvalidDrive),
			Entry("drive not a letter", mapper.Request{Drive: "1:", Share: share}, utils.ErrInvalidDrive),
			Entry("share without UNC prefix", mapper.Request{Drive: "S", Share: `nas\media`}, utils.ErrInvalidShare),
			Entry("negative timeout", mapper.Request{Drive: "S", Share: share, Timeout: -1}, utils.ErrInvalidTimeout),
		)

		It("should normalize a bare lowercase letter to an uppercase drive", func() {
			result, err := newMapper().Map(ctx, mapper.Request{Drive: "s", Share: share})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Drive).To(Equal("S:"))
			Expect(prober.OnlineCalls()).To(Equal([]string{"S:"}))
			Expect(client.ConnectCalls()).To(HaveLen(1))
			Expect(client.ConnectCalls()[0].LocalName).To(Equal("S:"))
			Expect(client.ConnectCalls()[0].RemoteName).To(Equal(share))
		})
	})

	Describe("drive already online", func() {
		It("should leave the mapping untouched", func() {
			prober.SetOnline("S:", true)
			prober.SetMapped("S:", true)
			client.SetMapped("S:", share)

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 20})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeAlreadyOnline))
			Expect(result.Attempts).To(Equal(0))
			Expect(result.Remaining).To(Equal(20))
			Expect(client.ConnectCalls()).To(BeEmpty())
			Expect(client.DisconnectCalls()).To(BeEmpty())
			Expect(timer.Sleeps()).To(BeEmpty())
			Expect(counterValue(metrics.Registry(), "mapdrive_map_operations_total", "outcome", "already_online")).To(Equal(1.0))
		})
	})

	Describe("stale mapping", func() {
		BeforeEach(func() {
			prober.SetMapped("S:", true)
			client.SetMapped("S:", `\\old\share`)
		})

		It("should force-disconnect exactly once before the first connect", func() {
			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))
			Expect(result.Disconnected).To(BeTrue())
			Expect(client.Calls()).To(Equal([]string{"disconnect S:", "connect S:"}))
			Expect(client.DisconnectCalls()).To(Equal([]mock.DisconnectCall{{Name: "S:", Force: true}}))
			Expect(counterValue(metrics.Registry(), "mapdrive_disconnects_total", "status", "success")).To(Equal(1.0))
		})

		It("should ignore a failed disconnect and still connect", func() {
			client.SetDisconnectError(&wnet.Error{Op: "WNetCancelConnection2", Name: "S:", Code: wnet.ErrorOpenFiles})

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 2})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Disconnected).To(BeFalse())
			Expect(client.DisconnectCalls()).To(HaveLen(1))
			Expect(client.ConnectCalls()).NotTo(BeEmpty())
			Expect(counterValue(metrics.Registry(), "mapdrive_disconnects_total", "status", "failure")).To(Equal(1.0))
		})

		It("should not disconnect when the drive is not mapped", func() {
			prober.SetMapped("S:", false)
			client = mock.NewMockClient()
			config.Client = client

			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())

			Expect(client.DisconnectCalls()).To(BeEmpty())
		})
	})

	Describe("connect options", func() {
		It("should connect as the current user without persisting", func() {
			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())

			opts := client.ConnectCalls()[0].Options
			Expect(opts.Persist).To(BeFalse())
			Expect(opts.SaveCredentials).To(BeFalse())
			Expect(opts.Username).To(BeEmpty())
			Expect(opts.Password).To(BeEmpty())
		})

		It("should save supplied credentials without persisting", func() {
			req := mapper.Request{
				Drive:       "S:",
				Share:       share,
				Credentials: &mapper.Credentials{Username: `NAS\backup`, Password: "s3cret"},
			}
			_, err := newMapper().Map(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			opts := client.ConnectCalls()[0].Options
			Expect(opts.Persist).To(BeFalse())
			Expect(opts.SaveCredentials).To(BeTrue())
			Expect(opts.Username).To(Equal(`NAS\backup`))
			Expect(opts.Password).To(Equal("s3cret"))
		})

		It("should ignore a password without a username", func() {
			req := mapper.Request{
				Drive:       "S:",
				Share:       share,
				Credentials: &mapper.Credentials{Password: "s3cret"},
			}
			_, err := newMapper().Map(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			opts := client.ConnectCalls()[0].Options
			Expect(opts.SaveCredentials).To(BeFalse())
			Expect(opts.Password).To(BeEmpty())
		})
	})

	Describe("retry budget", func() {
		It("should succeed after three failures within a 20 second budget", func() {
			client.FailConnect(3, netErr(wnet.ErrorBadNetPath))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 20})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))
			Expect(result.Attempts).To(Equal(4))
			Expect(result.Sleeps).To(Equal(3))
			Expect(result.Remaining).To(Equal(17))
			Expect(client.IsMapped("S:")).To(BeTrue())
			Expect(timer.Sleeps()).To(Equal([]time.Duration{time.Second, time.Second, time.Second}))
		})

		It("should make budget+1 attempts and budget sleeps when every attempt fails", func() {
			client.SetConnectError(netErr(wnet.ErrorBadNetPath))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 2})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))
			Expect(result.Outcome.Success()).To(BeFalse())
			Expect(result.Attempts).To(Equal(3))
			Expect(result.Sleeps).To(Equal(2))
			Expect(result.Remaining).To(Equal(-1))
			Expect(wnet.CodeOf(result.LastErr)).To(Equal(wnet.ErrorBadNetPath))
			Expect(timer.Sleeps()).To(HaveLen(2))

			reg := metrics.Registry()
			Expect(counterValue(reg, "mapdrive_connect_attempts_total", "result", "retryable")).To(Equal(3.0))
			Expect(counterValue(reg, "mapdrive_map_operations_total", "outcome", "exhausted")).To(Equal(1.0))
		})

		It("should make a single attempt with a zero budget", func() {
			client.SetConnectError(netErr(wnet.ErrorBadNetPath))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 0})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))
			Expect(result.Attempts).To(Equal(1))
			Expect(result.Sleeps).To(Equal(0))
			Expect(result.Remaining).To(Equal(-1))
			Expect(timer.Sleeps()).To(BeEmpty())
		})

		It("should not sleep after an immediate success", func() {
			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 5})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))
			Expect(result.Attempts).To(Equal(1))
			Expect(result.Sleeps).To(Equal(0))
			Expect(result.Remaining).To(Equal(5))
			Expect(result.LastErr).To(BeNil())
			Expect(counterValue(metrics.Registry(), "mapdrive_connect_attempts_total", "result", "success")).To(Equal(1.0))
		})

		It("should wait the configured interval between attempts", func() {
			config.RetryInterval = 250 * time.Millisecond
			client.FailConnect(2, netErr(wnet.ErrorNoNetwork))

			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 5})
			Expect(err).NotTo(HaveOccurred())

			Expect(timer.Sleeps()).To(Equal([]time.Duration{250 * time.Millisecond, 250 * time.Millisecond}))
		})
	})

	Describe("fatal failures", func() {
		It("should retry fatal failures until the budget runs out when no threshold is set", func() {
			client.SetConnectError(netErr(wnet.ErrorAccessDenied))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 3})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))
			Expect(result.Attempts).To(Equal(4))
		})

		It("should abort after the threshold of consecutive fatal failures", func() {
			config.FatalThreshold = 2
			client.SetConnectError(netErr(wnet.ErrorLogonFailure))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 10})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeAborted))
			Expect(result.Attempts).To(Equal(2))
			Expect(result.Sleeps).To(Equal(1))
			Expect(result.Remaining).To(Equal(8))
			Expect(wnet.CodeOf(result.LastErr)).To(Equal(wnet.ErrorLogonFailure))

			reg := metrics.Registry()
			Expect(counterValue(reg, "mapdrive_connect_attempts_total", "result", "fatal")).To(Equal(2.0))
			Expect(counterValue(reg, "mapdrive_map_operations_total", "outcome", "aborted")).To(Equal(1.0))
		})

		It("should abort when access is denied from the first attempt", func() {
			config.FatalThreshold = 3
			client.SetErrorInjector(mock.NewErrorInjector(mock.ErrorModeAccessDenied, 0))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 20})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeAborted))
			Expect(result.Attempts).To(Equal(3))
			Expect(result.Remaining).To(Equal(17))
		})

		It("should reset the fatal streak on a retryable failure", func() {
			config.FatalThreshold = 2
			client.FailConnect(1, netErr(wnet.ErrorAccessDenied))
			client.FailConnect(1, netErr(wnet.ErrorBadNetPath))
			client.FailConnect(1, netErr(wnet.ErrorAccessDenied))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 10})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))
			Expect(result.Attempts).To(Equal(4))
		})

		It("should never abort on retryable failures", func() {
			config.FatalThreshold = 1
			client.SetConnectError(netErr(wnet.ErrorHostUnreachable))

			result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 4})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))
			Expect(result.Attempts).To(Equal(5))
		})

		DescribeTable("should stop according to the server failure mode",
			func(mode string, want mapper.Outcome, attempts int) {
				config.FatalThreshold = 2
				client.SetErrorInjector(mock.NewErrorInjector(mock.ParseErrorMode(mode), 0))

				result, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 5})
				Expect(err).NotTo(HaveOccurred())

				Expect(result.Outcome).To(Equal(want))
				Expect(result.Attempts).To(Equal(attempts))
			},
			Entry("server down", "network_down", mapper.OutcomeExhausted, 6),
			Entry("access denied", "access_denied", mapper.OutcomeAborted, 2),
			Entry("bad password", "logon_failure", mapper.OutcomeAborted, 2),
			Entry("healthy server", "none", mapper.OutcomeMapped, 1),
		)

		It("should fail again after the server goes down until the injector is reset", func() {
			injector := mock.NewErrorInjector(mock.ErrorModeNetworkDown, 1)
			client.SetErrorInjector(injector)
			m := newMapper()

			result, err := m.Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))

			result, err = m.Map(ctx, mapper.Request{Drive: "T:", Share: share, Timeout: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))
			Expect(result.Attempts).To(Equal(2))
			Expect(wnet.CodeOf(result.LastErr)).To(Equal(wnet.ErrorBadNetPath))

			injector.Reset()
			result, err = m.Map(ctx, mapper.Request{Drive: "U:", Share: share})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(mapper.OutcomeMapped))
		})
	})

	Describe("security audit", func() {
		It("should audit a credentialed run with rejected logons", func() {
			client.SetConnectError(netErr(wnet.ErrorLogonFailure))
			req := mapper.Request{
				Drive:       "S:",
				Share:       share,
				Timeout:     1,
				Credentials: &mapper.Credentials{Username: "backup", Password: "s3cret"},
			}

			result, err := newMapper().Map(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(mapper.OutcomeExhausted))

			reg := metrics.Registry()
			Expect(counterValue(reg, "mapdrive_security_events_total", "type", "credential_connect_attempt")).To(Equal(1.0))
			Expect(counterValue(reg, "mapdrive_security_events_total", "type", "logon_denied")).To(Equal(2.0))
			Expect(counterValue(reg, "mapdrive_security_events_total", "type", "credential_connect_failure")).To(Equal(1.0))
		})

		It("should audit a successful credentialed connect", func() {
			req := mapper.Request{
				Drive:       "S:",
				Share:       share,
				Credentials: &mapper.Credentials{Username: "backup", Password: "s3cret"},
			}

			_, err := newMapper().Map(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(counterValue(metrics.Registry(), "mapdrive_security_events_total", "type", "credential_connect_success")).To(Equal(1.0))
		})

		It("should not audit credentials for a current-user connect", func() {
			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())

			Expect(counterValue(metrics.Registry(), "mapdrive_security_events_total", "type", "credential_connect_attempt")).To(BeZero())
		})

		It("should audit the breaker opening", func() {
			config.FatalThreshold = 1
			client.SetConnectError(netErr(wnet.ErrorAccessDenied))

			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share, Timeout: 5})
			Expect(err).NotTo(HaveOccurred())

			Expect(counterValue(metrics.Registry(), "mapdrive_security_events_total", "type", "fatal_breaker_open")).To(Equal(1.0))
		})

		It("should audit removal of a stale mapping", func() {
			prober.SetMapped("S:", true)
			client.SetMapped("S:", share)

			_, err := newMapper().Map(ctx, mapper.Request{Drive: "S:", Share: share})
			Expect(err).NotTo(HaveOccurred())

			Expect(counterValue(metrics.Registry(), "mapdrive_security_events_total", "type", "stale_mapping_removed")).To(Equal(1.0))
		})
	})

	Describe("cancellation", func() {
		It("should stop retrying when the context is canceled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			client.SetConnectError(netErr(wnet.ErrorBadNetPath))
			timer.OnStart(func(n int) {
				if n == 2 {
					cancel()
				}
			})

			result, err := newMapper().Map(runCtx, mapper.Request{Drive: "S:", Share: share, Timeout: 30})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeCanceled))
			Expect(result.Sleeps).To(Equal(2))
			Expect(result.Attempts).To(BeNumerically("<=", 3))
			Expect(counterValue(metrics.Registry(), "mapdrive_map_operations_total", "outcome", "canceled")).To(Equal(1.0))
		})

		It("should report canceled for an already canceled context", func() {
			runCtx, cancel := context.WithCancel(ctx)
			cancel()

			client.SetConnectError(netErr(wnet.ErrorBadNetPath))

			result, err := newMapper().Map(runCtx, mapper.Request{Drive: "S:", Share: share, Timeout: 30})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Outcome).To(Equal(mapper.OutcomeCanceled))
			Expect(result.Attempts).To(Equal(1))
			Expect(result.Sleeps).To(Equal(0))
		})
	})

	Describe("Disconnect", func() {
		It("should normalize the drive and force the disconnect", func() {
			client.SetMapped("X:", share)

			err := newMapper().Disconnect(ctx, "x", true)
			Expect(err).NotTo(HaveOccurred())

			Expect(client.DisconnectCalls()).To(Equal([]mock.DisconnectCall{{Name: "X:", Force: true}}))
			Expect(client.IsMapped("X:")).To(BeFalse())
		})

		It("should wrap the OS error", func() {
			err := newMapper().Disconnect(ctx, "X:", false)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to disconnect drive"))
			Expect(err.Error()).To(ContainSubstring("X:"))
			Expect(utils.IsInternalError(err)).To(BeTrue())
			Expect(wnet.CodeOf(err)).To(Equal(wnet.ErrorNotConnected))
		})

		It("should reject an invalid drive", func() {
			err := newMapper().Disconnect(ctx, "XY", true)

			Expect(errors.Is(err, utils.ErrInvalidDrive)).To(BeTrue())
			Expect(utils.IsValidationError(err)).To(BeTrue())
			Expect(client.DisconnectCalls()).To(BeEmpty())
		})
	})

	Describe("Restore", func() {
		It("should restore the remembered mapping", func() {
			err := newMapper().Restore(ctx, "s:")
			Expect(err).NotTo(HaveOccurred())

			Expect(client.RestoreCalls()).To(Equal([]string{"S:"}))
		})

		It("should wrap the OS error", func() {
			client.SetRestoreError(&wnet.Error{Op: "WNetRestoreConnection", Name: "S:", Code: wnet.ErrorNoNetOrBadPath})

			err := newMapper().Restore(ctx, "S:")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to restore drive"))
			Expect(utils.IsInternalError(err)).To(BeTrue())
			Expect(wnet.CodeOf(err)).To(Equal(wnet.ErrorNoNetOrBadPath))
		})
	})
})
