package e2e_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alkoleft/web-transport-addin/citest/testutil"
	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/pkg/addin"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

const wait = 5 * time.Second

type reply struct {
	status int
	header http.Header
	body   string
}

// fetch runs req in the background; the host answers it meanwhile.
func fetch(req *http.Request) <-chan reply {
	out := make(chan reply, 1)
	go func() {
		defer GinkgoRecover()
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		out <- reply{status: resp.StatusCode, header: resp.Header, body: string(body)}
	}()
	return out
}

var _ = Describe("HTTP listener", func() {
	var host *testutil.Host

	BeforeEach(func() {
		var err error
		host, err = testutil.NewHost(addin.ClassMCP, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(host.AddIn.StartHTTP("127.0.0.1:0")).To(BeTrue(), host.AddIn.LastError())
	})

	AfterEach(func() {
		Expect(host.Close()).To(Succeed())
	})

	Describe("generic requests", func() {
		It("delivers the request and returns the host's answer", func() {
			req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/unknown/path", nil)
			pending := fetch(req)

			n, in, err := host.NextRequest(wait)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Source).To(Equal(types.EventSource))
			Expect(n.Name).To(Equal(types.EventHTTP))
			Expect(in.ID).NotTo(BeEmpty())
			Expect(in.Method).To(Equal(http.MethodGet))
			Expect(in.Path).To(Equal("/unknown/path"))

			Expect(host.AddIn.SendHTTPResponse(in.ID, 200, "{}", "ok")).To(BeTrue())

			var r reply
			Eventually(pending, wait).Should(Receive(&r))
			Expect(r.status).To(Equal(http.StatusOK))
			Expect(r.body).To(Equal("ok"))
			Expect(r.header.Get("Content-Type")).To(Equal("application/json; charset=utf-8"))
			Expect(r.header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("gives every concurrent request its own id", func() {
			const n = 20
			replies := make([]<-chan reply, n)
			for i := range replies {
				req, _ := http.NewRequest(http.MethodPost, host.BaseURL()+"/batch", strings.NewReader("x"))
				replies[i] = fetch(req)
			}

			seen := map[string]bool{}
			for range replies {
				_, in, err := host.NextRequest(wait)
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(in.ID))
				seen[in.ID] = true
				Expect(host.AddIn.SendHTTPResponse(in.ID, 204, "", "")).To(BeTrue())
			}

			for _, ch := range replies {
				var r reply
				Eventually(ch, wait).Should(Receive(&r))
				Expect(r.status).To(Equal(http.StatusNoContent))
			}
		})

		It("rejects an out-of-range status without consuming the request", func() {
			req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/status", nil)
			pending := fetch(req)

			_, in, err := host.NextRequest(wait)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.AddIn.SendHTTPResponse(in.ID, 999, "{}", "")).To(BeFalse())
			Expect(host.AddIn.LastError()).To(ContainSubstring(types.ErrInvalidStatusCode.Error()))

			Expect(host.AddIn.SendHTTPResponse(in.ID, 418, "{}", "teapot")).To(BeTrue())
			var r reply
			Eventually(pending, wait).Should(Receive(&r))
			Expect(r.status).To(Equal(http.StatusTeapot))
		})

		It("answers only once per id", func() {
			req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/once", nil)
			pending := fetch(req)

			_, in, err := host.NextRequest(wait)
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if host.AddIn.SendHTTPResponse(in.ID, 200, "", "done") {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
			Eventually(pending, wait).Should(Receive())
		})
	})

	Describe("server control", func() {
		It("refuses a second start and keeps serving", func() {
			Expect(host.AddIn.StartHTTP("127.0.0.1:0")).To(BeFalse())
			Expect(host.AddIn.LastError()).To(Equal(types.ErrAlreadyRunning.Error()))

			resp, err := http.Get(host.BaseURL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("MCP server"))
		})

		It("stops without hanging while work is outstanding", func() {
			req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/parked", nil)
			pending := fetch(req)
			_, _, err := host.NextRequest(wait)
			Expect(err).NotTo(HaveOccurred())

			sse := testutil.NewSSEClient(host.BaseURL())
			Expect(sse.Connect(context.Background(), "/sse?sessionId=held")).To(Succeed())
			defer sse.Close()

			stopped := make(chan bool, 1)
			go func() { stopped <- host.AddIn.StopHTTP() }()
			Eventually(stopped, wait).Should(Receive(BeTrue()))

			var r reply
			Eventually(pending, wait).Should(Receive(&r))
			Expect(r.status).To(Equal(http.StatusInternalServerError))
			Expect(sse.Done(wait)).To(BeTrue())

			Expect(host.AddIn.SendHTTPResponse("1", 200, "{}", "")).To(BeFalse())
			Expect(host.AddIn.LastError()).To(Equal(types.ErrNotRunning.Error()))
			Expect(host.AddIn.SendSSE("held", "x")).To(BeFalse())
			Expect(host.AddIn.LastError()).To(Equal(types.ErrNotRunning.Error()))
		})
	})

	Describe("SSE sessions", func() {
		It("announces the endpoint and relays messages in order", func() {
			sse := testutil.NewSSEClient(host.BaseURL())
			Expect(sse.Connect(context.Background(), "/sse")).To(Succeed())
			defer sse.Close()

			endpoint, ok := sse.Next(wait)
			Expect(ok).To(BeTrue())
			Expect(endpoint.Type).To(Equal("endpoint"))
			Expect(endpoint.Data).To(MatchRegexp(`^http://127\.0\.0\.1:\d+/message\?sessionId=\d+$`))
			id := endpoint.Data[strings.LastIndex(endpoint.Data, "=")+1:]

			n, err := host.Next(wait)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Name).To(Equal(types.EventSSEOpen))
			Expect(n.Data).To(MatchJSON(`{"id":"` + id + `","path":"/sse","headers":{}}`))

			for _, msg := range []string{"hello", "multi\nline", ""} {
				Expect(host.AddIn.SendSSE(id, msg)).To(BeTrue())
			}
			for _, want := range []string{"hello", "multi\nline", ""} {
				evt, ok := sse.Next(wait)
				Expect(ok).To(BeTrue())
				Expect(evt.Type).To(Equal("message"))
				Expect(evt.Data).To(Equal(want))
			}

			Expect(host.AddIn.CloseSSE(id)).To(BeTrue())
			Expect(sse.Done(wait)).To(BeTrue())
			Expect(host.AddIn.SendSSE(id, "late")).To(BeFalse())
			Expect(host.AddIn.LastError()).To(ContainSubstring(types.ErrSessionNotFound.Error()))
			Expect(host.AddIn.CloseSSE(id)).To(BeTrue())
		})

		It("forwards message-protocol posts with the fixed id", func() {
			resp, err := http.Post(host.BaseURL()+"/message?sessionId=abc", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			n, in, err := host.NextRequest(wait)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Name).To(Equal(types.EventMCPMessage))
			Expect(in.ID).To(Equal(types.MCPMessageID))
			Expect(in.Query).To(Equal("sessionId=abc"))
		})
	})
})

var _ = Describe("Response timeout", func() {
	It("answers 504 and forgets the request", func() {
		cfg := config.Default()
		cfg.HTTP.ResponseTimeout = config.Duration(100 * time.Millisecond)

		host, err := testutil.NewHost(addin.ClassHTTP, cfg)
		Expect(err).NotTo(HaveOccurred())
		defer host.Close()
		Expect(host.AddIn.StartHTTP("127.0.0.1:0")).To(BeTrue())

		req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/slow", nil)
		pending := fetch(req)

		_, in, err := host.NextRequest(wait)
		Expect(err).NotTo(HaveOccurred())

		var r reply
		Eventually(pending, wait).Should(Receive(&r))
		Expect(r.status).To(Equal(http.StatusGatewayTimeout))
		Expect(r.body).To(Equal("Handler timeout"))

		Expect(host.AddIn.SendHTTPResponse(in.ID, 200, "{}", "late")).To(BeFalse())
		Expect(host.AddIn.LastError()).To(ContainSubstring(types.ErrRequestNotFound.Error()))
	})
})

var _ = Describe("Delivery backpressure", func() {
	It("answers 503 while the host queue is full", func() {
		host, err := testutil.NewHost(addin.ClassHTTP, nil)
		Expect(err).NotTo(HaveOccurred())
		defer host.Close()
		Expect(host.AddIn.StartHTTP("127.0.0.1:0")).To(BeTrue())

		host.Queue.SetEventBufferDepth(1)
		Expect(host.Queue.ExternalEvent("test", "filler", "")).To(BeTrue())

		req, _ := http.NewRequest(http.MethodGet, host.BaseURL()+"/busy", nil)
		var r reply
		Eventually(fetch(req), wait).Should(Receive(&r))
		Expect(r.status).To(Equal(http.StatusServiceUnavailable))
		Expect(r.body).To(Equal("Event queue is full"))

		_, ok := host.Queue.TryNext()
		Expect(ok).To(BeTrue())

		req, _ = http.NewRequest(http.MethodGet, host.BaseURL()+"/busy", nil)
		pending := fetch(req)
		_, in, err := host.NextRequest(wait)
		Expect(err).NotTo(HaveOccurred())
		Expect(host.AddIn.SendHTTPResponse(in.ID, 200, "", "")).To(BeTrue())
		Eventually(pending, wait).Should(Receive(&r))
		Expect(r.status).To(Equal(http.StatusOK))
	})
})
