package e2e_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alkoleft/web-transport-addin/pkg/addin"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

var _ = Describe("WebSocket client", func() {
	var (
		peer *httptest.Server
		ws   *addin.WS
		url  string
	)

	BeforeEach(func() {
		upgrader := websocket.Upgrader{}
		peer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.WriteMessage(websocket.TextMessage, []byte("welcome "+r.Header.Get("X-User")))
			for {
				kind, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if string(data) == "quit" {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				_ = conn.WriteMessage(kind, data)
			}
		}))
		url = "ws" + strings.TrimPrefix(peer.URL, "http")

		obj, err := addin.New(addin.ClassWS, nil)
		Expect(err).NotTo(HaveOccurred())
		ws = obj.(*addin.WS)
	})

	AfterEach(func() {
		Expect(ws.Close()).To(Succeed())
		peer.Close()
	})

	It("fails send before connect", func() {
		Expect(ws.SendMessage("x")).To(BeFalse())
		Expect(ws.LastError()).To(Equal(types.ErrNoConnection.Error()))
	})

	It("connects with extra headers and exchanges messages", func() {
		Expect(ws.Connect(url, `{"X-User":"alice"}`)).To(BeTrue(), ws.LastError())

		msg, ok := ws.ReceiveMessage(2000)
		Expect(ok).To(BeTrue())
		Expect(msg).To(Equal("welcome alice"))

		Expect(ws.SendMessage("one")).To(BeTrue())
		Expect(ws.SendMessage("two")).To(BeTrue())

		msg, _ = ws.ReceiveMessage(2000)
		Expect(msg).To(Equal("one"))
		msg, _ = ws.ReceiveMessage(2000)
		Expect(msg).To(Equal("two"))
	})

	It("returns an empty message after the timeout, not before", func() {
		Expect(ws.Connect(url, "")).To(BeTrue())
		_, _ = ws.ReceiveMessage(2000)

		start := time.Now()
		msg, ok := ws.ReceiveMessage(150)
		Expect(ok).To(BeTrue())
		Expect(msg).To(BeEmpty())
		Expect(time.Since(start)).To(BeNumerically(">=", 150*time.Millisecond))
	})

	It("reports end of stream as an empty message", func() {
		Expect(ws.Connect(url, "")).To(BeTrue())
		_, _ = ws.ReceiveMessage(2000)

		Expect(ws.SendMessage("quit")).To(BeTrue())
		msg, ok := ws.ReceiveMessage(5000)
		Expect(ok).To(BeTrue())
		Expect(msg).To(BeEmpty())
	})

	It("rejects an address without a host", func() {
		Expect(ws.Connect("/just/a/path", "")).To(BeFalse())
		Expect(ws.LastError()).To(HavePrefix(types.ErrInvalidAddress.Error()))
	})

	It("disconnects idempotently", func() {
		Expect(ws.Connect(url, "")).To(BeTrue())
		Expect(ws.Disconnect()).To(BeTrue())
		Expect(ws.Disconnect()).To(BeTrue())
		Expect(ws.SendMessage("x")).To(BeFalse())
	})
})
