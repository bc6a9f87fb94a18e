package fanout_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/brickfield/appraisal/internal/adapters/fanout"
	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// stubSubscriber records delivered messages and can be told to fail.
type stubSubscriber struct {
	id   string
	fail bool

	mu       sync.Mutex
	received []string
}

func (s *stubSubscriber) ID() string { return s.id }

func (s *stubSubscriber) Send(text string) error {
	if s.fail {
		return fanout.ErrSendFailed
	}
	s.mu.Lock()
	s.received = append(s.received, text)
	s.mu.Unlock()
	return nil
}

func (s *stubSubscriber) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

func TestBroadcast(t *testing.T) {
	Convey("Given a manager with three subscribers, one unreachable", t, func() {
		ctx := context.Background()
		m := fanout.NewManager()

		alive1 := &stubSubscriber{id: "s1"}
		dead := &stubSubscriber{id: "s2", fail: true}
		alive2 := &stubSubscriber{id: "s3"}
		m.Add(ctx, alive1)
		m.Add(ctx, dead)
		m.Add(ctx, alive2)
		So(m.Count(), ShouldEqual, 3)

		Convey("When broadcasting", func() {
			m.Broadcast(ctx, "hello")

			Convey("Then the reachable subscribers receive the message", func() {
				So(alive1.messages(), ShouldResemble, []string{"hello"})
				So(alive2.messages(), ShouldResemble, []string{"hello"})
			})

			Convey("And the failed one is removed, dropping the count by one", func() {
				So(m.Count(), ShouldEqual, 2)
			})

			Convey("And a second broadcast only reaches survivors", func() {
				m.Broadcast(ctx, "again")
				So(len(alive1.messages()), ShouldEqual, 2)
				So(m.Count(), ShouldEqual, 2)
			})
		})
	})
}

func TestSendTo(t *testing.T) {
	Convey("Given a manager with one subscriber", t, func() {
		ctx := context.Background()
		m := fanout.NewManager()
		sub := &stubSubscriber{id: "s1"}
		m.Add(ctx, sub)

		Convey("When sending to it by id", func() {
			ok := m.SendTo(ctx, "s1", "direct")

			Convey("Then the message is delivered", func() {
				So(ok, ShouldBeTrue)
				So(sub.messages(), ShouldResemble, []string{"direct"})
			})
		})

		Convey("When sending to an unknown id", func() {
			Convey("Then it reports failure without side effects", func() {
				So(m.SendTo(ctx, "nope", "direct"), ShouldBeFalse)
				So(m.Count(), ShouldEqual, 1)
			})
		})

		Convey("When the subscriber fails mid-send", func() {
			sub.fail = true

			Convey("Then it is removed", func() {
				So(m.SendTo(ctx, "s1", "direct"), ShouldBeFalse)
				So(m.Count(), ShouldEqual, 0)
			})
		})
	})
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	Convey("Given a manager under concurrent mutation and broadcast", t, func() {
		ctx := context.Background()
		m := fanout.NewManager()

		Convey("When connects, disconnects and broadcasts race", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					sub := &stubSubscriber{id: string(rune('a' + n))}
					m.Add(ctx, sub)
					m.Broadcast(ctx, "race")
					m.Remove(ctx, sub.ID())
				}(i)
			}
			wg.Wait()

			Convey("Then the manager ends consistent and empty", func() {
				So(m.Count(), ShouldEqual, 0)
			})
		})
	})
}

func TestMessages(t *testing.T) {
	Convey("Given the message constructors", t, func() {
		Convey("When encoding a valuation update", func() {
			result := model.EnsembleResult{PredictedValue: 6_100_000}
			raw := fanout.ValuationUpdate("prop-1", result)

			var msg fanout.Message
			So(json.Unmarshal([]byte(raw), &msg), ShouldBeNil)

			Convey("Then the envelope carries the type and payload", func() {
				So(msg.Type, ShouldEqual, "valuation_update")
				So(msg.Timestamp, ShouldNotBeEmpty)
			})
		})

		Convey("When encoding a connection ack", func() {
			var msg fanout.Message
			So(json.Unmarshal([]byte(fanout.ConnectionAck(2)), &msg), ShouldBeNil)

			Convey("Then the envelope is a connection event", func() {
				So(msg.Type, ShouldEqual, "connection")
			})
		})
	})
}
