package notify_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/exambot/internal/adapters/repository"
	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/notify"
	"github.com/okian/exambot/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDirectory struct {
	channels map[string]*fakeChannel
}

func (d *fakeDirectory) Find(ctx context.Context, name string) (notify.Channel, error) {
	ch, ok := d.channels[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, notify.ErrChannelNotFound)
	}
	return ch, nil
}

type fakeChannel struct {
	mu       sync.Mutex
	name     string
	seq      int
	messages []*fakeMessage
	pinFails int
	postErr  error
	events   []string
}

type fakeMessage struct {
	id     string
	own    bool
	text   string
	pinned bool
	ch     *fakeChannel
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) ListOwnMessages(ctx context.Context) ([]notify.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "list")
	var out []notify.Message
	for _, m := range c.messages {
		if m.own {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *fakeChannel) Post(ctx context.Context, text string) (notify.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "post")
	if c.postErr != nil {
		return nil, c.postErr
	}
	c.seq++
	m := &fakeMessage{id: fmt.Sprintf("m%d", c.seq), own: true, text: text, ch: c}
	c.messages = append(c.messages, m)
	return m, nil
}

func (c *fakeChannel) add(own bool, text string) {
	c.seq++
	c.messages = append(c.messages, &fakeMessage{id: fmt.Sprintf("m%d", c.seq), own: own, text: text, ch: c})
}

func (c *fakeChannel) own() []*fakeMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeMessage
	for _, m := range c.messages {
		if m.own {
			out = append(out, m)
		}
	}
	return out
}

func (m *fakeMessage) ID() string { return m.id }

func (m *fakeMessage) Delete(ctx context.Context) error {
	m.ch.mu.Lock()
	defer m.ch.mu.Unlock()
	m.ch.events = append(m.ch.events, "delete")
	for i, x := range m.ch.messages {
		if x == m {
			m.ch.messages = append(m.ch.messages[:i], m.ch.messages[i+1:]...)
			break
		}
	}
	return nil
}

func (m *fakeMessage) Pin(ctx context.Context) error {
	m.ch.mu.Lock()
	defer m.ch.mu.Unlock()
	m.ch.events = append(m.ch.events, "pin")
	if m.ch.pinFails > 0 {
		m.ch.pinFails--
		return errors.New("rate limited")
	}
	m.pinned = true
	return nil
}

func schedule(ctx context.Context, codes ...string) repository.Store {
	store := repository.NewSnapshotStore()
	recs := make(map[course.Code]model.ExamRecord)
	for _, c := range codes {
		code := course.Must(c)
		rooms := "HMLT206"
		recs[code] = model.ExamRecord{Course: code, Rooms: &rooms}
	}
	store.Replace(ctx, recs)
	return store
}

func TestReconcile(t *testing.T) {
	Convey("Given a schedule and a channel holding one earlier notification", t, func() {
		ctx := context.Background()
		store := schedule(ctx, "COMP102", "ENGR123")
		comp := &fakeChannel{name: "comp-102"}
		comp.add(true, "stale")
		comp.add(false, "a student's question")
		dir := &fakeDirectory{channels: map[string]*fakeChannel{"comp-102": comp}}
		r := notify.NewReconciler(query.New(store), dir)

		Convey("When the course is reconciled twice", func() {
			first := r.Reconcile(ctx, "COMP102")
			afterFirst := comp.own()
			second := r.Reconcile(ctx, "comp-102")
			afterSecond := comp.own()

			Convey("Then exactly one pinned message is present after each call", func() {
				So(first.Done(), ShouldBeTrue)
				So(first.Deleted, ShouldEqual, 1)
				So(afterFirst, ShouldHaveLength, 1)
				So(afterFirst[0].pinned, ShouldBeTrue)

				So(second.Done(), ShouldBeTrue)
				So(second.Deleted, ShouldEqual, 1)
				So(afterSecond, ShouldHaveLength, 1)
				So(afterSecond[0].pinned, ShouldBeTrue)
				So(afterSecond[0].id, ShouldEqual, second.MessageID)
			})

			Convey("And messages from other authors are left alone", func() {
				So(len(comp.messages), ShouldEqual, 2)
			})

			Convey("And the posted text is the course line in a code block", func() {
				So(afterSecond[0].text, ShouldEqual, "```\nCOMP102\t-\t-\t-\tHMLT206\n```")
			})

			Convey("And stale messages are deleted before the post, which precedes the pin", func() {
				So(comp.events[:4], ShouldResemble, []string{"list", "delete", "post", "pin"})
			})
		})

		Convey("When the token is not a course", func() {
			out := r.Reconcile(ctx, "hello")
			So(out.State, ShouldEqual, notify.StateFailed)
			So(out.Reason, ShouldEqual, model.ReasonNotACourse)
			So(comp.events, ShouldBeEmpty)
		})

		Convey("When the course has no exam data", func() {
			out := r.Reconcile(ctx, "MATH161")

			Convey("Then nothing is published", func() {
				So(out.Reason, ShouldEqual, model.ReasonNoData)
				So(errors.Is(out.Err, query.ErrNoData), ShouldBeTrue)
			})
		})

		Convey("When the channel does not exist", func() {
			out := r.Reconcile(ctx, "ENGR123")

			Convey("Then the miss names the channel", func() {
				So(out.Reason, ShouldEqual, model.ReasonChannelNotFound)
				So(out.Channel, ShouldEqual, "engr-123")
				So(errors.Is(out.Err, notify.ErrChannelNotFound), ShouldBeTrue)
			})
		})

		Convey("When the message cannot fit the budget", func() {
			small := notify.NewReconciler(query.New(store), dir, notify.WithBudget(10))
			out := small.Reconcile(ctx, "COMP102")
			So(out.Reason, ShouldEqual, model.ReasonLineTooLarge)
			So(comp.events, ShouldBeEmpty)
		})

		Convey("When posting fails", func() {
			comp.postErr = errors.New("forbidden")
			out := r.Reconcile(ctx, "COMP102")

			Convey("Then the failed step is recorded", func() {
				So(out.State, ShouldEqual, notify.StateFailed)
				So(out.FailedAt, ShouldEqual, notify.StatePosting)
				So(out.Reason, ShouldEqual, model.ReasonChannelFailure)
				So(comp.own(), ShouldBeEmpty)
			})

			Convey("And resuming after recovery runs the whole sequence again", func() {
				comp.postErr = nil
				again := r.Resume(ctx, out)
				So(again.Done(), ShouldBeTrue)
				So(comp.own(), ShouldHaveLength, 1)
			})
		})

		Convey("When pinning fails once", func() {
			comp.pinFails = 1
			out := r.Reconcile(ctx, "COMP102")

			Convey("Then the outcome stops at pinning with the message posted", func() {
				So(out.FailedAt, ShouldEqual, notify.StatePinning)
				So(out.MessageID, ShouldNotBeEmpty)
			})

			Convey("And Resume pins the same message without reposting", func() {
				before := len(comp.events)
				again := r.Resume(ctx, out)
				So(again.Done(), ShouldBeTrue)
				So(again.MessageID, ShouldEqual, out.MessageID)
				So(comp.events[before:], ShouldResemble, []string{"pin"})
				own := comp.own()
				So(own, ShouldHaveLength, 1)
				So(own[0].pinned, ShouldBeTrue)
			})
		})

		Convey("When Resume is given a successful outcome", func() {
			out := r.Reconcile(ctx, "COMP102")
			n := len(comp.events)
			So(r.Resume(ctx, out), ShouldResemble, out)
			So(len(comp.events), ShouldEqual, n)
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			out := r.Reconcile(cctx, "COMP102")

			Convey("Then no channel operation is issued", func() {
				So(out.Reason, ShouldEqual, model.ReasonCanceled)
				So(comp.events, ShouldBeEmpty)
				So(comp.own(), ShouldHaveLength, 1)
			})
		})
	})
}

func TestReconcileAll(t *testing.T) {
	Convey("Given several courses where some cannot be notified", t, func() {
		ctx := context.Background()
		store := schedule(ctx, "COMP102", "ENGR123", "SWEN225")
		dir := &fakeDirectory{channels: map[string]*fakeChannel{
			"comp-102": {name: "comp-102"},
			"swen-225": {name: "swen-225"},
		}}
		r := notify.NewReconciler(query.New(store), dir, notify.WithWorkers(2))

		sum := r.ReconcileAll(ctx, []string{"SWEN225", "ENGR123", "COMP102", "junk"})

		Convey("Then the successes are counted and failures collected in code order", func() {
			So(sum.Notified, ShouldEqual, 2)
			So(sum.Outcomes, ShouldHaveLength, 4)
			So(sum.Failures, ShouldResemble, []model.Miss{
				{Token: "ENGR123", Reason: model.ReasonChannelNotFound},
				{Token: "junk", Reason: model.ReasonNotACourse},
			})
			So(dir.channels["comp-102"].own(), ShouldHaveLength, 1)
			So(dir.channels["swen-225"].own(), ShouldHaveLength, 1)
		})
	})

	Convey("Given the same course requested concurrently", t, func() {
		ctx := context.Background()
		store := schedule(ctx, "COMP102")
		comp := &fakeChannel{name: "comp-102"}
		dir := &fakeDirectory{channels: map[string]*fakeChannel{"comp-102": comp}}
		r := notify.NewReconciler(query.New(store), dir, notify.WithWorkers(8))

		tokens := make([]string, 16)
		for i := range tokens {
			tokens[i] = "COMP102"
		}
		sum := r.ReconcileAll(ctx, tokens)

		Convey("Then the per-course lock leaves a single pinned message", func() {
			So(sum.Notified, ShouldEqual, 1)
			So(sum.Outcomes, ShouldHaveLength, 16)
			own := comp.own()
			So(own, ShouldHaveLength, 1)
			So(own[0].pinned, ShouldBeTrue)
		})
	})

	Convey("Given one course written several ways", t, func() {
		ctx := context.Background()
		store := schedule(ctx, "COMP102")
		comp := &fakeChannel{name: "comp-102"}
		dir := &fakeDirectory{channels: map[string]*fakeChannel{"comp-102": comp}}
		r := notify.NewReconciler(query.New(store), dir)

		sum := r.ReconcileAll(ctx, []string{"COMP102", "comp-102", "comp 102"})

		Convey("Then the channel is counted once", func() {
			So(sum.Notified, ShouldEqual, 1)
			So(sum.Outcomes, ShouldHaveLength, 3)
			So(sum.Failures, ShouldBeEmpty)
			So(comp.own(), ShouldHaveLength, 1)
		})
	})
}

func TestKeyedMutex(t *testing.T) {
	Convey("Given a keyed mutex", t, func() {
		ctx := context.Background()
		km := notify.NewKeyedMutex()

		unlock, err := km.Lock(ctx, "COMP102")
		So(err, ShouldBeNil)

		Convey("Then other keys are independent", func() {
			u2, err := km.Lock(ctx, "ENGR123")
			So(err, ShouldBeNil)
			So(km.Held(), ShouldEqual, 2)
			u2()
			unlock()
			So(km.Held(), ShouldEqual, 0)
		})

		Convey("Then a second holder of the same key waits until ctx ends", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := km.Lock(cctx, "COMP102")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			unlock()
			So(km.Held(), ShouldEqual, 0)
		})

		Convey("Then unlocking twice is harmless", func() {
			unlock()
			unlock()
			u, err := km.Lock(ctx, "COMP102")
			So(err, ShouldBeNil)
			u()
		})
	})
}
