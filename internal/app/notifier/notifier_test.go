package notifier_test

import (
	"context"
	"testing"
	"time"

	queue "github.com/okian/signupdesk/internal/adapters/mq/queue"
	worker "github.com/okian/signupdesk/internal/adapters/mq/worker"
	"github.com/okian/signupdesk/internal/app/notifier"
	"github.com/okian/signupdesk/internal/dom"
	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env/envtest"
	"github.com/smartystreets/goconvey/convey"
)

const page = `<html><body><div id="message" class="hidden"></div></body></html>`

func TestNotifier_Show(t *testing.T) {
	convey.Convey("Given a banner on a running loop", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		loop := worker.NewLoop(queue.NewInMemoryQueue())
		loop.Start(ctx)

		doc, err := dom.ParseString(page)
		convey.So(err, convey.ShouldBeNil)
		el, err := doc.RequireElementByID("message")
		convey.So(err, convey.ShouldBeNil)

		clock := envtest.New()
		n := notifier.New(el, loop, clock)

		show := func(text string, c model.Category) {
			convey.So(loop.Do(ctx, "show", func(context.Context) { n.Show(text, c) }), convey.ShouldBeNil)
		}
		current := func() (msg model.StatusMessage, visible bool) {
			convey.So(loop.Do(ctx, "read", func(context.Context) { msg, visible = n.Current() }), convey.ShouldBeNil)
			return msg, visible
		}

		convey.Convey("When a success message is shown", func() {
			show("Signed up", model.CategorySuccess)

			convey.Convey("Then it is visible with its category as the class", func() {
				msg, visible := current()
				convey.So(visible, convey.ShouldBeTrue)
				convey.So(msg.Text, convey.ShouldEqual, "Signed up")
				convey.So(el.ClassName(), convey.ShouldEqual, "success")
			})

			convey.Convey("Then it is announced to assistive technology", func() {
				role, _ := el.Attr("role")
				live, _ := el.Attr("aria-live")
				convey.So(role, convey.ShouldEqual, "alert")
				convey.So(live, convey.ShouldEqual, "assertive")
			})

			convey.Convey("Then it is still visible just before five seconds", func() {
				clock.Advance(notifier.DefaultLifetime - time.Millisecond)
				_, visible := current()
				convey.So(visible, convey.ShouldBeTrue)
			})

			convey.Convey("Then it hides at five seconds", func() {
				clock.Advance(notifier.DefaultLifetime)
				msg, visible := current()
				convey.So(visible, convey.ShouldBeFalse)
				convey.So(msg.Text, convey.ShouldEqual, "Signed up")
			})
		})

		convey.Convey("When no category is given", func() {
			show("Hello", "")

			convey.Convey("Then it defaults to info", func() {
				msg, _ := current()
				convey.So(msg.Category, convey.ShouldEqual, model.CategoryInfo)
			})
		})

		convey.Convey("When the text carries markup", func() {
			show("<b>bold</b>", model.CategoryError)

			convey.Convey("Then it is stored as text", func() {
				convey.So(el.ElementsByTag("b"), convey.ShouldBeEmpty)
				convey.So(el.TextContent(), convey.ShouldEqual, "<b>bold</b>")
			})
		})

		convey.Convey("When a second message replaces the first after three seconds", func() {
			show("first", model.CategoryInfo)
			clock.Advance(3 * time.Second)
			show("second", model.CategoryError)

			convey.Convey("Then the first timer hides the second message early", func() {
				clock.Advance(2 * time.Second)
				msg, visible := current()
				convey.So(msg.Text, convey.ShouldEqual, "second")
				convey.So(visible, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the loop stops before the timer fires", func() {
			show("bye", model.CategoryInfo)
			loop.Stop()

			convey.Convey("Then the hide is skipped without panicking", func() {
				convey.So(func() { clock.Advance(notifier.DefaultLifetime) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestNotifier_WithLifetime(t *testing.T) {
	convey.Convey("Given a notifier with a one second lifetime", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		loop := worker.NewLoop(queue.NewInMemoryQueue())
		loop.Start(ctx)
		doc, _ := dom.ParseString(page)
		el := doc.GetElementByID("message")
		clock := envtest.New()
		n := notifier.New(el, loop, clock, notifier.WithLifetime(time.Second))

		convey.So(loop.Do(ctx, "show", func(context.Context) { n.Show("x", model.CategoryInfo) }), convey.ShouldBeNil)
		clock.Advance(time.Second)

		convey.Convey("Then it hides after one second", func() {
			var visible bool
			_ = loop.Do(ctx, "read", func(context.Context) { _, visible = n.Current() })
			convey.So(visible, convey.ShouldBeFalse)
		})
	})
}

func TestNotifier_HideUnderLoad(t *testing.T) {
	convey.Convey("Given a shown message on a loop with a one-task queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		loop := worker.NewLoop(queue.NewInMemoryQueue(queue.WithCapacity(1)))
		loop.Start(ctx)
		doc, _ := dom.ParseString(page)
		el := doc.GetElementByID("message")
		clock := envtest.New()
		n := notifier.New(el, loop, clock)
		convey.So(loop.Do(ctx, "show", func(context.Context) { n.Show("Test", model.CategorySuccess) }), convey.ShouldBeNil)

		convey.Convey("When the lifetime ends while the loop is busy and its queue full", func() {
			release := make(chan struct{})
			started := make(chan struct{})
			go func() {
				_ = loop.Do(ctx, "busy", func(context.Context) {
					close(started)
					<-release
				})
			}()
			<-started
			go func() { _ = loop.Do(ctx, "queued", func(context.Context) {}) }()
			time.Sleep(10 * time.Millisecond)

			advanced := make(chan struct{})
			go func() {
				clock.Advance(notifier.DefaultLifetime)
				close(advanced)
			}()
			time.Sleep(10 * time.Millisecond)
			close(release)

			convey.Convey("Then the hide waits for room and still runs", func() {
				select {
				case <-advanced:
				case <-time.After(2 * time.Second):
					convey.So("hide never ran", convey.ShouldBeEmpty)
				}
				var visible bool
				convey.So(loop.Do(ctx, "read", func(context.Context) { _, visible = n.Current() }), convey.ShouldBeNil)
				convey.So(visible, convey.ShouldBeFalse)
			})
		})
	})
}
