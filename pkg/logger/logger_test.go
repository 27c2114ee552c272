package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				l := Get()
				So(l, ShouldNotBeNil)
				So(func() { l.Info(context.Background(), "test message", String("k", "v")) }, ShouldNotPanic)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized twice", func() {
			So(Init(), ShouldBeNil)
			So(Init(WithFormat("json")), ShouldBeNil)

			Convey("Then the last configuration wins", func() {
				So(Get(), ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithOutput(&buf), WithSource(false)), ShouldBeNil)

		Convey("When an entry with fields is written", func() {
			Get().Named("scoring").Info(context.Background(), "lead scored",
				String("prospect_id", "p-1"),
				Float64("overall", 7.5),
				Bool("hot", false),
			)

			Convey("Then the output is a JSON object with grouped fields", func() {
				var entry map[string]any
				So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)
				So(entry["msg"], ShouldEqual, "lead scored")
				group, ok := entry["scoring"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["prospect_id"], ShouldEqual, "p-1")
				So(group["overall"], ShouldEqual, 7.5)
			})
		})

		Convey("When With attaches fields", func() {
			Get().With(String("component", "worker")).Warn(context.Background(), "slow", Error(errors.New("boom")))

			Convey("Then every entry carries them", func() {
				So(buf.String(), ShouldContainSubstring, `"component":"worker"`)
				So(buf.String(), ShouldContainSubstring, `"level":"WARN"`)
			})
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		Reset(func() { _ = SetLevelString("info") })

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")
			Get().Error(context.Background(), "shown")

			Convey("Then only error entries are written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
				So(buf.String(), ShouldContainSubstring, "source=")
			})
		})

		Convey("When an unknown level is given", func() {
			err := SetLevelString("chatty")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), "chatty"), ShouldBeTrue)
			})
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging is a no-op at every level", func() {
			So(func() {
				ctx := context.Background()
				l.Debug(ctx, "d")
				l.Info(ctx, "i")
				l.Warn(ctx, "w")
				l.Error(ctx, "e")
				l.Named("x").With(Int("n", 1)).Info(ctx, "nested")
			}, ShouldNotPanic)
		})
	})
}
