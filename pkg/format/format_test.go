package format

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCurrency(t *testing.T) {
	Convey("Given won amounts", t, func() {
		Convey("Positive values are grouped and carry the won sign", func() {
			out := Currency(1000000)
			So(out, ShouldContainSubstring, "1,000,000")
			So(out, ShouldContainSubstring, "₩")
		})

		Convey("Zero is rendered", func() {
			So(Currency(0), ShouldContainSubstring, "0")
		})

		Convey("Negative values keep the minus sign in front", func() {
			out := Currency(-50000)
			So(out, ShouldContainSubstring, "50,000")
			So(out, ShouldStartWith, "-")
		})

		Convey("Large values are grouped", func() {
			So(Currency(123456789012), ShouldContainSubstring, "123,456,789,012")
		})

		Convey("Fractions are rounded away", func() {
			So(Currency(1234.56), ShouldEqual, "₩1,235")
		})
	})
}

func TestNumber(t *testing.T) {
	Convey("Given plain numbers", t, func() {
		Convey("Thousand separators are inserted", func() {
			So(Number(1000), ShouldEqual, "1,000")
			So(Number(1000000), ShouldEqual, "1,000,000")
			So(Number(123456789), ShouldEqual, "123,456,789")
		})

		Convey("Small numbers are left alone", func() {
			So(Number(0), ShouldEqual, "0")
			So(Number(100), ShouldEqual, "100")
			So(Number(999), ShouldEqual, "999")
		})

		Convey("Negative numbers are grouped", func() {
			So(Number(-1000000), ShouldContainSubstring, "1,000,000")
		})

		Convey("Decimals keep the integer grouping", func() {
			So(Number(1234.56), ShouldContainSubstring, "1,234")
		})

		Convey("Integer counts are grouped", func() {
			So(Int(1200), ShouldEqual, "1,200")
		})
	})
}

func TestPercent(t *testing.T) {
	Convey("Given percentages", t, func() {
		Convey("One decimal place is always shown", func() {
			So(Percent(50), ShouldEqual, "50.0%")
			So(Percent(100), ShouldEqual, "100.0%")
			So(Percent(0), ShouldEqual, "0.0%")
		})

		Convey("Values are rounded to one decimal", func() {
			So(Percent(33.333), ShouldEqual, "33.3%")
			So(Percent(66.666), ShouldEqual, "66.7%")
			So(Percent(99.999), ShouldEqual, "100.0%")
		})

		Convey("Negative and small values", func() {
			So(Percent(-25.5), ShouldEqual, "-25.5%")
			So(Percent(0.1), ShouldEqual, "0.1%")
			So(Percent(0.05), ShouldEqual, "0.1%")
			So(Percent(0.04), ShouldEqual, "0.0%")
		})

		Convey("Values over 100", func() {
			So(Percent(150), ShouldEqual, "150.0%")
			So(Percent(200.5), ShouldEqual, "200.5%")
		})
	})
}
