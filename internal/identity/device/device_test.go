package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DeviceSuite struct {
	suite.Suite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) TestUserAgentParsing() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		result := ParseUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.NotContains(result, "  ")
	})

	s.Run("safari on iphone includes platform", func() {
		result := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.Contains(result, " on ")
		s.Contains(result, "iPhone")
	})

	s.Run("firefox on linux includes browser and OS", func() {
		result := ParseUserAgent("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		s.Contains(result, "Firefox")
		s.Contains(result, "Linux")
	})

	s.Run("result has no leading or trailing whitespace", func() {
		result := ParseUserAgent("  Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36  ")
		s.Equal(result, strings.TrimSpace(result))
		s.NotEmpty(result)
	})
}
